package main

import "flickr-mirror/cmd"

func main() {
	cmd.Execute()
}
