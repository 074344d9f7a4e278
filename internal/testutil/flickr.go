package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"flickr-mirror/internal/flickr"
)

// HandlerFunc answers one fake Flickr method call
type HandlerFunc func(cred *flickr.Credential, params map[string]string) (json.RawMessage, error)

// Call is a recorded Flickr method call
type Call struct {
	Method string
	Cred   *flickr.Credential
	Params map[string]string
}

// FakeFlickr stands in for the Flickr REST API, the OAuth1 endpoints and
// the static image hosts.
type FakeFlickr struct {
	mu        sync.Mutex
	handlers  map[string]HandlerFunc
	calls     []Call
	downloads map[string][]DownloadResult

	// Verifier is the value AccessToken expects
	Verifier string
	// Access is the credential AccessToken grants
	Access flickr.Credential
	// RequestTokenErr fails RequestToken when set
	RequestTokenErr error

	requestTokens int
}

// DownloadResult is one scripted answer of Download
type DownloadResult struct {
	Body []byte
	Err  error
}

// NewFakeFlickr creates a fake with no method handlers
func NewFakeFlickr() *FakeFlickr {
	return &FakeFlickr{
		handlers:  map[string]HandlerFunc{},
		downloads: map[string][]DownloadResult{},
		Verifier:  "verifier",
		Access:    flickr.Credential{Token: "access-token", Secret: "access-secret"},
	}
}

// Handle registers fn for method
func (f *FakeFlickr) Handle(method string, fn HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = fn
}

// Respond makes method always return body
func (f *FakeFlickr) Respond(method string, body json.RawMessage) {
	f.Handle(method, func(*flickr.Credential, map[string]string) (json.RawMessage, error) {
		return body, nil
	})
}

// Fail makes method always return a Flickr API error
func (f *FakeFlickr) Fail(method string, code int, message string) {
	f.Handle(method, func(*flickr.Credential, map[string]string) (json.RawMessage, error) {
		return nil, &flickr.APIError{Method: method, Code: code, Message: message}
	})
}

// Raw dispatches to the registered handler. Unregistered methods fail with
// Flickr's "method not found" error.
func (f *FakeFlickr) Raw(_ context.Context, cred *flickr.Credential, method string, params map[string]string) (json.RawMessage, error) {
	f.mu.Lock()
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	f.calls = append(f.calls, Call{Method: method, Cred: cred, Params: copied})
	fn, ok := f.handlers[method]
	f.mu.Unlock()

	if !ok {
		return nil, &flickr.APIError{Method: method, Code: 112, Message: fmt.Sprintf("Method %q not found", method)}
	}
	return fn(cred, copied)
}

// Calls returns the recorded calls of method, or all calls when method is empty
func (f *FakeFlickr) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// RequestToken issues numbered request tokens
func (f *FakeFlickr) RequestToken(callbackURL string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RequestTokenErr != nil {
		return "", "", f.RequestTokenErr
	}
	f.requestTokens++
	return fmt.Sprintf("request-token-%d", f.requestTokens), fmt.Sprintf("request-secret-%d", f.requestTokens), nil
}

// AuthorizationURL points at a fake approval page
func (f *FakeFlickr) AuthorizationURL(requestToken, perms string) (string, error) {
	q := url.Values{}
	q.Set("oauth_token", requestToken)
	if perms != "" {
		q.Set("perms", perms)
	}
	return "https://www.flickr.com/services/oauth/authorize?" + q.Encode(), nil
}

// AccessToken grants Access when verifier matches
func (f *FakeFlickr) AccessToken(requestToken, requestSecret, verifier string) (*flickr.Credential, error) {
	if verifier != f.Verifier {
		return nil, &flickr.HTTPError{URL: "access_token", StatusCode: 401, Body: "oauth_problem=token_rejected"}
	}
	cred := f.Access
	return &cred, nil
}

// ScriptDownload queues answers for rawURL; the last one repeats
func (f *FakeFlickr) ScriptDownload(rawURL string, results ...DownloadResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads[rawURL] = append(f.downloads[rawURL], results...)
}

// Download plays the scripted answers of rawURL. Unknown URLs are 404s.
func (f *FakeFlickr) Download(_ context.Context, rawURL string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: "download", Params: map[string]string{"url": rawURL}})
	queue := f.downloads[rawURL]
	var result DownloadResult
	switch len(queue) {
	case 0:
		result.Err = &flickr.HTTPError{URL: rawURL, StatusCode: 404, Body: "not found"}
	case 1:
		result = queue[0]
	default:
		result = queue[0]
		f.downloads[rawURL] = queue[1:]
	}
	f.mu.Unlock()

	if result.Err != nil {
		return nil, result.Err
	}
	return io.NopCloser(bytes.NewReader(result.Body)), nil
}

// CheckToken builds a flickr.auth.oauth.checkToken response
func CheckToken(token, perms, nsid, username, fullname string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
  "oauth": {"token": {"_content": %q}, "perms": {"_content": %q},
    "user": {"nsid": %q, "username": %q, "fullname": %q}},
  "stat": "ok"
}`, token, perms, nsid, username, fullname))
}

// TestLogin is a flickr.test.login response
var TestLogin = json.RawMessage(`{"user": {"id": "35034347371@N01", "username": {"_content": "bees"}}, "stat": "ok"}`)

// PeoplePhotos builds a single page flickr.people.getPhotos response
func PeoplePhotos(ids ...string) json.RawMessage {
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, fmt.Sprintf(`{"id": %q, "owner": "35034347371@N01", "secret": "x", "server": "1", "farm": 1, "title": "", "ispublic": 1}`, id))
	}
	return json.RawMessage(fmt.Sprintf(`{"photos": {"page": 1, "pages": 1, "perpage": 500, "total": %d, "photo": [%s]}, "stat": "ok"}`,
		len(ids), strings.Join(items, ",")))
}

// PhotoSetList builds a single page flickr.photosets.getList response
func PhotoSetList(albums ...json.RawMessage) json.RawMessage {
	items := make([]string, 0, len(albums))
	for _, a := range albums {
		items = append(items, string(a))
	}
	return json.RawMessage(fmt.Sprintf(`{"photosets": {"page": 1, "pages": 1, "perpage": 500, "total": %d, "photoset": [%s]}, "stat": "ok"}`,
		len(albums), strings.Join(items, ",")))
}
