package flickr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		APIKey:       "key",
		APISecret:    "secret",
		Endpoint:     srv.URL + "/services/rest",
		AuthorizeURL: "https://www.flickr.com/services/oauth/authorize",
	})
}

func TestCall_DecodesResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "flickr.test.login", q.Get("method"))
		assert.Equal(t, "key", q.Get("api_key"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("nojsoncallback"))
		assert.Equal(t, "abc", q.Get("extra"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"user":{"id":"12@N01","username":{"_content":"bees"}},"stat":"ok"}`))
	})

	var resp TestLoginResponse
	err := c.Call(context.Background(), nil, "flickr.test.login", map[string]string{"extra": "abc"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, "12@N01", resp.User.ID.String())
	assert.Equal(t, "bees", resp.User.Username.String())
}

func TestCall_SignsWithCredential(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "OAuth "), auth)
		assert.Contains(t, auth, `oauth_token="tok"`)
		w.Write([]byte(`{"stat":"ok"}`))
	})

	_, err := c.Raw(context.Background(), &Credential{Token: "tok", Secret: "sec"}, "flickr.test.login", nil)
	require.NoError(t, err)
}

func TestCall_StatFail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stat":"fail","code":98,"message":"Invalid auth token"}`))
	})

	_, err := c.Raw(context.Background(), nil, "flickr.test.login", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 98, apiErr.Code)
	assert.Equal(t, "Invalid auth token", apiErr.Message)
}

func TestCall_HTTPStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := c.Raw(context.Background(), nil, "flickr.photos.getInfo", nil)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
}

func TestAuthorizationURL_AddsPerms(t *testing.T) {
	c := New(Options{AuthorizeURL: "https://www.flickr.com/services/oauth/authorize"})
	u, err := c.AuthorizationURL("req-token", "read")
	require.NoError(t, err)
	assert.Contains(t, u, "oauth_token=req-token")
	assert.Contains(t, u, "perms=read")
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg bytes"))
	}))
	defer srv.Close()
	c := New(Options{})

	body, err := c.Download(context.Background(), srv.URL+"/ok.jpg")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "jpeg bytes", string(data))

	_, err = c.Download(context.Background(), srv.URL+"/missing.jpg")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

type countingTransport struct {
	requests int
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.requests++
	return http.DefaultTransport.RoundTrip(r)
}

func TestOAuthUsesConfiguredHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/request_token":
			w.Write([]byte("oauth_token=rt&oauth_token_secret=rs&oauth_callback_confirmed=true"))
		case "/access_token":
			w.Write([]byte("oauth_token=at&oauth_token_secret=as"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	transport := &countingTransport{}
	c := New(Options{
		APIKey:          "key",
		APISecret:       "secret",
		RequestTokenURL: srv.URL + "/request_token",
		AuthorizeURL:    srv.URL + "/authorize",
		AccessTokenURL:  srv.URL + "/access_token",
		HTTPClient:      &http.Client{Transport: transport},
	})

	token, secret, err := c.RequestToken("http://localhost/auth/complete/")
	require.NoError(t, err)
	assert.Equal(t, "rt", token)
	assert.Equal(t, "rs", secret)

	cred, err := c.AccessToken(token, secret, "verifier")
	require.NoError(t, err)
	assert.Equal(t, &Credential{Token: "at", Secret: "as"}, cred)
	assert.Equal(t, 2, transport.requests)
}
