package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"
)

// Credential is an OAuth1 access token granted by a Flickr user
type Credential struct {
	Token  string
	Secret string
}

// Options configures a Client
type Options struct {
	APIKey          string
	APISecret       string
	Endpoint        string
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	HTTPClient      *http.Client
}

// Client calls the Flickr REST API, signing requests when a credential is given
type Client struct {
	apiKey   string
	endpoint string
	oauth    *oauth1.Config
	http     *http.Client
}

// APIError is a response with "stat": "fail"
type APIError struct {
	Method  string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flickr %s: error %d: %s", e.Method, e.Code, e.Message)
}

// HTTPError is a non-200 response from Flickr
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("flickr request %s: HTTP status %d: %s", e.URL, e.StatusCode, e.Body)
}

// New creates a new Flickr client
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:   opts.APIKey,
		endpoint: opts.Endpoint,
		oauth: &oauth1.Config{
			ConsumerKey:    opts.APIKey,
			ConsumerSecret: opts.APISecret,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: opts.RequestTokenURL,
				AuthorizeURL:    opts.AuthorizeURL,
				AccessTokenURL:  opts.AccessTokenURL,
			},
			HTTPClient: httpClient,
		},
		http: httpClient,
	}
}

// Call invokes method and decodes the response into out
func (c *Client) Call(ctx context.Context, cred *Credential, method string, params map[string]string, out any) error {
	body, err := c.Raw(ctx, cred, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}

// Raw invokes method and returns the undecoded JSON body
func (c *Client) Raw(ctx context.Context, cred *Credential, method string, params map[string]string) (json.RawMessage, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")
	query.Set("nojsoncallback", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient(ctx, cred).Do(req)
	if err != nil {
		return nil, fmt.Errorf("flickr %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{URL: method, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if env.Stat != "ok" {
		return nil, &APIError{Method: method, Code: env.Code, Message: env.Message}
	}
	return body, nil
}

func (c *Client) httpClient(ctx context.Context, cred *Credential) *http.Client {
	if cred == nil || cred.Token == "" {
		return c.http
	}
	ctx = context.WithValue(ctx, oauth1.HTTPClient, c.http)
	return c.oauth.Client(ctx, oauth1.NewToken(cred.Token, cred.Secret))
}

// RequestToken starts the OAuth1 handshake
func (c *Client) RequestToken(callbackURL string) (token, secret string, err error) {
	cfg := *c.oauth
	cfg.CallbackURL = callbackURL
	token, secret, err = cfg.RequestToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to get request token: %w", err)
	}
	return token, secret, nil
}

// AuthorizationURL is where the user grants perms to the request token
func (c *Client) AuthorizationURL(requestToken, perms string) (string, error) {
	u, err := c.oauth.AuthorizationURL(requestToken)
	if err != nil {
		return "", fmt.Errorf("failed to build authorization url: %w", err)
	}
	if perms != "" {
		q := u.Query()
		q.Set("perms", perms)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// AccessToken exchanges an authorized request token for an access token
func (c *Client) AccessToken(requestToken, requestSecret, verifier string) (*Credential, error) {
	token, secret, err := c.oauth.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	return &Credential{Token: token, Secret: secret}, nil
}

// Download fetches a static image
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		resp.Body.Close()
		return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.Body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
