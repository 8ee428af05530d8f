package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const maxErrorBody = 4 << 10

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns a plain client bounded by timeout.
func New(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewBearer returns a client that sends token as an OAuth2 bearer token.
func NewBearer(ctx context.Context, token string, timeout time.Duration) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = timeout
	return client
}

// NewBasic returns a client that sends HTTP basic credentials on every request.
// Azure DevOps personal access tokens use an empty user.
func NewBasic(user, secret string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &basicAuthTransport{
			user:   user,
			secret: secret,
			base:   http.DefaultTransport,
		},
	}
}

type basicAuthTransport struct {
	user   string
	secret string
	base   http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.user, t.secret)
	return t.base.RoundTrip(clone)
}

// ReadErrorBody returns at most a few KiB of the response body for error context.
func ReadErrorBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}
