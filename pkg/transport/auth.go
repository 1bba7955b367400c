package transport

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/zulfikawr/courier/internal/metrics"
)

type credentialKey struct{}

func withCredential(ctx context.Context, c *Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, c)
}

func credentialFrom(ctx context.Context) *Credential {
	c, _ := ctx.Value(credentialKey{}).(*Credential)
	return c
}

// challengeRoundTripper answers a single 401 Basic challenge with the
// credential attached to the request context. Requests that already carry an
// Authorization header are passed through untouched.
type challengeRoundTripper struct {
	next http.RoundTripper
}

func (rt *challengeRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	cred := credentialFrom(req.Context())
	if cred == nil || resp.StatusCode != http.StatusUnauthorized || req.Header.Get("Authorization") != "" {
		return resp, nil
	}
	if !isBasicChallenge(resp.Header.Values("WWW-Authenticate")) {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	retry.SetBasicAuth(cred.Username, cred.Password)

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	metrics.RecordAuthChallenge()
	return rt.next.RoundTrip(retry)
}

// CloseIdleConnections forwards to the wrapped round tripper.
func (rt *challengeRoundTripper) CloseIdleConnections() {
	type idleCloser interface{ CloseIdleConnections() }
	if c, ok := rt.next.(idleCloser); ok {
		c.CloseIdleConnections()
	}
}

func isBasicChallenge(values []string) bool {
	for _, v := range values {
		if len(v) >= 5 && strings.EqualFold(v[:5], "basic") {
			return true
		}
	}
	return false
}
