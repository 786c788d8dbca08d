package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/entraops/entracopy/internal/core/domain"
)

// DefaultCallbackPort is the loopback port the redirect URI is served on.
// Register http://localhost:18080/callback on the app registration.
const DefaultCallbackPort = 18080

// DefaultLoginTimeout bounds how long an interactive login may take.
const DefaultLoginTimeout = 5 * time.Minute

// BrowserAuthorizer implements the interactive-redirect primitive with the
// system browser and a loopback HTTP server. The provider redirects with
// response_mode=fragment, and fragments never reach a server, so the
// callback page relays its own fragment back via a second local request.
// Authorize returns the redirect URL with the fragment reattached, which
// keeps the code extraction on the flow-controller side identical to what
// a captured redirect would give.
type BrowserAuthorizer struct {
	Port    int
	Timeout time.Duration

	// OpenURL opens the authorization URL in a user-visible surface.
	// Defaults to the system browser; injectable for tests.
	OpenURL func(url string) error
}

// NewBrowserAuthorizer creates an authorizer on the given port, falling
// back to DefaultCallbackPort when port is zero.
func NewBrowserAuthorizer(port int) *BrowserAuthorizer {
	if port == 0 {
		port = DefaultCallbackPort
	}
	return &BrowserAuthorizer{
		Port:    port,
		Timeout: DefaultLoginTimeout,
		OpenURL: OpenBrowser,
	}
}

// RedirectURI returns the redirect URI to declare to the provider.
func (a *BrowserAuthorizer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", a.Port)
}

// Authorize opens authURL and blocks until the provider redirects back,
// the timeout elapses (domain.ErrLoginTimeout) or ctx is cancelled
// (domain.ErrLoginCancelled).
func (a *BrowserAuthorizer) Authorize(ctx context.Context, authURL string) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", a.Port))
	if err != nil {
		return "", fmt.Errorf("start callback server: %w", err)
	}

	redirected := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", a.handleCallback)
	mux.HandleFunc("/capture", func(w http.ResponseWriter, r *http.Request) {
		select {
		case redirected <- a.RedirectURI() + "#" + r.URL.RawQuery:
		default:
			// A second redirect for the same flow is ignored.
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(closePage))
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	open := a.OpenURL
	if open == nil {
		open = OpenBrowser
	}
	if err := open(authURL); err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}

	timeout := a.Timeout
	if timeout == 0 {
		timeout = DefaultLoginTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case redirectURL := <-redirected:
		return redirectURL, nil
	case <-timer.C:
		return "", domain.ErrLoginTimeout
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", domain.ErrLoginTimeout
		}
		return "", domain.ErrLoginCancelled
	}
}

// handleCallback serves the relay page. The authorization response lives
// in the URL fragment, which the browser never sends to a server, so the
// page forwards location.hash to /capture as a query string.
func (a *BrowserAuthorizer) handleCallback(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(relayPage))
}

const relayPage = `<!DOCTYPE html>
<html><head><title>Signing in…</title></head><body>
<p>Completing sign-in…</p>
<script>
window.location.replace("/capture?" + window.location.hash.replace(/^#/, ""));
</script>
</body></html>`

const closePage = `<!DOCTYPE html>
<html><head><title>Signed in</title></head><body>
<p>Authorization received. You can close this window and return to the terminal.</p>
</body></html>`
