package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	sysbrowser "github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

// ResultType discriminates how an auth session ended.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultCancel  ResultType = "cancel"
)

// Result of an auth session. URL is set only on success and is the return URL
// carrying the parameters the identity provider redirected with.
type Result struct {
	Type ResultType
	URL  string
}

// AuthSession opens authURL in a browser and waits for the redirect to returnURL.
// User cancellation is reported as a ResultCancel, not as an error.
type AuthSession interface {
	OpenAuthSession(ctx context.Context, authURL, returnURL string) (Result, error)
}

const closeWindowPage = `<!DOCTYPE html>
<html><head><title>Signed in</title></head>
<body><p>Sign in complete. You can close this window and return to the app.</p></body></html>`

// LoopbackSession receives the redirect on a local HTTP listener. The callback
// path is taken from the return URL, so "com.example.app://login-callback" and
// "http://127.0.0.1:8765/login-callback" both listen on /login-callback.
type LoopbackSession struct {
	addr    string
	timeout time.Duration
	open    func(url string) error

	mu        sync.Mutex
	boundAddr string
}

// Option configures a LoopbackSession.
type Option func(*LoopbackSession)

// WithOpener replaces the system browser launcher.
func WithOpener(open func(url string) error) Option {
	return func(s *LoopbackSession) {
		s.open = open
	}
}

// WithTimeout bounds how long the session waits for the redirect.
func WithTimeout(d time.Duration) Option {
	return func(s *LoopbackSession) {
		s.timeout = d
	}
}

func NewLoopbackSession(addr string, options ...Option) *LoopbackSession {
	s := &LoopbackSession{
		addr:    addr,
		timeout: 5 * time.Minute,
		open:    sysbrowser.OpenURL,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Addr returns the address of the most recent listener.
func (s *LoopbackSession) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

func (s *LoopbackSession) OpenAuthSession(ctx context.Context, authURL, returnURL string) (Result, error) {
	ret, err := url.Parse(returnURL)
	if err != nil {
		return Result{}, fmt.Errorf("parsing return url: %w", err)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return Result{}, fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.boundAddr = ln.Addr().String()
	s.mu.Unlock()

	received := make(chan url.Values, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath(ret), chainMiddleware(callbackHandler(received),
		loggingMiddleware,
		recoverMiddleware,
		frameSecurityMiddleware,
	))

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Loopback callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := s.open(authURL); err != nil {
		log.Error().Err(err).Msg("Failed to open browser")
		return Result{Type: ResultCancel}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case params := <-received:
		return Result{Type: ResultSuccess, URL: withParams(ret, params)}, nil
	case <-waitCtx.Done():
		return Result{Type: ResultCancel}, nil
	}
}

func callbackHandler(received chan<- url.Values) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Form covers both GET (query) and POST (form_post response mode)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid callback", http.StatusBadRequest)
			return
		}
		select {
		case received <- r.Form:
		default:
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(closeWindowPage))
	}
}

// CallbackPath maps a return URL onto the path served by the loopback listener.
func CallbackPath(ret *url.URL) string {
	p := ret.Path
	if ret.Scheme != "http" && ret.Scheme != "https" {
		p = "/" + strings.Trim(ret.Host+ret.Path, "/")
	}
	if p == "" {
		p = "/"
	}
	return p
}

func withParams(ret *url.URL, params url.Values) string {
	u := *ret
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}
