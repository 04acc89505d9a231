package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/rs/zerolog"
)

type decisionContextKey struct{}

// DecisionFromContext returns the decision [Sessions] reached for the request.
func DecisionFromContext(ctx context.Context) (goSession.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(goSession.Decision)
	return d, ok
}

// SessionFromContext returns the request's session. It is never anonymous
// when the request passed [RequireLogin].
func SessionFromContext(ctx context.Context) (*goSession.Session, bool) {
	d, ok := DecisionFromContext(ctx)
	if !ok || d.Session == nil {
		return nil, false
	}
	return d.Session, true
}

// Sessions opens a session for every request and saves it exactly once,
// right before the first byte of the response header is written or after the
// handler returns, whichever comes first.
func Sessions(mgr *goSession.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mgr == nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			ctx := goSession.WithClientIP(r.Context(), ClientIP(r))
			ctx = goSession.WithUserAgent(ctx, r.UserAgent())

			d, err := mgr.Open(ctx, TokenFromRequest(r, mgr.HeaderName(), mgr.QueryParam()))
			if err != nil {
				status := statusFor(err)
				zerolog.Ctx(ctx).Warn().Err(err).Int("status", status).Msg("session open failed")
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx = context.WithValue(ctx, decisionContextKey{}, d)
			sw := &saveWriter{ResponseWriter: w, ctx: ctx, mgr: mgr, session: d.Session}
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.commit()
		})
	}
}

// RequireLogin rejects requests whose session is anonymous. It must run
// inside [Sessions].
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok || s.Anonymous() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromRequest returns the credential carried in header, falling back to
// the query parameter param.
func TokenFromRequest(r *http.Request, header, param string) string {
	if tok := strings.TrimSpace(r.Header.Get(header)); tok != "" {
		return tok
	}
	if param == "" {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get(param))
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, goSession.ErrAccountInvalid):
		return http.StatusBadRequest
	case errors.Is(err, goSession.ErrAccountExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// saveWriter runs Manager.Save once, before the wrapped writer commits its
// header. A failed save turns the response into a 500 and discards the body.
type saveWriter struct {
	http.ResponseWriter
	ctx     context.Context
	mgr     *goSession.Manager
	session *goSession.Session

	committed bool
	failed    bool
}

func (w *saveWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	if err := w.mgr.Save(w.ctx, w.session, w.ResponseWriter.Header()); err != nil {
		zerolog.Ctx(w.ctx).Error().Err(err).Str("sid", w.session.SID()).Msg("session save failed")
		w.failed = true
		w.ResponseWriter.Header().Del(w.mgr.HeaderName())
		http.Error(w.ResponseWriter, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (w *saveWriter) WriteHeader(status int) {
	w.commit()
	if w.failed {
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *saveWriter) Write(p []byte) (int, error) {
	w.commit()
	if w.failed {
		return len(p), nil
	}
	return w.ResponseWriter.Write(p)
}

func (w *saveWriter) Flush() {
	w.commit()
	if f, ok := w.ResponseWriter.(http.Flusher); ok && !w.failed {
		f.Flush()
	}
}

func (w *saveWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
