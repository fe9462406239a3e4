package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/identity"
)

type ctxKey int

const sessionKey ctxKey = iota

func sessionFrom(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey).(*session)
	return s
}

// routeOf returns the matched chi pattern so metrics labels stay bounded.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// requestLogger logs every request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
			"request":  middleware.GetReqID(r.Context()),
		}).Debug("request handled")
	})
}

// observe records the response duration of every request by route.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		timer := s.metrics.StartTimer()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		timer.Finish(s.metrics.APIResponseDurationsMilliseconds.With(prometheus.Labels{
			"route":       routeOf(r),
			"method":      r.Method,
			"status_code": fmt.Sprintf("%d", status),
		}))
	})
}

// recoverer turns a handler panic into a 500 response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovery := recover(); recovery != nil {
				if recovery == http.ErrAbortHandler {
					panic(recovery)
				}
				s.metrics.APIHandlerPanicsTotal.With(prometheus.Labels{
					"route":  routeOf(r),
					"method": r.Method,
				}).Inc()
				s.log.WithField("stack", string(debug.Stack())).Errorf("panicked while handling request: %#v", recovery)
				respondJSON(w, s.log, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate verifies the optional bearer token. It returns nil for an
// anonymous request.
func (s *Server) authenticate(r *http.Request) (*identity.Identity, error) {
	token := identity.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, nil
	}
	return s.tokens.Verify(token)
}

// withSession loads the draft session named in the URL and applies the
// request's identity to it. The Authorization header is authoritative: a
// request without one signs the session out.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.get(chi.URLParam(r, "draftID"))
		if !ok {
			respondError(w, s.log, errSessionNotFound)
			return
		}
		id, err := s.authenticate(r)
		if err != nil {
			respondJSON(w, s.log, http.StatusUnauthorized, errorResponse{Error: "Invalid or expired token"})
			return
		}
		sess.ids.Set(id)
		if err := sess.wizard.SyncIdentity(r.Context()); err != nil {
			respondError(w, s.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// withSessionOnly loads the session without touching its identity, used by
// signed preview links that browsers fetch without headers.
func (s *Server) withSessionOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.get(chi.URLParam(r, "draftID"))
		if !ok {
			respondError(w, s.log, errSessionNotFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}
