package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const contextKeyOrganisationID contextKey = "organisation_id"

const sessionCookieValueName = "organisation_id"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// RequireOrganisation resolves the dashboard session cookie to an
// organisation id and adds it to the request context.
func (s *Service) RequireOrganisation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.config.CookieName)
		if err != nil {
			s.logger.WithError(err).Debug("no session cookie found")
			http.Redirect(w, r, "/dashboard/login", http.StatusTemporaryRedirect)
			return
		}

		var organisationID string
		err = s.cookie.Decode(sessionCookieValueName, cookie.Value, &organisationID)
		if err != nil {
			s.logger.WithError(err).Error("failed to decode session cookie")
			http.Redirect(w, r, "/dashboard/login", http.StatusSeeOther)
			return
		}

		if organisationID == "" {
			http.Redirect(w, r, "/dashboard/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyOrganisationID, organisationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path != "/" && strings.HasSuffix(path, "/") {
			newPath := strings.TrimSuffix(path, "/")
			newURL := *r.URL
			newURL.Path = newPath

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
