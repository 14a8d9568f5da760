package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"schuldhulp/internal/match"
	"schuldhulp/internal/notify"
	"schuldhulp/internal/store"
	"schuldhulp/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	templates *template.Template

	organisationsRepo *store.OrganisationRepository
	helpRequestsRepo  *store.HelpRequestRepository
	matchesRepo       *store.MatchRepository

	matcher    *match.Matcher
	lifecycle  *match.Lifecycle
	dispatcher *notify.Dispatcher

	cookie *securecookie.SecureCookie

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	organisationsRepo *store.OrganisationRepository,
	helpRequestsRepo *store.HelpRequestRepository,
	matchesRepo *store.MatchRepository,
	matcher *match.Matcher,
	lifecycle *match.Lifecycle,
	dispatcher *notify.Dispatcher,
) (*Service, error) {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)

	s := &Service{
		logger: logger,
		config: config,
		cookie: securecookie.New(hashKey, blockKey),

		organisationsRepo: organisationsRepo,
		helpRequestsRepo:  helpRequestsRepo,
		matchesRepo:       matchesRepo,

		matcher:    matcher,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/aanvraag", s.handleGetHelpRequest, http.MethodGet)
	r.HandleFunc("/aanvraag", s.handlePostHelpRequest, http.MethodPost)

	r.HandleFunc("/dashboard/login", s.handleGetDashboardLogin, http.MethodGet)
	r.HandleFunc("/dashboard/login", s.handlePostDashboardLogin, http.MethodPost)
	r.HandleFunc("/dashboard/logout", s.handleDashboardLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireOrganisation)

		r.HandleFunc("/dashboard", s.handleDashboard, http.MethodGet)
		r.HandleFunc("/dashboard/settings", s.handlePostOrganisationSettings, http.MethodPost)
		r.HandleFunc("/dashboard/match/:helpRequestID/accept", s.handleAcceptMatch, http.MethodPost)
		r.HandleFunc("/dashboard/match/:helpRequestID/reject", s.handleRejectMatch, http.MethodPost)
		r.HandleFunc("/dashboard/match/:helpRequestID/complete", s.handleCompleteMatch, http.MethodPost)
	})

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"formatTime": func(t time.Time) string {
			return t.Format("02-01-2006 15:04")
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) organisationIDFromContext(ctx context.Context) (string, error) {
	organisationID, ok := ctx.Value(contextKeyOrganisationID).(string)
	if !ok || organisationID == "" {
		return "", fmt.Errorf("organisation id not found in context")
	}
	return organisationID, nil
}
