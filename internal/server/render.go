package server

import (
	"net/http"
	"net/url"
)

func (s *Service) renderTemplate(w http.ResponseWriter, templateName string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, templateName, data); err != nil {
		s.logger.WithError(err).WithField("template", templateName).Error("failed to render template")
		s.internalServerError(w)
	}
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "Er is iets misgegaan. Probeer het later opnieuw.", http.StatusInternalServerError)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, target, message string) {
	http.Redirect(w, r, target+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, target, message string) {
	http.Redirect(w, r, target+"?notice="+url.QueryEscape(message), http.StatusSeeOther)
}
