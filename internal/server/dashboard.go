package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"schuldhulp/internal/match"
	"schuldhulp/internal/utils"
	"schuldhulp/pkg/types"

	"github.com/alexedwards/flow"
)

type DashboardLoginPageData struct {
	Title string
	Error string
}

func (s *Service) handleGetDashboardLogin(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, "page.dashboard.login", DashboardLoginPageData{
		Title: "Inloggen",
		Error: r.URL.Query().Get("error"),
	})
}

func (s *Service) handlePostDashboardLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, "/dashboard/login", "ongeldig formulier")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		s.redirectWithError(w, r, "/dashboard/login", "vul een e-mailadres in")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	organisation, err := s.organisationsRepo.OrganisationByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrOrganisationNotFound) {
			s.redirectWithError(w, r, "/dashboard/login", "geen organisatie gevonden voor dit adres")
			return
		}
		s.logger.WithError(err).Error("failed to fetch organisation for login")
		s.internalServerError(w)
		return
	}

	encoded, err := s.cookie.Encode(sessionCookieValueName, organisation.ID)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode session cookie")
		s.internalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    encoded,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   s.config.SessionMaxAgeSec,
		Path:     "/",
	})

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Service) handleDashboardLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   s.config.CookieName,
		Value:  "",
		MaxAge: -1,
		Path:   "/",
	})

	http.Redirect(w, r, "/dashboard/login", http.StatusSeeOther)
}

type DashboardMatchRow struct {
	HelpRequestID string
	Gemeente      string
	Postcode      string
	Situation     string
	Priority      int
	Status        types.MatchStatus
	Actionable    bool
	Completable   bool
	ExpiresAt     time.Time
	RespondedAt   *time.Time
}

type DashboardPageData struct {
	Title        string
	Organisation *types.Organisation
	Rows         []DashboardMatchRow
	Notice       string
	Error        string
}

func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	organisationID, err := s.organisationIDFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain organisation")
		s.internalServerError(w)
		return
	}

	organisation, err := s.organisationsRepo.Organisation(ctx, organisationID)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch organisation")
		s.internalServerError(w)
		return
	}

	matches, err := s.matchesRepo.MatchesForOrganisation(ctx, organisationID)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch matches for organisation")
		s.internalServerError(w)
		return
	}

	now := time.Now()
	rows := make([]DashboardMatchRow, 0, len(matches))
	for _, m := range matches {
		row := DashboardMatchRow{
			HelpRequestID: m.HelpRequestID,
			Priority:      m.Priority,
			// overdue pending matches read as expired, never actionable
			Status:      m.EffectiveStatus(now),
			ExpiresAt:   m.ExpiresAt,
			RespondedAt: m.RespondedAt,
		}
		row.Actionable = row.Status == types.MatchStatusPending

		helpRequest, err := s.helpRequestsRepo.HelpRequest(ctx, m.HelpRequestID)
		if err != nil {
			s.logger.WithError(err).WithField("help_request_id", m.HelpRequestID).Warn("failed to fetch help request for dashboard row")
		} else {
			row.Gemeente = helpRequest.Gemeente
			row.Postcode = helpRequest.Postcode
			row.Situation = utils.PtrString(helpRequest.Situation)
			row.Completable = row.Status == types.MatchStatusAccepted &&
				(helpRequest.Status == types.HelpRequestStatusAccepted || helpRequest.Status == types.HelpRequestStatusInProgress)
		}

		rows = append(rows, row)
	}

	s.renderTemplate(w, "page.dashboard", DashboardPageData{
		Title:        "Dashboard",
		Organisation: organisation,
		Rows:         rows,
		Notice:       r.URL.Query().Get("notice"),
		Error:        r.URL.Query().Get("error"),
	})
}

func (s *Service) handleAcceptMatch(w http.ResponseWriter, r *http.Request) {
	s.respondToMatch(w, r, types.MatchDecisionAccept)
}

func (s *Service) handleRejectMatch(w http.ResponseWriter, r *http.Request) {
	s.respondToMatch(w, r, types.MatchDecisionReject)
}

func (s *Service) respondToMatch(w http.ResponseWriter, r *http.Request, decision types.MatchDecision) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	organisationID, err := s.organisationIDFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain organisation")
		s.internalServerError(w)
		return
	}

	helpRequestID := flow.Param(r.Context(), "helpRequestID")

	var note *string
	if err := r.ParseForm(); err == nil {
		if v := strings.TrimSpace(r.FormValue("note")); v != "" {
			note = utils.StringPtr(v)
		}
	}

	events, err := s.lifecycle.Respond(ctx, helpRequestID, organisationID, decision, note)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrMatchNotFound):
			s.redirectWithError(w, r, "/dashboard", "dit verzoek bestaat niet of is niet aan jullie toegewezen")
		case errors.Is(err, types.ErrAlreadyResponded):
			s.redirectWithError(w, r, "/dashboard", "dit verzoek is al beantwoord")
		default:
			s.logger.WithError(err).WithField("help_request_id", helpRequestID).Error("failed to respond to match")
			s.internalServerError(w)
		}
		return
	}

	if decision == types.MatchDecisionAccept {
		// Claiming the capacity slot can lose a race with another accept
		// elsewhere; that is a known, tolerated outcome.
		if err := s.organisationsRepo.IncrementCapacity(ctx, organisationID); err != nil {
			s.logger.WithError(err).WithField("organisation_id", organisationID).Warn("failed to claim capacity slot after accept")
		}

		go s.notifyMatchAccepted(helpRequestID, organisationID)

		s.redirectWithNotice(w, r, "/dashboard", "verzoek geaccepteerd, de contactgegevens zijn naar jullie gemaild")
		return
	}

	notice := "verzoek afgewezen"
	for _, event := range events {
		if _, ok := event.(match.HelpRequestReverted); ok {
			notice = "verzoek afgewezen, de hulpvrager wordt opnieuw gematcht"
		}
	}

	s.redirectWithNotice(w, r, "/dashboard", notice)
}

type organisationSettingsForm struct {
	MaxCapacity       int  `form:"max_capacity"`
	EstimatedWaitDays int  `form:"estimated_wait_days"`
	IsActive          bool `form:"is_active"`
}

func (s *Service) handlePostOrganisationSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	organisationID, err := s.organisationIDFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain organisation")
		s.internalServerError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, "/dashboard", "ongeldig formulier")
		return
	}

	var settings organisationSettingsForm
	if err := decoder.Decode(&settings, r.PostForm); err != nil {
		s.redirectWithError(w, r, "/dashboard", "ongeldige instellingen")
		return
	}

	if settings.MaxCapacity < 1 || settings.EstimatedWaitDays < 0 {
		s.redirectWithError(w, r, "/dashboard", "ongeldige instellingen")
		return
	}

	err = s.organisationsRepo.UpdateSettings(ctx, organisationID, settings.MaxCapacity, settings.EstimatedWaitDays, settings.IsActive)
	if err != nil {
		s.logger.WithError(err).WithField("organisation_id", organisationID).Error("failed to update organisation settings")
		s.internalServerError(w)
		return
	}

	s.redirectWithNotice(w, r, "/dashboard", "instellingen opgeslagen")
}

// handleCompleteMatch closes out an accepted trajectory: the help request
// becomes completed and the organisation's client slot is freed again.
func (s *Service) handleCompleteMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	organisationID, err := s.organisationIDFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain organisation")
		s.internalServerError(w)
		return
	}

	helpRequestID := flow.Param(r.Context(), "helpRequestID")

	m, err := s.matchesRepo.Match(ctx, helpRequestID, organisationID)
	if err != nil {
		if errors.Is(err, types.ErrMatchNotFound) {
			s.redirectWithError(w, r, "/dashboard", "dit verzoek bestaat niet of is niet aan jullie toegewezen")
			return
		}
		s.logger.WithError(err).WithField("help_request_id", helpRequestID).Error("failed to fetch match for completion")
		s.internalServerError(w)
		return
	}

	if m.Status != types.MatchStatusAccepted {
		s.redirectWithError(w, r, "/dashboard", "alleen geaccepteerde verzoeken kunnen afgerond worden")
		return
	}

	helpRequest, err := s.helpRequestsRepo.HelpRequest(ctx, helpRequestID)
	if err != nil {
		s.logger.WithError(err).WithField("help_request_id", helpRequestID).Error("failed to fetch help request for completion")
		s.internalServerError(w)
		return
	}

	if helpRequest.Status == types.HelpRequestStatusCompleted {
		s.redirectWithError(w, r, "/dashboard", "dit traject is al afgerond")
		return
	}

	if err := s.helpRequestsRepo.SetStatus(ctx, helpRequestID, types.HelpRequestStatusCompleted); err != nil {
		if errors.Is(err, types.ErrInvalidTransition) {
			s.redirectWithError(w, r, "/dashboard", "dit verzoek kan niet meer afgerond worden")
			return
		}
		s.logger.WithError(err).WithField("help_request_id", helpRequestID).Error("failed to complete help request")
		s.internalServerError(w)
		return
	}

	if err := s.organisationsRepo.DecrementCapacity(ctx, organisationID); err != nil {
		s.logger.WithError(err).WithField("organisation_id", organisationID).Warn("failed to free capacity slot after completion")
	}

	s.redirectWithNotice(w, r, "/dashboard", "traject afgerond")
}

func (s *Service) notifyMatchAccepted(helpRequestID, organisationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	helpRequest, err := s.helpRequestsRepo.HelpRequest(ctx, helpRequestID)
	if err != nil {
		s.logger.WithError(err).WithField("help_request_id", helpRequestID).Error("failed to fetch help request for accept notification")
		return
	}

	organisation, err := s.organisationsRepo.Organisation(ctx, organisationID)
	if err != nil {
		s.logger.WithError(err).WithField("organisation_id", organisationID).Error("failed to fetch organisation for accept notification")
		return
	}

	s.dispatcher.AcceptedToOrganisation(ctx, organisation, helpRequest)
	s.dispatcher.AcceptedToSeeker(ctx, helpRequest, organisation)
}
