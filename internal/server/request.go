package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"schuldhulp/internal/match"
	"schuldhulp/internal/utils"
	"schuldhulp/pkg/types"
)

type helpRequestForm struct {
	Name              string `form:"name"`
	Email             string `form:"email"`
	Phone             string `form:"phone"`
	ContactPreference string `form:"contact_preference"`
	Gemeente          string `form:"gemeente"`
	Postcode          string `form:"postcode"`
	Situation         string `form:"situation"`
}

// validate returns user-correctable problems, surfaced verbatim on the form.
func (f *helpRequestForm) validate() []string {
	var problems []string

	if strings.TrimSpace(f.Gemeente) == "" {
		problems = append(problems, "Gemeente is verplicht.")
	}

	if !types.ValidPostcode(f.Postcode) {
		problems = append(problems, "Vul een geldige postcode in, bijvoorbeeld 1012 AB.")
	}

	preference := types.ContactPreference(f.ContactPreference)
	if !preference.Valid() {
		problems = append(problems, "Kies hoe we contact met je mogen opnemen.")
	}

	if preference == types.ContactPreferenceEmail && strings.TrimSpace(f.Email) == "" {
		problems = append(problems, "Vul je e-mailadres in.")
	}

	if preference == types.ContactPreferenceSMS && strings.TrimSpace(f.Phone) == "" {
		problems = append(problems, "Vul je telefoonnummer in.")
	}

	return problems
}

type HelpRequestPageData struct {
	Title    string
	Problems []string
	Form     *helpRequestForm
}

type ConfirmationPageData struct {
	Title      string
	Looking    bool
	MatchCount int
}

func (s *Service) handleGetHelpRequest(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, "page.request", HelpRequestPageData{
		Title: "Hulp aanvragen",
		Form:  &helpRequestForm{},
	})
}

func (s *Service) handlePostHelpRequest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.WithError(err).Error("failed to parse help request form")
		s.internalServerError(w)
		return
	}

	var f = new(helpRequestForm)
	if err := decoder.Decode(f, r.Form); err != nil {
		s.logger.WithError(err).Error("failed to decode help request form")
		s.internalServerError(w)
		return
	}

	if problems := f.validate(); len(problems) > 0 {
		s.renderTemplate(w, "page.request", HelpRequestPageData{
			Title:    "Hulp aanvragen",
			Problems: problems,
			Form:     f,
		})
		return
	}

	helpRequest := &types.HelpRequest{
		ContactPreference: types.ContactPreference(f.ContactPreference),
		Gemeente:          strings.TrimSpace(f.Gemeente),
		Postcode:          types.NormalizePostcode(f.Postcode),
	}
	if v := strings.TrimSpace(f.Name); v != "" {
		helpRequest.Name = utils.StringPtr(v)
	}
	if v := strings.TrimSpace(f.Email); v != "" {
		helpRequest.Email = utils.StringPtr(v)
	}
	if v := strings.TrimSpace(f.Phone); v != "" {
		helpRequest.Phone = utils.StringPtr(v)
	}
	if v := strings.TrimSpace(f.Situation); v != "" {
		helpRequest.Situation = utils.StringPtr(v)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.helpRequestsRepo.Create(ctx, helpRequest); err != nil {
		s.logger.WithError(err).Error("failed to create help request")
		s.internalServerError(w)
		return
	}

	shortlist, err := s.matcher.FindMatches(ctx, helpRequest.Gemeente, helpRequest.Postcode)
	if err != nil {
		s.logger.WithError(err).WithField("help_request_id", helpRequest.ID).Error("matching failed")
		s.internalServerError(w)
		return
	}

	// No eligible organisation right now is a valid outcome: the request
	// stays pending and is picked up by a later re-matching run.
	if len(shortlist) == 0 {
		s.renderTemplate(w, "page.request.confirmation", ConfirmationPageData{
			Title:   "Aanvraag ontvangen",
			Looking: true,
		})
		return
	}

	event, err := s.lifecycle.CreateMatches(ctx, helpRequest.ID, shortlist)
	if err != nil {
		s.logger.WithError(err).WithField("help_request_id", helpRequest.ID).Error("failed to create matches, request needs manual handling")
		s.internalServerError(w)
		return
	}

	if err := s.helpRequestsRepo.SetStatus(ctx, helpRequest.ID, types.HelpRequestStatusMatched); err != nil {
		s.logger.WithError(err).WithField("help_request_id", helpRequest.ID).Error("failed to mark help request matched")
	}

	go s.notifyMatchesCreated(helpRequest, shortlist, event)

	s.renderTemplate(w, "page.request.confirmation", ConfirmationPageData{
		Title:      "Aanvraag ontvangen",
		MatchCount: len(shortlist),
	})
}

// notifyMatchesCreated runs detached from the request: matches are already
// visible in the store before any mail referencing them goes out.
func (s *Service) notifyMatchesCreated(helpRequest *types.HelpRequest, shortlist []*types.Organisation, event *match.MatchesCreated) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.dispatcher.MatchFoundToSeeker(ctx, helpRequest, len(event.Matches))

	organisationsByID := make(map[string]*types.Organisation, len(shortlist))
	for _, organisation := range shortlist {
		organisationsByID[organisation.ID] = organisation
	}

	// in priority order
	for _, m := range event.Matches {
		organisation, ok := organisationsByID[m.OrganisationID]
		if !ok {
			continue
		}
		s.dispatcher.NewRequestToOrganisation(ctx, organisation, helpRequest, m)
	}
}
