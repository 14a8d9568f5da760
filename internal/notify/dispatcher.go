package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"schuldhulp/internal/utils"
	"schuldhulp/pkg/types"

	"github.com/sirupsen/logrus"
)

//go:embed templates
var templateFS embed.FS

type NotificationStore interface {
	Record(ctx context.Context, notification *types.Notification) error
}

// Dispatcher renders and sends the transactional mail the lifecycle events
// call for, and records every attempt in the notification audit table. It is
// invoked fire-and-forget: a failed send is logged and audited, never
// surfaced to the seeker or organisation flow that triggered it.
type Dispatcher struct {
	sender    Sender
	store     NotificationStore
	logger    *logrus.Logger
	templates *template.Template
}

func NewDispatcher(sender Sender, store NotificationStore, logger *logrus.Logger) (*Dispatcher, error) {
	templates, err := template.ParseFS(templateFS, "templates/email/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	return &Dispatcher{
		sender:    sender,
		store:     store,
		logger:    logger,
		templates: templates,
	}, nil
}

// MatchFoundToSeeker tells the help seeker organisations were found.
func (d *Dispatcher) MatchFoundToSeeker(ctx context.Context, helpRequest *types.HelpRequest, matchCount int) {
	recipient := utils.PtrString(helpRequest.Email)
	if recipient == "" {
		d.logger.WithField("help_request_id", helpRequest.ID).Debug("seeker has no email address, skipping match found mail")
		return
	}

	data := struct {
		Name       string
		MatchCount int
		Gemeente   string
	}{
		Name:       utils.PtrString(helpRequest.Name),
		MatchCount: matchCount,
		Gemeente:   helpRequest.Gemeente,
	}

	d.dispatch(ctx, types.NotificationMatchFound, recipient,
		"We hebben hulporganisaties voor je gevonden",
		"match_found.html", data, &helpRequest.ID, nil)
}

// NewRequestToOrganisation tells an organisation it received a request,
// including its priority rank and the response deadline.
func (d *Dispatcher) NewRequestToOrganisation(ctx context.Context, organisation *types.Organisation, helpRequest *types.HelpRequest, m *types.Match) {
	data := struct {
		OrganisationName string
		Gemeente         string
		Postcode         string
		Situation        string
		Priority         int
		ExpiresAt        time.Time
	}{
		OrganisationName: organisation.Name,
		Gemeente:         helpRequest.Gemeente,
		Postcode:         helpRequest.Postcode,
		Situation:        utils.PtrString(helpRequest.Situation),
		Priority:         m.Priority,
		ExpiresAt:        m.ExpiresAt,
	}

	d.dispatch(ctx, types.NotificationNewRequest, organisation.Email,
		"Nieuw hulpverzoek via Schuldhulp",
		"new_request.html", data, &helpRequest.ID, &organisation.ID)
}

// AcceptedToOrganisation discloses the seeker's contact details after an
// accept. This is the only point where those details leave the platform.
func (d *Dispatcher) AcceptedToOrganisation(ctx context.Context, organisation *types.Organisation, helpRequest *types.HelpRequest) {
	data := struct {
		OrganisationName  string
		Name              string
		Email             string
		Phone             string
		ContactPreference types.ContactPreference
		Gemeente          string
		Situation         string
	}{
		OrganisationName:  organisation.Name,
		Name:              utils.PtrString(helpRequest.Name),
		Email:             utils.PtrString(helpRequest.Email),
		Phone:             utils.PtrString(helpRequest.Phone),
		ContactPreference: helpRequest.ContactPreference,
		Gemeente:          helpRequest.Gemeente,
		Situation:         utils.PtrString(helpRequest.Situation),
	}

	d.dispatch(ctx, types.NotificationAcceptedForOrg, organisation.Email,
		"Contactgegevens van je nieuwe hulpvrager",
		"accepted_organisation.html", data, &helpRequest.ID, &organisation.ID)
}

// AcceptedToSeeker tells the seeker which organisation will reach out.
func (d *Dispatcher) AcceptedToSeeker(ctx context.Context, helpRequest *types.HelpRequest, organisation *types.Organisation) {
	recipient := utils.PtrString(helpRequest.Email)
	if recipient == "" {
		d.logger.WithField("help_request_id", helpRequest.ID).Debug("seeker has no email address, skipping accepted mail")
		return
	}

	data := struct {
		Name             string
		OrganisationName string
		WaitDays         int
	}{
		Name:             utils.PtrString(helpRequest.Name),
		OrganisationName: organisation.Name,
		WaitDays:         organisation.EstimatedWaitDays,
	}

	d.dispatch(ctx, types.NotificationAcceptedForSeeker, recipient,
		fmt.Sprintf("%s neemt contact met je op", organisation.Name),
		"accepted_seeker.html", data, &helpRequest.ID, &organisation.ID)
}

func (d *Dispatcher) dispatch(ctx context.Context, kind types.NotificationKind, recipient, subject, templateName string, data any, helpRequestID, organisationID *string) {
	notification := &types.Notification{
		Kind:           kind,
		Recipient:      recipient,
		HelpRequestID:  helpRequestID,
		OrganisationID: organisationID,
		Subject:        subject,
	}

	var body bytes.Buffer
	err := d.templates.ExecuteTemplate(&body, templateName, data)
	if err == nil {
		err = d.sender.Send(ctx, recipient, subject, body.String())
	}

	if err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"kind":      kind,
			"recipient": recipient,
		}).Error("failed to send notification")
		notification.SendError = utils.StringPtr(err.Error())
	}

	if err := d.store.Record(ctx, notification); err != nil {
		d.logger.WithError(err).WithField("kind", kind).Error("failed to record notification")
	}
}
