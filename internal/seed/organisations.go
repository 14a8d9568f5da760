package seed

import (
	"context"
	"errors"
	"fmt"

	"schuldhulp/internal/store"
	"schuldhulp/pkg/types"
)

type organisationSeed struct {
	ID                string
	Name              string
	Email             string
	Gemeente          string
	Postcode          string
	MaxCapacity       int
	EstimatedWaitDays int
	NVVKMember        bool
}

var organisations = []organisationSeed{
	{ID: "org-amsterdam-schuldhulpmaatje", Name: "Schuldhulpmaatje Amsterdam", Email: "intake@shm-amsterdam.example", Gemeente: "Amsterdam", Postcode: "1012AB", MaxCapacity: 10, EstimatedWaitDays: 5, NVVKMember: true},
	{ID: "org-amsterdam-budgetcoach", Name: "Budgetcoach Amsterdam West", Email: "aanmelden@bcaw.example", Gemeente: "Amsterdam", Postcode: "1055KL", MaxCapacity: 10, EstimatedWaitDays: 20},
	{ID: "org-zaanstad-geldfit", Name: "Geldfit Zaanstad", Email: "hulp@geldfit-zaanstad.example", Gemeente: "Zaanstad", Postcode: "1506AB", MaxCapacity: 8, EstimatedWaitDays: 10, NVVKMember: true},
	{ID: "org-utrecht-stadsgeldbeheer", Name: "Stadsgeldbeheer Utrecht", Email: "intake@sgb-utrecht.example", Gemeente: "Utrecht", Postcode: "3511AD", MaxCapacity: 15, EstimatedWaitDays: 7, NVVKMember: true},
	{ID: "org-rotterdam-grip", Name: "Grip op Geld Rotterdam", Email: "team@gripopgeld.example", Gemeente: "Rotterdam", Postcode: "3011BD", MaxCapacity: 20, EstimatedWaitDays: 14},
	{ID: "org-groningen-humanitas", Name: "Thuisadministratie Groningen", Email: "aanmelding@ta-groningen.example", Gemeente: "Groningen", Postcode: "9711LM", MaxCapacity: 12, EstimatedWaitDays: 3, NVVKMember: true},
}

// SeedOrganisations inserts the fixture set, skipping any that already
// exist, so the command is safe to run repeatedly.
func SeedOrganisations(ctx context.Context, organisationRepo *store.OrganisationRepository) (int, error) {
	seeded := 0
	for _, s := range organisations {
		_, err := organisationRepo.Organisation(ctx, s.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrOrganisationNotFound) {
			return seeded, fmt.Errorf("failed to fetch organisation %s: %w", s.ID, err)
		}

		organisation := &types.Organisation{
			ID:                s.ID,
			Name:              s.Name,
			Email:             s.Email,
			Gemeente:          s.Gemeente,
			Postcode:          s.Postcode,
			IsVerified:        true,
			IsActive:          true,
			MaxCapacity:       s.MaxCapacity,
			EstimatedWaitDays: s.EstimatedWaitDays,
			NVVKMember:        s.NVVKMember,
		}

		if err := organisationRepo.Create(ctx, organisation); err != nil {
			return seeded, fmt.Errorf("failed to seed organisation %s: %w", s.ID, err)
		}
		seeded++
	}

	return seeded, nil
}
