package types

import "time"

type Organisation struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	Email             string    `db:"email"`
	Gemeente          string    `db:"gemeente"`
	Postcode          string    `db:"postcode"`
	IsVerified        bool      `db:"is_verified"`
	IsActive          bool      `db:"is_active"`
	MaxCapacity       int       `db:"max_capacity"`
	CurrentCapacity   int       `db:"current_capacity"`
	EstimatedWaitDays int       `db:"estimated_wait_days"`
	NVVKMember        bool      `db:"nvvk_member"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Eligible reports whether the organisation may receive new matches at all.
// Capacity is checked separately because tier-3 candidate fetches defer the
// capacity filter to the matcher.
func (o *Organisation) Eligible() bool {
	return o.IsVerified && o.IsActive
}

func (o *Organisation) HasCapacity() bool {
	return o.CurrentCapacity < o.MaxCapacity
}

// FreeCapacityFraction is the share of the organisation's client slots still
// open, in [0, 1].
func (o *Organisation) FreeCapacityFraction() float64 {
	if o.MaxCapacity <= 0 {
		return 0
	}
	return float64(o.MaxCapacity-o.CurrentCapacity) / float64(o.MaxCapacity)
}
