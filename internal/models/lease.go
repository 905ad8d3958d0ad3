package models

import "time"

// LeaseStatus is the temporal state of a lease, derived from its dates.
// It is never stored; CalculateLeaseStatus is the single source of truth.
type LeaseStatus string

const (
	LeaseFuture     LeaseStatus = "FUTURE"
	LeaseActive     LeaseStatus = "ACTIVE"
	LeaseExpired    LeaseStatus = "EXPIRED"
	LeaseTerminated LeaseStatus = "TERMINATED"
)

// Lease is read-only to the notification engine. The denormalized display
// fields are maintained by the surrounding application.
type Lease struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	TerminatedAt *time.Time `json:"terminated_at,omitempty"`

	UnitLabel       string `json:"unit_label,omitempty"`
	PropertyAddress string `json:"property_address,omitempty"`
	TenantName      string `json:"tenant_name,omitempty"`
}

// CalculateLeaseStatus derives the lease state at a given instant.
// Termination takes precedence once terminatedAt is reached; a future
// terminatedAt does not apply yet. A lease with no end date can only be
// FUTURE, ACTIVE or TERMINATED. now == endDate is still ACTIVE.
func CalculateLeaseStatus(l *Lease, now time.Time) LeaseStatus {
	if l.TerminatedAt != nil && !l.TerminatedAt.After(now) {
		return LeaseTerminated
	}

	if now.Before(l.StartDate) {
		return LeaseFuture
	}

	if l.EndDate != nil && now.After(*l.EndDate) {
		return LeaseExpired
	}

	return LeaseActive
}

// DaysUntilExpiration returns the whole days between now and the lease end
// date. The second return is false for open-ended leases.
func (l *Lease) DaysUntilExpiration(now time.Time) (int, bool) {
	if l.EndDate == nil {
		return 0, false
	}
	return int(l.EndDate.Sub(now).Hours() / 24), true
}

// LeaseView is the denormalized read-join shape returned alongside a
// notification for display (property address and tenant name).
type LeaseView struct {
	ID        string     `json:"id"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Unit      UnitView   `json:"unit"`
	Tenant    TenantView `json:"tenant"`
}

type UnitView struct {
	Label    string       `json:"label,omitempty"`
	Property PropertyView `json:"property"`
}

type PropertyView struct {
	Address string `json:"address"`
}

type TenantView struct {
	Name string `json:"name"`
}

// View builds the display join for API responses.
func (l *Lease) View() *LeaseView {
	return &LeaseView{
		ID:        l.ID,
		StartDate: l.StartDate,
		EndDate:   l.EndDate,
		Unit: UnitView{
			Label:    l.UnitLabel,
			Property: PropertyView{Address: l.PropertyAddress},
		},
		Tenant: TenantView{Name: l.TenantName},
	}
}
