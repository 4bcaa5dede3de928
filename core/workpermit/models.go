package workpermit

import (
	"time"

	"github.com/trezcool/homeroom/core"
)

type Status string

const (
	Draft     Status = "draft"
	Submitted Status = "submitted"
	Approved  Status = "approved"
	Rejected  Status = "rejected"
)

var AllStatuses = []Status{Draft, Submitted, Approved, Rejected}

// transitions lists the allowed next statuses and whether only admins may move there.
var transitions = map[Status]map[Status]bool{
	Draft:     {Submitted: false},
	Submitted: {Approved: true, Rejected: true},
	Rejected:  {Draft: false},
	Approved:  {},
}

// CanTransition reports whether a permit in status from may move to to, and
// whether the move needs an admin.
func CanTransition(from, to Status) (ok, adminOnly bool) {
	next, known := transitions[from]
	if !known {
		return false, false
	}
	adminOnly, ok = next[to]
	return ok, adminOnly
}

type WorkPermit struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	AccountID       string     `json:"account_id"`
	EmployerName    string     `json:"employer_name"`
	EmployerAddress string     `json:"employer_address"`
	JobTitle        string     `json:"job_title"`
	HoursPerWeek    int        `json:"hours_per_week"`
	StartDate       *time.Time `json:"start_date"`
	Status          Status     `json:"status"`
	Notes           string     `json:"notes"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	UpdatedAt       time.Time  `json:"updated_at"` // UTC
}

// Editable reports whether the permit details may still change.
func (wp WorkPermit) Editable() bool {
	return wp.Status == Draft || wp.Status == Rejected
}

// NewWorkPermit contains information needed to create a new WorkPermit.
type NewWorkPermit struct {
	StudentID       string     `json:"student_id" validate:"required"`
	EmployerName    string     `json:"employer_name" validate:"notblank,max=128"`
	EmployerAddress string     `json:"employer_address" validate:"max=255"`
	JobTitle        string     `json:"job_title" validate:"notblank,max=128"`
	HoursPerWeek    int        `json:"hours_per_week" validate:"min=0,max=60"`
	StartDate       *time.Time `json:"start_date"`
	Notes           string     `json:"notes" validate:"max=2000"`
}

func (nw *NewWorkPermit) Clean() {
	nw.EmployerName = core.CleanString(nw.EmployerName)
	nw.EmployerAddress = core.CleanString(nw.EmployerAddress)
	nw.JobTitle = core.CleanString(nw.JobTitle)
	nw.Notes = core.CleanString(nw.Notes)
}

type UpdateWorkPermit struct {
	EmployerName    *string    `json:"employer_name" validate:"omitempty,notblank,max=128"`
	EmployerAddress *string    `json:"employer_address" validate:"omitempty,max=255"`
	JobTitle        *string    `json:"job_title" validate:"omitempty,notblank,max=128"`
	HoursPerWeek    *int       `json:"hours_per_week" validate:"omitempty,min=0,max=60"`
	StartDate       *time.Time `json:"start_date"`
	Notes           *string    `json:"notes" validate:"omitempty,max=2000"`
}

func (uw *UpdateWorkPermit) Apply(orig WorkPermit) WorkPermit {
	wp := orig
	if uw.EmployerName != nil {
		wp.EmployerName = core.CleanString(*uw.EmployerName)
	}
	if uw.EmployerAddress != nil {
		wp.EmployerAddress = core.CleanString(*uw.EmployerAddress)
	}
	if uw.JobTitle != nil {
		wp.JobTitle = core.CleanString(*uw.JobTitle)
	}
	if uw.HoursPerWeek != nil {
		wp.HoursPerWeek = *uw.HoursPerWeek
	}
	if uw.StartDate != nil {
		wp.StartDate = uw.StartDate
	}
	if uw.Notes != nil {
		wp.Notes = core.CleanString(*uw.Notes)
	}
	return wp
}

type StatusChange struct {
	Status Status `json:"status" validate:"required,permitstatus"`
	Notes  string `json:"notes" validate:"max=2000"`
}

type QueryFilter struct {
	AccountID string `query:"-"`
	StudentID string `query:"student_id"`
	Status    Status `query:"status"`
}

// StatusChangedEvent is published after every successful transition.
type StatusChangedEvent struct {
	PermitID  string `json:"permit_id"`
	AccountID string `json:"account_id"`
	StudentID string `json:"student_id"`
	From      Status `json:"from"`
	To        Status `json:"to"`
}

func (e StatusChangedEvent) EventAccountID() string { return e.AccountID }
