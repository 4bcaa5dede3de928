package catalog

import (
	"strings"
	"time"

	"github.com/trezcool/homeroom/core"
)

// PlatformCourse is a course of the catalog published by admins.
type PlatformCourse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Credits     float64   `json:"credits"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// UserCourse is a course a parent created for one of their students.
type UserCourse struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	StudentID   string    `json:"student_id"`
	Title       string    `json:"title"`
	Credits     float64   `json:"credits"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type Enrollment struct {
	PlatformCourseID string    `json:"platform_course_id"`
	StudentID        string    `json:"student_id"`
	EnrolledAt       time.Time `json:"enrolled_at"` // UTC
}

// NewCourse contains information needed to create a platform or user course.
type NewCourse struct {
	Title       string  `json:"title" validate:"notblank,max=255"`
	Credits     float64 `json:"credits" validate:"min=0,max=20"`
	Description string  `json:"description"`
	Subject     string  `json:"subject" validate:"max=64"`
}

func (nc *NewCourse) Clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Subject = core.CleanString(nc.Subject)
}

type QueryFilter struct {
	Search  string `query:"search"`
	Subject string `query:"subject"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = strings.ToLower(core.CleanString(qf.Search))
	qf.Subject = core.CleanString(qf.Subject)
}
