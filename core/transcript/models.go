package transcript

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/student"
)

// Provenance tells where a transcript course comes from.
type Provenance string

const (
	Manual         Provenance = "manual"
	PlatformCourse Provenance = "platform_course"
	UserCourse     Provenance = "user_course"
)

var Provenances = []Provenance{Manual, PlatformCourse, UserCourse}

// ParseProvenance rejects anything outside the closed set of provenances.
func ParseProvenance(s string) (Provenance, error) {
	switch p := Provenance(s); p {
	case Manual, PlatformCourse, UserCourse:
		return p, nil
	}
	return "", fmt.Errorf("unknown course provenance %q", s)
}

func (p Provenance) Imported() bool {
	switch p {
	case PlatformCourse, UserCourse:
		return true
	case Manual:
		return false
	}
	panic(fmt.Sprintf("unknown course provenance %q", string(p)))
}

// Level drives the weighted GPA bonus.
type Level string

const (
	Regular Level = "regular"
	Honors  Level = "honors"
	AP      Level = "ap"
)

var Levels = []Level{Regular, Honors, AP}

type Course struct {
	ID           string         `json:"id"`
	TranscriptID string         `json:"transcript_id"`
	Title        string         `json:"title"`
	Term1        string         `json:"term1"`
	Term2        string         `json:"term2"`
	Term3        string         `json:"term3"`
	Credits      string         `json:"credits"` // as entered
	Provenance   Provenance     `json:"provenance"`
	SourceID     string         `json:"source_id"`
	PulledIn     bool           `json:"pulled_in"`
	GradeLevel   student.Bucket `json:"grade_level"`
	SortOrder    int            `json:"sort_order"`
	Level        Level          `json:"level"`
	CreatedAt    time.Time      `json:"created_at"` // UTC
	UpdatedAt    time.Time      `json:"updated_at"` // UTC
}

// Terms returns the non-blank term grades.
func (c Course) Terms() []string {
	terms := make([]string, 0, 3)
	for _, t := range []string{c.Term1, c.Term2, c.Term3} {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// SourceKey is the dedup key of imported courses.
func (c Course) SourceKey() string {
	return string(c.Provenance) + ":" + c.SourceID
}

type Transcript struct {
	ID             string          `json:"id"`
	StudentID      string          `json:"student_id"`
	AccountID      string          `json:"account_id"`
	StudentName    string          `json:"student_name"`
	DateOfBirth    *time.Time      `json:"date_of_birth"`
	GraduationYear int             `json:"graduation_year,omitempty"`
	ParentName     string          `json:"parent_name"`
	ParentEmail    string          `json:"parent_email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	SchoolName     string          `json:"school_name"`
	TotalCredits   decimal.Decimal `json:"total_credits"`
	GPA            string          `json:"gpa"`
	WeightedGPA    string          `json:"weighted_gpa,omitempty"`
	Courses        []Course        `json:"courses"`
	CreatedAt      time.Time       `json:"created_at"` // UTC
	UpdatedAt      time.Time       `json:"updated_at"` // UTC
}

// SortCourses orders courses by bucket then sort order.
func SortCourses(courses []Course) {
	sort.SliceStable(courses, func(i, j int) bool {
		ri, rj := courses[i].GradeLevel.Rank(), courses[j].GradeLevel.Rank()
		if ri != rj {
			return ri < rj
		}
		return courses[i].SortOrder < courses[j].SortOrder
	})
}

// CoursesIn returns the courses of bucket b, in display order.
func (t Transcript) CoursesIn(b student.Bucket) []Course {
	var courses []Course
	for _, c := range t.Courses {
		if c.GradeLevel == b {
			courses = append(courses, c)
		}
	}
	SortCourses(courses)
	return courses
}

// CourseByID returns the course with that id.
func (t Transcript) CourseByID(id string) (Course, bool) {
	for _, c := range t.Courses {
		if c.ID == id {
			return c, true
		}
	}
	return Course{}, false
}

// nextSortOrder returns the position after the last course of bucket b.
func nextSortOrder(courses []Course, b student.Bucket) int {
	next := 0
	for _, c := range courses {
		if c.GradeLevel == b && c.SortOrder >= next {
			next = c.SortOrder + 1
		}
	}
	return next
}

// UpdateTranscript defines the editable demographic fields of a Transcript.
type UpdateTranscript struct {
	StudentName    *string    `json:"student_name" validate:"omitempty,notblank,max=128"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	GraduationYear *int       `json:"graduation_year" validate:"omitempty,min=1900,max=2200"`
	ParentName     *string    `json:"parent_name" validate:"omitempty,max=128"`
	ParentEmail    *string    `json:"parent_email" validate:"omitempty,email"`
	Phone          *string    `json:"phone" validate:"omitempty,max=32"`
	Address        *string    `json:"address" validate:"omitempty,max=255"`
	SchoolName     *string    `json:"school_name" validate:"omitempty,max=128"`
}

func (upd *UpdateTranscript) Apply(orig Transcript) Transcript {
	tr := orig
	set := func(dst *string, v *string, lower ...bool) {
		if v != nil {
			*dst = core.CleanString(*v, lower...)
		}
	}
	set(&tr.StudentName, upd.StudentName)
	set(&tr.ParentName, upd.ParentName)
	set(&tr.ParentEmail, upd.ParentEmail, true /* lower */)
	set(&tr.Phone, upd.Phone)
	set(&tr.Address, upd.Address)
	set(&tr.SchoolName, upd.SchoolName)
	if upd.DateOfBirth != nil {
		tr.DateOfBirth = upd.DateOfBirth
	}
	if upd.GraduationYear != nil {
		tr.GraduationYear = *upd.GraduationYear
	}
	return tr
}

// NewCourse contains information needed to add a manual course.
type NewCourse struct {
	Title      string         `json:"title" validate:"notblank,max=255"`
	Term1      string         `json:"term1" validate:"max=8"`
	Term2      string         `json:"term2" validate:"max=8"`
	Term3      string         `json:"term3" validate:"max=8"`
	Credits    string         `json:"credits" validate:"max=16"`
	GradeLevel student.Bucket `json:"grade_level" validate:"required,bucket"`
	Level      Level          `json:"level" validate:"omitempty,courselevel"`
}

func (nc *NewCourse) Clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Term1 = core.CleanString(nc.Term1)
	nc.Term2 = core.CleanString(nc.Term2)
	nc.Term3 = core.CleanString(nc.Term3)
	nc.Credits = core.CleanString(nc.Credits)
	if nc.Level == "" {
		nc.Level = Regular
	}
}

// UpdateCourse defines what may change on a course.
// Imported courses only accept term grades and level.
type UpdateCourse struct {
	Title      *string        `json:"title" validate:"omitempty,notblank,max=255"`
	Term1      *string        `json:"term1" validate:"omitempty,max=8"`
	Term2      *string        `json:"term2" validate:"omitempty,max=8"`
	Term3      *string        `json:"term3" validate:"omitempty,max=8"`
	Credits    *string        `json:"credits" validate:"omitempty,max=16"`
	GradeLevel student.Bucket `json:"grade_level" validate:"omitempty,bucket"`
	SortOrder  *int           `json:"sort_order" validate:"omitempty,min=0"`
	Level      Level          `json:"level" validate:"omitempty,courselevel"`
}

// TouchesImportedFields reports whether the update changes fields owned by the course source.
func (uc *UpdateCourse) TouchesImportedFields() bool {
	return uc.Title != nil || uc.Credits != nil || uc.GradeLevel != "" || uc.SortOrder != nil
}

func (uc *UpdateCourse) Apply(orig Course) Course {
	c := orig
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = core.CleanString(*v)
		}
	}
	set(&c.Title, uc.Title)
	set(&c.Term1, uc.Term1)
	set(&c.Term2, uc.Term2)
	set(&c.Term3, uc.Term3)
	set(&c.Credits, uc.Credits)
	if uc.GradeLevel != "" {
		c.GradeLevel = uc.GradeLevel
	}
	if uc.SortOrder != nil {
		c.SortOrder = *uc.SortOrder
	}
	if uc.Level != "" {
		c.Level = uc.Level
	}
	return c
}

// CourseGrades is the autosaved part of a course.
type CourseGrades struct {
	ID    string  `json:"id" validate:"required"`
	Term1 *string `json:"term1" validate:"omitempty,max=8"`
	Term2 *string `json:"term2" validate:"omitempty,max=8"`
	Term3 *string `json:"term3" validate:"omitempty,max=8"`
	Level Level   `json:"level" validate:"omitempty,courselevel"`
}

// Draft is the in-progress state of the transcript form, saved with a delay.
type Draft struct {
	UpdateTranscript
	Courses []CourseGrades `json:"courses" validate:"dive"`
}

// SyncedEvent is published after a successful sync.
type SyncedEvent struct {
	AccountID    string `json:"account_id"`
	StudentID    string `json:"student_id"`
	TranscriptID string `json:"transcript_id"`
	Imported     int    `json:"imported"`
}

func (e SyncedEvent) EventAccountID() string { return e.AccountID }

// SavedEvent is published after a draft or an edit has been written.
type SavedEvent struct {
	AccountID    string `json:"account_id"`
	TranscriptID string `json:"transcript_id"`
}

func (e SavedEvent) EventAccountID() string { return e.AccountID }
