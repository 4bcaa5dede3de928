package student

import (
	"strings"
	"time"

	"github.com/trezcool/homeroom/core"
)

type GradeLevel string

const (
	Kindergarten GradeLevel = "Kindergarten"
	Grade1       GradeLevel = "1st Grade"
	Grade2       GradeLevel = "2nd Grade"
	Grade3       GradeLevel = "3rd Grade"
	Grade4       GradeLevel = "4th Grade"
	Grade5       GradeLevel = "5th Grade"
	Grade6       GradeLevel = "6th Grade"
	Grade7       GradeLevel = "7th Grade"
	Grade8       GradeLevel = "8th Grade"
	Grade9       GradeLevel = "9th Grade"
	Grade10      GradeLevel = "10th Grade"
	Grade11      GradeLevel = "11th Grade"
	Grade12      GradeLevel = "12th Grade"
)

// Bucket partitions transcript courses by school year.
type Bucket string

const (
	PreHighSchool Bucket = "preHighSchool"
	Freshman      Bucket = "freshman"
	Sophomore     Bucket = "sophomore"
	Junior        Bucket = "junior"
	Senior        Bucket = "senior"
)

var (
	GradeLevels = []GradeLevel{
		Kindergarten, Grade1, Grade2, Grade3, Grade4, Grade5, Grade6,
		Grade7, Grade8, Grade9, Grade10, Grade11, Grade12,
	}

	// Buckets in display order.
	Buckets = []Bucket{PreHighSchool, Freshman, Sophomore, Junior, Senior}
)

// BucketFor maps a grade level to its transcript bucket.
// Unknown or empty grade levels have no bucket.
func BucketFor(gl GradeLevel) (Bucket, bool) {
	switch gl {
	case Kindergarten, Grade1, Grade2, Grade3, Grade4, Grade5, Grade6, Grade7, Grade8:
		return PreHighSchool, true
	case Grade9:
		return Freshman, true
	case Grade10:
		return Sophomore, true
	case Grade11:
		return Junior, true
	case Grade12:
		return Senior, true
	}
	return "", false
}

func (b Bucket) Valid() bool {
	switch b {
	case PreHighSchool, Freshman, Sophomore, Junior, Senior:
		return true
	}
	return false
}

// Rank returns the display position of the bucket, -1 if unknown.
func (b Bucket) Rank() int {
	for i, bk := range Buckets {
		if bk == b {
			return i
		}
	}
	return -1
}

type Student struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"account_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	GradeLevel     GradeLevel `json:"grade_level"`
	GraduationYear int        `json:"graduation_year,omitempty"`
	SchoolName     string     `json:"school_name"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FirstName      string     `json:"first_name" validate:"notblank,max=64"`
	LastName       string     `json:"last_name" validate:"notblank,max=64"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	GradeLevel     GradeLevel `json:"grade_level" validate:"required,gradelevel"`
	GraduationYear int        `json:"graduation_year" validate:"omitempty,min=1900,max=2200"`
	SchoolName     string     `json:"school_name" validate:"max=128"`
}

func (ns *NewStudent) Clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.GradeLevel = GradeLevel(core.CleanString(string(ns.GradeLevel)))
	ns.SchoolName = core.CleanString(ns.SchoolName)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	FirstName      string     `json:"first_name" validate:"max=64"`
	LastName       string     `json:"last_name" validate:"max=64"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	GradeLevel     GradeLevel `json:"grade_level" validate:"omitempty,gradelevel"`
	GraduationYear *int       `json:"graduation_year" validate:"omitempty,min=1900,max=2200"`
	SchoolName     *string    `json:"school_name" validate:"omitempty,max=128"`
}

// Apply cleans the update and merges it into orig.
func (us *UpdateStudent) Apply(orig Student) Student {
	st := orig
	if v := core.CleanString(us.FirstName); v != "" {
		st.FirstName = v
	}
	if v := core.CleanString(us.LastName); v != "" {
		st.LastName = v
	}
	if us.DateOfBirth != nil {
		st.DateOfBirth = us.DateOfBirth
	}
	if v := core.CleanString(string(us.GradeLevel)); v != "" {
		st.GradeLevel = GradeLevel(v)
	}
	if us.GraduationYear != nil {
		st.GraduationYear = *us.GraduationYear
	}
	if us.SchoolName != nil {
		st.SchoolName = core.CleanString(*us.SchoolName)
	}
	return st
}

type QueryFilter struct {
	AccountID  string     `query:"-"`
	Search     string     `query:"search"`
	GradeLevel GradeLevel `query:"grade_level"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = strings.ToLower(core.CleanString(qf.Search))
	qf.GradeLevel = GradeLevel(core.CleanString(string(qf.GradeLevel)))
}

// UpdatedEvent is published whenever a student record changes.
type UpdatedEvent struct {
	Student Student `json:"student"`
}

func (e UpdatedEvent) EventAccountID() string { return e.Student.AccountID }
