package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
)

var (
	transcriptsTable = table{
		name: "transcripts",
		columns: []string{
			"id", "student_id", "account_id", "student_name", "date_of_birth", "graduation_year",
			"parent_name", "parent_email", "phone", "address", "school_name",
			"total_credits", "gpa", "weighted_gpa", "created_at", "updated_at",
		},
	}
	transcriptCoursesTable = table{
		name: "transcript_courses",
		columns: []string{
			"id", "transcript_id", "title", "term1", "term2", "term3", "credits", "provenance",
			"source_id", "pulled_in", "grade_level", "sort_order", "level", "created_at", "updated_at",
		},
	}
)

type transcriptRow struct {
	ID             string          `db:"id"`
	StudentID      string          `db:"student_id"`
	AccountID      string          `db:"account_id"`
	StudentName    string          `db:"student_name"`
	DateOfBirth    null.Time       `db:"date_of_birth"`
	GraduationYear int             `db:"graduation_year"`
	ParentName     string          `db:"parent_name"`
	ParentEmail    string          `db:"parent_email"`
	Phone          string          `db:"phone"`
	Address        string          `db:"address"`
	SchoolName     string          `db:"school_name"`
	TotalCredits   decimal.Decimal `db:"total_credits"`
	GPA            string          `db:"gpa"`
	WeightedGPA    string          `db:"weighted_gpa"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func toTranscriptRow(tr transcript.Transcript) transcriptRow {
	return transcriptRow{
		ID:             tr.ID,
		StudentID:      tr.StudentID,
		AccountID:      tr.AccountID,
		StudentName:    tr.StudentName,
		DateOfBirth:    nullTimePtr(tr.DateOfBirth),
		GraduationYear: tr.GraduationYear,
		ParentName:     tr.ParentName,
		ParentEmail:    tr.ParentEmail,
		Phone:          tr.Phone,
		Address:        tr.Address,
		SchoolName:     tr.SchoolName,
		TotalCredits:   tr.TotalCredits,
		GPA:            tr.GPA,
		WeightedGPA:    tr.WeightedGPA,
		CreatedAt:      tr.CreatedAt.UTC(),
		UpdatedAt:      tr.UpdatedAt.UTC(),
	}
}

func (row transcriptRow) toTranscript() transcript.Transcript {
	tr := transcript.Transcript{
		ID:             row.ID,
		StudentID:      row.StudentID,
		AccountID:      row.AccountID,
		StudentName:    row.StudentName,
		GraduationYear: row.GraduationYear,
		ParentName:     row.ParentName,
		ParentEmail:    row.ParentEmail,
		Phone:          row.Phone,
		Address:        row.Address,
		SchoolName:     row.SchoolName,
		TotalCredits:   row.TotalCredits,
		GPA:            row.GPA,
		WeightedGPA:    row.WeightedGPA,
		CreatedAt:      utc(row.CreatedAt),
		UpdatedAt:      utc(row.UpdatedAt),
	}
	if row.DateOfBirth.Valid {
		dob := row.DateOfBirth.Time.UTC()
		tr.DateOfBirth = &dob
	}
	return tr
}

type courseRow struct {
	ID           string    `db:"id"`
	TranscriptID string    `db:"transcript_id"`
	Title        string    `db:"title"`
	Term1        string    `db:"term1"`
	Term2        string    `db:"term2"`
	Term3        string    `db:"term3"`
	Credits      string    `db:"credits"`
	Provenance   string    `db:"provenance"`
	SourceID     string    `db:"source_id"`
	PulledIn     bool      `db:"pulled_in"`
	GradeLevel   string    `db:"grade_level"`
	SortOrder    int       `db:"sort_order"`
	Level        string    `db:"level"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func toCourseRow(c transcript.Course) courseRow {
	return courseRow{
		ID:           c.ID,
		TranscriptID: c.TranscriptID,
		Title:        c.Title,
		Term1:        c.Term1,
		Term2:        c.Term2,
		Term3:        c.Term3,
		Credits:      c.Credits,
		Provenance:   string(c.Provenance),
		SourceID:     c.SourceID,
		PulledIn:     c.PulledIn,
		GradeLevel:   string(c.GradeLevel),
		SortOrder:    c.SortOrder,
		Level:        string(c.Level),
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

// toCourse rejects provenances outside the closed set.
func (row courseRow) toCourse() (transcript.Course, error) {
	prov, err := transcript.ParseProvenance(row.Provenance)
	if err != nil {
		return transcript.Course{}, errors.Wrapf(err, "course %s", row.ID)
	}
	return transcript.Course{
		ID:           row.ID,
		TranscriptID: row.TranscriptID,
		Title:        row.Title,
		Term1:        row.Term1,
		Term2:        row.Term2,
		Term3:        row.Term3,
		Credits:      row.Credits,
		Provenance:   prov,
		SourceID:     row.SourceID,
		PulledIn:     row.PulledIn,
		GradeLevel:   student.Bucket(row.GradeLevel),
		SortOrder:    row.SortOrder,
		Level:        transcript.Level(row.Level),
		CreatedAt:    utc(row.CreatedAt),
		UpdatedAt:    utc(row.UpdatedAt),
	}, nil
}

type TranscriptRepository struct {
	db core.DB
}

var _ transcript.Repository = (*TranscriptRepository)(nil)

func NewTranscriptRepository(db core.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func (repo *TranscriptRepository) CreateTranscript(ctx context.Context, tr transcript.Transcript) (transcript.Transcript, error) {
	tr.ID = newID()
	if _, err := repo.db.NamedExecContext(ctx, transcriptsTable.insertQuery(), toTranscriptRow(tr)); err != nil {
		return transcript.Transcript{}, errors.Wrap(err, "inserting transcript")
	}
	return repo.GetTranscriptByID(ctx, tr.ID)
}

func (repo *TranscriptRepository) get(ctx context.Context, clause string, arg interface{}) (transcript.Transcript, error) {
	var row transcriptRow
	q := repo.db.Rebind(transcriptsTable.selectQuery() + " WHERE " + clause)
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return transcript.Transcript{}, trapNoRowsErr(err, transcript.ErrNotFound, "getting transcript")
	}
	tr := row.toTranscript()

	courses, err := repo.courses(ctx, tr.ID)
	if err != nil {
		return transcript.Transcript{}, err
	}
	tr.Courses = courses
	return tr, nil
}

func (repo *TranscriptRepository) courses(ctx context.Context, transcriptID string) ([]transcript.Course, error) {
	var rows []courseRow
	q := repo.db.Rebind(transcriptCoursesTable.selectQuery() + " WHERE transcript_id = ?")
	if err := repo.db.SelectContext(ctx, &rows, q, transcriptID); err != nil {
		return nil, errors.Wrap(err, "getting transcript courses")
	}
	courses := make([]transcript.Course, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCourse()
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	transcript.SortCourses(courses)
	return courses, nil
}

func (repo *TranscriptRepository) GetTranscriptByID(ctx context.Context, id string) (transcript.Transcript, error) {
	return repo.get(ctx, "id = ?", id)
}

func (repo *TranscriptRepository) GetTranscriptByStudentID(ctx context.Context, studentID string) (transcript.Transcript, error) {
	return repo.get(ctx, "student_id = ?", studentID)
}

func (repo *TranscriptRepository) UpdateTranscript(ctx context.Context, tr transcript.Transcript) (transcript.Transcript, error) {
	res, err := repo.db.NamedExecContext(ctx, transcriptsTable.updateQuery("id"), toTranscriptRow(tr))
	if err != nil {
		return transcript.Transcript{}, errors.Wrap(err, "updating transcript")
	}
	if err = checkAffected(res, transcript.ErrNotFound); err != nil {
		return transcript.Transcript{}, err
	}
	tr.Courses = nil
	return tr, nil
}

func (repo *TranscriptRepository) CreateCourse(ctx context.Context, c transcript.Course) (transcript.Course, error) {
	c.ID = newID()
	if _, err := repo.db.NamedExecContext(ctx, transcriptCoursesTable.insertQuery(), toCourseRow(c)); err != nil {
		return transcript.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *TranscriptRepository) UpdateCourse(ctx context.Context, c transcript.Course) (transcript.Course, error) {
	res, err := repo.db.NamedExecContext(ctx, transcriptCoursesTable.updateQuery("id"), toCourseRow(c))
	if err != nil {
		return transcript.Course{}, errors.Wrap(err, "updating course")
	}
	if err = checkAffected(res, transcript.ErrCourseNotFound); err != nil {
		return transcript.Course{}, err
	}
	return c, nil
}

func (repo *TranscriptRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM transcript_courses WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, transcript.ErrCourseNotFound)
}

// ReplaceImportedCourses swaps every non-manual course of the transcript for courses.
// Courses keep their ids when they have one.
func (repo *TranscriptRepository) ReplaceImportedCourses(ctx context.Context, transcriptID string, courses []transcript.Course) error {
	return core.RunInTx(ctx, repo.db, func(tx core.DBExecutor) error {
		q := tx.Rebind("DELETE FROM transcript_courses WHERE transcript_id = ? AND provenance <> ?")
		if _, err := tx.ExecContext(ctx, q, transcriptID, string(transcript.Manual)); err != nil {
			return errors.Wrap(err, "deleting imported courses")
		}
		for _, c := range courses {
			if !c.Provenance.Imported() {
				return errors.Errorf("course %q is not imported", c.Title)
			}
			if c.ID == "" {
				c.ID = newID()
			}
			c.TranscriptID = transcriptID
			if _, err := tx.NamedExecContext(ctx, transcriptCoursesTable.insertQuery(), toCourseRow(c)); err != nil {
				return errors.Wrap(err, "inserting imported course")
			}
		}
		return nil
	})
}
