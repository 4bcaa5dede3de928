package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/student"
)

var (
	studentsTable = table{
		name: "students",
		columns: []string{
			"id", "account_id", "first_name", "last_name", "date_of_birth", "grade_level",
			"graduation_year", "school_name", "created_at", "updated_at",
		},
	}
	studentOrdering = core.NewOrderingFields("first_name", "last_name", "grade_level", "graduation_year", "created_at")
)

type studentRow struct {
	ID             string    `db:"id"`
	AccountID      string    `db:"account_id"`
	FirstName      string    `db:"first_name"`
	LastName       string    `db:"last_name"`
	DateOfBirth    null.Time `db:"date_of_birth"`
	GradeLevel     string    `db:"grade_level"`
	GraduationYear int       `db:"graduation_year"`
	SchoolName     string    `db:"school_name"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func toStudentRow(st student.Student) studentRow {
	return studentRow{
		ID:             st.ID,
		AccountID:      st.AccountID,
		FirstName:      st.FirstName,
		LastName:       st.LastName,
		DateOfBirth:    nullTimePtr(st.DateOfBirth),
		GradeLevel:     string(st.GradeLevel),
		GraduationYear: st.GraduationYear,
		SchoolName:     st.SchoolName,
		CreatedAt:      st.CreatedAt.UTC(),
		UpdatedAt:      st.UpdatedAt.UTC(),
	}
}

func (row studentRow) toStudent() student.Student {
	st := student.Student{
		ID:             row.ID,
		AccountID:      row.AccountID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		GradeLevel:     student.GradeLevel(row.GradeLevel),
		GraduationYear: row.GraduationYear,
		SchoolName:     row.SchoolName,
		CreatedAt:      utc(row.CreatedAt),
		UpdatedAt:      utc(row.UpdatedAt),
	}
	if row.DateOfBirth.Valid {
		dob := row.DateOfBirth.Time.UTC()
		st.DateOfBirth = &dob
	}
	return st
}

type StudentRepository struct {
	db core.DB
}

var _ student.Repository = (*StudentRepository)(nil)

func NewStudentRepository(db core.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (repo *StudentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = newID()
	if _, err := repo.db.NamedExecContext(ctx, studentsTable.insertQuery(), toStudentRow(st)); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.GetStudentByID(ctx, st.ID)
}

func (repo *StudentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	q := repo.db.Rebind(studentsTable.selectQuery() + " WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return row.toStudent(), nil
}

func (repo *StudentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error) {
	var w where
	if filter.AccountID != "" {
		w.add("account_id = ?", filter.AccountID)
	}
	if filter.GradeLevel != "" {
		w.add("grade_level = ?", string(filter.GradeLevel))
	}
	w.search(filter.Search, "first_name", "last_name")

	q := studentsTable.selectQuery() + w.String() +
		studentOrdering.OrderBy(ordering, core.DBOrdering{Field: "last_name", Ascending: true}, core.DBOrdering{Field: "first_name", Ascending: true})
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *StudentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	res, err := repo.db.NamedExecContext(ctx, studentsTable.updateQuery("id"), toStudentRow(st))
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudentByID(ctx, st.ID)
}

func (repo *StudentRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM students WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}
