package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/catalog"
)

var (
	platformCoursesTable = table{
		name:    "platform_courses",
		columns: []string{"id", "title", "credits", "description", "subject", "created_at", "updated_at"},
	}
	enrollmentsTable = table{
		name:    "enrollments",
		columns: []string{"platform_course_id", "student_id", "enrolled_at"},
	}
	userCoursesTable = table{
		name: "user_courses",
		columns: []string{
			"id", "account_id", "student_id", "title", "credits", "description", "subject", "created_at", "updated_at",
		},
	}
	platformCourseOrdering = core.NewOrderingFields("title", "subject", "credits", "created_at")
)

type platformCourseRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Credits     float64   `db:"credits"`
	Description string    `db:"description"`
	Subject     string    `db:"subject"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row platformCourseRow) toCourse() catalog.PlatformCourse {
	return catalog.PlatformCourse{
		ID:          row.ID,
		Title:       row.Title,
		Credits:     row.Credits,
		Description: row.Description,
		Subject:     row.Subject,
		CreatedAt:   utc(row.CreatedAt),
		UpdatedAt:   utc(row.UpdatedAt),
	}
}

type enrollmentRow struct {
	PlatformCourseID string    `db:"platform_course_id"`
	StudentID        string    `db:"student_id"`
	EnrolledAt       time.Time `db:"enrolled_at"`
}

type userCourseRow struct {
	ID          string    `db:"id"`
	AccountID   string    `db:"account_id"`
	StudentID   string    `db:"student_id"`
	Title       string    `db:"title"`
	Credits     float64   `db:"credits"`
	Description string    `db:"description"`
	Subject     string    `db:"subject"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row userCourseRow) toCourse() catalog.UserCourse {
	return catalog.UserCourse{
		ID:          row.ID,
		AccountID:   row.AccountID,
		StudentID:   row.StudentID,
		Title:       row.Title,
		Credits:     row.Credits,
		Description: row.Description,
		Subject:     row.Subject,
		CreatedAt:   utc(row.CreatedAt),
		UpdatedAt:   utc(row.UpdatedAt),
	}
}

type CatalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*CatalogRepository)(nil)

func NewCatalogRepository(db core.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (repo *CatalogRepository) CreatePlatformCourse(ctx context.Context, c catalog.PlatformCourse) (catalog.PlatformCourse, error) {
	c.ID = newID()
	row := platformCourseRow{
		ID:          c.ID,
		Title:       c.Title,
		Credits:     c.Credits,
		Description: c.Description,
		Subject:     c.Subject,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, platformCoursesTable.insertQuery(), row); err != nil {
		return catalog.PlatformCourse{}, errors.Wrap(err, "inserting platform course")
	}
	return repo.GetPlatformCourseByID(ctx, c.ID)
}

func (repo *CatalogRepository) GetPlatformCourseByID(ctx context.Context, id string) (catalog.PlatformCourse, error) {
	var row platformCourseRow
	q := repo.db.Rebind(platformCoursesTable.selectQuery() + " WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return catalog.PlatformCourse{}, trapNoRowsErr(err, catalog.ErrNotFound, "getting platform course")
	}
	return row.toCourse(), nil
}

func (repo *CatalogRepository) FilterPlatformCourses(ctx context.Context, filter catalog.QueryFilter, ordering ...core.DBOrdering) ([]catalog.PlatformCourse, error) {
	var w where
	w.search(filter.Search, "title", "description")
	if filter.Subject != "" {
		w.add("subject = ?", filter.Subject)
	}
	q := platformCoursesTable.selectQuery() + w.String() +
		platformCourseOrdering.OrderBy(ordering, core.DBOrdering{Field: "title", Ascending: true})
	var rows []platformCourseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering platform courses")
	}
	courses := make([]catalog.PlatformCourse, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *CatalogRepository) CreateEnrollment(ctx context.Context, e catalog.Enrollment) error {
	enrolled, err := exists(ctx, repo.db,
		"SELECT 1 FROM enrollments WHERE platform_course_id = ? AND student_id = ?", e.PlatformCourseID, e.StudentID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return catalog.ErrAlreadyEnrolled
	}
	row := enrollmentRow{PlatformCourseID: e.PlatformCourseID, StudentID: e.StudentID, EnrolledAt: e.EnrolledAt.UTC()}
	_, err = repo.db.NamedExecContext(ctx, enrollmentsTable.insertQuery(), row)
	return errors.Wrap(err, "inserting enrollment")
}

func (repo *CatalogRepository) DeleteEnrollment(ctx context.Context, courseID, studentID string) error {
	q := repo.db.Rebind("DELETE FROM enrollments WHERE platform_course_id = ? AND student_id = ?")
	res, err := repo.db.ExecContext(ctx, q, courseID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return checkAffected(res, catalog.ErrNotFound)
}

func (repo *CatalogRepository) EnrolledCourses(ctx context.Context, studentID string) ([]catalog.PlatformCourse, error) {
	q := `SELECT c.id, c.title, c.credits, c.description, c.subject, c.created_at, c.updated_at
		FROM platform_courses c
		JOIN enrollments e ON e.platform_course_id = c.id
		WHERE e.student_id = ?
		ORDER BY e.enrolled_at, c.title`
	var rows []platformCourseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), studentID); err != nil {
		return nil, errors.Wrap(err, "getting enrolled courses")
	}
	courses := make([]catalog.PlatformCourse, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *CatalogRepository) CreateUserCourse(ctx context.Context, c catalog.UserCourse) (catalog.UserCourse, error) {
	c.ID = newID()
	row := userCourseRow{
		ID:          c.ID,
		AccountID:   c.AccountID,
		StudentID:   c.StudentID,
		Title:       c.Title,
		Credits:     c.Credits,
		Description: c.Description,
		Subject:     c.Subject,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, userCoursesTable.insertQuery(), row); err != nil {
		return catalog.UserCourse{}, errors.Wrap(err, "inserting user course")
	}
	return repo.GetUserCourseByID(ctx, c.ID)
}

func (repo *CatalogRepository) GetUserCourseByID(ctx context.Context, id string) (catalog.UserCourse, error) {
	var row userCourseRow
	q := repo.db.Rebind(userCoursesTable.selectQuery() + " WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return catalog.UserCourse{}, trapNoRowsErr(err, catalog.ErrNotFound, "getting user course")
	}
	return row.toCourse(), nil
}

func (repo *CatalogRepository) UserCoursesForStudent(ctx context.Context, studentID string) ([]catalog.UserCourse, error) {
	q := repo.db.Rebind(userCoursesTable.selectQuery() + " WHERE student_id = ? ORDER BY created_at, title")
	var rows []userCourseRow
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "getting user courses")
	}
	courses := make([]catalog.UserCourse, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *CatalogRepository) DeleteUserCourse(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM user_courses WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting user course")
	}
	return checkAffected(res, catalog.ErrNotFound)
}
