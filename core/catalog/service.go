package catalog

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrAlreadyEnrolled = errors.New("student already enrolled in this course")
)

type (
	Repository interface {
		CreatePlatformCourse(ctx context.Context, c PlatformCourse) (PlatformCourse, error)
		GetPlatformCourseByID(ctx context.Context, id string) (PlatformCourse, error)
		FilterPlatformCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]PlatformCourse, error)
		CreateEnrollment(ctx context.Context, e Enrollment) error
		DeleteEnrollment(ctx context.Context, courseID, studentID string) error
		// EnrolledCourses returns the platform courses studentID is enrolled in, by enrollment date.
		EnrolledCourses(ctx context.Context, studentID string) ([]PlatformCourse, error)

		CreateUserCourse(ctx context.Context, c UserCourse) (UserCourse, error)
		GetUserCourseByID(ctx context.Context, id string) (UserCourse, error)
		UserCoursesForStudent(ctx context.Context, studentID string) ([]UserCourse, error)
		DeleteUserCourse(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

func (svc *Service) CreatePlatformCourse(ctx context.Context, nc NewCourse) (PlatformCourse, error) {
	nc.Clean()
	now := time.Now().UTC()
	return svc.repo.CreatePlatformCourse(ctx, PlatformCourse{
		Title:       nc.Title,
		Credits:     nc.Credits,
		Description: nc.Description,
		Subject:     nc.Subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) QueryPlatformCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]PlatformCourse, error) {
	filter.Clean()
	return svc.repo.FilterPlatformCourses(ctx, filter, ordering...)
}

// Enroll enrolls studentID in the platform course. The caller checks student ownership.
func (svc *Service) Enroll(ctx context.Context, courseID, studentID string) (Enrollment, error) {
	if _, err := svc.repo.GetPlatformCourseByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}
	e := Enrollment{PlatformCourseID: courseID, StudentID: studentID, EnrolledAt: time.Now().UTC()}
	if err := svc.repo.CreateEnrollment(ctx, e); err != nil {
		return Enrollment{}, err
	}
	return e, nil
}

func (svc *Service) Unenroll(ctx context.Context, courseID, studentID string) error {
	return svc.repo.DeleteEnrollment(ctx, courseID, studentID)
}

func (svc *Service) EnrolledCourses(ctx context.Context, studentID string) ([]PlatformCourse, error) {
	return svc.repo.EnrolledCourses(ctx, studentID)
}

func (svc *Service) CreateUserCourse(ctx context.Context, actor core.Actor, studentID string, nc NewCourse) (UserCourse, error) {
	nc.Clean()
	now := time.Now().UTC()
	return svc.repo.CreateUserCourse(ctx, UserCourse{
		AccountID:   actor.AccountID,
		StudentID:   studentID,
		Title:       nc.Title,
		Credits:     nc.Credits,
		Description: nc.Description,
		Subject:     nc.Subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) UserCourses(ctx context.Context, studentID string) ([]UserCourse, error) {
	return svc.repo.UserCoursesForStudent(ctx, studentID)
}

func (svc *Service) DeleteUserCourse(ctx context.Context, actor core.Actor, id string) error {
	c, err := svc.repo.GetUserCourseByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanAccess(c.AccountID) {
		return ErrNotFound
	}
	return svc.repo.DeleteUserCourse(ctx, id)
}
