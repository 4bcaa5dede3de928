package student

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/events"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")

	// topics
	Updated = events.NewTopic[UpdatedEvent]("student.updated")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		FilterStudents(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
		bus  *events.Bus
	}
)

func NewService(repo Repository, bus *events.Bus) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(bus, "bus"),
	).CheckAndPanic()

	return &Service{repo: repo, bus: bus}
}

func (svc *Service) Create(ctx context.Context, actor core.Actor, ns NewStudent) (Student, error) {
	ns.Clean()
	now := time.Now().UTC()
	st := Student{
		AccountID:      actor.AccountID,
		FirstName:      ns.FirstName,
		LastName:       ns.LastName,
		DateOfBirth:    ns.DateOfBirth,
		GradeLevel:     ns.GradeLevel,
		GraduationYear: ns.GraduationYear,
		SchoolName:     ns.SchoolName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateStudent(ctx, st)
}

// Get returns the student if actor may access it. Foreign students look missing.
func (svc *Service) Get(ctx context.Context, actor core.Actor, id string) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if !actor.CanAccess(st.AccountID) {
		return Student{}, ErrNotFound
	}
	return st, nil
}

func (svc *Service) Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	filter.AccountID = actor.OwnerFilter()
	return svc.repo.FilterStudents(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, actor core.Actor, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Student{}, err
	}
	st := us.Apply(orig)
	st.UpdatedAt = time.Now().UTC()
	if st, err = svc.repo.UpdateStudent(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	events.Publish(ctx, svc.bus, Updated, UpdatedEvent{Student: st})
	return st, nil
}

func (svc *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if _, err := svc.Get(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteStudent(ctx, id)
}
