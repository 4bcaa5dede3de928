package workpermit

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/events"
	"github.com/trezcool/homeroom/core/student"
)

var (
	// errors
	ErrNotFound      = errors.New("work permit not found")
	ErrNotEditable   = errors.New("only draft or rejected permits can be changed")
	ErrBadTransition = errors.New("status transition not allowed")

	// topics
	StatusChanged = events.NewTopic[StatusChangedEvent]("workpermit.status_changed")
)

type (
	Repository interface {
		CreateWorkPermit(ctx context.Context, wp WorkPermit) (WorkPermit, error)
		GetWorkPermitByID(ctx context.Context, id string) (WorkPermit, error)
		FilterWorkPermits(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]WorkPermit, error)
		UpdateWorkPermit(ctx context.Context, wp WorkPermit) (WorkPermit, error)
		DeleteWorkPermit(ctx context.Context, id string) error
	}

	Students interface {
		Get(ctx context.Context, actor core.Actor, id string) (student.Student, error)
	}

	Service struct {
		repo     Repository
		students Students
		bus      *events.Bus
	}
)

func NewService(repo Repository, students Students, bus *events.Bus) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(bus, "bus"),
	).CheckAndPanic()

	return &Service{repo: repo, students: students, bus: bus}
}

func (svc *Service) Create(ctx context.Context, actor core.Actor, nw NewWorkPermit) (WorkPermit, error) {
	st, err := svc.students.Get(ctx, actor, nw.StudentID)
	if err != nil {
		return WorkPermit{}, err
	}
	nw.Clean()
	now := time.Now().UTC()
	return svc.repo.CreateWorkPermit(ctx, WorkPermit{
		StudentID:       st.ID,
		AccountID:       st.AccountID,
		EmployerName:    nw.EmployerName,
		EmployerAddress: nw.EmployerAddress,
		JobTitle:        nw.JobTitle,
		HoursPerWeek:    nw.HoursPerWeek,
		StartDate:       nw.StartDate,
		Status:          Draft,
		Notes:           nw.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *Service) Get(ctx context.Context, actor core.Actor, id string) (WorkPermit, error) {
	wp, err := svc.repo.GetWorkPermitByID(ctx, id)
	if err != nil {
		return WorkPermit{}, err
	}
	if !actor.CanAccess(wp.AccountID) {
		return WorkPermit{}, ErrNotFound
	}
	return wp, nil
}

func (svc *Service) Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering ...core.DBOrdering) ([]WorkPermit, error) {
	filter.AccountID = actor.OwnerFilter()
	return svc.repo.FilterWorkPermits(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, actor core.Actor, id string, uw UpdateWorkPermit) (WorkPermit, error) {
	orig, err := svc.Get(ctx, actor, id)
	if err != nil {
		return WorkPermit{}, err
	}
	if !orig.Editable() {
		return WorkPermit{}, core.NewValidationError(ErrNotEditable)
	}
	wp := uw.Apply(orig)
	wp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateWorkPermit(ctx, wp)
}

func (svc *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	wp, err := svc.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !wp.Editable() && !actor.IsAdmin {
		return core.NewValidationError(ErrNotEditable)
	}
	return svc.repo.DeleteWorkPermit(ctx, id)
}

// ChangeStatus moves the permit along the transition table.
// Approving and rejecting is for admins.
func (svc *Service) ChangeStatus(ctx context.Context, actor core.Actor, id string, sc StatusChange) (WorkPermit, error) {
	wp, err := svc.Get(ctx, actor, id)
	if err != nil {
		return WorkPermit{}, err
	}
	ok, adminOnly := CanTransition(wp.Status, sc.Status)
	if !ok {
		return WorkPermit{}, core.NewValidationError(
			ErrBadTransition,
			core.FieldError{Field: "status", Error: fmt.Sprintf("cannot go from %s to %s", wp.Status, sc.Status)},
		)
	}
	if adminOnly && !actor.IsAdmin {
		return WorkPermit{}, core.ErrPermissionDenied
	}

	from := wp.Status
	wp.Status = sc.Status
	if notes := core.CleanString(sc.Notes); notes != "" {
		wp.Notes = notes
	}
	wp.UpdatedAt = time.Now().UTC()
	if wp, err = svc.repo.UpdateWorkPermit(ctx, wp); err != nil {
		return WorkPermit{}, errors.Wrap(err, "updating work permit")
	}

	events.Publish(ctx, svc.bus, StatusChanged, StatusChangedEvent{
		PermitID:  wp.ID,
		AccountID: wp.AccountID,
		StudentID: wp.StudentID,
		From:      from,
		To:        wp.Status,
	})
	return wp, nil
}
