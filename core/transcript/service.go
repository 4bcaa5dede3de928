package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/debounce"
	"github.com/trezcool/homeroom/core/events"
	"github.com/trezcool/homeroom/core/student"
)

var (
	// errors
	ErrNotFound       = errors.New("transcript not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrImportedCourse = errors.New("imported courses only accept grade and level changes")
	ErrDraftsClosed   = errors.New("drafts are no longer accepted")

	// topics
	Synced = events.NewTopic[SyncedEvent]("transcript.synced")
	Saved  = events.NewTopic[SavedEvent]("transcript.saved")
)

type (
	Repository interface {
		CreateTranscript(ctx context.Context, tr Transcript) (Transcript, error)
		// GetTranscriptByID and GetTranscriptByStudentID load the courses too.
		GetTranscriptByID(ctx context.Context, id string) (Transcript, error)
		GetTranscriptByStudentID(ctx context.Context, studentID string) (Transcript, error)
		// UpdateTranscript writes the demographic and summary fields, not the courses.
		UpdateTranscript(ctx context.Context, tr Transcript) (Transcript, error)

		CreateCourse(ctx context.Context, c Course) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
		// ReplaceImportedCourses deletes every non-manual course of the transcript
		// and inserts courses, in one transaction.
		ReplaceImportedCourses(ctx context.Context, transcriptID string, courses []Course) error
	}

	Students interface {
		Get(ctx context.Context, actor core.Actor, id string) (student.Student, error)
	}

	Accounts interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Sources interface {
		EnrolledCourses(ctx context.Context, studentID string) ([]catalog.PlatformCourse, error)
		UserCourses(ctx context.Context, studentID string) ([]catalog.UserCourse, error)
	}

	Service struct {
		repo     Repository
		students Students
		accounts Accounts
		sources  Sources
		bus      *events.Bus
		logger   core.Logger
		guard    *syncGuard
		drafts   *debounce.Debouncer
		now      func() time.Time
	}
)

func NewService(
	repo Repository,
	students Students,
	accounts Accounts,
	sources Sources,
	bus *events.Bus,
	conf *core.Config,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(accounts, "accounts"),
		vala.IsNotNil(sources, "sources"),
		vala.IsNotNil(bus, "bus"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		students: students,
		accounts: accounts,
		sources:  sources,
		bus:      bus,
		logger:   logger,
		guard:    newSyncGuard(),
		drafts:   debounce.New(conf.Transcript.AutosaveDelay),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe keeps transcripts in line with their student records.
func (svc *Service) Subscribe() (unsubscribe func()) {
	return events.Subscribe(svc.bus, student.Updated, func(ctx context.Context, e student.UpdatedEvent) {
		if err := svc.refreshDemographics(ctx, e.Student); err != nil {
			svc.logger.Error(fmt.Sprintf("refreshing transcript of student %s: %v", e.Student.ID, err), err)
		}
	})
}

func (svc *Service) refreshDemographics(ctx context.Context, st student.Student) error {
	tr, err := svc.repo.GetTranscriptByStudentID(ctx, st.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "getting transcript")
	}
	parent, err := svc.accounts.GetByID(ctx, st.AccountID)
	if err != nil {
		return errors.Wrap(err, "getting parent account")
	}
	tr = mirror(tr, st, parent)
	tr.UpdatedAt = svc.now()
	_, err = svc.repo.UpdateTranscript(ctx, tr)
	return errors.Wrap(err, "updating transcript")
}

func (svc *Service) getOrCreate(ctx context.Context, st student.Student, parent account.Account) (Transcript, error) {
	tr, err := svc.repo.GetTranscriptByStudentID(ctx, st.ID)
	if err == nil {
		return tr, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Transcript{}, errors.Wrap(err, "getting transcript")
	}

	now := svc.now()
	tr = mirror(Transcript{GPA: NotAvailable, CreatedAt: now, UpdatedAt: now}, st, parent)
	tr, err = svc.repo.CreateTranscript(ctx, tr)
	return tr, errors.Wrap(err, "creating transcript")
}

// GetForStudent returns the student's transcript, creating it on first access.
func (svc *Service) GetForStudent(ctx context.Context, actor core.Actor, studentID string) (Transcript, error) {
	st, err := svc.students.Get(ctx, actor, studentID)
	if err != nil {
		return Transcript{}, errors.Wrap(err, "getting student")
	}
	parent, err := svc.accounts.GetByID(ctx, st.AccountID)
	if err != nil {
		return Transcript{}, errors.Wrap(err, "getting parent account")
	}
	return svc.getOrCreate(ctx, st, parent)
}

// Get returns the transcript if actor may access it.
func (svc *Service) Get(ctx context.Context, actor core.Actor, id string) (Transcript, error) {
	tr, err := svc.repo.GetTranscriptByID(ctx, id)
	if err != nil {
		return Transcript{}, err
	}
	if !actor.CanAccess(tr.AccountID) {
		return Transcript{}, ErrNotFound
	}
	return tr, nil
}

func (svc *Service) Update(ctx context.Context, actor core.Actor, id string, upd UpdateTranscript) (Transcript, error) {
	orig, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Transcript{}, err
	}
	tr := upd.Apply(orig)
	tr.UpdatedAt = svc.now()
	if tr, err = svc.repo.UpdateTranscript(ctx, tr); err != nil {
		return Transcript{}, errors.Wrap(err, "updating transcript")
	}
	tr.Courses = orig.Courses
	return tr, nil
}

// AddCourse adds a manual course at the end of its bucket.
func (svc *Service) AddCourse(ctx context.Context, actor core.Actor, transcriptID string, nc NewCourse) (Course, error) {
	tr, err := svc.Get(ctx, actor, transcriptID)
	if err != nil {
		return Course{}, err
	}
	nc.Clean()
	now := svc.now()
	c := Course{
		TranscriptID: tr.ID,
		Title:        nc.Title,
		Term1:        nc.Term1,
		Term2:        nc.Term2,
		Term3:        nc.Term3,
		Credits:      nc.Credits,
		Provenance:   Manual,
		GradeLevel:   nc.GradeLevel,
		SortOrder:    nextSortOrder(tr.Courses, nc.GradeLevel),
		Level:        nc.Level,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) UpdateCourse(ctx context.Context, actor core.Actor, transcriptID, courseID string, uc UpdateCourse) (Course, error) {
	tr, err := svc.Get(ctx, actor, transcriptID)
	if err != nil {
		return Course{}, err
	}
	orig, ok := tr.CourseByID(courseID)
	if !ok {
		return Course{}, ErrCourseNotFound
	}
	if orig.PulledIn && uc.TouchesImportedFields() {
		return Course{}, core.NewValidationError(ErrImportedCourse)
	}
	c := uc.Apply(orig)
	c.UpdatedAt = svc.now()
	return svc.repo.UpdateCourse(ctx, c)
}

// DeleteCourse deletes a manual course. Imported courses go away only through sync.
func (svc *Service) DeleteCourse(ctx context.Context, actor core.Actor, transcriptID, courseID string) error {
	tr, err := svc.Get(ctx, actor, transcriptID)
	if err != nil {
		return err
	}
	c, ok := tr.CourseByID(courseID)
	if !ok {
		return ErrCourseNotFound
	}
	if c.PulledIn {
		return core.NewValidationError(ErrImportedCourse)
	}
	return svc.repo.DeleteCourse(ctx, c.ID)
}

// Recalculate computes and stores the credit and GPA summary.
func (svc *Service) Recalculate(ctx context.Context, actor core.Actor, id string) (Transcript, error) {
	tr, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Transcript{}, err
	}
	summary := Calculate(tr.Courses)
	tr.TotalCredits = summary.TotalCredits
	tr.GPA = summary.GPA
	tr.WeightedGPA = summary.WeightedGPA
	tr.UpdatedAt = svc.now()

	courses := tr.Courses
	if tr, err = svc.repo.UpdateTranscript(ctx, tr); err != nil {
		return Transcript{}, errors.Wrap(err, "storing summary")
	}
	tr.Courses = courses
	return tr, nil
}

// SaveDraft schedules a delayed write of the draft. A newer draft of the same
// transcript replaces a pending one.
func (svc *Service) SaveDraft(ctx context.Context, actor core.Actor, id string, d Draft) error {
	if _, err := svc.Get(ctx, actor, id); err != nil {
		return err
	}
	if !svc.drafts.Schedule(id, func() { svc.writeDraft(actor, id, d) }) {
		return ErrDraftsClosed
	}
	return nil
}

func (svc *Service) writeDraft(actor core.Actor, id string, d Draft) {
	ctx := context.Background()
	if err := svc.applyDraft(ctx, actor, id, d); err != nil {
		svc.logger.Error(fmt.Sprintf("saving draft of transcript %s: %v", id, err), err, actor)
		return
	}
	events.Publish(ctx, svc.bus, Saved, SavedEvent{AccountID: actor.AccountID, TranscriptID: id})
}

func (svc *Service) applyDraft(ctx context.Context, actor core.Actor, id string, d Draft) error {
	tr, err := svc.Update(ctx, actor, id, d.UpdateTranscript)
	if err != nil {
		return err
	}
	for _, cg := range d.Courses {
		orig, ok := tr.CourseByID(cg.ID)
		if !ok {
			continue // deleted meanwhile
		}
		uc := UpdateCourse{Term1: cg.Term1, Term2: cg.Term2, Term3: cg.Term3, Level: cg.Level}
		c := uc.Apply(orig)
		if c == orig {
			continue
		}
		c.UpdatedAt = svc.now()
		if _, err = svc.repo.UpdateCourse(ctx, c); err != nil {
			return errors.Wrapf(err, "updating course %s", c.ID)
		}
	}
	return nil
}

// PendingDrafts returns the number of drafts waiting to be written.
func (svc *Service) PendingDrafts() int {
	return svc.drafts.Pending()
}

// FlushDrafts writes pending drafts now. Called on shutdown.
func (svc *Service) FlushDrafts() {
	svc.drafts.Flush()
}
