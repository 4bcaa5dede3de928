package transcript

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/events"
	"github.com/trezcool/homeroom/core/student"
)

var (
	ErrSyncInProgress    = errors.New("a sync is already running for this student")
	ErrUnknownGradeLevel = errors.New("student has no valid grade level")
)

// SourceCourse is an external course, whatever table it comes from.
type SourceCourse struct {
	Provenance Provenance
	ID         string
	Title      string
	Credits    float64
}

func fromPlatformCourses(courses []catalog.PlatformCourse) []SourceCourse {
	src := make([]SourceCourse, 0, len(courses))
	for _, c := range courses {
		src = append(src, SourceCourse{Provenance: PlatformCourse, ID: c.ID, Title: c.Title, Credits: c.Credits})
	}
	return src
}

func fromUserCourses(courses []catalog.UserCourse) []SourceCourse {
	src := make([]SourceCourse, 0, len(courses))
	for _, c := range courses {
		src = append(src, SourceCourse{Provenance: UserCourse, ID: c.ID, Title: c.Title, Credits: c.Credits})
	}
	return src
}

func formatCredits(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// BuildImported returns the imported course set of a transcript after a sync.
//
// Courses already imported (same provenance and source id) keep their id, term
// grades, level, bucket and sort order; title and credits are refreshed from
// the source. New courses land in bucket, after its last course. Manual courses
// are only read to compute positions.
func BuildImported(existing []Course, bucket student.Bucket, sources []SourceCourse) []Course {
	prior := make(map[string]Course, len(existing))
	placed := make([]Course, 0, len(existing)+len(sources))
	for _, c := range existing {
		if c.Provenance == Manual {
			placed = append(placed, c)
		} else {
			prior[c.SourceKey()] = c
		}
	}

	// carried-over courses keep their place, so position them first
	seen := make(map[string]bool, len(sources))
	built := make([]Course, 0, len(sources))
	isNew := make([]bool, 0, len(sources))
	for _, src := range sources {
		c := Course{
			Title:      src.Title,
			Credits:    formatCredits(src.Credits),
			Provenance: src.Provenance,
			SourceID:   src.ID,
			PulledIn:   true,
		}
		key := c.SourceKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		if old, ok := prior[key]; ok {
			c.ID = old.ID
			c.TranscriptID = old.TranscriptID
			c.Term1, c.Term2, c.Term3 = old.Term1, old.Term2, old.Term3
			c.GradeLevel = old.GradeLevel
			c.SortOrder = old.SortOrder
			c.Level = old.Level
			c.CreatedAt, c.UpdatedAt = old.CreatedAt, old.UpdatedAt
			placed = append(placed, c)
			isNew = append(isNew, false)
		} else {
			c.GradeLevel = bucket
			c.Level = Regular
			isNew = append(isNew, true)
		}
		built = append(built, c)
	}

	for i := range built {
		if isNew[i] {
			built[i].SortOrder = nextSortOrder(placed, built[i].GradeLevel)
			placed = append(placed, built[i])
		}
	}
	return built
}

// SyncPlan is what a sync would write.
type SyncPlan struct {
	Student    student.Student
	Parent     account.Account
	Transcript Transcript // current state
	Imported   []Course   // new imported course set
}

// Result returns the transcript as it will look once the plan is applied.
func (p SyncPlan) Result() Transcript {
	tr := mirror(p.Transcript, p.Student, p.Parent)
	courses := make([]Course, 0, len(tr.Courses)+len(p.Imported))
	for _, c := range tr.Courses {
		if c.Provenance == Manual {
			courses = append(courses, c)
		}
	}
	courses = append(courses, p.Imported...)
	SortCourses(courses)
	tr.Courses = courses
	return tr
}

// PlanSync computes a sync without writing the course set.
// The transcript itself is created if it does not exist yet.
func (svc *Service) PlanSync(ctx context.Context, actor core.Actor, studentID string) (SyncPlan, error) {
	st, err := svc.students.Get(ctx, actor, studentID)
	if err != nil {
		return SyncPlan{}, errors.Wrap(err, "getting student")
	}
	bucket, ok := student.BucketFor(st.GradeLevel)
	if !ok {
		return SyncPlan{}, core.NewValidationError(ErrUnknownGradeLevel,
			core.FieldError{Field: "grade_level", Error: ErrUnknownGradeLevel.Error()})
	}
	parent, err := svc.accounts.GetByID(ctx, st.AccountID)
	if err != nil {
		return SyncPlan{}, errors.Wrap(err, "getting parent account")
	}

	tr, err := svc.getOrCreate(ctx, st, parent)
	if err != nil {
		return SyncPlan{}, err
	}

	sources, err := svc.fetchSources(ctx, st.ID)
	if err != nil {
		return SyncPlan{}, err
	}

	return SyncPlan{
		Student:    st,
		Parent:     parent,
		Transcript: tr,
		Imported:   BuildImported(tr.Courses, bucket, sources),
	}, nil
}

// fetchSources reads both course sources concurrently. The first error wins.
func (svc *Service) fetchSources(ctx context.Context, studentID string) ([]SourceCourse, error) {
	var platform []catalog.PlatformCourse
	var user []catalog.UserCourse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		platform, err = svc.sources.EnrolledCourses(gctx, studentID)
		return errors.Wrap(err, "fetching platform courses")
	})
	g.Go(func() error {
		var err error
		user, err = svc.sources.UserCourses(gctx, studentID)
		return errors.Wrap(err, "fetching user courses")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(fromPlatformCourses(platform), fromUserCourses(user)...), nil
}

// Sync pulls the student's platform and user courses into their transcript.
// Grades of previously imported courses survive; manual courses are untouched.
// GPA is not recomputed.
func (svc *Service) Sync(ctx context.Context, actor core.Actor, studentID string) (Transcript, error) {
	if !svc.guard.acquire(studentID) {
		return Transcript{}, ErrSyncInProgress
	}
	defer svc.guard.release(studentID)

	plan, err := svc.PlanSync(ctx, actor, studentID)
	if err != nil {
		return Transcript{}, err
	}

	if err = svc.repo.ReplaceImportedCourses(ctx, plan.Transcript.ID, plan.Imported); err != nil {
		return Transcript{}, errors.Wrap(err, "replacing imported courses")
	}

	tr := mirror(plan.Transcript, plan.Student, plan.Parent)
	tr.UpdatedAt = svc.now()
	if _, err = svc.repo.UpdateTranscript(ctx, tr); err != nil {
		return Transcript{}, errors.Wrap(err, "updating transcript")
	}

	if tr, err = svc.repo.GetTranscriptByID(ctx, tr.ID); err != nil {
		return Transcript{}, errors.Wrap(err, "reloading transcript")
	}

	events.Publish(ctx, svc.bus, Synced, SyncedEvent{
		AccountID:    tr.AccountID,
		StudentID:    tr.StudentID,
		TranscriptID: tr.ID,
		Imported:     len(plan.Imported),
	})
	svc.logger.Info("transcript synced", map[string]interface{}{
		"transcript_id": tr.ID,
		"student_id":    tr.StudentID,
		"imported":      len(plan.Imported),
	}, actor)
	return tr, nil
}

// mirror copies student and parent demographics onto the transcript.
func mirror(tr Transcript, st student.Student, parent account.Account) Transcript {
	tr.StudentID = st.ID
	tr.AccountID = st.AccountID
	tr.StudentName = st.FullName()
	tr.DateOfBirth = st.DateOfBirth
	tr.GraduationYear = st.GraduationYear
	tr.SchoolName = st.SchoolName
	tr.ParentName = parent.Name
	tr.ParentEmail = parent.Email
	tr.Phone = parent.Phone
	tr.Address = parent.Address
	return tr
}
