package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/community"
	"github.com/trezcool/homeroom/core/idcard"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
	"github.com/trezcool/homeroom/core/workpermit"
	sqlxrepos "github.com/trezcool/homeroom/storage/database/sqlx"
	"github.com/trezcool/homeroom/tests/testutil"
)

func names(accounts []account.Account) []string {
	res := make([]string, 0, len(accounts))
	for _, a := range accounts {
		res = append(res, a.Name)
	}
	return res
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewAccountRepository(testutil.NewDB(t))

	grace := testutil.CreateAccount(t, repo, "Grace Hopper", "grace@test.io")
	ada := testutil.CreateAccount(t, repo, "Ada Lovelace", "ada@test.io", account.RoleParent, account.RoleAdmin)
	alan := testutil.CreateAccount(t, repo, "Alan Turing", "alan@test.io")
	inactive := false
	alan, err := repo.UpdateAccount(ctx, (&account.UpdateAccount{IsActive: &inactive}).Apply(alan))
	require.NoError(t, err)
	assert.False(t, alan.IsActive)

	got, err := repo.GetAccountByEmail(ctx, "ada@test.io")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)
	assert.Equal(t, []string{account.RoleParent, account.RoleAdmin}, got.Roles)

	_, err = repo.GetAccountByID(ctx, "missing")
	assert.Equal(t, account.ErrNotFound, err)

	active := true
	byName := core.DBOrdering{Field: "name", Ascending: true}
	tests := []struct {
		name   string
		filter account.QueryFilter
		want   []string
	}{
		{name: "all", want: []string{"Ada Lovelace", "Alan Turing", "Grace Hopper"}},
		{name: "search name", filter: account.QueryFilter{Search: "hop"}, want: []string{"Grace Hopper"}},
		{name: "search email", filter: account.QueryFilter{Search: "ada@"}, want: []string{"Ada Lovelace"}},
		{name: "role", filter: account.QueryFilter{Roles: []string{account.RoleAdmin}}, want: []string{"Ada Lovelace"}},
		{name: "active", filter: account.QueryFilter{IsActive: &active}, want: []string{"Ada Lovelace", "Grace Hopper"}},
		{name: "nothing", filter: account.QueryFilter{Search: "zzz"}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			accounts, err := repo.FilterAccounts(ctx, tc.filter, byName)
			require.NoError(t, err)
			assert.Equal(t, tc.want, names(accounts))
		})
	}

	// login codes round-trip
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, grace.SetLoginCode("123456", expires))
	grace, err = repo.UpdateAccount(ctx, grace)
	require.NoError(t, err)
	assert.True(t, grace.LoginCodeExpiresAt.Equal(expires))
	assert.NoError(t, grace.CheckLoginCode("123456", expires.Add(-time.Minute)))

	_, err = repo.UpdateAccount(ctx, account.Account{ID: "missing"})
	assert.Equal(t, account.ErrNotFound, err)
}

func TestStudentRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	accounts := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewStudentRepository(db)

	parent := testutil.CreateAccount(t, accounts, "Grace Hopper", "grace@test.io")
	other := testutil.CreateAccount(t, accounts, "Alan Turing", "alan@test.io")
	ada := testutil.CreateStudent(t, repo, parent.ID, "Ada", "Hopper", student.Grade10)
	testutil.CreateStudent(t, repo, parent.ID, "Bob", "Hopper", student.Grade5)
	testutil.CreateStudent(t, repo, other.ID, "Enigma", "Turing", student.Grade10)

	dob := time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC)
	ada.DateOfBirth = &dob
	ada.GraduationYear = 2028
	ada, err := repo.UpdateStudent(ctx, ada)
	require.NoError(t, err)
	require.NotNil(t, ada.DateOfBirth)
	assert.True(t, ada.DateOfBirth.Equal(dob))
	assert.Equal(t, 2028, ada.GraduationYear)

	mine, err := repo.FilterStudents(ctx, student.QueryFilter{AccountID: parent.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Ada", mine[0].FirstName)

	tenth, err := repo.FilterStudents(ctx, student.QueryFilter{GradeLevel: student.Grade10})
	require.NoError(t, err)
	assert.Len(t, tenth, 2)

	found, err := repo.FilterStudents(ctx, student.QueryFilter{Search: "enig"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, other.ID, found[0].AccountID)

	require.NoError(t, repo.DeleteStudent(ctx, ada.ID))
	_, err = repo.GetStudentByID(ctx, ada.ID)
	assert.Equal(t, student.ErrNotFound, err)
	assert.Equal(t, student.ErrNotFound, repo.DeleteStudent(ctx, ada.ID))
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	accounts := sqlxrepos.NewAccountRepository(db)
	students := sqlxrepos.NewStudentRepository(db)
	repo := sqlxrepos.NewCatalogRepository(db)

	parent := testutil.CreateAccount(t, accounts, "Grace Hopper", "grace@test.io")
	st := testutil.CreateStudent(t, students, parent.ID, "Ada", "Hopper", student.Grade10)
	bio := testutil.CreatePlatformCourse(t, repo, "Biology", 1)
	chem := testutil.CreatePlatformCourse(t, repo, "Chemistry", 0.5)

	courses, err := repo.FilterPlatformCourses(ctx, catalog.QueryFilter{Search: "chem"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 0.5, courses[0].Credits)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateEnrollment(ctx, catalog.Enrollment{PlatformCourseID: chem.ID, StudentID: st.ID, EnrolledAt: base}))
	require.NoError(t, repo.CreateEnrollment(ctx, catalog.Enrollment{PlatformCourseID: bio.ID, StudentID: st.ID, EnrolledAt: base.Add(time.Hour)}))
	err = repo.CreateEnrollment(ctx, catalog.Enrollment{PlatformCourseID: bio.ID, StudentID: st.ID, EnrolledAt: base})
	assert.Equal(t, catalog.ErrAlreadyEnrolled, err)

	enrolled, err := repo.EnrolledCourses(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, enrolled, 2)
	assert.Equal(t, []string{"Chemistry", "Biology"}, []string{enrolled[0].Title, enrolled[1].Title})

	require.NoError(t, repo.DeleteEnrollment(ctx, chem.ID, st.ID))
	assert.Equal(t, catalog.ErrNotFound, repo.DeleteEnrollment(ctx, chem.ID, st.ID))

	now := time.Now().UTC()
	uc, err := repo.CreateUserCourse(ctx, catalog.UserCourse{
		AccountID: parent.ID, StudentID: st.ID, Title: "Woodwork", Credits: 0.5, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	ucs, err := repo.UserCoursesForStudent(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, ucs, 1)
	assert.Equal(t, uc.ID, ucs[0].ID)

	require.NoError(t, repo.DeleteUserCourse(ctx, uc.ID))
	_, err = repo.GetUserCourseByID(ctx, uc.ID)
	assert.Equal(t, catalog.ErrNotFound, err)
}

func TestTranscriptRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	accounts := sqlxrepos.NewAccountRepository(db)
	students := sqlxrepos.NewStudentRepository(db)
	repo := sqlxrepos.NewTranscriptRepository(db)

	parent := testutil.CreateAccount(t, accounts, "Grace Hopper", "grace@test.io")
	st := testutil.CreateStudent(t, students, parent.ID, "Ada", "Hopper", student.Grade10)

	now := time.Now().UTC()
	tr, err := repo.CreateTranscript(ctx, transcript.Transcript{
		StudentID: st.ID, AccountID: parent.ID, StudentName: "Ada Hopper",
		TotalCredits: decimal.Zero, GPA: transcript.NotAvailable, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Empty(t, tr.Courses)

	manual, err := repo.CreateCourse(ctx, transcript.Course{
		TranscriptID: tr.ID, Title: "Piano", Term1: "A", Credits: "1", Provenance: transcript.Manual,
		GradeLevel: student.Sophomore, Level: transcript.Regular, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	imported := []transcript.Course{
		{Title: "Biology", Credits: "1", Provenance: transcript.PlatformCourse, SourceID: "p1", PulledIn: true, GradeLevel: student.Sophomore, SortOrder: 1, Level: transcript.Regular, CreatedAt: now, UpdatedAt: now},
		{Title: "Woodwork", Credits: "0.5", Provenance: transcript.UserCourse, SourceID: "u1", PulledIn: true, GradeLevel: student.Sophomore, SortOrder: 2, Level: transcript.Honors, CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, repo.ReplaceImportedCourses(ctx, tr.ID, imported))

	tr, err = repo.GetTranscriptByStudentID(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, tr.Courses, 3)
	assert.Equal(t, []string{"Piano", "Biology", "Woodwork"}, []string{tr.Courses[0].Title, tr.Courses[1].Title, tr.Courses[2].Title})
	assert.Equal(t, transcript.Honors, tr.Courses[2].Level)

	// re-import keeps ids, drops what is gone, never touches manual courses
	bio := tr.Courses[1]
	bio.Term1 = "B+"
	require.NoError(t, repo.ReplaceImportedCourses(ctx, tr.ID, []transcript.Course{bio}))
	tr, err = repo.GetTranscriptByID(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, tr.Courses, 2)
	assert.Equal(t, manual.ID, tr.Courses[0].ID)
	assert.Equal(t, bio.ID, tr.Courses[1].ID)
	assert.Equal(t, "B+", tr.Courses[1].Term1)

	// the swap is atomic
	err = repo.ReplaceImportedCourses(ctx, tr.ID, []transcript.Course{{Title: "Bad", Provenance: transcript.Manual}})
	assert.EqualError(t, err, `course "Bad" is not imported`)
	tr, err = repo.GetTranscriptByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, tr.Courses, 2)

	tr.TotalCredits = decimal.RequireFromString("1.5")
	tr.GPA = "3.50"
	_, err = repo.UpdateTranscript(ctx, tr)
	require.NoError(t, err)
	tr, err = repo.GetTranscriptByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, tr.TotalCredits.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "3.50", tr.GPA)

	require.NoError(t, repo.DeleteCourse(ctx, manual.ID))
	assert.Equal(t, transcript.ErrCourseNotFound, repo.DeleteCourse(ctx, manual.ID))

	_, err = db.ExecContext(ctx, "UPDATE transcript_courses SET provenance = 'bogus'")
	assert.Error(t, err, "provenance is a closed set")
}

func TestCommunityRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	accounts := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewCommunityRepository(db)

	alice := testutil.CreateAccount(t, accounts, "Alice", "alice@test.io")
	bob := testutil.CreateAccount(t, accounts, "Bob", "bob@test.io")
	now := time.Now().UTC()

	pub, err := repo.CreateGroup(ctx, community.Group{Name: "Math Circle", Visibility: community.Public, OwnerID: alice.ID, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	priv, err := repo.CreateGroup(ctx, community.Group{Name: "Co-op", Visibility: community.Private, OwnerID: alice.ID, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	require.NoError(t, repo.AddMember(ctx, community.Membership{GroupID: pub.ID, AccountID: alice.ID, Role: community.Owner, JoinedAt: now}))
	require.NoError(t, repo.AddMember(ctx, community.Membership{GroupID: priv.ID, AccountID: alice.ID, Role: community.Owner, JoinedAt: now}))

	groups, err := repo.FilterGroups(ctx, community.QueryFilter{AccountID: bob.ID})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, pub.ID, groups[0].ID)

	groups, err = repo.FilterGroups(ctx, community.QueryFilter{AccountID: alice.ID})
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	groups, err = repo.FilterGroups(ctx, community.QueryFilter{AccountID: bob.ID, Mine: true})
	require.NoError(t, err)
	assert.Empty(t, groups)

	m, err := repo.GetMembership(ctx, priv.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, community.Owner, m.Role)
	_, err = repo.GetMembership(ctx, priv.ID, bob.ID)
	assert.Equal(t, community.ErrNotFound, err)

	q, err := repo.CreatePost(ctx, community.Post{GroupID: pub.ID, AuthorID: alice.ID, Kind: community.Question, Title: "Algebra?", Body: "Which book?", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	a, err := repo.CreatePost(ctx, community.Post{GroupID: pub.ID, AuthorID: bob.ID, ParentID: q.ID, Kind: community.Answer, Body: "AoPS", CreatedAt: now.Add(time.Second), UpdatedAt: now})
	require.NoError(t, err)

	q.AcceptedAnswerID = a.ID
	_, err = repo.UpdatePost(ctx, q)
	require.NoError(t, err)

	posts, err := repo.PostsForGroup(ctx, pub.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, a.ID, posts[0].AcceptedAnswerID)
	assert.Equal(t, q.ID, posts[1].ParentID)
	assert.Empty(t, posts[1].AcceptedAnswerID)

	require.NoError(t, repo.RemoveMember(ctx, pub.ID, alice.ID))
	assert.Equal(t, community.ErrNotFound, repo.RemoveMember(ctx, pub.ID, alice.ID))
}

func TestWorkPermitRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	parent := testutil.CreateAccount(t, sqlxrepos.NewAccountRepository(db), "Grace Hopper", "grace@test.io")
	st := testutil.CreateStudent(t, sqlxrepos.NewStudentRepository(db), parent.ID, "Ada", "Hopper", student.Grade10)
	repo := sqlxrepos.NewWorkPermitRepository(db)

	now := time.Now().UTC()
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	wp, err := repo.CreateWorkPermit(ctx, workpermit.WorkPermit{
		StudentID: st.ID, AccountID: parent.ID, EmployerName: "Bakery", JobTitle: "Cashier",
		HoursPerWeek: 10, StartDate: &start, Status: workpermit.Draft, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NotNil(t, wp.StartDate)
	assert.True(t, wp.StartDate.Equal(start))

	wp.Status = workpermit.Submitted
	wp, err = repo.UpdateWorkPermit(ctx, wp)
	require.NoError(t, err)
	assert.Equal(t, workpermit.Submitted, wp.Status)

	list, err := repo.FilterWorkPermits(ctx, workpermit.QueryFilter{AccountID: parent.ID, Status: workpermit.Submitted})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = repo.FilterWorkPermits(ctx, workpermit.QueryFilter{Status: workpermit.Approved})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.DeleteWorkPermit(ctx, wp.ID))
	_, err = repo.GetWorkPermitByID(ctx, wp.ID)
	assert.Equal(t, workpermit.ErrNotFound, err)
}

func TestIDCardRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	parent := testutil.CreateAccount(t, sqlxrepos.NewAccountRepository(db), "Grace Hopper", "grace@test.io")
	repo := sqlxrepos.NewIDCardRepository(db)

	issued := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	card := idcard.IDCard{
		AccountID: parent.ID, CardType: idcard.ParentCard, FullName: "Grace Hopper", CardNumber: "HR-2026-AAAAAAAA",
		IssueDate: issued, ExpiryDate: issued.AddDate(1, 0, 0), ImageKey: "id-cards/x.png", CreatedAt: issued,
	}
	created, err := repo.CreateIDCard(ctx, card)
	require.NoError(t, err)

	_, err = repo.CreateIDCard(ctx, card)
	assert.Equal(t, idcard.ErrDuplicateNumber, err)

	got, err := repo.GetIDCardByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "HR-2026-AAAAAAAA", got.CardNumber)
	assert.Empty(t, got.StudentID)
	assert.True(t, got.ExpiryDate.Equal(issued.AddDate(1, 0, 0)))

	cards, err := repo.FilterIDCards(ctx, idcard.QueryFilter{AccountID: parent.ID, CardType: idcard.ParentCard})
	require.NoError(t, err)
	assert.Len(t, cards, 1)

	require.NoError(t, repo.DeleteIDCard(ctx, created.ID))
	assert.Equal(t, idcard.ErrNotFound, repo.DeleteIDCard(ctx, created.ID))
}
