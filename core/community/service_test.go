package community

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/events"
)

type memRepo struct {
	mu      sync.Mutex
	seq     int
	groups  map[string]Group
	members map[string]Membership
	posts   map[string]Post
}

func newMemRepo() *memRepo {
	return &memRepo{groups: map[string]Group{}, members: map[string]Membership{}, posts: map[string]Post{}}
}

func (r *memRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s%d", prefix, r.seq)
}

func (r *memRepo) CreateGroup(_ context.Context, g Group) (Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.ID = r.nextID("g")
	r.groups[g.ID] = g
	return g, nil
}

func (r *memRepo) GetGroupByID(_ context.Context, id string) (Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (r *memRepo) FilterGroups(_ context.Context, filter QueryFilter, _ ...core.DBOrdering) ([]Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Group
	for _, g := range r.groups {
		_, member := r.members[g.ID+"/"+filter.AccountID]
		if member || (!filter.Mine && g.Visibility == Public) {
			res = append(res, g)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *memRepo) AddMember(_ context.Context, m Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.GroupID+"/"+m.AccountID] = m
	return nil
}

func (r *memRepo) RemoveMember(_ context.Context, groupID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, groupID+"/"+accountID)
	return nil
}

func (r *memRepo) GetMembership(_ context.Context, groupID, accountID string) (Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[groupID+"/"+accountID]
	if !ok {
		return Membership{}, ErrNotFound
	}
	return m, nil
}

func (r *memRepo) CreatePost(_ context.Context, p Post) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID("p")
	r.posts[p.ID] = p
	return p, nil
}

func (r *memRepo) GetPostByID(_ context.Context, id string) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (r *memRepo) PostsForGroup(_ context.Context, groupID string) ([]Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Post
	for _, p := range r.posts {
		if p.GroupID == groupID {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *memRepo) UpdatePost(_ context.Context, p Post) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = p
	return p, nil
}

type fakeAccounts map[string]account.Account

func (f fakeAccounts) GetByID(_ context.Context, id string) (account.Account, error) {
	acc, ok := f[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return acc, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *recordingMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

var (
	alice = core.Actor{AccountID: "a1", Name: "Alice"}
	bob   = core.Actor{AccountID: "a2", Name: "Bob"}
	admin = core.Actor{AccountID: "root", IsAdmin: true}
)

func setup(t *testing.T) (*Service, *recordingMailer) {
	t.Helper()
	accounts := fakeAccounts{
		"a1": {ID: "a1", Name: "Alice", Email: "alice@test.io"},
		"a2": {ID: "a2", Name: "Bob", Email: "bob@test.io"},
	}
	mailer := new(recordingMailer)
	svc := NewService(newMemRepo(), accounts, mailer, events.NewBus(core.NopLogger()), core.NopLogger())
	t.Cleanup(svc.Subscribe())
	return svc, mailer
}

func TestService_groups(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	pub, err := svc.CreateGroup(ctx, alice, NewGroup{Name: "  Math   Circle "})
	require.NoError(t, err)
	assert.Equal(t, "Math Circle", pub.Name)
	assert.Equal(t, Public, pub.Visibility)

	priv, err := svc.CreateGroup(ctx, alice, NewGroup{Name: "Co-op", Visibility: Private})
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   core.Actor
		groupID string
		wantErr error
	}{
		{name: "public group is visible to anyone", actor: bob, groupID: pub.ID},
		{name: "private group is hidden from outsiders", actor: bob, groupID: priv.ID, wantErr: ErrNotFound},
		{name: "private group is visible to members", actor: alice, groupID: priv.ID},
		{name: "admins see everything", actor: admin, groupID: priv.ID},
		{name: "missing group", actor: alice, groupID: "nope", wantErr: ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GetGroup(ctx, tc.actor, tc.groupID)
			assert.Equal(t, tc.wantErr, err)
		})
	}

	groups, err := svc.QueryGroups(ctx, bob, QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, []Group{pub}, groups)

	_, err = svc.Join(ctx, bob, priv.ID)
	assert.Equal(t, ErrNotFound, err)

	m, err := svc.Join(ctx, bob, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, Member, m.Role)
	again, err := svc.Join(ctx, bob, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, m, again, "joining twice is a no-op")

	mine, err := svc.QueryGroups(ctx, bob, QueryFilter{Mine: true})
	require.NoError(t, err)
	assert.Equal(t, []Group{pub}, mine)

	err = svc.Leave(ctx, alice, pub.ID)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, ErrOwnerCannotLeave, vErr.Err)

	require.NoError(t, svc.Leave(ctx, bob, pub.ID))
	assert.Equal(t, ErrNotMember, svc.Leave(ctx, bob, pub.ID))
}

func TestService_questionsAndAnswers(t *testing.T) {
	svc, mailer := setup(t)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, alice, NewGroup{Name: "Math Circle"})
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, bob, g.ID, NewPost{Kind: Question, Title: "Algebra?", Body: "Which book?"})
	assert.Equal(t, ErrNotMember, err)

	_, err = svc.Join(ctx, bob, g.ID)
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, bob, g.ID, NewPost{Kind: Announcement, Title: "Hi", Body: "all"})
	assert.Equal(t, core.ErrPermissionDenied, err)

	ann, err := svc.CreatePost(ctx, alice, g.ID, NewPost{Kind: Announcement, Title: "Welcome", Body: "Hello"})
	require.NoError(t, err)
	_, err = svc.Answer(ctx, bob, ann.ID, NewAnswer{Body: "thanks"})
	assert.Equal(t, ErrNotAQuestion, errors.Cause(err).(*core.ValidationError).Err)

	q, err := svc.CreatePost(ctx, alice, g.ID, NewPost{Kind: Question, Title: "Algebra?", Body: "Which book?"})
	require.NoError(t, err)

	// own answers do not notify
	_, err = svc.Answer(ctx, alice, q.ID, NewAnswer{Body: "bump"})
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)

	a, err := svc.Answer(ctx, bob, q.ID, NewAnswer{Body: "Try Art of Problem Solving"})
	require.NoError(t, err)
	assert.Equal(t, q.ID, a.ParentID)
	assert.Equal(t, Answer, a.Kind)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "alice@test.io", msg.To[0].Address)
	assert.Equal(t, "answer_posted", msg.TemplateName)
	assert.Equal(t, "Bob", msg.TemplateData.(map[string]interface{})["AuthorName"])

	_, err = svc.Accept(ctx, bob, q.ID, a.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = svc.Accept(ctx, alice, q.ID, ann.ID)
	assert.Equal(t, ErrNotAnAnswer, errors.Cause(err).(*core.ValidationError).Err)

	q, err = svc.Accept(ctx, alice, q.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, q.AcceptedAnswerID)

	posts, err := svc.Posts(ctx, bob, g.ID)
	require.NoError(t, err)
	assert.Len(t, posts, 4)
}
