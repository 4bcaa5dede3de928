package community

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/events"
)

var (
	// errors
	ErrNotFound         = errors.New("not found")
	ErrNotMember        = errors.New("you are not a member of this group")
	ErrOwnerCannotLeave = errors.New("the owner cannot leave the group")
	ErrNotAQuestion     = errors.New("only questions can be answered")
	ErrNotAnAnswer      = errors.New("this post is not an answer to the question")

	// topics
	Answered = events.NewTopic[AnsweredEvent]("post.answered")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, g Group) (Group, error)
		GetGroupByID(ctx context.Context, id string) (Group, error)
		// FilterGroups returns public groups and the groups QueryFilter.AccountID belongs to.
		FilterGroups(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Group, error)
		AddMember(ctx context.Context, m Membership) error
		RemoveMember(ctx context.Context, groupID, accountID string) error
		GetMembership(ctx context.Context, groupID, accountID string) (Membership, error)

		CreatePost(ctx context.Context, p Post) (Post, error)
		GetPostByID(ctx context.Context, id string) (Post, error)
		PostsForGroup(ctx context.Context, groupID string) ([]Post, error)
		UpdatePost(ctx context.Context, p Post) (Post, error)
	}

	Accounts interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Service struct {
		repo     Repository
		accounts Accounts
		mailSvc  core.EmailService
		bus      *events.Bus
		logger   core.Logger
	}
)

func NewService(repo Repository, accounts Accounts, mailSvc core.EmailService, bus *events.Bus, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(accounts, "accounts"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(bus, "bus"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, accounts: accounts, mailSvc: mailSvc, bus: bus, logger: logger}
}

// Subscribe emails question authors when their questions get answered.
func (svc *Service) Subscribe() (unsubscribe func()) {
	return events.Subscribe(svc.bus, Answered, func(ctx context.Context, e AnsweredEvent) {
		if err := svc.notifyAnswered(ctx, e); err != nil {
			svc.logger.Error(fmt.Sprintf("notifying answer %s: %v", e.AnswerID, err), err)
		}
	})
}

func (svc *Service) notifyAnswered(ctx context.Context, e AnsweredEvent) error {
	if e.QuestionAuthorID == e.AnswerAuthorID {
		return nil
	}
	author, err := svc.accounts.GetByID(ctx, e.QuestionAuthorID)
	if err != nil {
		return errors.Wrap(err, "getting question author")
	}
	answerer, err := svc.accounts.GetByID(ctx, e.AnswerAuthorID)
	if err != nil {
		return errors.Wrap(err, "getting answer author")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: author.Name, Address: author.Email}},
		Subject:      "New answer to your question",
		TemplateName: "answer_posted",
		TemplateData: map[string]interface{}{
			"Name":          author.Name,
			"AuthorName":    answerer.Name,
			"QuestionTitle": e.QuestionTitle,
			"QuestionID":    e.QuestionID,
			"GroupID":       e.GroupID,
			"Body":          e.Body,
		},
	})
	return nil
}

func (svc *Service) CreateGroup(ctx context.Context, actor core.Actor, ng NewGroup) (Group, error) {
	ng.Clean()
	now := time.Now().UTC()
	g, err := svc.repo.CreateGroup(ctx, Group{
		Name:        ng.Name,
		Description: ng.Description,
		Visibility:  ng.Visibility,
		OwnerID:     actor.AccountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Group{}, errors.Wrap(err, "creating group")
	}
	m := Membership{GroupID: g.ID, AccountID: actor.AccountID, Role: Owner, JoinedAt: now}
	return g, errors.Wrap(svc.repo.AddMember(ctx, m), "adding owner")
}

func (svc *Service) QueryGroups(ctx context.Context, actor core.Actor, filter QueryFilter, ordering ...core.DBOrdering) ([]Group, error) {
	filter.Clean()
	filter.AccountID = actor.AccountID
	return svc.repo.FilterGroups(ctx, filter, ordering...)
}

func (svc *Service) isMember(ctx context.Context, groupID, accountID string) (bool, error) {
	if _, err := svc.repo.GetMembership(ctx, groupID, accountID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting membership")
	}
	return true, nil
}

// GetGroup returns a group visible to actor. Private groups look missing to outsiders.
func (svc *Service) GetGroup(ctx context.Context, actor core.Actor, id string) (Group, error) {
	g, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if g.Visibility == Public || actor.IsAdmin {
		return g, nil
	}
	member, err := svc.isMember(ctx, id, actor.AccountID)
	if err != nil {
		return Group{}, err
	}
	if !member {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (svc *Service) Join(ctx context.Context, actor core.Actor, groupID string) (Membership, error) {
	g, err := svc.GetGroup(ctx, actor, groupID)
	if err != nil {
		return Membership{}, err
	}
	if m, err := svc.repo.GetMembership(ctx, g.ID, actor.AccountID); err == nil {
		return m, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Membership{}, errors.Wrap(err, "getting membership")
	}
	m := Membership{GroupID: g.ID, AccountID: actor.AccountID, Role: Member, JoinedAt: time.Now().UTC()}
	return m, errors.Wrap(svc.repo.AddMember(ctx, m), "adding member")
}

func (svc *Service) Leave(ctx context.Context, actor core.Actor, groupID string) error {
	m, err := svc.repo.GetMembership(ctx, groupID, actor.AccountID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrNotMember
		}
		return errors.Wrap(err, "getting membership")
	}
	if m.Role == Owner {
		return core.NewValidationError(ErrOwnerCannotLeave)
	}
	return svc.repo.RemoveMember(ctx, groupID, actor.AccountID)
}

func (svc *Service) Posts(ctx context.Context, actor core.Actor, groupID string) ([]Post, error) {
	g, err := svc.GetGroup(ctx, actor, groupID)
	if err != nil {
		return nil, err
	}
	return svc.repo.PostsForGroup(ctx, g.ID)
}

// CreatePost starts a question or announcement. Announcements are for the owner.
func (svc *Service) CreatePost(ctx context.Context, actor core.Actor, groupID string, np NewPost) (Post, error) {
	g, err := svc.GetGroup(ctx, actor, groupID)
	if err != nil {
		return Post{}, err
	}
	member, err := svc.isMember(ctx, g.ID, actor.AccountID)
	if err != nil {
		return Post{}, err
	}
	if !member && !actor.IsAdmin {
		return Post{}, ErrNotMember
	}
	if np.Kind == Announcement && g.OwnerID != actor.AccountID && !actor.IsAdmin {
		return Post{}, core.ErrPermissionDenied
	}

	np.Clean()
	now := time.Now().UTC()
	return svc.repo.CreatePost(ctx, Post{
		GroupID:   g.ID,
		AuthorID:  actor.AccountID,
		Kind:      np.Kind,
		Title:     np.Title,
		Body:      np.Body,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Answer(ctx context.Context, actor core.Actor, questionID string, na NewAnswer) (Post, error) {
	q, err := svc.repo.GetPostByID(ctx, questionID)
	if err != nil {
		return Post{}, err
	}
	if q.Kind != Question {
		return Post{}, core.NewValidationError(ErrNotAQuestion)
	}
	member, err := svc.isMember(ctx, q.GroupID, actor.AccountID)
	if err != nil {
		return Post{}, err
	}
	if !member && !actor.IsAdmin {
		return Post{}, ErrNotMember
	}

	now := time.Now().UTC()
	a, err := svc.repo.CreatePost(ctx, Post{
		GroupID:   q.GroupID,
		AuthorID:  actor.AccountID,
		ParentID:  q.ID,
		Kind:      Answer,
		Body:      core.CleanString(na.Body),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Post{}, errors.Wrap(err, "creating answer")
	}

	events.Publish(ctx, svc.bus, Answered, AnsweredEvent{
		GroupID:          q.GroupID,
		QuestionID:       q.ID,
		QuestionTitle:    q.Title,
		QuestionAuthorID: q.AuthorID,
		AnswerID:         a.ID,
		AnswerAuthorID:   a.AuthorID,
		Body:             a.Body,
	})
	return a, nil
}

// Accept marks answerID as the accepted answer. Only the question author may do it.
func (svc *Service) Accept(ctx context.Context, actor core.Actor, questionID, answerID string) (Post, error) {
	q, err := svc.repo.GetPostByID(ctx, questionID)
	if err != nil {
		return Post{}, err
	}
	if q.Kind != Question {
		return Post{}, core.NewValidationError(ErrNotAQuestion)
	}
	if q.AuthorID != actor.AccountID {
		return Post{}, core.ErrPermissionDenied
	}
	a, err := svc.repo.GetPostByID(ctx, answerID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Post{}, core.NewValidationError(ErrNotAnAnswer)
		}
		return Post{}, err
	}
	if a.Kind != Answer || a.ParentID != q.ID {
		return Post{}, core.NewValidationError(ErrNotAnAnswer)
	}

	q.AcceptedAnswerID = a.ID
	q.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePost(ctx, q)
}
