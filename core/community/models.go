package community

import (
	"strings"
	"time"

	"github.com/trezcool/homeroom/core"
)

type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

type MemberRole string

const (
	Owner  MemberRole = "owner"
	Member MemberRole = "member"
)

type PostKind string

const (
	Question     PostKind = "question"
	Answer       PostKind = "answer"
	Announcement PostKind = "announcement"
)

type Group struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	OwnerID     string     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

type Membership struct {
	GroupID   string     `json:"group_id"`
	AccountID string     `json:"account_id"`
	Role      MemberRole `json:"role"`
	JoinedAt  time.Time  `json:"joined_at"` // UTC
}

type Post struct {
	ID               string    `json:"id"`
	GroupID          string    `json:"group_id"`
	AuthorID         string    `json:"author_id"`
	ParentID         string    `json:"parent_id,omitempty"`
	Kind             PostKind  `json:"kind"`
	Title            string    `json:"title,omitempty"`
	Body             string    `json:"body"`
	AcceptedAnswerID string    `json:"accepted_answer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name        string     `json:"name" validate:"notblank,max=128"`
	Description string     `json:"description" validate:"max=2000"`
	Visibility  Visibility `json:"visibility" validate:"omitempty,visibility"`
}

func (ng *NewGroup) Clean() {
	ng.Name = strings.Join(strings.Fields(ng.Name), " ")
	ng.Description = core.CleanString(ng.Description)
	if ng.Visibility == "" {
		ng.Visibility = Public
	}
}

// NewPost contains information needed to start a thread in a group.
type NewPost struct {
	Kind  PostKind `json:"kind" validate:"required,oneof=question announcement"`
	Title string   `json:"title" validate:"notblank,max=255"`
	Body  string   `json:"body" validate:"notblank,max=10000"`
}

func (np *NewPost) Clean() {
	np.Title = core.CleanString(np.Title)
	np.Body = core.CleanString(np.Body)
}

type NewAnswer struct {
	Body string `json:"body" validate:"notblank,max=10000"`
}

type QueryFilter struct {
	AccountID string `query:"-"`
	Search    string `query:"search"`
	Mine      bool   `query:"mine"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = strings.ToLower(core.CleanString(qf.Search))
}

// AnsweredEvent is published when a question gets a new answer.
type AnsweredEvent struct {
	GroupID          string `json:"group_id"`
	QuestionID       string `json:"question_id"`
	QuestionTitle    string `json:"question_title"`
	QuestionAuthorID string `json:"question_author_id"`
	AnswerID         string `json:"answer_id"`
	AnswerAuthorID   string `json:"answer_author_id"`
	Body             string `json:"body"`
}

func (e AnsweredEvent) EventAccountID() string { return e.QuestionAuthorID }
