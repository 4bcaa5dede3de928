package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/community"
)

var (
	groupsTable = table{
		name:    "community_groups",
		columns: []string{"id", "name", "description", "visibility", "owner_id", "created_at", "updated_at"},
	}
	membersTable = table{
		name:    "group_members",
		columns: []string{"group_id", "account_id", "role", "joined_at"},
	}
	postsTable = table{
		name: "posts",
		columns: []string{
			"id", "group_id", "author_id", "parent_id", "kind", "title", "body",
			"accepted_answer_id", "created_at", "updated_at",
		},
	}
	groupOrdering = core.NewOrderingFields("name", "created_at")
)

type groupRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Visibility  string    `db:"visibility"`
	OwnerID     string    `db:"owner_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row groupRow) toGroup() community.Group {
	return community.Group{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Visibility:  community.Visibility(row.Visibility),
		OwnerID:     row.OwnerID,
		CreatedAt:   utc(row.CreatedAt),
		UpdatedAt:   utc(row.UpdatedAt),
	}
}

type memberRow struct {
	GroupID   string    `db:"group_id"`
	AccountID string    `db:"account_id"`
	Role      string    `db:"role"`
	JoinedAt  time.Time `db:"joined_at"`
}

type postRow struct {
	ID               string      `db:"id"`
	GroupID          string      `db:"group_id"`
	AuthorID         string      `db:"author_id"`
	ParentID         null.String `db:"parent_id"`
	Kind             string      `db:"kind"`
	Title            string      `db:"title"`
	Body             string      `db:"body"`
	AcceptedAnswerID null.String `db:"accepted_answer_id"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func toPostRow(p community.Post) postRow {
	return postRow{
		ID:               p.ID,
		GroupID:          p.GroupID,
		AuthorID:         p.AuthorID,
		ParentID:         nullString(p.ParentID),
		Kind:             string(p.Kind),
		Title:            p.Title,
		Body:             p.Body,
		AcceptedAnswerID: nullString(p.AcceptedAnswerID),
		CreatedAt:        p.CreatedAt.UTC(),
		UpdatedAt:        p.UpdatedAt.UTC(),
	}
}

func (row postRow) toPost() community.Post {
	return community.Post{
		ID:               row.ID,
		GroupID:          row.GroupID,
		AuthorID:         row.AuthorID,
		ParentID:         row.ParentID.String,
		Kind:             community.PostKind(row.Kind),
		Title:            row.Title,
		Body:             row.Body,
		AcceptedAnswerID: row.AcceptedAnswerID.String,
		CreatedAt:        utc(row.CreatedAt),
		UpdatedAt:        utc(row.UpdatedAt),
	}
}

type CommunityRepository struct {
	db core.DB
}

var _ community.Repository = (*CommunityRepository)(nil)

func NewCommunityRepository(db core.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

func (repo *CommunityRepository) CreateGroup(ctx context.Context, g community.Group) (community.Group, error) {
	g.ID = newID()
	row := groupRow{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Visibility:  string(g.Visibility),
		OwnerID:     g.OwnerID,
		CreatedAt:   g.CreatedAt.UTC(),
		UpdatedAt:   g.UpdatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, groupsTable.insertQuery(), row); err != nil {
		return community.Group{}, errors.Wrap(err, "inserting group")
	}
	return row.toGroup(), nil
}

func (repo *CommunityRepository) GetGroupByID(ctx context.Context, id string) (community.Group, error) {
	var row groupRow
	q := repo.db.Rebind(groupsTable.selectQuery() + " WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return community.Group{}, trapNoRowsErr(err, community.ErrNotFound, "getting group")
	}
	return row.toGroup(), nil
}

func (repo *CommunityRepository) FilterGroups(ctx context.Context, filter community.QueryFilter, ordering ...core.DBOrdering) ([]community.Group, error) {
	var w where
	member := "id IN (SELECT group_id FROM group_members WHERE account_id = ?)"
	if filter.Mine {
		w.add(member, filter.AccountID)
	} else {
		w.add("(visibility = ? OR "+member+")", string(community.Public), filter.AccountID)
	}
	w.search(filter.Search, "name", "description")

	q := groupsTable.selectQuery() + w.String() +
		groupOrdering.OrderBy(ordering, core.DBOrdering{Field: "name", Ascending: true})
	var rows []groupRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering groups")
	}
	groups := make([]community.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.toGroup())
	}
	return groups, nil
}

func (repo *CommunityRepository) AddMember(ctx context.Context, m community.Membership) error {
	row := memberRow{GroupID: m.GroupID, AccountID: m.AccountID, Role: string(m.Role), JoinedAt: m.JoinedAt.UTC()}
	_, err := repo.db.NamedExecContext(ctx, membersTable.insertQuery(), row)
	return errors.Wrap(err, "inserting member")
}

func (repo *CommunityRepository) RemoveMember(ctx context.Context, groupID, accountID string) error {
	q := repo.db.Rebind("DELETE FROM group_members WHERE group_id = ? AND account_id = ?")
	res, err := repo.db.ExecContext(ctx, q, groupID, accountID)
	if err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return checkAffected(res, community.ErrNotFound)
}

func (repo *CommunityRepository) GetMembership(ctx context.Context, groupID, accountID string) (community.Membership, error) {
	var row memberRow
	q := repo.db.Rebind(membersTable.selectQuery() + " WHERE group_id = ? AND account_id = ?")
	if err := repo.db.GetContext(ctx, &row, q, groupID, accountID); err != nil {
		return community.Membership{}, trapNoRowsErr(err, community.ErrNotFound, "getting membership")
	}
	return community.Membership{
		GroupID:   row.GroupID,
		AccountID: row.AccountID,
		Role:      community.MemberRole(row.Role),
		JoinedAt:  utc(row.JoinedAt),
	}, nil
}

func (repo *CommunityRepository) CreatePost(ctx context.Context, p community.Post) (community.Post, error) {
	p.ID = newID()
	if _, err := repo.db.NamedExecContext(ctx, postsTable.insertQuery(), toPostRow(p)); err != nil {
		return community.Post{}, errors.Wrap(err, "inserting post")
	}
	return p, nil
}

func (repo *CommunityRepository) GetPostByID(ctx context.Context, id string) (community.Post, error) {
	var row postRow
	q := repo.db.Rebind(postsTable.selectQuery() + " WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return community.Post{}, trapNoRowsErr(err, community.ErrNotFound, "getting post")
	}
	return row.toPost(), nil
}

func (repo *CommunityRepository) PostsForGroup(ctx context.Context, groupID string) ([]community.Post, error) {
	var rows []postRow
	q := repo.db.Rebind(postsTable.selectQuery() + " WHERE group_id = ? ORDER BY created_at, id")
	if err := repo.db.SelectContext(ctx, &rows, q, groupID); err != nil {
		return nil, errors.Wrap(err, "getting posts")
	}
	posts := make([]community.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toPost())
	}
	return posts, nil
}

func (repo *CommunityRepository) UpdatePost(ctx context.Context, p community.Post) (community.Post, error) {
	res, err := repo.db.NamedExecContext(ctx, postsTable.updateQuery("id"), toPostRow(p))
	if err != nil {
		return community.Post{}, errors.Wrap(err, "updating post")
	}
	if err = checkAffected(res, community.ErrNotFound); err != nil {
		return community.Post{}, err
	}
	return p, nil
}
