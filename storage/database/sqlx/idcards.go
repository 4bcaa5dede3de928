package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/idcard"
)

var (
	idCardsTable = table{
		name: "id_cards",
		columns: []string{
			"id", "account_id", "student_id", "card_type", "full_name", "school_name",
			"card_number", "issue_date", "expiry_date", "image_key", "created_at",
		},
	}
	idCardOrdering = core.NewOrderingFields("full_name", "card_type", "issue_date", "expiry_date", "created_at")
)

type idCardRow struct {
	ID         string      `db:"id"`
	AccountID  string      `db:"account_id"`
	StudentID  null.String `db:"student_id"`
	CardType   string      `db:"card_type"`
	FullName   string      `db:"full_name"`
	SchoolName string      `db:"school_name"`
	CardNumber string      `db:"card_number"`
	IssueDate  time.Time   `db:"issue_date"`
	ExpiryDate time.Time   `db:"expiry_date"`
	ImageKey   string      `db:"image_key"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (row idCardRow) toIDCard() idcard.IDCard {
	return idcard.IDCard{
		ID:         row.ID,
		AccountID:  row.AccountID,
		StudentID:  row.StudentID.String,
		CardType:   idcard.CardType(row.CardType),
		FullName:   row.FullName,
		SchoolName: row.SchoolName,
		CardNumber: row.CardNumber,
		IssueDate:  utc(row.IssueDate),
		ExpiryDate: utc(row.ExpiryDate),
		ImageKey:   row.ImageKey,
		CreatedAt:  utc(row.CreatedAt),
	}
}

type IDCardRepository struct {
	db core.DB
}

var _ idcard.Repository = (*IDCardRepository)(nil)

func NewIDCardRepository(db core.DB) *IDCardRepository {
	return &IDCardRepository{db: db}
}

func (repo *IDCardRepository) CreateIDCard(ctx context.Context, card idcard.IDCard) (idcard.IDCard, error) {
	taken, err := exists(ctx, repo.db, "SELECT 1 FROM id_cards WHERE card_number = ?", card.CardNumber)
	if err != nil {
		return idcard.IDCard{}, errors.Wrap(err, "checking card number")
	}
	if taken {
		return idcard.IDCard{}, idcard.ErrDuplicateNumber
	}

	card.ID = newID()
	row := idCardRow{
		ID:         card.ID,
		AccountID:  card.AccountID,
		StudentID:  nullString(card.StudentID),
		CardType:   string(card.CardType),
		FullName:   card.FullName,
		SchoolName: card.SchoolName,
		CardNumber: card.CardNumber,
		IssueDate:  card.IssueDate.UTC(),
		ExpiryDate: card.ExpiryDate.UTC(),
		ImageKey:   card.ImageKey,
		CreatedAt:  card.CreatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, idCardsTable.insertQuery(), row); err != nil {
		return idcard.IDCard{}, errors.Wrap(err, "inserting id card")
	}
	return row.toIDCard(), nil
}

func (repo *IDCardRepository) GetIDCardByID(ctx context.Context, id string) (idcard.IDCard, error) {
	var row idCardRow
	q := repo.db.Rebind(idCardsTable.selectQuery() + " WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return idcard.IDCard{}, trapNoRowsErr(err, idcard.ErrNotFound, "getting id card")
	}
	return row.toIDCard(), nil
}

func (repo *IDCardRepository) FilterIDCards(ctx context.Context, filter idcard.QueryFilter, ordering ...core.DBOrdering) ([]idcard.IDCard, error) {
	var w where
	if filter.AccountID != "" {
		w.add("account_id = ?", filter.AccountID)
	}
	if filter.CardType != "" {
		w.add("card_type = ?", string(filter.CardType))
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	q := idCardsTable.selectQuery() + w.String() +
		idCardOrdering.OrderBy(ordering, core.DBOrdering{Field: "created_at"})
	var rows []idCardRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering id cards")
	}
	cards := make([]idcard.IDCard, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, row.toIDCard())
	}
	return cards, nil
}

func (repo *IDCardRepository) DeleteIDCard(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM id_cards WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting id card")
	}
	return checkAffected(res, idcard.ErrNotFound)
}
