package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
)

var (
	accountsTable = table{
		name: "accounts",
		columns: []string{
			"id", "email", "name", "phone", "address", "roles", "is_active",
			"login_code_hash", "login_code_expires_at", "created_at", "updated_at", "last_login",
		},
	}
	accountOrdering = core.NewOrderingFields("name", "email", "created_at", "last_login")
)

type accountRow struct {
	ID                 string      `db:"id"`
	Email              string      `db:"email"`
	Name               string      `db:"name"`
	Phone              string      `db:"phone"`
	Address            string      `db:"address"`
	Roles              string      `db:"roles"`
	IsActive           bool        `db:"is_active"`
	LoginCodeHash      null.String `db:"login_code_hash"`
	LoginCodeExpiresAt null.Time   `db:"login_code_expires_at"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
	LastLogin          null.Time   `db:"last_login"`
}

func toAccountRow(acc account.Account) accountRow {
	return accountRow{
		ID:                 acc.ID,
		Email:              acc.Email,
		Name:               acc.Name,
		Phone:              acc.Phone,
		Address:            acc.Address,
		Roles:              strings.Join(acc.Roles, ","),
		IsActive:           acc.IsActive,
		LoginCodeHash:      nullString(string(acc.LoginCodeHash)),
		LoginCodeExpiresAt: nullTime(acc.LoginCodeExpiresAt),
		CreatedAt:          acc.CreatedAt.UTC(),
		UpdatedAt:          acc.UpdatedAt.UTC(),
		LastLogin:          nullTime(acc.LastLogin),
	}
}

func (row accountRow) toAccount() account.Account {
	acc := account.Account{
		ID:                 row.ID,
		Email:              row.Email,
		Name:               row.Name,
		Phone:              row.Phone,
		Address:            row.Address,
		IsActive:           row.IsActive,
		LoginCodeExpiresAt: utc(row.LoginCodeExpiresAt.Time),
		CreatedAt:          utc(row.CreatedAt),
		UpdatedAt:          utc(row.UpdatedAt),
		LastLogin:          utc(row.LastLogin.Time),
	}
	if row.Roles != "" {
		acc.Roles = strings.Split(row.Roles, ",")
	}
	if row.LoginCodeHash.Valid {
		acc.LoginCodeHash = []byte(row.LoginCodeHash.String)
	}
	return acc
}

type AccountRepository struct {
	db core.DB
}

var _ account.Repository = (*AccountRepository)(nil) // interface compliance check

func NewAccountRepository(db core.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (repo *AccountRepository) get(ctx context.Context, clause string, arg interface{}) (account.Account, error) {
	var row accountRow
	q := repo.db.Rebind(accountsTable.selectQuery() + " WHERE " + clause)
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "getting account")
	}
	return row.toAccount(), nil
}

func (repo *AccountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	acc.ID = newID()
	if _, err := repo.db.NamedExecContext(ctx, accountsTable.insertQuery(), toAccountRow(acc)); err != nil {
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return repo.GetAccountByID(ctx, acc.ID)
}

func (repo *AccountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	return repo.get(ctx, "id = ?", id)
}

func (repo *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return repo.get(ctx, "email = ?", email)
}

func (repo *AccountRepository) FilterAccounts(ctx context.Context, filter account.QueryFilter, ordering ...core.DBOrdering) ([]account.Account, error) {
	var w where
	w.search(filter.Search, "name", "email")
	if len(filter.Roles) > 0 {
		ors := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			ors = append(ors, "(',' || roles || ',') LIKE ?")
			w.args = append(w.args, "%,"+role+",%")
		}
		w.clauses = append(w.clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	q := accountsTable.selectQuery() + w.String() +
		accountOrdering.OrderBy(ordering, core.DBOrdering{Field: "created_at"})
	var rows []accountRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering accounts")
	}
	accounts := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.toAccount())
	}
	return accounts, nil
}

func (repo *AccountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	res, err := repo.db.NamedExecContext(ctx, accountsTable.updateQuery("id"), toAccountRow(acc))
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if err = checkAffected(res, account.ErrNotFound); err != nil {
		return account.Account{}, err
	}
	return repo.GetAccountByID(ctx, acc.ID)
}
