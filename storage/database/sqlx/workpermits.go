package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/workpermit"
)

var (
	workPermitsTable = table{
		name: "work_permits",
		columns: []string{
			"id", "student_id", "account_id", "employer_name", "employer_address", "job_title",
			"hours_per_week", "start_date", "status", "notes", "created_at", "updated_at",
		},
	}
	workPermitOrdering = core.NewOrderingFields("employer_name", "status", "start_date", "created_at", "updated_at")
)

type workPermitRow struct {
	ID              string    `db:"id"`
	StudentID       string    `db:"student_id"`
	AccountID       string    `db:"account_id"`
	EmployerName    string    `db:"employer_name"`
	EmployerAddress string    `db:"employer_address"`
	JobTitle        string    `db:"job_title"`
	HoursPerWeek    int       `db:"hours_per_week"`
	StartDate       null.Time `db:"start_date"`
	Status          string    `db:"status"`
	Notes           string    `db:"notes"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func toWorkPermitRow(wp workpermit.WorkPermit) workPermitRow {
	return workPermitRow{
		ID:              wp.ID,
		StudentID:       wp.StudentID,
		AccountID:       wp.AccountID,
		EmployerName:    wp.EmployerName,
		EmployerAddress: wp.EmployerAddress,
		JobTitle:        wp.JobTitle,
		HoursPerWeek:    wp.HoursPerWeek,
		StartDate:       nullTimePtr(wp.StartDate),
		Status:          string(wp.Status),
		Notes:           wp.Notes,
		CreatedAt:       wp.CreatedAt.UTC(),
		UpdatedAt:       wp.UpdatedAt.UTC(),
	}
}

func (row workPermitRow) toWorkPermit() workpermit.WorkPermit {
	wp := workpermit.WorkPermit{
		ID:              row.ID,
		StudentID:       row.StudentID,
		AccountID:       row.AccountID,
		EmployerName:    row.EmployerName,
		EmployerAddress: row.EmployerAddress,
		JobTitle:        row.JobTitle,
		HoursPerWeek:    row.HoursPerWeek,
		Status:          workpermit.Status(row.Status),
		Notes:           row.Notes,
		CreatedAt:       utc(row.CreatedAt),
		UpdatedAt:       utc(row.UpdatedAt),
	}
	if row.StartDate.Valid {
		start := row.StartDate.Time.UTC()
		wp.StartDate = &start
	}
	return wp
}

type WorkPermitRepository struct {
	db core.DB
}

var _ workpermit.Repository = (*WorkPermitRepository)(nil)

func NewWorkPermitRepository(db core.DB) *WorkPermitRepository {
	return &WorkPermitRepository{db: db}
}

func (repo *WorkPermitRepository) CreateWorkPermit(ctx context.Context, wp workpermit.WorkPermit) (workpermit.WorkPermit, error) {
	wp.ID = newID()
	if _, err := repo.db.NamedExecContext(ctx, workPermitsTable.insertQuery(), toWorkPermitRow(wp)); err != nil {
		return workpermit.WorkPermit{}, errors.Wrap(err, "inserting work permit")
	}
	return repo.GetWorkPermitByID(ctx, wp.ID)
}

func (repo *WorkPermitRepository) GetWorkPermitByID(ctx context.Context, id string) (workpermit.WorkPermit, error) {
	var row workPermitRow
	q := repo.db.Rebind(workPermitsTable.selectQuery() + " WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return workpermit.WorkPermit{}, trapNoRowsErr(err, workpermit.ErrNotFound, "getting work permit")
	}
	return row.toWorkPermit(), nil
}

func (repo *WorkPermitRepository) FilterWorkPermits(ctx context.Context, filter workpermit.QueryFilter, ordering ...core.DBOrdering) ([]workpermit.WorkPermit, error) {
	var w where
	if filter.AccountID != "" {
		w.add("account_id = ?", filter.AccountID)
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	q := workPermitsTable.selectQuery() + w.String() +
		workPermitOrdering.OrderBy(ordering, core.DBOrdering{Field: "created_at"})
	var rows []workPermitRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering work permits")
	}
	permits := make([]workpermit.WorkPermit, 0, len(rows))
	for _, row := range rows {
		permits = append(permits, row.toWorkPermit())
	}
	return permits, nil
}

func (repo *WorkPermitRepository) UpdateWorkPermit(ctx context.Context, wp workpermit.WorkPermit) (workpermit.WorkPermit, error) {
	res, err := repo.db.NamedExecContext(ctx, workPermitsTable.updateQuery("id"), toWorkPermitRow(wp))
	if err != nil {
		return workpermit.WorkPermit{}, errors.Wrap(err, "updating work permit")
	}
	if err = checkAffected(res, workpermit.ErrNotFound); err != nil {
		return workpermit.WorkPermit{}, err
	}
	return repo.GetWorkPermitByID(ctx, wp.ID)
}

func (repo *WorkPermitRepository) DeleteWorkPermit(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM work_permits WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting work permit")
	}
	return checkAffected(res, workpermit.ErrNotFound)
}
