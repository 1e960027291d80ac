package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
)

const (
	feeStructureColumns = `id, tenant_id, title, description, total_amount, academic_year, applicable_classes,
	created_at, updated_at`
	installmentColumns = `id, fee_structure_id, position, label, amount, due_date, status`
)

type feeStructureRow struct {
	ID                string          `db:"id"`
	TenantID          string          `db:"tenant_id"`
	Title             string          `db:"title"`
	Description       null.String     `db:"description"`
	TotalAmount       decimal.Decimal `db:"total_amount"`
	AcademicYear      string          `db:"academic_year"`
	ApplicableClasses pq.StringArray  `db:"applicable_classes"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

type installmentRow struct {
	ID             string          `db:"id"`
	FeeStructureID string          `db:"fee_structure_id"`
	Position       int             `db:"position"`
	Label          string          `db:"label"`
	Amount         decimal.Decimal `db:"amount"`
	DueDate        time.Time       `db:"due_date"`
	Status         string          `db:"status"`
}

func toFeeStructureRow(fs fee.FeeStructure) feeStructureRow {
	return feeStructureRow{
		ID:                fs.ID,
		TenantID:          fs.TenantID,
		Title:             fs.Title,
		Description:       nullString(fs.Description),
		TotalAmount:       fs.TotalAmount,
		AcademicYear:      fs.AcademicYear,
		ApplicableClasses: pq.StringArray(fs.ApplicableClasses),
		CreatedAt:         fs.CreatedAt.UTC(),
		UpdatedAt:         fs.UpdatedAt.UTC(),
	}
}

func (r feeStructureRow) feeStructure(insts []installmentRow) fee.FeeStructure {
	fs := fee.FeeStructure{
		ID:                r.ID,
		TenantID:          r.TenantID,
		Title:             r.Title,
		Description:       r.Description.String,
		TotalAmount:       r.TotalAmount,
		AcademicYear:      r.AcademicYear,
		ApplicableClasses: []string(r.ApplicableClasses),
		Installments:      make([]fee.Installment, 0, len(insts)),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	for _, i := range insts {
		fs.Installments = append(fs.Installments, fee.Installment{
			ID:      i.ID,
			Label:   i.Label,
			Amount:  i.Amount,
			DueDate: i.DueDate.UTC(),
			Status:  fee.InstallmentStatus(i.Status),
		})
	}
	return fs
}

type feeRepository struct {
	db core.DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db core.DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFeeStructure(ctx context.Context, fs fee.FeeStructure) (_ fee.FeeStructure, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return fee.FeeStructure{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO fee_structures (` + feeStructureColumns + `) VALUES (:id, :tenant_id, :title, :description,
		:total_amount, :academic_year, :applicable_classes, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, q, toFeeStructureRow(fs)); err != nil {
		return fee.FeeStructure{}, errors.Wrap(err, "inserting fee structure")
	}

	q = `INSERT INTO installments (` + installmentColumns + `) VALUES (:id, :fee_structure_id, :position, :label,
		:amount, :due_date, :status)`
	for pos, inst := range fs.Installments {
		row := installmentRow{
			ID:             inst.ID,
			FeeStructureID: fs.ID,
			Position:       pos,
			Label:          inst.Label,
			Amount:         inst.Amount,
			DueDate:        inst.DueDate.UTC(),
			Status:         string(inst.Status),
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, q, row); err != nil {
			return fee.FeeStructure{}, errors.Wrap(err, "inserting installment")
		}
	}

	if err = tx.Commit(); err != nil {
		return fee.FeeStructure{}, errors.Wrap(err, "committing transaction")
	}
	return fs, nil
}

// withInstallments loads the installments of `rows`, in position order, and builds the fee structures.
func (repo *feeRepository) withInstallments(ctx context.Context, rows []feeStructureRow) ([]fee.FeeStructure, error) {
	fss := make([]fee.FeeStructure, 0, len(rows))
	if len(rows) == 0 {
		return fss, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var insts []installmentRow
	q := `SELECT ` + installmentColumns + ` FROM installments WHERE fee_structure_id = ANY($1) ORDER BY position`
	if err := repo.db.SelectContext(ctx, &insts, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "querying installments")
	}

	byFS := make(map[string][]installmentRow, len(rows))
	for _, i := range insts {
		byFS[i.FeeStructureID] = append(byFS[i.FeeStructureID], i)
	}
	for _, r := range rows {
		fss = append(fss, r.feeStructure(byFS[r.ID]))
	}
	return fss, nil
}

func (repo *feeRepository) GetFeeStructure(ctx context.Context, tenantID, id string) (fee.FeeStructure, error) {
	if _, err := uuid.Parse(id); err != nil {
		return fee.FeeStructure{}, fee.ErrNotFound
	}
	var row feeStructureRow
	q := `SELECT ` + feeStructureColumns + ` FROM fee_structures WHERE id = $1 AND tenant_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, id, tenantID); err != nil {
		return fee.FeeStructure{}, trapNoRowsErr(err, fee.ErrNotFound, "finding fee structure")
	}
	fss, err := repo.withInstallments(ctx, []feeStructureRow{row})
	if err != nil {
		return fee.FeeStructure{}, err
	}
	return fss[0], nil
}

func feeStructureWhere(filter fee.QueryFilter) where {
	var w where
	w.add(`tenant_id = ?`, filter.TenantID)
	if filter.AcademicYear != "" {
		w.add(`academic_year = ?`, filter.AcademicYear)
	}
	if filter.Class != "" {
		w.add(`applicable_classes @> ?`, pq.StringArray{filter.Class})
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add(`(title ILIKE ? OR description ILIKE ?)`, val, val)
	}
	return w
}

func (repo *feeRepository) QueryFeeStructures(ctx context.Context, filter fee.QueryFilter) ([]fee.FeeStructure, error) {
	w := feeStructureWhere(filter)
	q := `SELECT ` + feeStructureColumns + ` FROM fee_structures` + w.String() +
		` ORDER BY created_at DESC, id` + paginate(filter.Page)

	var rows []feeStructureRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	return repo.withInstallments(ctx, rows)
}

func (repo *feeRepository) CountFeeStructures(ctx context.Context, filter fee.QueryFilter) (int, error) {
	w := feeStructureWhere(filter)
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM fee_structures`+w.String(), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting fee structures")
	}
	return n, nil
}

func (repo *feeRepository) SetInstallmentStatus(
	ctx context.Context,
	tenantID, feeStructureID, installmentID string,
	status fee.InstallmentStatus,
) error {
	q := `UPDATE installments SET status = $1
		WHERE id = $2 AND fee_structure_id = (SELECT id FROM fee_structures WHERE id = $3 AND tenant_id = $4)`
	res, err := repo.db.ExecContext(ctx, q, string(status), installmentID, feeStructureID, tenantID)
	if err != nil {
		return errors.Wrap(err, "updating installment status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fee.ErrInstallmentNotFound
	}
	return nil
}

func (repo *feeRepository) DeleteFeeStructure(ctx context.Context, tenantID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fee.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM fee_structures WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return errors.Wrap(err, "deleting fee structure")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fee.ErrNotFound
	}
	return nil
}
