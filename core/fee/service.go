package fee

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("fee structure not found")
	ErrInstallmentNotFound = core.NewNotFoundError("installment not found")

	NowFunc = time.Now // mockable
)

const DefaultPageLimit = 10

type (
	Repository interface {
		CreateFeeStructure(ctx context.Context, fs FeeStructure) (FeeStructure, error)
		GetFeeStructure(ctx context.Context, tenantID, id string) (FeeStructure, error)
		// QueryFeeStructures returns matching fee structures, newest first.
		QueryFeeStructures(ctx context.Context, filter QueryFilter) ([]FeeStructure, error)
		CountFeeStructures(ctx context.Context, filter QueryFilter) (int, error)
		SetInstallmentStatus(ctx context.Context, tenantID, feeStructureID, installmentID string, status InstallmentStatus) error
		DeleteFeeStructure(ctx context.Context, tenantID, id string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, nfs NewFeeStructure) (FeeStructure, error)
		Query(ctx context.Context, filter QueryFilter) ([]FeeStructure, error)
		QueryPage(ctx context.Context, filter QueryFilter, page, limit int) (Page, error)
		Count(ctx context.Context, filter QueryFilter) (int, error)
		ForClass(ctx context.Context, tenantID, class string) ([]FeeStructure, error)
		GetByID(ctx context.Context, tenantID, id string) (FeeStructure, error)
		MarkInstallmentPaid(ctx context.Context, fs FeeStructure, installmentID string) (FeeStructure, error)
		SetInstallmentStatus(ctx context.Context, fs FeeStructure, installmentID string, status InstallmentStatus) (FeeStructure, error)
		Delete(ctx context.Context, tenantID, id string) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nfs NewFeeStructure) (FeeStructure, error) {
	now := NowFunc().UTC()
	fs := FeeStructure{
		ID:                uuid.New().String(),
		TenantID:          nfs.TenantID,
		Title:             nfs.Title,
		Description:       nfs.Description,
		TotalAmount:       nfs.TotalAmount,
		AcademicYear:      nfs.AcademicYear,
		ApplicableClasses: nfs.ApplicableClasses,
		Installments:      make([]Installment, 0, len(nfs.Installments)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, ni := range nfs.Installments {
		fs.Installments = append(fs.Installments, Installment{
			ID:      uuid.New().String(),
			Label:   ni.Label,
			Amount:  ni.Amount,
			DueDate: ni.DueDate.Time,
			Status:  InstallmentPending,
		})
	}
	return svc.repo.CreateFeeStructure(ctx, fs)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]FeeStructure, error) {
	filter.Clean()
	return svc.repo.QueryFeeStructures(ctx, filter)
}

// QueryPage returns the 1-based `page` of fee structures, `limit` per page (DefaultPageLimit if < 1).
func (svc *Service) QueryPage(ctx context.Context, filter QueryFilter, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	filter.Clean()
	filter.Page = core.Page{}

	total, err := svc.repo.CountFeeStructures(ctx, filter)
	if err != nil {
		return Page{}, errors.Wrap(err, "counting fee structures")
	}
	filter.Page = core.PageFrom(page, limit)
	fss, err := svc.repo.QueryFeeStructures(ctx, filter)
	if err != nil {
		return Page{}, errors.Wrap(err, "querying fee structures")
	}
	return Page{
		FeeStructures: fss,
		Pagination: Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

func (svc *Service) Count(ctx context.Context, filter QueryFilter) (int, error) {
	filter.Clean()
	filter.Page = core.Page{}
	return svc.repo.CountFeeStructures(ctx, filter)
}

// ForClass lists the tenant's fee structures applicable to `class`.
func (svc *Service) ForClass(ctx context.Context, tenantID, class string) ([]FeeStructure, error) {
	return svc.repo.QueryFeeStructures(ctx, QueryFilter{TenantID: tenantID, Class: class})
}

func (svc *Service) GetByID(ctx context.Context, tenantID, id string) (FeeStructure, error) {
	return svc.repo.GetFeeStructure(ctx, tenantID, id)
}

// MarkInstallmentPaid sets the installment status to paid and persists it.
func (svc *Service) MarkInstallmentPaid(ctx context.Context, fs FeeStructure, installmentID string) (FeeStructure, error) {
	return svc.SetInstallmentStatus(ctx, fs, installmentID, InstallmentPaid)
}

// SetInstallmentStatus persists the installment status and returns `fs` with it applied.
func (svc *Service) SetInstallmentStatus(
	ctx context.Context,
	fs FeeStructure,
	installmentID string,
	status InstallmentStatus,
) (FeeStructure, error) {
	idx := -1
	for i, inst := range fs.Installments {
		if inst.ID == installmentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return FeeStructure{}, ErrInstallmentNotFound
	}
	if err := svc.repo.SetInstallmentStatus(ctx, fs.TenantID, fs.ID, installmentID, status); err != nil {
		return FeeStructure{}, errors.Wrap(err, "setting installment status")
	}
	insts := make([]Installment, len(fs.Installments))
	copy(insts, fs.Installments)
	insts[idx].Status = status
	fs.Installments = insts
	return fs, nil
}

func (svc *Service) Delete(ctx context.Context, tenantID, id string) error {
	return svc.repo.DeleteFeeStructure(ctx, tenantID, id)
}
