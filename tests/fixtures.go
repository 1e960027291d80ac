package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/student"
	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
)

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func CreateTenant(t *testing.T, repo tenant.Repository, name, domain string) tenant.Tenant {
	now := time.Now().UTC()
	tnt, err := repo.CreateTenant(context.Background(), tenant.Tenant{
		ID:        uuid.New().String(),
		Name:      name,
		Domain:    domain,
		Address:   tenant.Address{City: "Lahore", Country: "Pakistan"},
		Settings:  tenant.Settings{Currency: tenant.DefaultCurrency, Language: tenant.DefaultLanguage, Timezone: "UTC"},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTenant() failed: %v", err)
	}
	return tnt
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	tenantID, name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	tenantID, name, rollNumber, class string,
	status student.Status,
) student.Student {
	now := time.Now().UTC()
	std, err := repo.CreateStudent(context.Background(), student.Student{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Name:          name,
		RollNumber:    rollNumber,
		Class:         class,
		AdmissionDate: Day(2024, time.April, 1),
		Status:        status,
		Guardian:      student.Guardian{Name: "Guardian of " + name, Phone: "+923001234567", Email: rollNumber + "@guardian.test"},
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// InstallmentSpec describes an installment of CreateFeeStructure.
type InstallmentSpec struct {
	Label   string
	Amount  int64
	DueDate time.Time
}

func CreateFeeStructure(
	t *testing.T,
	repo fee.Repository,
	tenantID, title string,
	classes []string,
	installments ...InstallmentSpec,
) fee.FeeStructure {
	now := time.Now().UTC()
	fs := fee.FeeStructure{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		Title:             title,
		TotalAmount:       decimal.Zero,
		AcademicYear:      "2024-2025",
		ApplicableClasses: classes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, spec := range installments {
		amount := decimal.NewFromInt(spec.Amount)
		fs.TotalAmount = fs.TotalAmount.Add(amount)
		fs.Installments = append(fs.Installments, fee.Installment{
			ID:      uuid.New().String(),
			Label:   spec.Label,
			Amount:  amount,
			DueDate: spec.DueDate,
			Status:  fee.InstallmentPending,
		})
	}
	fs, err := repo.CreateFeeStructure(context.Background(), fs)
	if err != nil {
		t.Fatalf("CreateFeeStructure() failed: %v", err)
	}
	return fs
}

func CreatePayment(
	t *testing.T,
	repo payment.Repository,
	std student.Student,
	fs fee.FeeStructure,
	installmentID string,
	amount int64,
	status payment.Status,
	paidAt ...time.Time,
) payment.Payment {
	tstamp := time.Now().UTC()
	if len(paidAt) > 0 {
		tstamp = paidAt[0].UTC()
	}
	p, err := repo.CreatePayment(context.Background(), payment.Payment{
		ID:             uuid.New().String(),
		TenantID:       std.TenantID,
		StudentID:      std.ID,
		FeeStructureID: fs.ID,
		InstallmentID:  installmentID,
		Amount:         decimal.NewFromInt(amount),
		PaymentDate:    tstamp,
		Method:         payment.MethodCash,
		Status:         status,
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	})
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return p
}
