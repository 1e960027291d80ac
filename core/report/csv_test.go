package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/reconcile"
)

func sampleReport() reconcile.Report {
	return reconcile.Report{
		Count:    2,
		TotalDue: decimal.NewFromInt(1800),
		Defaulters: []reconcile.Defaulter{
			{
				StudentID:  "s1",
				Name:       "Sara Khan",
				RollNumber: "R-001",
				ClassName:  "10",
				TotalDue:   decimal.NewFromInt(1500),
				OverdueInstallments: []reconcile.OverdueInstallment{
					{FeeStructureTitle: "Tuition", InstallmentLabel: "Q1", Amount: decimal.RequireFromString("1000.00"), DueDate: core.Date{Time: time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)}, DaysOverdue: 122},
					{FeeStructureTitle: "Transport", InstallmentLabel: "Term 1", Amount: decimal.NewFromInt(500), DueDate: core.Date{Time: time.Date(2024, time.September, 15, 23, 0, 0, 0, time.FixedZone("PKT", 5*3600))}, DaysOverdue: 77},
				},
			},
			{
				StudentID:  "s2",
				Name:       "Khan, Omar",
				RollNumber: "R-002",
				ClassName:  "9",
				TotalDue:   decimal.NewFromInt(300),
				OverdueInstallments: []reconcile.OverdueInstallment{
					{FeeStructureTitle: "Tuition", InstallmentLabel: "Q1", Amount: decimal.NewFromInt(300), DueDate: core.Date{Time: time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)}, DaysOverdue: 61},
				},
			},
		},
	}
}

func TestWriteDefaultersCSV(t *testing.T) {
	tests := []struct {
		name string
		rep  reconcile.Report
		want string
	}{
		{
			name: "no defaulters",
			rep:  reconcile.Report{TotalDue: decimal.Zero, Defaulters: []reconcile.Defaulter{}},
			want: "Student Name,Roll Number,Class,Total Due,Fee Structure,Installment,Amount,Due Date,Days Overdue",
		},
		{
			name: "defaulters",
			rep:  sampleReport(),
			want: "Student Name,Roll Number,Class,Total Due,Fee Structure,Installment,Amount,Due Date,Days Overdue\n" +
				"Sara Khan,R-001,10,1500,Tuition,Q1,1000,2024-08-01,122\n" +
				"Sara Khan,R-001,10,1500,Transport,Term 1,500,2024-09-15,77\n" +
				`"Khan, Omar",R-002,9,300,Tuition,Q1,300,2024-10-01,61`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteDefaultersCSV(&buf, tt.rep); err != nil {
				t.Fatalf("WriteDefaultersCSV() failed: %v", err)
			}
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteDefaultersCSV_idempotent(t *testing.T) {
	var first, second bytes.Buffer
	if err := WriteDefaultersCSV(&first, sampleReport()); err != nil {
		t.Fatalf("WriteDefaultersCSV() failed: %v", err)
	}
	if err := WriteDefaultersCSV(&second, sampleReport()); err != nil {
		t.Fatalf("WriteDefaultersCSV() failed: %v", err)
	}
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestCSVFilename(t *testing.T) {
	assert.Equal(t, "defaulters-report-2024-12-01.csv", CSVFilename(time.Date(2024, time.December, 1, 18, 0, 0, 0, time.UTC)))
}
