package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/student"
)

var now = time.Date(2024, time.December, 1, 10, 0, 0, 0, time.UTC)

type studentsStub struct {
	students []student.Student
	err      error
}

func (s studentsStub) QueryActive(_ context.Context, tenantID, class string) ([]student.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	var res []student.Student
	for _, std := range s.students {
		if std.TenantID == tenantID && std.Status == student.StatusActive && (class == "" || std.Class == class) {
			res = append(res, std)
		}
	}
	return res, nil
}

type feesStub struct {
	fss   []fee.FeeStructure
	err   error
	calls map[string]int
}

func (f *feesStub) ForClass(_ context.Context, tenantID, class string) ([]fee.FeeStructure, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[class]++
	if f.err != nil {
		return nil, f.err
	}
	var res []fee.FeeStructure
	for _, fs := range f.fss {
		if fs.TenantID == tenantID && fs.AppliesTo(class) {
			res = append(res, fs)
		}
	}
	return res, nil
}

type paymentsStub struct {
	paid map[string][]payment.InstallmentKey // by student
	err  error
}

func (p paymentsStub) PaidInstallments(_ context.Context, _, studentID string) (map[payment.InstallmentKey]bool, error) {
	if p.err != nil {
		return nil, p.err
	}
	res := make(map[payment.InstallmentKey]bool)
	for _, k := range p.paid[studentID] {
		res[k] = true
	}
	return res, nil
}

func newStudent(id, class string, status student.Status) student.Student {
	return student.Student{ID: id, TenantID: "t1", Name: "Student " + id, RollNumber: "R-" + id, Class: class, Status: status}
}

func newFeeStructure(id, tenantID string, classes []string, insts ...fee.Installment) fee.FeeStructure {
	return fee.FeeStructure{ID: id, TenantID: tenantID, Title: "Fees " + id, ApplicableClasses: classes, Installments: insts}
}

func inst(id string, amount int64, daysAgo int) fee.Installment {
	return fee.Installment{
		ID:      id,
		Label:   "Installment " + id,
		Amount:  decimal.NewFromInt(amount),
		DueDate: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo),
		Status:  fee.InstallmentPending,
	}
}

func newEngine(students []student.Student, fss []fee.FeeStructure, paid map[string][]payment.InstallmentKey) (*Engine, *feesStub) {
	fees := &feesStub{fss: fss}
	e := NewEngine(studentsStub{students: students}, fees, paymentsStub{paid: paid})
	e.NowFunc = func() time.Time { return now }
	return e, fees
}

func ids(r Report) []string {
	res := make([]string, 0, len(r.Defaulters))
	for _, d := range r.Defaulters {
		res = append(res, d.StudentID)
	}
	return res
}

func TestEngine_ComputeDefaulters_singleOverdueInstallment(t *testing.T) {
	fs := newFeeStructure("f", "t1", []string{"10"}, inst("i1", 5000, 45))
	e, _ := newEngine([]student.Student{newStudent("s", "10", student.StatusActive)}, []fee.FeeStructure{fs}, nil)

	rep, err := e.ComputeDefaulters(context.Background(), "t1", 30, "")
	if err != nil {
		t.Fatalf("ComputeDefaulters() failed: %v", err)
	}

	assert.Equal(t, 1, rep.Count)
	assert.True(t, rep.TotalDue.Equal(decimal.NewFromInt(5000)))
	if assert.Len(t, rep.Defaulters, 1) {
		d := rep.Defaulters[0]
		assert.Equal(t, "s", d.StudentID)
		assert.Equal(t, "R-s", d.RollNumber)
		assert.Equal(t, "10", d.ClassName)
		assert.True(t, d.TotalDue.Equal(decimal.NewFromInt(5000)))
		if assert.Len(t, d.OverdueInstallments, 1) {
			oi := d.OverdueInstallments[0]
			assert.Equal(t, "f", oi.FeeStructureID)
			assert.Equal(t, "i1", oi.InstallmentID)
			assert.Equal(t, 45, oi.DaysOverdue)
			assert.Equal(t, "Fees f", oi.FeeStructureTitle)
			assert.Equal(t, "Installment i1", oi.InstallmentLabel)

			// due dates are calendar days on the wire
			b, err := json.Marshal(oi)
			if assert.NoError(t, err) {
				assert.Contains(t, string(b), `"dueDate":"2024-10-17"`)
			}
		}
	}
}

func TestEngine_ComputeDefaulters_paidInstallment(t *testing.T) {
	fs := newFeeStructure("f", "t1", []string{"10"}, inst("i1", 5000, 45))
	paid := map[string][]payment.InstallmentKey{"s": {{FeeStructureID: "f", InstallmentID: "i1"}}}
	e, _ := newEngine([]student.Student{newStudent("s", "10", student.StatusActive)}, []fee.FeeStructure{fs}, paid)

	rep, err := e.ComputeDefaulters(context.Background(), "t1", 30, "")
	if err != nil {
		t.Fatalf("ComputeDefaulters() failed: %v", err)
	}
	assert.Equal(t, 0, rep.Count)
	assert.True(t, rep.TotalDue.IsZero())
	assert.NotNil(t, rep.Defaulters)
	assert.Empty(t, rep.Defaulters)
}

func TestEngine_ComputeDefaulters(t *testing.T) {
	students := []student.Student{
		newStudent("a", "10", student.StatusActive),
		newStudent("b", "10", student.StatusActive),
		newStudent("c", "9", student.StatusActive),
		newStudent("d", "10", student.StatusInactive),
		newStudent("e", "8", student.StatusActive), // no fee structure
	}
	fss := []fee.FeeStructure{
		newFeeStructure("tuition", "t1", []string{"9", "10"},
			inst("q1", 1000, 90),
			inst("q2", 1000, 31),
			inst("q3", 1000, 30), // exactly on the threshold: not overdue
			inst("q4", 1000, -10),
		),
		newFeeStructure("transport", "t1", []string{"10"}, inst("t1", 300, 60)),
		newFeeStructure("other", "t2", []string{"10"}, inst("x", 9999, 100)),
	}
	paid := map[string][]payment.InstallmentKey{
		"a": {{FeeStructureID: "tuition", InstallmentID: "q1"}},
		"b": {{FeeStructureID: "tuition", InstallmentID: "q1"}, {FeeStructureID: "tuition", InstallmentID: "q2"}},
		"c": {{FeeStructureID: "transport", InstallmentID: "t1"}}, // not applicable to the class: ignored
	}

	tests := []struct {
		name        string
		overdueDays int
		class       string
		wantIDs     []string
		wantDue     int64
	}{
		// c: q1+q2 = 2000, a: q2+t1 = 1300, b: t1 = 300
		{name: "30 days", overdueDays: 30, wantIDs: []string{"c", "a", "b"}, wantDue: 3600},
		{name: "class 10", overdueDays: 30, class: "10", wantIDs: []string{"a", "b"}, wantDue: 1600},
		{name: "unknown class", overdueDays: 30, class: "12", wantIDs: []string{}, wantDue: 0},
		// c: q1+q2+q3 = 3000, a: q2+q3+t1 = 2300, b: q3+t1 = 1300
		{name: "0 days", overdueDays: 0, wantIDs: []string{"c", "a", "b"}, wantDue: 6600},
		// c: q1 = 1000, a: t1 = 300, b: t1 = 300
		{name: "59 days", overdueDays: 59, wantIDs: []string{"c", "a", "b"}, wantDue: 1600},
		{name: "60 days", overdueDays: 60, wantIDs: []string{"c"}, wantDue: 1000},
		{name: "90 days", overdueDays: 90, wantIDs: []string{}, wantDue: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(students, fss, paid)

			rep, err := e.ComputeDefaulters(context.Background(), "t1", tt.overdueDays, tt.class)
			if err != nil {
				t.Fatalf("ComputeDefaulters() failed: %v", err)
			}
			assert.Equal(t, tt.wantIDs, ids(rep))
			assert.Equal(t, len(tt.wantIDs), rep.Count)
			assert.True(t, rep.TotalDue.Equal(decimal.NewFromInt(tt.wantDue)), "totalDue = %s", rep.TotalDue)

			for _, d := range rep.Defaulters {
				assert.NotEmpty(t, d.OverdueInstallments)
				sum := decimal.Zero
				for _, oi := range d.OverdueInstallments {
					assert.Greater(t, oi.DaysOverdue, tt.overdueDays)
					for _, k := range paid[d.StudentID] {
						assert.False(t, k.FeeStructureID == oi.FeeStructureID && k.InstallmentID == oi.InstallmentID, "paid installment reported")
					}
					sum = sum.Add(oi.Amount)
				}
				assert.True(t, d.TotalDue.Equal(sum))
			}
		})
	}
}

func TestEngine_ComputeDefaulters_monotonic(t *testing.T) {
	students := []student.Student{newStudent("a", "10", student.StatusActive), newStudent("b", "10", student.StatusActive)}
	fss := []fee.FeeStructure{
		newFeeStructure("f", "t1", []string{"10"}, inst("i1", 100, 10), inst("i2", 100, 40), inst("i3", 100, 80)),
	}
	paid := map[string][]payment.InstallmentKey{"b": {{FeeStructureID: "f", InstallmentID: "i3"}}}
	e, _ := newEngine(students, fss, paid)

	var prev []string
	for d := 100; d >= 0; d -= 5 {
		rep, err := e.ComputeDefaulters(context.Background(), "t1", d, "")
		if err != nil {
			t.Fatalf("ComputeDefaulters() failed: %v", err)
		}
		got := ids(rep)
		for _, id := range prev {
			assert.Contains(t, got, id, "threshold %d lost defaulter %s", d, id)
		}
		prev = got
	}
}

func TestEngine_ComputeDefaulters_stableOrder(t *testing.T) {
	students := []student.Student{
		newStudent("a", "10", student.StatusActive),
		newStudent("b", "10", student.StatusActive),
		newStudent("c", "10", student.StatusActive),
	}
	fss := []fee.FeeStructure{newFeeStructure("f", "t1", []string{"10"}, inst("i1", 100, 40), inst("i2", 50, 40))}
	paid := map[string][]payment.InstallmentKey{"b": {{FeeStructureID: "f", InstallmentID: "i2"}}}
	e, _ := newEngine(students, fss, paid)

	rep, err := e.ComputeDefaulters(context.Background(), "t1", 30, "")
	if err != nil {
		t.Fatalf("ComputeDefaulters() failed: %v", err)
	}
	// a and c owe the same: they keep the students order
	assert.Equal(t, []string{"a", "c", "b"}, ids(rep))
}

func TestEngine_ComputeDefaulters_memoisesFeeStructures(t *testing.T) {
	students := []student.Student{
		newStudent("a", "10", student.StatusActive),
		newStudent("b", "10", student.StatusActive),
		newStudent("c", "9", student.StatusActive),
	}
	fss := []fee.FeeStructure{newFeeStructure("f", "t1", []string{"10"}, inst("i1", 100, 40))}
	e, fees := newEngine(students, fss, nil)

	if _, err := e.ComputeDefaulters(context.Background(), "t1", 30, ""); err != nil {
		t.Fatalf("ComputeDefaulters() failed: %v", err)
	}
	assert.Equal(t, map[string]int{"10": 1, "9": 1}, fees.calls)
}

func TestEngine_ComputeDefaulters_errors(t *testing.T) {
	errDB := errors.New("db down")
	students := []student.Student{newStudent("a", "10", student.StatusActive)}
	fss := []fee.FeeStructure{newFeeStructure("f", "t1", []string{"10"}, inst("i1", 100, 40))}

	t.Run("negative threshold", func(t *testing.T) {
		e, _ := newEngine(students, fss, nil)
		_, err := e.ComputeDefaulters(context.Background(), "t1", -1, "")
		assert.EqualError(t, err, ErrNegativeThreshold.Error())
	})
	t.Run("students", func(t *testing.T) {
		e := NewEngine(studentsStub{err: errDB}, &feesStub{fss: fss}, paymentsStub{})
		_, err := e.ComputeDefaulters(context.Background(), "t1", 30, "")
		assert.True(t, errors.Is(err, errDB), "error = %v", err)
	})
	t.Run("fees", func(t *testing.T) {
		e := NewEngine(studentsStub{students: students}, &feesStub{err: errDB}, paymentsStub{})
		_, err := e.ComputeDefaulters(context.Background(), "t1", 30, "")
		assert.True(t, errors.Is(err, errDB), "error = %v", err)
	})
	t.Run("payments", func(t *testing.T) {
		e := NewEngine(studentsStub{students: students}, &feesStub{fss: fss}, paymentsStub{err: errDB})
		_, err := e.ComputeDefaulters(context.Background(), "t1", 30, "")
		assert.True(t, errors.Is(err, errDB), "error = %v", err)
	})
}

func TestEngine_UnpaidInstallments(t *testing.T) {
	fss := []fee.FeeStructure{
		newFeeStructure("f1", "t1", []string{"10"}, inst("i1", 100, 40), inst("i2", 100, -5)),
		newFeeStructure("f2", "t1", []string{"10"}, inst("i3", 100, 0)),
	}
	paid := map[string][]payment.InstallmentKey{"a": {{FeeStructureID: "f1", InstallmentID: "i1"}}}
	e, fees := newEngine(nil, fss, paid)

	unpaid, err := e.UnpaidInstallments(context.Background(), "t1", newStudent("a", "10", student.StatusActive), nil)
	if err != nil {
		t.Fatalf("UnpaidInstallments() failed: %v", err)
	}
	got := make([]string, 0, len(unpaid))
	for _, u := range unpaid {
		got = append(got, u.FeeStructure.ID+"/"+u.Installment.ID)
	}
	assert.Equal(t, []string{"f1/i2", "f2/i3"}, got)

	// no fee structure: payments are not queried
	e.payments = paymentsStub{err: errors.New("unexpected")}
	unpaid, err = e.UnpaidInstallments(context.Background(), "t1", newStudent("b", "9", student.StatusActive), nil)
	assert.NoError(t, err)
	assert.Empty(t, unpaid)
	assert.Equal(t, 1, fees.calls["9"])
}
