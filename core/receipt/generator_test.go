package receipt_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core/receipt"
	appfs "github.com/trezcool/ada/fs"
)

type storeMock struct {
	mu   sync.Mutex
	keys []string
}

func (s *storeMock) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "http://files.test/" + key, nil
}

func TestNumber(t *testing.T) {
	at := time.Date(2024, time.September, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "payment id", id: "3f2a9c1e-77b0-4d6e-9a1f-0c5e2b7d8a11", want: "REC-1725184800000-3F2A9C1E"},
		{name: "short id", id: "ab-1", want: "REC-1725184800000-AB1"},
		{name: "no id", id: "", want: "REC-1725184800000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, receipt.Number(at, tc.id))
		})
	}
}

func TestGenerator_Generate_sameMillisecond(t *testing.T) {
	at := time.Date(2024, time.September, 1, 10, 0, 0, 0, time.UTC)
	receipt.NowFunc = func() time.Time { return at }
	defer func() { receipt.NowFunc = time.Now }()

	store := &storeMock{}
	gen, err := receipt.NewGenerator(appfs.FS, receipt.HTMLRenderer{}, store)
	if err != nil {
		t.Fatalf("NewGenerator() failed: %v", err)
	}

	data := receipt.Data{
		TenantID:        "t1",
		InstitutionName: "Beaconhouse",
		StudentName:     "Sara Khan",
		Amount:          decimal.NewFromInt(5000),
		Currency:        "PKR",
		PaymentMethod:   "cash",
	}
	first := data
	first.ReceiptNumber = receipt.Number(at, "11111111-aaaa-bbbb-cccc-000000000001")
	second := data
	second.ReceiptNumber = receipt.Number(at, "22222222-aaaa-bbbb-cccc-000000000002")

	url1, err := gen.Generate(context.Background(), first)
	assert.NoError(t, err)
	url2, err := gen.Generate(context.Background(), second)
	assert.NoError(t, err)
	// no number: one is generated
	url3, err := gen.Generate(context.Background(), data)
	assert.NoError(t, err)

	assert.Equal(t, "http://files.test/receipts/t1/receipt-REC-1725184800000-11111111.html", url1)
	assert.Equal(t, "http://files.test/receipts/t1/receipt-REC-1725184800000-22222222.html", url2)
	assert.NotEqual(t, url1, url3)
	assert.NotEqual(t, url2, url3)
	assert.Len(t, store.keys, 3)
}
