package payment_test

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/payment"
)

func TestNewPayment_Validate(t *testing.T) {
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)

	tests := []struct {
		name      string
		amount    string
		wantError string
	}{
		{name: "whole", amount: "5000"},
		{name: "cents", amount: "4999.95"},
		{name: "trailing zeros", amount: "4999.500"},
		{name: "largest", amount: "999999999999.99"},
		{name: "sub-cent", amount: "4999.955", wantError: "must have at most 2 decimal places and be less than 1000000000000"},
		{name: "out of range", amount: "1000000000000", wantError: "must have at most 2 decimal places and be less than 1000000000000"},
		{name: "negative", amount: "-1", wantError: "amount must be 0 or greater"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			np := payment.NewPayment{
				StudentID:      "s1",
				FeeStructureID: "f1",
				InstallmentID:  "i1",
				Amount:         decimal.RequireFromString(tt.amount),
				Method:         payment.MethodCash,
			}
			err := np.Validate(validate)
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			if assert.True(t, ok, "error = %v", err) && assert.Len(t, verrs, 1) {
				assert.Equal(t, "amount", verrs[0].Field())
				assert.Equal(t, tt.wantError, verrs[0].Translate(translator))
			}
		})
	}
}
