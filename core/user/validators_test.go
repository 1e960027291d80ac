package user

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core"
)

func gzipped(t *testing.T, lines string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	w := gzip.NewWriter(buf)
	if _, err := w.Write([]byte(lines)); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	return buf
}

func Test_validatePassword(t *testing.T) {
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	saved := commonPasswords
	defer func() { commonPasswords = saved }()
	LoadCommonPasswords(gzipped(t, "letmein\nsummer2024!\n  qwerty  \n"), core.NewNopLogger())
	assert.Equal(t, []string{"letmein", "qwerty", "summer2024!"}, commonPasswords)

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "valid", pwd: "Pa$$w0rd!"},
		{name: "too short", pwd: "Pa$1", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Pa$$ w0rd!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "not complex", pwd: "password1", wantTag: pwdComplexityTag},
		{name: "similar to name", pwd: "Kashif.Ali1", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "Summer2024!", wantTag: pwdNoCommonTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            "Kashif Ali",
				Email:           "kashif@city.test",
				Role:            RoleAccountant,
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			if assert.True(t, ok, "error = %v", err) && assert.Len(t, verrs, 1) {
				assert.Equal(t, tt.wantTag, verrs[0].Tag())
				assert.Equal(t, "password", verrs[0].Field())
			}
		})
	}

	t.Run("update without password", func(t *testing.T) {
		assert.NoError(t, validate.Struct(UpdateUser{Name: "Kashif Ali"}))
	})
	t.Run("invalid role", func(t *testing.T) {
		err := validate.Struct(NewUser{Name: "Kashif", Email: "kashif@city.test", Role: "janitor", Password: "Pa$$w0rd!", PasswordConfirm: "Pa$$w0rd!"})
		verrs, ok := err.(validator.ValidationErrors)
		if assert.True(t, ok, "error = %v", err) && assert.Len(t, verrs, 1) {
			assert.Equal(t, roleTag, verrs[0].Tag())
		}
	})
}
