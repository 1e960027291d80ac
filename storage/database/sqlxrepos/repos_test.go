package sqlxrepos

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func Test_where(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	w.add(`tenant_id = ?`, "t1")
	w.add(`(name ILIKE ? OR roll_number ILIKE ?)`, "%sara%", "%sara%")
	w.add(`deleted_at IS NULL`)

	assert.Equal(t, " WHERE tenant_id = $1 AND (name ILIKE $2 OR roll_number ILIKE $3) AND deleted_at IS NULL", w.String())
	assert.Equal(t, []interface{}{"t1", "%sara%", "%sara%"}, w.args)
}

func Test_orderBy(t *testing.T) {
	allowed := map[string]bool{"name": true, "created_at": true}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "fallback", want: " ORDER BY created_at DESC"},
		{name: "unknown fields dropped", ordering: []core.DBOrdering{{Field: "password"}}, want: " ORDER BY created_at DESC"},
		{
			name:     "allowed fields",
			ordering: []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "1; DROP TABLE users"}, {Field: "created_at"}},
			want:     " ORDER BY name ASC, created_at DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering, allowed, "created_at DESC"))
		})
	}
}

func Test_paginate(t *testing.T) {
	assert.Equal(t, "", paginate(core.Page{}))
	assert.Equal(t, " LIMIT 10", paginate(core.Page{Limit: 10}))
	assert.Equal(t, " LIMIT 10 OFFSET 20", paginate(core.Page{Limit: 10, Offset: 20}))
}

func Test_likePattern(t *testing.T) {
	assert.Equal(t, `%sara%`, likePattern("sara"))
	assert.Equal(t, `%50\% off\_now\\%`, likePattern(`50% off_now\`))
}

func Test_trapNoRowsErr(t *testing.T) {
	notFound := errors.New("not found")
	assert.Equal(t, notFound, trapNoRowsErr(sql.ErrNoRows, notFound, "finding"))

	err := trapNoRowsErr(sql.ErrConnDone, notFound, "finding")
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.EqualError(t, err, "finding: "+sql.ErrConnDone.Error())
}

func Test_isUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: uniqueViolation, Constraint: "tenants_domain_key"}

	assert.True(t, isUniqueViolation(dup, ""))
	assert.True(t, isUniqueViolation(dup, "tenants_domain_key"))
	assert.False(t, isUniqueViolation(dup, idempotencyIndex))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("lol"), ""))
}
