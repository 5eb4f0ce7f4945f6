package database_test

import (
	"errors"
	"fmt"
	"testing"

	"go-fleet/internal/shared/database"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"optimistic lock", database.ErrOptimisticLock, true},
		{"wrapped optimistic lock", fmt.Errorf("approve: %w", database.ErrOptimisticLock), true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, database.IsRetryable(tt.err))
		})
	}
}

func TestConstraintViolations(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "uq_drivers_external_code"}
	assert.True(t, database.IsUniqueViolation(unique, "uq_drivers_external_code"))
	assert.True(t, database.IsUniqueViolation(unique, ""))
	assert.False(t, database.IsUniqueViolation(unique, "other"))
	assert.True(t, database.IsUniqueViolation(
		errors.New(`ERROR: duplicate key value violates unique constraint "uq_drivers_external_code"`),
		"uq_drivers_external_code",
	))

	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "ex_leave_requests_active_overlap"}
	assert.True(t, database.IsExclusionViolation(exclusion, "ex_leave_requests_active_overlap"))
	assert.False(t, database.IsExclusionViolation(unique, ""))

	check := &pgconn.PgError{Code: "23514", ConstraintName: "ck_drivers_used_within_allowance"}
	assert.True(t, database.IsCheckViolation(check, "ck_drivers_used_within_allowance"))
}
