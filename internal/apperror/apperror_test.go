package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
)

func TestStatus(t *testing.T) {
	errThingMissing := fmt.Errorf("thing missing: %w", apperror.ErrNotFound)

	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{errThingMissing, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", errThingMissing), http.StatusNotFound},
		{apperror.ErrConflict, http.StatusConflict},
		{apperror.ErrUnauthorized, http.StatusUnauthorized},
		{&apperror.ForbiddenError{Permissions: []string{"user:read"}}, http.StatusForbidden},
		{apperror.Validation("bad %s", "input"), http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError}, //nolint:err113
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, apperror.Status(tt.err), "%v", tt.err)
	}
}

func TestForbiddenErrorMessage(t *testing.T) {
	err := &apperror.ForbiddenError{Roles: []string{"ADMIN"}, Permissions: []string{"user:read", "user:manage_roles"}}

	assert.Equal(t, "forbidden: requires one of roles [ADMIN] or one of permissions [user:read, user:manage_roles]", err.Error())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
