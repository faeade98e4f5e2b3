package aws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{
		Code:    code,
		Message: "mock api error",
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"secret not found", apiError("ResourceNotFoundException"), true},
		{"role not found", apiError("NoSuchEntity"), true},
		{"instance not found", apiError("DBInstanceNotFound"), true},
		{"group not found", apiError("InvalidGroup.NotFound"), true},
		{"other api error", apiError("AccessDenied"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
		{"wrapped", fmt.Errorf("reading secret: %w", apiError("ResourceNotFoundException")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestIsDuplicate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate rule", apiError("InvalidPermission.Duplicate"), true},
		{"role exists", apiError("EntityAlreadyExists"), true},
		{"secret exists", apiError("ResourceExistsException"), true},
		{"instance exists", apiError("DBInstanceAlreadyExists"), true},
		{"not found", apiError("ResourceNotFoundException"), false},
		{"plain error", errors.New("boom"), false},
		{"wrapped", fmt.Errorf("authorizing: %w", apiError("InvalidPermission.Duplicate")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicate(tt.err))
		})
	}
}
