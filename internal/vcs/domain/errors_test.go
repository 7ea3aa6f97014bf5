package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBranchNotFoundError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BranchNotFoundError
		expected string
	}{
		{
			name:     "by id",
			err:      &BranchNotFoundError{BranchID: "b-1"},
			expected: `branch not found: id="b-1"`,
		},
		{
			name:     "by project and name",
			err:      &BranchNotFoundError{ProjectID: "p-1", Name: "draft"},
			expected: `branch not found: project="p-1" name="draft"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestPermissionDeniedError_Error(t *testing.T) {
	err := &PermissionDeniedError{BranchID: "b-1", UserID: "u-1", Need: "write"}
	require.Equal(t, `permission denied: branch="b-1" user="u-1" need=write`, err.Error())
}

func TestPathConflictError_DistinctFromFileNotFound(t *testing.T) {
	var err error = &PathConflictError{BranchID: "b-1", Path: "docs"}

	var pathConflict *PathConflictError
	require.True(t, errors.As(err, &pathConflict))

	var notFound *FileNotFoundError
	require.False(t, errors.As(err, &notFound))
}

func TestGitCommandError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 128")
	err := &GitCommandError{Args: []string{"checkout", "main"}, Output: "fatal: not a git repository", Err: cause}

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "fatal: not a git repository")
}

func TestPermissionFlags_None(t *testing.T) {
	require.True(t, PermissionFlags{}.None())
	require.False(t, FullAccess().None())
	require.False(t, PermissionFlags{CanRead: true}.None())
}
