package testutils

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo initializes an empty loam project directory for node-per-file tests.
// It returns the absolute directory and the repository used to write node files.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "resolve project dir")

	repo, err := loam.Init(dir, opts...)
	require.NoError(t, err, "init loam project")

	return dir, repo
}
