package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/connections"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

// localFetcher treats location as an already-materialized directory path,
// standing in for pkg/fetch in these catalog tests.
type localFetcher struct{}

func (localFetcher) Fetch(ctx context.Context, publisherPath, projectName, packageName, location string) (string, error) {
	return location, nil
}

func newTestProject(t *testing.T, packages []PackageMeta) *Project {
	t.Helper()
	proj, err := LoadProject(context.Background(), t.TempDir(), "proj1", t.TempDir(), packages, nil, malloyrt.NewNaiveRuntime(), localFetcher{}, nil)
	require.NoError(t, err)
	return proj
}

func newPackageDir(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".malloy"), []byte("source: s is table('x') extend { }"), 0o644))
	return dir
}

func TestProject_ListAndGetPackage(t *testing.T) {
	dir := newPackageDir(t, "orders")
	proj := newTestProject(t, []PackageMeta{{Name: "analytics", Location: dir}})

	assert.Equal(t, []string{"analytics"}, proj.ListPackages())

	pkg, err := proj.GetPackage("analytics", false)
	require.NoError(t, err)
	assert.Equal(t, "analytics", pkg.Name())
}

func TestProject_GetPackage_UnknownIsPackageNotFound(t *testing.T) {
	proj := newTestProject(t, nil)
	_, err := proj.GetPackage("missing", false)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPackageNotFound, apperrors.KindOf(err))
}

func TestProject_AddPackage_DuplicateRejected(t *testing.T) {
	dir := newPackageDir(t, "orders")
	proj := newTestProject(t, []PackageMeta{{Name: "analytics", Location: dir}})

	err := proj.AddPackage(context.Background(), PackageMeta{Name: "analytics", Location: dir})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
}

func TestProject_DeletePackage(t *testing.T) {
	dir := newPackageDir(t, "orders")
	proj := newTestProject(t, []PackageMeta{{Name: "analytics", Location: dir}})

	require.NoError(t, proj.DeletePackage("analytics"))
	assert.Empty(t, proj.ListPackages())
}

func TestProject_GetProjectMetadata_IncludesConnections(t *testing.T) {
	proj, err := LoadProject(context.Background(), t.TempDir(), "proj1", t.TempDir(), nil,
		[]connections.Definition{{Name: "wh", Type: connections.TypeDuckDB}},
		malloyrt.NewNaiveRuntime(), localFetcher{}, nil)
	require.NoError(t, err)

	snap := proj.GetProjectMetadata()
	require.Len(t, snap.Connections, 1)
	assert.Equal(t, "wh", snap.Connections[0].Name)
	assert.Equal(t, "duckdb", snap.Connections[0].Type)
}
