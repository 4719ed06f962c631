package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

func writePublisherConfig(t *testing.T, serverRoot string, body map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(serverRoot, "publisher.config.json"), data, 0o644))
}

func TestProjectStore_LoadsProjectsFromManifest(t *testing.T) {
	serverRoot := t.TempDir()
	pkgDir := filepath.Join(serverRoot, "home", "analytics")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "orders.malloy"), []byte("source: s is table('x') extend { }"), 0o644))

	writePublisherConfig(t, serverRoot, map[string]any{
		"frozenConfig": false,
		"projects": []map[string]any{
			{"name": "home", "packages": []map[string]any{{"name": "analytics", "location": pkgDir}}},
		},
	})

	store, err := NewProjectStore(context.Background(), serverRoot, malloyrt.NewNaiveRuntime(), localFetcher{}, nil)
	require.NoError(t, err)

	snaps := store.ListProjects()
	require.Len(t, snaps, 1)
	assert.Equal(t, "home", snaps[0].Name)

	proj, err := store.GetProject("home", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"analytics"}, proj.ListPackages())
}

func TestProjectStore_GetProject_UnknownIsProjectNotFound(t *testing.T) {
	serverRoot := t.TempDir()
	store, err := NewProjectStore(context.Background(), serverRoot, malloyrt.NewNaiveRuntime(), localFetcher{}, nil)
	require.NoError(t, err)

	_, err = store.GetProject("missing", false)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindProjectNotFound, apperrors.KindOf(err))
}

func TestProjectStore_FrozenConfigRejectsMutations(t *testing.T) {
	serverRoot := t.TempDir()
	writePublisherConfig(t, serverRoot, map[string]any{"frozenConfig": true, "projects": []map[string]any{}})

	store, err := NewProjectStore(context.Background(), serverRoot, malloyrt.NewNaiveRuntime(), localFetcher{}, nil)
	require.NoError(t, err)

	err = store.AddProject(context.Background(), ProjectMeta{Name: "new"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindFrozenConfig, apperrors.KindOf(err))

	err = store.DeleteProject("home")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindFrozenConfig, apperrors.KindOf(err))
}

func TestProjectStore_AddAndDeleteProject(t *testing.T) {
	serverRoot := t.TempDir()
	store, err := NewProjectStore(context.Background(), serverRoot, malloyrt.NewNaiveRuntime(), localFetcher{}, nil)
	require.NoError(t, err)

	require.NoError(t, store.AddProject(context.Background(), ProjectMeta{Name: "new"}))
	assert.Len(t, store.ListProjects(), 1)

	require.NoError(t, store.DeleteProject("new"))
	assert.Empty(t, store.ListProjects())
}
