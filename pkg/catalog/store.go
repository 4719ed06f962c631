package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/fetch"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
	"github.com/ekaya-inc/ekaya-engine/pkg/pubconfig"
)

// maxConcurrentProjectLoads bounds NewProjectStore's startup fan-out over
// manifest projects (spec §9 REDESIGN FLAG: "async/await fan-out...
// becomes task+join"), mirroring the teacher's bounded background-goroutine
// style rather than one goroutine per project. ListProjects does not fan
// out; it reads every project's snapshot serially.
const maxConcurrentProjectLoads = 8

// ProjectStore is the root catalog (spec §4.7). Initialization loads the
// publisher config and constructs every manifest project; every public
// operation is only valid after NewProjectStore returns successfully — the
// store does not expose a separate "wait for init" call because
// construction itself is synchronous here (unlike the teacher's
// asynchronous startup, simplified since this store's disk scans are fast
// local operations, not the teacher's DB connection warm-up).
type ProjectStore struct {
	serverRoot    string
	publisherPath string
	runtime       malloyrt.Runtime
	fetcher       fetch.Fetcher
	logger        *zap.Logger

	mu           sync.RWMutex
	frozenConfig bool
	projects     map[string]*Project
}

// NewProjectStore loads publisher.config.json under serverRoot and
// constructs every listed project. A construction failure for any single
// project fails the whole store init (spec §4.7: "If init fails, the
// process exits non-zero" — the caller, main.go, is responsible for
// exiting; this constructor only returns the error). logger may be nil;
// it is threaded down into each project's Connection Registry.
func NewProjectStore(ctx context.Context, serverRoot string, runtime malloyrt.Runtime, fetcher fetch.Fetcher, logger *zap.Logger) (*ProjectStore, error) {
	cfg, err := pubconfig.Load(serverRoot)
	if err != nil {
		return nil, err
	}

	s := &ProjectStore{
		serverRoot:    serverRoot,
		publisherPath: serverRoot,
		runtime:       runtime,
		fetcher:       fetcher,
		logger:        logger,
		frozenConfig:  cfg.FrozenConfig,
		projects:      make(map[string]*Project),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProjectLoads)
	var mu sync.Mutex

	for _, entry := range cfg.Projects {
		entry := entry
		g.Go(func() error {
			proj, err := s.loadProjectEntry(gctx, entry)
			if err != nil {
				return err
			}
			mu.Lock()
			s.projects[entry.Name] = proj
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ProjectStore) loadProjectEntry(ctx context.Context, entry pubconfig.ProjectConfig) (*Project, error) {
	rootPath := filepath.Join(s.serverRoot, entry.Name)
	if info, err := os.Stat(rootPath); err != nil || !info.IsDir() {
		if err := os.MkdirAll(rootPath, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to resolve project root path")
		}
	}
	return LoadProject(ctx, s.publisherPath, entry.Name, rootPath, entry.Packages, entry.Connections, s.runtime, s.fetcher, s.logger)
}

// ListProjects returns metadata snapshots for every project.
func (s *ProjectStore) ListProjects() []ProjectSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.projects))
	for name := range s.projects {
		names = append(names, name)
	}
	sort.Strings(names)

	snaps := make([]ProjectSnapshot, 0, len(names))
	for _, name := range names {
		snaps = append(snaps, s.projects[name].GetProjectMetadata())
	}
	return snaps
}

// GetProject returns the named Project, or ProjectNotFound if it's not in
// the manifest. reload forces a full metadata rescan first.
func (s *ProjectStore) GetProject(name string, reload bool) (*Project, error) {
	s.mu.RLock()
	proj, ok := s.projects[name]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFoundProject(name)
	}
	if reload {
		if err := proj.ReloadProjectMetadata(); err != nil {
			return nil, err
		}
	}
	return proj, nil
}

// FrozenConfig reports whether mutating operations are rejected.
func (s *ProjectStore) FrozenConfig() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozenConfig
}

func (s *ProjectStore) rejectIfFrozen(op string) error {
	if s.FrozenConfig() {
		return apperrors.Frozen(op)
	}
	return nil
}

// AddProject constructs and registers a new project (spec §4.7).
func (s *ProjectStore) AddProject(ctx context.Context, meta ProjectMeta) error {
	if err := s.rejectIfFrozen("add project"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projects[meta.Name]; exists {
		return apperrors.BadRequest("project '" + meta.Name + "' already exists")
	}
	rootPath := filepath.Join(s.serverRoot, meta.Name)
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to create project root path")
	}
	proj, err := LoadProject(ctx, s.publisherPath, meta.Name, rootPath, meta.Packages, nil, s.runtime, s.fetcher, s.logger)
	if err != nil {
		return err
	}
	s.projects[meta.Name] = proj
	return nil
}

// UpdateProject applies metadata changes (package set + connection diffs)
// to an existing project.
func (s *ProjectStore) UpdateProject(ctx context.Context, meta ProjectMeta) error {
	if err := s.rejectIfFrozen("update project"); err != nil {
		return err
	}
	s.mu.Lock()
	proj, exists := s.projects[meta.Name]
	s.mu.Unlock()
	if !exists {
		return apperrors.NotFoundProject(meta.Name)
	}
	return proj.applyMetadataUpdate(ctx, meta)
}

// DeleteProject removes a project and closes its resources.
func (s *ProjectStore) DeleteProject(name string) error {
	if err := s.rejectIfFrozen("delete project"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	proj, exists := s.projects[name]
	if !exists {
		return apperrors.NotFoundProject(name)
	}
	if err := proj.Connections().Close(); err != nil {
		return apperrors.Wrap(apperrors.KindConnection, err, "failed to close project connections during delete")
	}
	delete(s.projects, name)
	return nil
}

// ReloadProjectManifest re-reads publisher.config.json under serverRoot and
// returns the parsed config; it does not apply it to any ProjectStore. The
// Watcher does not use it: per-project file changes go through
// Project.ReloadProjectMetadata, which the Watcher callback in main.go
// reaches via GetProject(name, reload=true).
func ReloadProjectManifest(serverRoot string) (*pubconfig.PublisherConfig, error) {
	return pubconfig.Load(serverRoot)
}
