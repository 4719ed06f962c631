package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/connections"
	"github.com/ekaya-inc/ekaya-engine/pkg/fetch"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

// connectionResolverAdapter lets Model/malloyrt reach the Connection
// Registry without pkg/malloyrt importing pkg/connections.
type connectionResolverAdapter struct {
	registry *connections.Registry
}

func (a *connectionResolverAdapter) QueryData(ctx context.Context, connectionName, sql string, rowLimit int) (*malloyrt.QueryResult, error) {
	result, err := a.registry.QueryData(ctx, connectionName, sql, connections.QueryOptions{RowLimit: rowLimit})
	if err != nil {
		return nil, err
	}
	return &malloyrt.QueryResult{Columns: result.Columns, Rows: result.Rows}, nil
}

// Project manages its package map and connection registry (spec §3/§4.6).
// Mutations (add/update/delete package, update metadata, reload) are
// serialized with an exclusive lock; reads take the shared lock, so reads
// run concurrently with each other but never with a mutation.
type Project struct {
	name          string
	rootPath      string
	publisherPath string
	runtime       malloyrt.Runtime
	fetcher       fetch.Fetcher
	logger        *zap.Logger

	mu       sync.RWMutex
	packages map[string]*Package
	registry *connections.Registry
	connDefs []connections.Definition
}

// LoadProject constructs a Project from its manifest entry: resolves each
// package's root directory via fetcher, then scans it (spec §4.7's
// "resolve rootPath... construct Project"). logger may be nil; it is
// threaded into the Connection Registry for connect/failure logging.
func LoadProject(ctx context.Context, publisherPath, name, rootPath string, packages []PackageMeta, connDefs []connections.Definition, runtime malloyrt.Runtime, fetcher fetch.Fetcher, logger *zap.Logger) (*Project, error) {
	p := &Project{
		name:          name,
		rootPath:      rootPath,
		publisherPath: publisherPath,
		runtime:       runtime,
		fetcher:       fetcher,
		logger:        logger,
		packages:      make(map[string]*Package),
		registry:      connections.NewRegistry(connDefs, logger),
		connDefs:      connDefs,
	}

	for _, pkgMeta := range packages {
		if err := p.loadPackageLocked(ctx, pkgMeta); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Project) loadPackageLocked(ctx context.Context, meta PackageMeta) error {
	rootDir, err := p.fetcher.Fetch(ctx, p.publisherPath, p.name, meta.Name, meta.Location)
	if err != nil {
		return err
	}
	resolver := &connectionResolverAdapter{registry: p.registry}
	pkg, err := LoadPackage(p.name, meta.Name, meta.Location, rootDir, p.runtime, resolver)
	if err != nil {
		return err
	}
	p.packages[meta.Name] = pkg
	return nil
}

func (p *Project) Name() string { return p.name }

// RootPath returns the project's resolved source directory, for the
// Watcher (spec §4.8) to recurse into.
func (p *Project) RootPath() string { return p.rootPath }

// ListPackages returns package names in sorted order.
func (p *Project) ListPackages() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.packages))
	for name := range p.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPackage returns the named Package, reloading it from disk first if
// reload is set (spec §4.6).
func (p *Project) GetPackage(name string, reload bool) (*Package, error) {
	if !reload {
		p.mu.RLock()
		pkg, ok := p.packages[name]
		p.mu.RUnlock()
		if !ok {
			return nil, apperrors.NotFoundPackage(name)
		}
		return pkg, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	pkg, ok := p.packages[name]
	if !ok {
		return nil, apperrors.NotFoundPackage(name)
	}
	if err := pkg.rescan(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// AddPackage fetches and registers a new package (spec §4.6).
func (p *Project) AddPackage(ctx context.Context, meta PackageMeta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.packages[meta.Name]; exists {
		return apperrors.BadRequest(fmt.Sprintf("package '%s' already exists", meta.Name))
	}
	return p.loadPackageLocked(ctx, meta)
}

// UpdatePackage re-fetches an existing package at (possibly new) location.
func (p *Project) UpdatePackage(ctx context.Context, meta PackageMeta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.packages[meta.Name]; !exists {
		return apperrors.NotFoundPackage(meta.Name)
	}
	return p.loadPackageLocked(ctx, meta)
}

// DeletePackage removes a package from the in-memory catalog.
func (p *Project) DeletePackage(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.packages[name]; !exists {
		return apperrors.NotFoundPackage(name)
	}
	delete(p.packages, name)
	return nil
}

// Update applies a full metadata diff: connection definitions are replaced
// (closing the old registry first), package set is left to the caller's
// subsequent Add/Update/DeletePackage calls (spec §4.6: "applies
// connection diffs").
func (p *Project) Update(connDefs []connections.Definition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.registry.Close(); err != nil {
		return apperrors.Wrap(apperrors.KindConnection, err, "failed to close prior connections during update")
	}
	p.connDefs = connDefs
	p.registry = connections.NewRegistry(connDefs, p.logger)
	for _, pkg := range p.packages {
		pkg.resolver = &connectionResolverAdapter{registry: p.registry}
	}
	return nil
}

// applyMetadataUpdate reconciles this project's package set and connection
// definitions against meta (spec §4.6's Project.update / §4.7's
// ProjectStore.updateProject): connections are replaced wholesale,
// packages are diffed by name (added, updated-in-place, or left alone —
// removal goes through the explicit DeletePackage call, not update).
func (p *Project) applyMetadataUpdate(ctx context.Context, meta ProjectMeta) error {
	if err := p.Update(meta.Connections); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pkgMeta := range meta.Packages {
		if err := p.loadPackageLocked(ctx, pkgMeta); err != nil {
			return err
		}
	}
	return nil
}

// ReloadProjectMetadata rescans every package from disk (spec §4.6).
func (p *Project) ReloadProjectMetadata() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pkg := range p.packages {
		if err := pkg.rescan(); err != nil {
			return err
		}
	}
	return nil
}

// GetProjectMetadata returns a read-only snapshot (spec §3: "external
// callers receive read-only snapshots, never live handles").
func (p *Project) GetProjectMetadata() ProjectSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := ProjectSnapshot{Name: p.name, RootPath: p.rootPath, Connections: []ProjectConnectionSnapshot{}}
	snap.Readme = readReadme(p.rootPath)
	for name := range p.packages {
		snap.Packages = append(snap.Packages, name)
	}
	sort.Strings(snap.Packages)
	for _, def := range p.connDefs {
		snap.Connections = append(snap.Connections, ProjectConnectionSnapshot{Name: def.Name, Type: string(def.Type)})
	}
	return snap
}

// Connections exposes the registry for the query executor and connection
// HTTP/MCP handlers.
func (p *Project) Connections() *connections.Registry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.registry
}

func readReadme(rootPath string) string {
	data, err := os.ReadFile(filepath.Join(rootPath, "README.md"))
	if err != nil {
		return ""
	}
	return string(data)
}
