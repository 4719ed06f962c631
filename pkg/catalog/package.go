package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

// Package owns a set of lazily-compiled Models (spec §3/§4.5). Package
// construction is a directory scan: every .malloy/.malloynb file under
// rootDir becomes a Model, and an optional publisher.json is parsed for
// description/connections metadata.
type Package struct {
	name        string
	projectName string
	location    string
	rootDir     string
	runtime     malloyrt.Runtime
	resolver    malloyrt.ConnectionResolver

	mu       sync.RWMutex
	manifest *PackageManifest
	models   map[string]*Model
}

// LoadPackage scans rootDir and constructs a Package (spec §4.5).
func LoadPackage(projectName, name, location, rootDir string, runtime malloyrt.Runtime, resolver malloyrt.ConnectionResolver) (*Package, error) {
	p := &Package{
		name:        name,
		projectName: projectName,
		location:    location,
		rootDir:     rootDir,
		runtime:     runtime,
		resolver:    resolver,
		models:      make(map[string]*Model),
	}
	if err := p.rescan(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Package) Name() string { return p.name }

// rescan rebuilds the manifest and model set from disk. Called on initial
// construction and on reload (spec §4.6's "fully rebuilt on reload").
func (p *Package) rescan() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	manifest, err := loadManifest(p.rootDir)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to parse publisher.json")
	}
	p.manifest = manifest

	models := make(map[string]*Model)
	err = filepath.WalkDir(p.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".malloy") && !strings.HasSuffix(path, ".malloynb") {
			return nil
		}
		rel, relErr := filepath.Rel(p.rootDir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		models[rel] = NewModel(p.name, rel, p.rootDir, p.runtime, p.resolver)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to scan package directory")
	}
	p.models = models
	return nil
}

func loadManifest(rootDir string) (*PackageManifest, error) {
	raw, err := os.ReadFile(filepath.Join(rootDir, "publisher.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var manifest PackageManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// ListModels returns the sorted paths of every .malloy model.
func (p *Package) ListModels() []string {
	return p.listByKind(KindModel)
}

// ListNotebooks returns the sorted paths of every .malloynb notebook.
func (p *Package) ListNotebooks() []string {
	return p.listByKind(KindNotebook)
}

func (p *Package) listByKind(kind ModelKind) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []string
	for path, m := range p.models {
		if m.Kind() == kind {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// GetModel returns the Model at path, or nil if absent (spec §4.5: "sync,
// returns undefined if absent"). If reload is set, the package is
// rescanned from disk first.
func (p *Package) GetModel(path string, reload bool) (*Model, error) {
	if reload {
		if err := p.rescan(); err != nil {
			return nil, err
		}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.models[path], nil
}

// GetModelFileText returns the raw bytes of the model file at path, for MCP
// tooling (spec §4.5/§4.11's malloy_modelGetText).
func (p *Package) GetModelFileText(path string) ([]byte, error) {
	p.mu.RLock()
	_, known := p.models[path]
	p.mu.RUnlock()
	if !known {
		return nil, apperrors.NotFoundModel(path)
	}
	data, err := os.ReadFile(filepath.Join(p.rootDir, filepath.FromSlash(path)))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to read model file")
	}
	return data, nil
}

// GetPackageMetadata returns the read-only snapshot of this package.
func (p *Package) GetPackageMetadata() PackageSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := PackageSnapshot{
		Name:        p.name,
		ProjectName: p.projectName,
		Location:    p.location,
		Models:      []string{},
		Notebooks:   []string{},
	}
	if p.manifest != nil {
		snap.Description = p.manifest.Description
	}
	for path, m := range p.models {
		if m.Kind() == KindModel {
			snap.Models = append(snap.Models, path)
		} else {
			snap.Notebooks = append(snap.Notebooks, path)
		}
	}
	sort.Strings(snap.Models)
	sort.Strings(snap.Notebooks)
	return snap
}

// ListDatabases walks rootDir for embedded data files (.parquet, .db,
// .sqlite, .csv) and describes each one (spec §4.5: "collects
// schema+rowCount"). Parquet and CSV are introspected directly through an
// in-memory DuckDB handle, the same driver the Connection Registry's
// DuckDB backend uses (pkg/connections/duckdb.go), since DuckDB reads both
// formats natively with no extension install. .db/.sqlite files are only
// enumerated, not introspected: reading them needs DuckDB's sqlite_scanner
// extension, which DuckDB fetches over the network on first use — not
// something this local catalog scan should trigger implicitly.
func (p *Package) ListDatabases() ([]Database, error) {
	var out []Database
	err := filepath.WalkDir(p.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".parquet", ".csv", ".db", ".sqlite":
			rel, relErr := filepath.Rel(p.rootDir, path)
			if relErr != nil {
				return relErr
			}
			db := Database{Path: filepath.ToSlash(rel)}
			if ext == ".parquet" || ext == ".csv" {
				if info, infoErr := describeEmbeddedDatabase(path, ext); infoErr == nil {
					db.Info = info
				}
			}
			out = append(out, db)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to scan for embedded databases")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// describeEmbeddedDatabase reads path's columns and row count through
// DuckDB's read_parquet/read_csv_auto table functions. Failures here are
// non-fatal to the caller (a malformed embedded file just gets an
// empty DatabaseInfo), since this is a best-effort catalog annotation, not
// a validation gate.
func describeEmbeddedDatabase(path, ext string) (DatabaseInfo, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return DatabaseInfo{}, err
	}
	defer db.Close()

	var source string
	switch ext {
	case ".parquet":
		source = fmt.Sprintf("read_parquet(%s)", quoteDuckDBLiteral(path))
	case ".csv":
		source = fmt.Sprintf("read_csv_auto(%s)", quoteDuckDBLiteral(path))
	default:
		return DatabaseInfo{}, fmt.Errorf("unsupported extension %q", ext)
	}

	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s LIMIT 0", source))
	if err != nil {
		return DatabaseInfo{}, err
	}
	colTypes, err := rows.ColumnTypes()
	rows.Close()
	if err != nil {
		return DatabaseInfo{}, err
	}
	columns := make([]ColumnInfo, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = ColumnInfo{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	var rowCount int64
	if err := db.QueryRow(fmt.Sprintf("SELECT count(*) FROM %s", source)).Scan(&rowCount); err != nil {
		return DatabaseInfo{}, err
	}

	return DatabaseInfo{RowCount: rowCount, Columns: columns}, nil
}

// quoteDuckDBLiteral quotes path as a DuckDB single-quoted string literal.
func quoteDuckDBLiteral(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}

// ListSchedules parses an optional schedule manifest (publisher-
// schedules.json) and returns its entries. Never executes them (spec §1
// Non-goals: "schedule execution... only listed, never run").
func (p *Package) ListSchedules() ([]Schedule, error) {
	raw, err := os.ReadFile(filepath.Join(p.rootDir, "publisher-schedules.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return []Schedule{}, nil
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to read schedule manifest")
	}
	var schedules []Schedule
	if err := json.Unmarshal(raw, &schedules); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to parse schedule manifest")
	}
	return schedules, nil
}
