package catalog

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

// ModelKind mirrors malloyrt.ModelKind at the catalog boundary so callers
// of pkg/catalog never need to import pkg/malloyrt directly.
type ModelKind = malloyrt.ModelKind

const (
	KindModel    = malloyrt.KindModel
	KindNotebook = malloyrt.KindNotebook
)

// Model is one compiled model or notebook (spec §3/§4.4). Compilation is
// lazy and memoized: the first caller to reach getModel/getNotebook/
// getQueryResults pays the compile cost, concurrent callers during that
// window wait on the same result (spec §5's "at-most-one-concurrent"
// compile rule), implemented with a per-model mutex rather than
// golang.org/x/sync/singleflight since the memoized result here is
// long-lived (until reload), not a one-shot fan-in.
type Model struct {
	packageName string
	path        string
	kind        ModelKind
	runtime     malloyrt.Runtime
	resolver    malloyrt.ConnectionResolver
	rootDir     string

	mu           sync.Mutex
	compiled     *malloyrt.CompiledModel
	compiledNB   *malloyrt.CompiledNotebook
	compileError error
	attempted    bool
}

// NewModel classifies path by extension into model/notebook (spec §3: a
// path ending in .malloy is a model, .malloynb a notebook).
func NewModel(packageName, path, rootDir string, runtime malloyrt.Runtime, resolver malloyrt.ConnectionResolver) *Model {
	kind := KindModel
	if strings.HasSuffix(path, ".malloynb") {
		kind = KindNotebook
	}
	return &Model{packageName: packageName, path: path, kind: kind, runtime: runtime, resolver: resolver, rootDir: rootDir}
}

func (m *Model) Path() string    { return m.path }
func (m *Model) Kind() ModelKind { return m.kind }

// ensureCompiled performs the memoized compile attempt. Both compiled and
// compileError are replaced atomically under the model's mutex, satisfying
// spec §3's "exactly one of compiled or compileError becomes non-null"
// invariant.
func (m *Model) ensureCompiled(ctx context.Context, projectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempted {
		return m.compileError
	}
	m.attempted = true

	source, err := os.ReadFile(m.rootDir + string(os.PathSeparator) + m.path)
	if err != nil {
		m.compileError = apperrors.Wrap(apperrors.KindModelCompilation, err, "failed to read model source").
			WithSuggestions("verify the model file exists and is readable")
		return m.compileError
	}

	if m.kind == KindNotebook {
		nb, cerr := m.runtime.CompileNotebook(ctx, m.packageName, projectName, m.path, source, m.resolver)
		if cerr != nil {
			m.compileError = apperrors.Wrap(apperrors.KindModelCompilation, cerr, "notebook compilation failed").
				WithSuggestions("check syntax", "check source/view references")
			return m.compileError
		}
		m.compiledNB = nb
		return nil
	}

	model, cerr := m.runtime.CompileModel(ctx, m.packageName, projectName, m.path, source, m.resolver)
	if cerr != nil {
		m.compileError = apperrors.Wrap(apperrors.KindModelCompilation, cerr, "model compilation failed").
			WithSuggestions("check syntax", "check source/view references")
		return m.compileError
	}
	m.compiled = model
	return nil
}

// GetModel returns the compiled model, compiling on first call (spec §4.4).
func (m *Model) GetModel(ctx context.Context, projectName string) (*malloyrt.CompiledModel, error) {
	if m.kind != KindModel {
		return nil, apperrors.NotFoundModel(m.path)
	}
	if err := m.ensureCompiled(ctx, projectName); err != nil {
		return nil, err
	}
	return m.compiled, nil
}

// GetNotebook returns the compiled notebook, compiling on first call.
func (m *Model) GetNotebook(ctx context.Context, projectName string) (*malloyrt.CompiledNotebook, error) {
	if m.kind != KindNotebook {
		return nil, apperrors.NotFoundModel(m.path)
	}
	if err := m.ensureCompiled(ctx, projectName); err != nil {
		return nil, err
	}
	return m.compiledNB, nil
}

// GetQueryResults resolves and runs req against the compiled model,
// row-capped at rowLimit (spec §4.4/§4.9).
func (m *Model) GetQueryResults(ctx context.Context, projectName string, req malloyrt.QueryRequest, rowLimit int) (*malloyrt.QueryResult, error) {
	model, err := m.GetModel(ctx, projectName)
	if err != nil {
		return nil, err
	}
	result, err := m.runtime.RunQuery(ctx, model, req, rowLimit, m.resolver)
	if err != nil {
		// A connection-layer failure (unknown connection, I/O, auth) already
		// carries its own Kind from pkg/connections and must reach the
		// HTTP/MCP mapping unchanged (spec §7: ConnectionNotFound/
		// ConnectionError are distinct rows from MalloyError). Only a bare
		// runtime error — the query/view/source didn't resolve, or Malloy
		// itself rejected it — gets wrapped as KindMalloy.
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.KindMalloy, err, "query execution failed").
			WithSuggestions("check that the source/view/query name exists", "check field references")
	}
	if len(result.Rows) > rowLimit {
		result.Rows = result.Rows[:rowLimit]
	}
	return result, nil
}
