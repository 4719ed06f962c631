// Package malloyrt defines the boundary to the Malloy compiler/runtime.
// Per spec §1 the compiler itself is an external collaborator — out of
// scope here — so this package holds only the contract the catalog compiles
// and queries against, plus a deterministic in-memory implementation used
// in place of a real compiler (there is no Go Malloy compiler to bind to).
//
// The shape mirrors how the teacher treats its own out-of-process
// dependencies (the LLM/Anthropic/OpenAI clients in the dropped pkg/llm):
// a narrow Go interface wrapping an external system, with a fake backing it
// in tests.
package malloyrt

import "context"

// ModelKind distinguishes a .malloy model from a .malloynb notebook
// (spec §3's Model.kind).
type ModelKind string

const (
	KindModel    ModelKind = "model"
	KindNotebook ModelKind = "notebook"
)

// Source is a named, queryable entity exposed by a compiled model.
type Source struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Views   []View   `json:"views"`
}

// View is a named query nested under a Source.
type View struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// Query is a named, model-level (not source-nested) query.
type Query struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// CompiledModel is the artifact produced by compiling a .malloy file
// (spec §3).
type CompiledModel struct {
	ModelPath   string         `json:"modelPath"`
	PackageName string         `json:"packageName"`
	ProjectName string         `json:"projectName"`
	Sources     []Source       `json:"sources"`
	Queries     []Query        `json:"queries"`
	DataStyles  map[string]any `json:"dataStyles,omitempty"`
}

// NotebookCell is one cell of a compiled notebook: either Malloy source
// code or a markdown block, with an optional result when the cell executed
// a query at compile time.
type NotebookCell struct {
	Type       string       `json:"type"` // "code" | "markdown"
	Text       string       `json:"text"`
	NewSources []Source     `json:"newSources,omitempty"`
	Result     *QueryResult `json:"result,omitempty"`
}

// CompiledNotebook is the artifact produced by compiling a .malloynb file.
type CompiledNotebook struct {
	NotebookCells []NotebookCell `json:"notebookCells"`
}

// QueryResult is a row-capped, column-described query result (spec §4.9
// step 5: pkg/catalog's Model.GetQueryResults truncates it to the row limit
// after RunQuery returns).
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// QueryRequest names exactly one of an ad-hoc query text, a named
// model-level query, or a named view nested under a source — the XOR the
// Query Executor validates before reaching the runtime (spec §4.9 step 1).
type QueryRequest struct {
	Query      string // ad-hoc Malloy query text
	QueryName  string // named model-level query, or view name when SourceName is set
	SourceName string // required iff QueryName targets a view nested under a source
}

// ConnectionResolver lets the runtime run SQL through the Connection
// Registry's queryData entry point without this package depending on
// pkg/connections directly.
type ConnectionResolver interface {
	QueryData(ctx context.Context, connectionName, sql string, rowLimit int) (*QueryResult, error)
}

// Runtime is the black-box Malloy compiler/runtime boundary (spec §1, §6).
// A CompiledModel/CompiledNotebook returned here is immutable; Model
// (pkg/catalog) owns caching and invalidation, never this package.
type Runtime interface {
	// CompileModel parses and type-checks a .malloy file's contents.
	CompileModel(ctx context.Context, packageName, projectName, modelPath string, source []byte, resolver ConnectionResolver) (*CompiledModel, error)

	// CompileNotebook parses a .malloynb file's contents, executing any
	// cells with eager results at compile time.
	CompileNotebook(ctx context.Context, packageName, projectName, modelPath string, source []byte, resolver ConnectionResolver) (*CompiledNotebook, error)

	// RunQuery executes req against an already-compiled model and returns
	// the row-capped result (spec §4.9 steps 4-6).
	RunQuery(ctx context.Context, model *CompiledModel, req QueryRequest, rowLimit int, resolver ConnectionResolver) (*QueryResult, error)
}
