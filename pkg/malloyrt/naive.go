package malloyrt

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// NaiveRuntime is a deterministic stand-in for a real Malloy compiler. It
// extracts `source: name is ...`, `query: name is ...`, and nested
// `view: name is ...` declarations from the model text with line-oriented
// pattern matching, and executes ad-hoc/named queries by handing their
// SQL-looking body straight to the ConnectionResolver. It exists only
// because this module has no real Malloy compiler dependency to bind to;
// the catalog code that drives it (pkg/catalog) does not otherwise care
// which Runtime implementation it holds.
type NaiveRuntime struct{}

func NewNaiveRuntime() *NaiveRuntime { return &NaiveRuntime{} }

var (
	sourceDeclPattern = regexp.MustCompile(`(?m)^\s*source:\s*([A-Za-z_][A-Za-z0-9_]*)\s+is\s+(.+)$`)
	queryDeclPattern  = regexp.MustCompile(`(?m)^\s*query:\s*([A-Za-z_][A-Za-z0-9_]*)\s+is\s+(.+)$`)
	viewDeclPattern   = regexp.MustCompile(`(?m)^\s*view:\s*([A-Za-z_][A-Za-z0-9_]*)\s+is\s+(.+)$`)
)

func (r *NaiveRuntime) CompileModel(ctx context.Context, packageName, projectName, modelPath string, source []byte, resolver ConnectionResolver) (*CompiledModel, error) {
	text := string(source)

	model := &CompiledModel{
		ModelPath:   modelPath,
		PackageName: packageName,
		ProjectName: projectName,
		Sources:     []Source{},
		Queries:     []Query{},
	}

	for _, m := range sourceDeclPattern.FindAllStringSubmatch(text, -1) {
		src := Source{Name: m[1], Columns: []string{}, Views: []View{}}
		block := sourceBlock(text, m[1])
		for _, vm := range viewDeclPattern.FindAllStringSubmatch(block, -1) {
			src.Views = append(src.Views, View{Name: vm[1], Definition: strings.TrimSpace(vm[2])})
		}
		model.Sources = append(model.Sources, src)
	}

	for _, m := range queryDeclPattern.FindAllStringSubmatch(text, -1) {
		model.Queries = append(model.Queries, Query{Name: m[1], Definition: strings.TrimSpace(m[2])})
	}

	return model, nil
}

// sourceBlock returns the text belonging to a source declaration: from its
// "source: name is" line up to (but excluding) the next top-level
// source/query declaration, a crude brace-free analogue of Malloy's real
// indentation-scoped blocks.
func sourceBlock(text, name string) string {
	start := strings.Index(text, fmt.Sprintf("source: %s is", name))
	if start < 0 {
		return ""
	}
	rest := text[start:]
	next := len(rest)
	for _, pat := range []*regexp.Regexp{sourceDeclPattern, queryDeclPattern} {
		if loc := pat.FindStringIndex(rest[len("source: "+name+" is"):]); loc != nil {
			if adj := loc[0] + len("source: "+name+" is"); adj < next {
				next = adj
			}
		}
	}
	return rest[:next]
}

func (r *NaiveRuntime) CompileNotebook(ctx context.Context, packageName, projectName, modelPath string, source []byte, resolver ConnectionResolver) (*CompiledNotebook, error) {
	text := string(source)
	blocks := strings.Split(text, "\n# ")

	nb := &CompiledNotebook{NotebookCells: []NotebookCell{}}
	for i, block := range blocks {
		if i > 0 {
			block = "# " + block
		}
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "```malloy") || sourceDeclPattern.MatchString(block) || queryDeclPattern.MatchString(block) {
			nb.NotebookCells = append(nb.NotebookCells, NotebookCell{Type: "code", Text: trimmed})
		} else {
			nb.NotebookCells = append(nb.NotebookCells, NotebookCell{Type: "markdown", Text: trimmed})
		}
	}
	return nb, nil
}

func (r *NaiveRuntime) RunQuery(ctx context.Context, model *CompiledModel, req QueryRequest, rowLimit int, resolver ConnectionResolver) (*QueryResult, error) {
	sql, err := resolveQuerySQL(model, req)
	if err != nil {
		return nil, err
	}
	return resolver.QueryData(ctx, defaultConnectionName, sql, rowLimit)
}

// defaultConnectionName is used when a model's query doesn't otherwise name
// a connection; real Malloy models bind a connection per source, which this
// stand-in does not model.
const defaultConnectionName = "default"

func resolveQuerySQL(model *CompiledModel, req QueryRequest) (string, error) {
	switch {
	case req.Query != "":
		return req.Query, nil
	case req.SourceName != "" && req.QueryName != "":
		for _, src := range model.Sources {
			if src.Name != req.SourceName {
				continue
			}
			for _, v := range src.Views {
				if v.Name == req.QueryName {
					return v.Definition, nil
				}
			}
			return "", fmt.Errorf("view %q not found on source %q", req.QueryName, req.SourceName)
		}
		return "", fmt.Errorf("source %q not found", req.SourceName)
	case req.QueryName != "":
		for _, q := range model.Queries {
			if q.Name == req.QueryName {
				return q.Definition, nil
			}
		}
		return "", fmt.Errorf("query %q not found", req.QueryName)
	default:
		return "", fmt.Errorf("no queryable entity identifiable")
	}
}
