package catalog

import (
	"context"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

// defaultRowLimit is ROW_LIMIT (spec §4.9 step 5); shared with
// pkg/connections' own cap so a raw connection query and a model-backed
// query never disagree on the row ceiling.
const defaultRowLimit = 1000

// ExecuteQuery is the Query Executor (spec §4.9): resolves
// (project, package, model, source?, query|queryName) to a row-capped
// result, validating the query-shape XOR before any lookup runs.
func ExecuteQuery(ctx context.Context, store *ProjectStore, projectName, packageName, modelPath string, req malloyrt.QueryRequest) (*malloyrt.QueryResult, error) {
	if err := validateQueryShape(req); err != nil {
		return nil, err
	}

	project, err := store.GetProject(projectName, false)
	if err != nil {
		return nil, err
	}
	pkg, err := project.GetPackage(packageName, false)
	if err != nil {
		return nil, err
	}
	model, err := pkg.GetModel(modelPath, false)
	if err != nil {
		return nil, err
	}
	if model == nil || model.Kind() != KindModel {
		return nil, apperrors.NotFoundModel(modelPath)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return model.GetQueryResults(ctx, projectName, req, defaultRowLimit)
}

// validateQueryShape enforces spec §4.9 step 1's XOR: exactly one of an
// ad-hoc query or a named queryName (with optional sourceName) may be
// present. Messages match the canonical wording spec §8's testable
// properties and §6's worked examples require verbatim, since the MCP
// surface surfaces them unmodified as "MCP error -32602: <message>".
func validateQueryShape(req malloyrt.QueryRequest) error {
	hasQuery := req.Query != ""
	hasQueryName := req.QueryName != ""

	switch {
	case hasQuery && hasQueryName:
		return apperrors.BadRequest("Cannot provide both 'query' and 'queryName'")
	case !hasQuery && !hasQueryName:
		return apperrors.BadRequest("Must provide exactly one of 'query' or 'queryName'")
	case hasQuery && req.SourceName != "":
		return apperrors.BadRequest("Cannot provide 'sourceName' with an ad-hoc 'query'")
	}
	return nil
}
