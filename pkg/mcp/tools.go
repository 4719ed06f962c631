package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/catalog"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyuri"
)

// RegisterTools wires every malloy_* tool (spec §4.11) onto the MCP server.
func RegisterTools(s *Server, store *catalog.ProjectStore) {
	registerExecuteQuery(s, store)
	registerProjectList(s, store)
	registerPackageList(s, store)
	registerPackageGet(s, store)
	registerModelGetText(s, store)
}

func registerExecuteQuery(s *Server, store *catalog.ProjectStore) {
	tool := mcp.NewTool("malloy_executeQuery",
		mcp.WithDescription("Run an ad-hoc Malloy query, or a named query/view, against a compiled model"),
		mcp.WithString("projectName", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("packageName", mcp.Required(), mcp.Description("Package name")),
		mcp.WithString("modelPath", mcp.Required(), mcp.Description("Model path within the package")),
		mcp.WithString("query", mcp.Description("Ad-hoc Malloy query text — mutually exclusive with queryName")),
		mcp.WithString("queryName", mcp.Description("Named model-level query, or view name when sourceName is set — mutually exclusive with query")),
		mcp.WithString("sourceName", mcp.Description("Source a queryName view is nested under")),
	)

	s.RegisterTool(tool, executeQueryHandler(store))
}

func executeQueryHandler(store *catalog.ProjectStore) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectName := req.GetString("projectName", "")
		packageName := req.GetString("packageName", "")
		modelPath := req.GetString("modelPath", "")

		queryReq := malloyrt.QueryRequest{
			Query:      req.GetString("query", ""),
			QueryName:  req.GetString("queryName", ""),
			SourceName: req.GetString("sourceName", ""),
		}

		result, err := catalog.ExecuteQuery(ctx, store, projectName, packageName, modelPath, queryReq)
		if err != nil {
			// Query-shape XOR violations are protocol-level invalid-params
			// rejections (spec §8's testable property: the client sees a
			// single text block reading "MCP error -32602: <message>"),
			// distinct from every other handler-level failure here, which
			// gets the structured { error, suggestions } JSON result instead.
			if apperrors.KindOf(err) == apperrors.KindBadRequest {
				return nil, fmt.Errorf("MCP error -32602: %s", err.Error())
			}
			return toolErrorResult(err), nil
		}

		uri := malloyuri.Build(malloyuri.Ref{Kind: malloyuri.KindModel, Project: projectName, Package: packageName, ModelPath: modelPath}) + "#result"
		data, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.EmbeddedResource{
					Type: "resource",
					Resource: mcp.TextResourceContents{
						URI:      uri,
						MIMEType: "application/json",
						Text:     string(data),
					},
				},
			},
		}, nil
	}
}

func registerProjectList(s *Server, store *catalog.ProjectStore) {
	tool := mcp.NewTool("malloy_projectList",
		mcp.WithDescription("List every project known to this server"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(store.ListProjects())
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerPackageList(s *Server, store *catalog.ProjectStore) {
	tool := mcp.NewTool("malloy_packageList",
		mcp.WithDescription("List every package within a project"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("projectName", mcp.Required(), mcp.Description("Project name")),
	)
	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, err := store.GetProject(req.GetString("projectName", ""), false)
		if err != nil {
			return toolErrorResult(err), nil
		}
		data, err := json.Marshal(project.ListPackages())
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerPackageGet(s *Server, store *catalog.ProjectStore) {
	tool := mcp.NewTool("malloy_packageGet",
		mcp.WithDescription("Get a package's metadata: models, notebooks, description"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("projectName", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("packageName", mcp.Required(), mcp.Description("Package name")),
	)
	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, err := store.GetProject(req.GetString("projectName", ""), false)
		if err != nil {
			return toolErrorResult(err), nil
		}
		pkg, err := project.GetPackage(req.GetString("packageName", ""), false)
		if err != nil {
			return toolErrorResult(err), nil
		}
		data, err := json.Marshal(pkg.GetPackageMetadata())
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerModelGetText(s *Server, store *catalog.ProjectStore) {
	tool := mcp.NewTool("malloy_modelGetText",
		mcp.WithDescription("Get a model's raw Malloy source text"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("projectName", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("packageName", mcp.Required(), mcp.Description("Package name")),
		mcp.WithString("modelPath", mcp.Required(), mcp.Description("Model path within the package")),
	)
	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, err := store.GetProject(req.GetString("projectName", ""), false)
		if err != nil {
			return toolErrorResult(err), nil
		}
		pkg, err := project.GetPackage(req.GetString("packageName", ""), false)
		if err != nil {
			return toolErrorResult(err), nil
		}
		text, err := pkg.GetModelFileText(req.GetString("modelPath", ""))
		if err != nil {
			return toolErrorResult(err), nil
		}
		return mcp.NewToolResultText(string(text)), nil
	})
}
