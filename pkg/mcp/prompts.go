package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-engine/pkg/catalog"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyuri"
)

// promptDef is one entry of the fixed, versioned prompt registry (spec
// §4.11): a template plus the argument names that, when they look like a
// malloy:// model URI, get their compiled model's definition injected
// before rendering.
type promptDef struct {
	id          string
	description string
	args        []promptArg
	modelArgs   map[string]bool
	render      func(vars map[string]string) string
}

type promptArg struct {
	name        string
	description string
	required    bool
}

// RegisterPrompts wires the fixed prompt registry onto the MCP server.
func RegisterPrompts(s *Server, store *catalog.ProjectStore) {
	for _, def := range promptRegistry() {
		s.RegisterPrompt(buildPrompt(def), buildPromptHandler(store, def))
	}
}

func buildPrompt(def promptDef) mcp.Prompt {
	opts := []mcp.PromptOption{mcp.WithPromptDescription(def.description)}
	for _, a := range def.args {
		argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(a.description)}
		if a.required {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(a.name, argOpts...))
	}
	return mcp.NewPrompt(def.id, opts...)
}

func buildPromptHandler(store *catalog.ProjectStore, def promptDef) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		vars := make(map[string]string, len(req.Params.Arguments))
		for k, v := range req.Params.Arguments {
			vars[k] = v
		}
		for name := range def.modelArgs {
			uri, ok := vars[name]
			if !ok || uri == "" {
				continue
			}
			injected, err := injectModelContext(ctx, store, uri)
			if err != nil {
				return nil, fmt.Errorf("resolving model URI for %q: %w", name, err)
			}
			vars[name+"Definition"] = injected
		}

		return &mcp.GetPromptResult{
			Description: def.description,
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.TextContent{Type: "text", Text: def.render(vars)},
				},
			},
		}, nil
	}
}

// injectModelContext fetches a model URI's compiled definition/schema so
// the prompt template can reference real field and source names instead of
// asking the caller to paste them in by hand.
func injectModelContext(ctx context.Context, store *catalog.ProjectStore, uri string) (string, error) {
	ref, err := malloyuri.Parse(uri)
	if err != nil || ref.Kind != malloyuri.KindModel {
		return "", err
	}
	project, err := store.GetProject(ref.Project, false)
	if err != nil {
		return "", err
	}
	pkg, err := project.GetPackage(ref.Package, false)
	if err != nil {
		return "", err
	}
	model, err := pkg.GetModel(ref.ModelPath, false)
	if err != nil {
		return "", err
	}
	if model == nil {
		return "", nil
	}
	compiled, err := model.GetModel(ctx, ref.Project)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(compiled)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func promptRegistry() []promptDef {
	return []promptDef{
		{
			id:          "explain-malloy-query@1.0.0",
			description: "Explain what a Malloy query does in plain language",
			args: []promptArg{
				{name: "query", description: "The Malloy query text to explain", required: true},
				{name: "modelUri", description: "Optional malloy:// model URI for field/source context"},
			},
			modelArgs: map[string]bool{"modelUri": true},
			render: func(vars map[string]string) string {
				text := fmt.Sprintf("Explain what the following Malloy query does in plain language:\n\n%s\n", vars["query"])
				if def, ok := vars["modelUriDefinition"]; ok && def != "" {
					text += fmt.Sprintf("\nThe query runs against this compiled model:\n\n%s\n", def)
				}
				return text
			},
		},
		{
			id:          "generate-malloy-query-from-description@1.0.0",
			description: "Generate a Malloy query from a natural-language description",
			args: []promptArg{
				{name: "description", description: "What the query should compute", required: true},
				{name: "modelUri", description: "malloy:// model URI to generate the query against", required: true},
			},
			modelArgs: map[string]bool{"modelUri": true},
			render: func(vars map[string]string) string {
				text := fmt.Sprintf("Generate a Malloy query that does the following:\n\n%s\n", vars["description"])
				if def, ok := vars["modelUriDefinition"]; ok && def != "" {
					text += fmt.Sprintf("\nUse only the sources, fields, and views present in this compiled model:\n\n%s\n", def)
				}
				return text
			},
		},
		{
			id:          "translate-sql-to-malloy@1.0.0",
			description: "Translate a SQL query into equivalent Malloy",
			args: []promptArg{
				{name: "sql", description: "The SQL query to translate", required: true},
				{name: "modelUri", description: "Optional malloy:// model URI to translate against"},
			},
			modelArgs: map[string]bool{"modelUri": true},
			render: func(vars map[string]string) string {
				text := fmt.Sprintf("Translate the following SQL query into equivalent Malloy:\n\n%s\n", vars["sql"])
				if def, ok := vars["modelUriDefinition"]; ok && def != "" {
					text += fmt.Sprintf("\nPrefer the sources, fields, and views already defined in this compiled model over inventing new ones:\n\n%s\n", def)
				}
				return text
			},
		},
		{
			id:          "summarize-malloy-model@1.0.0",
			description: "Summarize a compiled Malloy model's sources, views, and queries",
			args: []promptArg{
				{name: "modelUri", description: "malloy:// model URI to summarize", required: true},
			},
			modelArgs: map[string]bool{"modelUri": true},
			render: func(vars map[string]string) string {
				def, ok := vars["modelUriDefinition"]
				if !ok || def == "" {
					return fmt.Sprintf("Summarize the Malloy model at %s.", vars["modelUri"])
				}
				return fmt.Sprintf("Summarize this compiled Malloy model's sources, views, and queries in plain language for a new team member:\n\n%s\n", def)
			},
		},
	}
}
