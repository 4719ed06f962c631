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

// resourceEnvelope is every resource response's shape (spec §4.11), except
// package-contents, which returns the raw descriptor array instead.
type resourceEnvelope struct {
	Definition any `json:"definition"`
	Metadata   any `json:"metadata"`
}

// resourceDescriptor is one entry of a package-contents listing.
type resourceDescriptor struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// RegisterResources wires every malloy:// resource template (spec §4.11)
// onto the MCP server, backed by the shared ProjectStore.
func RegisterResources(s *Server, store *catalog.ProjectStore) {
	s.RegisterResourceTemplate(
		mcp.NewResourceTemplate("malloy://project/{projectName}", "project",
			mcp.WithTemplateDescription("A project: its packages and connections"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		projectResourceHandler(store),
	)
	s.RegisterResourceTemplate(
		mcp.NewResourceTemplate("malloy://project/{projectName}/package/{packageName}", "package",
			mcp.WithTemplateDescription("A package: its models, notebooks, and description"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		packageResourceHandler(store),
	)
	s.RegisterResourceTemplate(
		mcp.NewResourceTemplate("malloy://project/{projectName}/package/{packageName}/contents", "package-contents",
			mcp.WithTemplateDescription("Flat listing of every model, notebook, source, view, and query in a package"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		packageContentsResourceHandler(store),
	)
	s.RegisterResourceTemplate(
		mcp.NewResourceTemplate("malloy://project/{projectName}/package/{packageName}/models/{+modelPath}", "model",
			mcp.WithTemplateDescription("A compiled Malloy model: its sources and queries"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		modelResourceHandler(store),
	)
	s.RegisterResourceTemplate(
		mcp.NewResourceTemplate("malloy://project/{projectName}/package/{packageName}/models/{+modelPath}/sources/{sourceName}", "source",
			mcp.WithTemplateDescription("A named source exposed by a model"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		sourceResourceHandler(store),
	)
	s.RegisterResourceTemplate(
		mcp.NewResourceTemplate("malloy://project/{projectName}/package/{packageName}/models/{+modelPath}/sources/{sourceName}/views/{viewName}", "view",
			mcp.WithTemplateDescription("A named view nested under a source"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		viewResourceHandler(store),
	)
	s.RegisterResourceTemplate(
		mcp.NewResourceTemplate("malloy://project/{projectName}/package/{packageName}/models/{+modelPath}/queries/{queryName}", "query",
			mcp.WithTemplateDescription("A named model-level query"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		queryResourceHandler(store),
	)
	s.RegisterResourceTemplate(
		mcp.NewResourceTemplate("malloy://project/{projectName}/package/{packageName}/notebooks/{notebookName}", "notebook",
			mcp.WithTemplateDescription("A compiled Malloy notebook"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		notebookResourceHandler(store),
	)
}

// resolvePackage is shared by every resource handler below: parse the URI,
// then walk ProjectStore -> Project -> Package without reloading from disk
// (a resource read is never a reload trigger; only the Watcher and
// explicit ?reload= requests are).
func resolvePackage(store *catalog.ProjectStore, ref malloyuri.Ref) (*catalog.Project, *catalog.Package, error) {
	project, err := store.GetProject(ref.Project, false)
	if err != nil {
		return nil, nil, err
	}
	pkg, err := project.GetPackage(ref.Package, false)
	if err != nil {
		return project, nil, err
	}
	return project, pkg, nil
}

func parseOrFail(uri string) (malloyuri.Ref, error) {
	ref, err := malloyuri.Parse(uri)
	if err != nil {
		return malloyuri.Ref{}, err
	}
	return ref, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func projectResourceHandler(store *catalog.ProjectStore) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := parseOrFail(req.Params.URI)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		project, err := store.GetProject(ref.Project, false)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		snapshot := project.GetProjectMetadata()
		env := resourceEnvelope{
			Definition: map[string]any{"name": snapshot.Name, "packages": snapshot.Packages},
			Metadata:   snapshot,
		}
		return jsonContents(req.Params.URI, env)
	}
}

func packageResourceHandler(store *catalog.ProjectStore) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := parseOrFail(req.Params.URI)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		_, pkg, err := resolvePackage(store, ref)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		snapshot := pkg.GetPackageMetadata()
		env := resourceEnvelope{
			Definition: map[string]any{"name": snapshot.Name, "location": snapshot.Location},
			Metadata:   snapshot,
		}
		return jsonContents(req.Params.URI, env)
	}
}

func packageContentsResourceHandler(store *catalog.ProjectStore) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := parseOrFail(req.Params.URI)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		_, pkg, err := resolvePackage(store, ref)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		snapshot := pkg.GetPackageMetadata()
		var descriptors []resourceDescriptor
		for _, path := range snapshot.Models {
			descriptors = append(descriptors, resourceDescriptor{
				URI:  malloyuri.Build(malloyuri.Ref{Kind: malloyuri.KindModel, Project: ref.Project, Package: ref.Package, ModelPath: path}),
				Type: "model",
				Name: path,
			})
			model, err := pkg.GetModel(path, false)
			if err == nil && model != nil {
				if compiled, err := model.GetModel(ctx, ref.Project); err == nil {
					descriptors = append(descriptors, modelChildDescriptors(ref, path, compiled)...)
				}
			}
		}
		for _, name := range snapshot.Notebooks {
			descriptors = append(descriptors, resourceDescriptor{
				URI:  malloyuri.Build(malloyuri.Ref{Kind: malloyuri.KindNotebook, Project: ref.Project, Package: ref.Package, NotebookName: name}),
				Type: "notebook",
				Name: name,
			})
		}
		data, err := json.Marshal(descriptors)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	}
}

func modelChildDescriptors(ref malloyuri.Ref, modelPath string, compiled *malloyrt.CompiledModel) []resourceDescriptor {
	var out []resourceDescriptor
	for _, src := range compiled.Sources {
		out = append(out, resourceDescriptor{
			URI:  malloyuri.Build(malloyuri.Ref{Kind: malloyuri.KindSource, Project: ref.Project, Package: ref.Package, ModelPath: modelPath, SourceName: src.Name}),
			Type: "source",
			Name: src.Name,
		})
		for _, view := range src.Views {
			out = append(out, resourceDescriptor{
				URI:  malloyuri.Build(malloyuri.Ref{Kind: malloyuri.KindView, Project: ref.Project, Package: ref.Package, ModelPath: modelPath, SourceName: src.Name, ViewName: view.Name}),
				Type: "view",
				Name: view.Name,
			})
		}
	}
	for _, q := range compiled.Queries {
		out = append(out, resourceDescriptor{
			URI:  malloyuri.Build(malloyuri.Ref{Kind: malloyuri.KindQuery, Project: ref.Project, Package: ref.Package, ModelPath: modelPath, QueryName: q.Name}),
			Type: "query",
			Name: q.Name,
		})
	}
	return out
}

func getCompiledModel(ctx context.Context, store *catalog.ProjectStore, ref malloyuri.Ref) (*catalog.Project, *malloyrt.CompiledModel, error) {
	project, pkg, err := resolvePackage(store, ref)
	if err != nil {
		return nil, nil, err
	}
	model, err := pkg.GetModel(ref.ModelPath, false)
	if err != nil {
		return nil, nil, err
	}
	if model == nil {
		return nil, nil, apperrors.NotFoundModel(ref.ModelPath)
	}
	compiled, err := model.GetModel(ctx, ref.Project)
	if err != nil {
		return nil, nil, err
	}
	return project, compiled, nil
}

func modelResourceHandler(store *catalog.ProjectStore) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := parseOrFail(req.Params.URI)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		_, compiled, err := getCompiledModel(ctx, store, ref)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		env := resourceEnvelope{
			Definition: map[string]any{"modelPath": ref.ModelPath, "packageName": ref.Package, "projectName": ref.Project},
			Metadata:   compiled,
		}
		return jsonContents(req.Params.URI, env)
	}
}

func sourceResourceHandler(store *catalog.ProjectStore) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := parseOrFail(req.Params.URI)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		_, compiled, err := getCompiledModel(ctx, store, ref)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		for _, src := range compiled.Sources {
			if src.Name == ref.SourceName {
				env := resourceEnvelope{Definition: map[string]any{"name": src.Name}, Metadata: src}
				return jsonContents(req.Params.URI, env)
			}
		}
		return resourceErrorContents(req.Params.URI, apperrors.New(apperrors.KindMalloy,
			fmt.Sprintf("Resource not found: source '%s'", ref.SourceName)).WithSuggestions("check the source name", "list the model's sources")), nil
	}
}

func viewResourceHandler(store *catalog.ProjectStore) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := parseOrFail(req.Params.URI)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		_, compiled, err := getCompiledModel(ctx, store, ref)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		for _, src := range compiled.Sources {
			if src.Name != ref.SourceName {
				continue
			}
			for _, view := range src.Views {
				if view.Name == ref.ViewName {
					env := resourceEnvelope{Definition: map[string]any{"name": view.Name}, Metadata: view}
					return jsonContents(req.Params.URI, env)
				}
			}
		}
		return resourceErrorContents(req.Params.URI, apperrors.New(apperrors.KindMalloy,
			fmt.Sprintf("Resource not found: view '%s'", ref.ViewName)).WithSuggestions("check the view name", "list the source's views")), nil
	}
}

func queryResourceHandler(store *catalog.ProjectStore) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := parseOrFail(req.Params.URI)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		_, compiled, err := getCompiledModel(ctx, store, ref)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		for _, q := range compiled.Queries {
			if q.Name == ref.QueryName {
				env := resourceEnvelope{Definition: map[string]any{"name": q.Name}, Metadata: q}
				return jsonContents(req.Params.URI, env)
			}
		}
		return resourceErrorContents(req.Params.URI, apperrors.New(apperrors.KindMalloy,
			fmt.Sprintf("Resource not found: query '%s'", ref.QueryName)).WithSuggestions("check the query name", "list the model's queries")), nil
	}
}

func notebookResourceHandler(store *catalog.ProjectStore) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := parseOrFail(req.Params.URI)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		_, pkg, err := resolvePackage(store, ref)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		model, err := pkg.GetModel(ref.NotebookName, false)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		if model == nil {
			return resourceErrorContents(req.Params.URI, apperrors.NotFoundModel(ref.NotebookName)), nil
		}
		compiled, err := model.GetNotebook(ctx, ref.Project)
		if err != nil {
			return resourceErrorContents(req.Params.URI, err), nil
		}
		env := resourceEnvelope{
			Definition: map[string]any{"name": ref.NotebookName},
			Metadata:   compiled,
		}
		return jsonContents(req.Params.URI, env)
	}
}
