package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/catalog"
	"github.com/ekaya-inc/ekaya-engine/pkg/fetch"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

func newTestStore(t *testing.T) *catalog.ProjectStore {
	t.Helper()
	serverRoot := t.TempDir()
	pkgDir := filepath.Join(serverRoot, "home", "analytics")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(pkgDir, "flights.malloy"),
		[]byte("source: flights is table('x') extend {\n  view: by_carrier is { aggregate: c is count() }\n}\nquery: top_carriers is flights->by_carrier\n"),
		0o644,
	))

	cfg := map[string]any{
		"frozenConfig": false,
		"projects": []map[string]any{
			{"name": "home", "packages": []map[string]any{{"name": "analytics", "location": pkgDir}}},
		},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(serverRoot, "publisher.config.json"), data, 0o644))

	store, err := catalog.NewProjectStore(context.Background(), serverRoot, malloyrt.NewNaiveRuntime(), fetch.NewDefaultFetcher(nil, nil, nil), nil)
	require.NoError(t, err)
	return store
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer("test-publisher", "0.0.0-test", zap.NewNop())
}

func TestRegisterAll_WiresResourcesToolsAndPrompts(t *testing.T) {
	store := newTestStore(t)
	s := newTestServer(t)
	require.NotPanics(t, func() { RegisterAll(s, store) })
}

func TestExecuteQueryTool_XORViolationIsInvalidParamsFormatted(t *testing.T) {
	store := newTestStore(t)
	handler := executeQueryHandler(store)

	req := mcp.CallToolRequest{}
	req.Params.Name = "malloy_executeQuery"
	req.Params.Arguments = map[string]any{
		"projectName": "home",
		"packageName": "analytics",
		"modelPath":   "flights.malloy",
		"query":       "run: flights->{ aggregate: c is count() }",
		"queryName":   "top_carriers",
	}

	result, err := handler(context.Background(), req)
	require.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, "MCP error -32602: Cannot provide both 'query' and 'queryName'", err.Error())
}

func TestExecuteQueryTool_SuccessReturnsEmbeddedJSONResource(t *testing.T) {
	store := newTestStore(t)
	handler := executeQueryHandler(store)

	req := mcp.CallToolRequest{}
	req.Params.Name = "malloy_executeQuery"
	req.Params.Arguments = map[string]any{
		"projectName": "home",
		"packageName": "analytics",
		"modelPath":   "flights.malloy",
		"queryName":   "top_carriers",
	}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	embedded, ok := result.Content[0].(mcp.EmbeddedResource)
	require.True(t, ok)
	assert.Equal(t, "resource", embedded.Type)

	text, ok := embedded.Resource.(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Contains(t, text.URI, "#result")
	assert.NotEmpty(t, text.Text)
}

func TestPackageResource_UnknownPackageReturnsStructuredError(t *testing.T) {
	store := newTestStore(t)
	handler := packageResourceHandler(store)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "malloy://project/home/package/nonexistent"

	contents, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)

	var payload resourceErrorPayload
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	assert.True(t, payload.IsError)
	assert.Regexp(t, "^Resource not found: Package", payload.Error)
	assert.NotEmpty(t, payload.Suggestions)
}

func TestProjectResource_KnownProjectReturnsDefinitionAndMetadata(t *testing.T) {
	store := newTestStore(t)
	handler := projectResourceHandler(store)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "malloy://project/home"

	contents, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)

	var env resourceEnvelope
	require.NoError(t, json.Unmarshal([]byte(text.Text), &env))
	assert.NotNil(t, env.Definition)
	assert.NotNil(t, env.Metadata)
}

func TestModelResource_UnknownModelReturnsStructuredError(t *testing.T) {
	store := newTestStore(t)
	handler := modelResourceHandler(store)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "malloy://project/home/package/analytics/models/missing.malloy"

	contents, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)

	var payload resourceErrorPayload
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	assert.True(t, payload.IsError)
	assert.Regexp(t, "^Resource not found: model", payload.Error)
	assert.NotEmpty(t, payload.Suggestions)
}
