package malloyrt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	lastSQL string
}

func (f *fakeResolver) QueryData(ctx context.Context, connectionName, sql string, rowLimit int) (*QueryResult, error) {
	f.lastSQL = sql
	return &QueryResult{Columns: []string{"n"}, Rows: []map[string]any{{"n": 1}}}, nil
}

const sampleModel = `
source: orders is table('orders') extend {
  view: by_status is {
    group_by: status
    aggregate: order_count is count()
  }
}

query: top_orders is orders -> by_status
`

func TestNaiveRuntime_CompileModel(t *testing.T) {
	rt := NewNaiveRuntime()
	model, err := rt.CompileModel(context.Background(), "pkg1", "proj1", "orders.malloy", []byte(sampleModel), nil)
	require.NoError(t, err)

	require.Len(t, model.Sources, 1)
	assert.Equal(t, "orders", model.Sources[0].Name)
	require.Len(t, model.Sources[0].Views, 1)
	assert.Equal(t, "by_status", model.Sources[0].Views[0].Name)

	require.Len(t, model.Queries, 1)
	assert.Equal(t, "top_orders", model.Queries[0].Name)
}

func TestNaiveRuntime_RunQuery_AdHoc(t *testing.T) {
	rt := NewNaiveRuntime()
	resolver := &fakeResolver{}
	model := &CompiledModel{}

	result, err := rt.RunQuery(context.Background(), model, QueryRequest{Query: "SELECT 1"}, 10, resolver)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", resolver.lastSQL)
	assert.Len(t, result.Rows, 1)
}

func TestNaiveRuntime_RunQuery_NamedViewUnderSource(t *testing.T) {
	rt := NewNaiveRuntime()
	model, err := rt.CompileModel(context.Background(), "pkg1", "proj1", "orders.malloy", []byte(sampleModel), nil)
	require.NoError(t, err)

	resolver := &fakeResolver{}
	_, err = rt.RunQuery(context.Background(), model, QueryRequest{SourceName: "orders", QueryName: "by_status"}, 10, resolver)
	require.NoError(t, err)
	assert.Contains(t, resolver.lastSQL, "group_by: status")
}

func TestNaiveRuntime_RunQuery_UnknownQueryName(t *testing.T) {
	rt := NewNaiveRuntime()
	model := &CompiledModel{}
	_, err := rt.RunQuery(context.Background(), model, QueryRequest{QueryName: "missing"}, 10, &fakeResolver{})
	assert.Error(t, err)
}
