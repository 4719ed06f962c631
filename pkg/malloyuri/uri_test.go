package malloyuri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []Ref{
		{Kind: KindProject, Project: "home"},
		{Kind: KindPackage, Project: "home", Package: "analytics"},
		{Kind: KindModel, Project: "home", Package: "analytics", ModelPath: "orders.malloy"},
		{Kind: KindModel, Project: "home", Package: "analytics", ModelPath: "nested/orders.malloy"},
		{Kind: KindSource, Project: "home", Package: "analytics", ModelPath: "orders.malloy", SourceName: "orders"},
		{Kind: KindView, Project: "home", Package: "analytics", ModelPath: "orders.malloy", SourceName: "orders", ViewName: "by_status"},
		{Kind: KindQuery, Project: "home", Package: "analytics", ModelPath: "orders.malloy", QueryName: "top_orders"},
		{Kind: KindNotebook, Project: "home", Package: "analytics", NotebookName: "report.malloynb"},
	}

	for _, want := range cases {
		uri := Build(want)
		got, err := Parse(uri)
		require.NoError(t, err, uri)
		assert.Equal(t, want, got, uri)
	}
}

func TestParse_InvalidScheme(t *testing.T) {
	_, err := Parse("http://project/home")
	assert.Error(t, err)
}

func TestParse_IncompletePath(t *testing.T) {
	_, err := Parse("malloy://project/home/package")
	assert.Error(t, err)
}

func TestContentsURI(t *testing.T) {
	assert.Equal(t, "malloy://project/home/package/analytics/contents", ContentsURI("home", "analytics"))
}
