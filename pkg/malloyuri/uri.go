// Package malloyuri builds and parses the malloy:// resource URI scheme
// used by the MCP surface (spec §4.11). Builder and parser are the only
// sanctioned way to produce/consume these URIs elsewhere in the module —
// grounded on arianlopezc-Trabuco's internal/mcp/expert_resources.go,
// which centralizes its own resource-URI construction in exactly this way
// rather than string-formatting URIs ad hoc at each call site.
package malloyuri

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
)

// Kind identifies which resource shape a URI addresses.
type Kind int

const (
	KindProject Kind = iota
	KindPackage
	KindModel
	KindSource
	KindView
	KindQuery
	KindNotebook
)

// Ref is a parsed malloy:// URI (spec §4.11's nested path grammar:
// project/{p}/package/{pkg}[/notebooks/{name} | /models/{path}[/(sources|queries)/{name}[/views/{name}]]];
// a views segment is accepted only under a source).
type Ref struct {
	Kind        Kind
	Project     string
	Package     string
	ModelPath   string // set for model/source/view/query
	NotebookName string // set for notebook
	SourceName  string // set for source/view
	QueryName   string // set for query
	ViewName    string // set for view
}

const scheme = "malloy://"

// Build renders r back into its canonical malloy:// URI. Build(Parse(u)) and
// Parse(Build(r)) must round-trip for every valid r (spec §8).
func Build(r Ref) string {
	var b strings.Builder
	b.WriteString(scheme)
	fmt.Fprintf(&b, "project/%s", r.Project)
	if r.Kind == KindProject {
		return b.String()
	}
	fmt.Fprintf(&b, "/package/%s", r.Package)
	switch r.Kind {
	case KindPackage:
		return b.String()
	case KindNotebook:
		fmt.Fprintf(&b, "/notebooks/%s", r.NotebookName)
		return b.String()
	case KindModel:
		fmt.Fprintf(&b, "/models/%s", r.ModelPath)
		return b.String()
	case KindSource:
		fmt.Fprintf(&b, "/models/%s/sources/%s", r.ModelPath, r.SourceName)
		return b.String()
	case KindView:
		fmt.Fprintf(&b, "/models/%s/sources/%s/views/%s", r.ModelPath, r.SourceName, r.ViewName)
		return b.String()
	case KindQuery:
		fmt.Fprintf(&b, "/models/%s/queries/%s", r.ModelPath, r.QueryName)
		return b.String()
	}
	return b.String()
}

// ContentsURI renders the package-contents URI (spec §4.11): not a distinct
// Kind since its response shape (raw array) differs from every other
// resource rather than its addressing.
func ContentsURI(project, pkg string) string {
	return Build(Ref{Kind: KindPackage, Project: project, Package: pkg}) + "/contents"
}

// Parse decodes a malloy:// URI into a Ref. Returns a BadRequest apperror
// on any shape it doesn't recognize.
func Parse(uri string) (Ref, error) {
	if !strings.HasPrefix(uri, scheme) {
		return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
	}
	parts := strings.Split(strings.TrimPrefix(uri, scheme), "/")
	if len(parts) < 2 || parts[0] != "project" {
		return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
	}

	r := Ref{Project: parts[1]}
	if len(parts) == 2 {
		r.Kind = KindProject
		return r, nil
	}
	if len(parts) < 4 || parts[2] != "package" {
		return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
	}
	r.Package = parts[3]
	if len(parts) == 4 {
		r.Kind = KindPackage
		return r, nil
	}

	rest := parts[4:]
	switch rest[0] {
	case "notebooks":
		if len(rest) != 2 {
			return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
		}
		r.Kind = KindNotebook
		r.NotebookName = rest[1]
		return r, nil
	case "models":
		return parseModelRest(r, rest[1:], uri)
	default:
		return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
	}
}

func parseModelRest(r Ref, rest []string, uri string) (Ref, error) {
	if len(rest) == 0 {
		return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
	}

	switch len(rest) {
	case 1:
		r.Kind = KindModel
		r.ModelPath = rest[0]
		return r, nil
	default:
		// rest = [modelPath, "sources"|"queries", name, ("views", viewName)?]
		// modelPath itself may contain slashes, so split from the right on
		// the first recognized segment keyword.
		idx, keyword := findKeyword(rest)
		if idx < 0 {
			return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
		}
		r.ModelPath = strings.Join(rest[:idx], "/")
		tail := rest[idx:]
		switch keyword {
		case "queries":
			if len(tail) != 2 {
				return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
			}
			r.Kind = KindQuery
			r.QueryName = tail[1]
			return r, nil
		case "sources":
			switch len(tail) {
			case 2:
				r.Kind = KindSource
				r.SourceName = tail[1]
				return r, nil
			case 4:
				if tail[2] != "views" {
					return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
				}
				r.Kind = KindView
				r.SourceName = tail[1]
				r.ViewName = tail[3]
				return r, nil
			default:
				return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
			}
		}
	}
	return Ref{}, apperrors.BadRequest(fmt.Sprintf("invalid malloy URI: %q", uri))
}

func findKeyword(segs []string) (int, string) {
	for i := len(segs) - 1; i >= 0; i-- {
		if s := segs[i]; s == "sources" || s == "queries" {
			return i, s
		}
	}
	return -1, ""
}
