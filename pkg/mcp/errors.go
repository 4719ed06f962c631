package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
)

// errorPayload is the structured error shape spec §4.11 requires for every
// resource and tool failure: `{ error, suggestions }`, rendered as a single
// JSON text content block — never a bare error string.
type errorPayload struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions"`
}

// resourceErrorPayload is errorPayload plus an explicit isError flag. A
// ReadResourceResult has no protocol-level error field of its own (unlike
// CallToolResult), so the failure marker travels inside the single JSON
// content item instead (spec §4.11: "isError: true and the JSON payload is
// { error, suggestions }").
type resourceErrorPayload struct {
	IsError     bool     `json:"isError"`
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions"`
}

// resourceErrorContents renders err as the single text content item a
// resource read returns on failure, grounded in the same suggestion
// curation toolErrorResult uses.
func resourceErrorContents(uri string, err error) []mcp.ResourceContents {
	suggestions := apperrors.SuggestionsOf(err)
	if len(suggestions) == 0 {
		suggestions = defaultSuggestions(apperrors.KindOf(err))
	}
	payload := resourceErrorPayload{IsError: true, Error: err.Error(), Suggestions: suggestions}
	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		data = []byte(`{"isError":true,"error":"internal error rendering error payload","suggestions":[]}`)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}
}

// defaultSuggestions curates a fallback suggestion list by Kind when the
// error itself carries none (spec §7: "suggestions array curated from
// common patterns"). KindModelCompilation/KindMalloy already carry their
// own from pkg/catalog; everything else gets a generic nudge here instead
// of an empty array, since the testable properties require
// suggestions.length > 0 on every error payload.
func defaultSuggestions(kind apperrors.Kind) []string {
	switch kind {
	case apperrors.KindProjectNotFound:
		return []string{"check the project name", "list projects to see what's available"}
	case apperrors.KindPackageNotFound:
		return []string{"check the package name", "list packages in this project"}
	case apperrors.KindModelNotFound:
		return []string{"check the model path", "list models in this package"}
	case apperrors.KindConnectionNotFound:
		return []string{"check the connection name", "list connections configured for this project"}
	case apperrors.KindConnection:
		return []string{"verify the connection's credentials and host", "check that the backing database is reachable"}
	case apperrors.KindBadRequest:
		return []string{"check the request parameters"}
	case apperrors.KindFrozenConfig:
		return []string{"this server's configuration is frozen and cannot be mutated at runtime"}
	default:
		return []string{"check the request and try again"}
	}
}

// toolErrorResult renders err as a tool call result with isError:true,
// never as a Go error, so the payload's `suggestions` reach the caller
// (spec §4.11: "handler-level error... returns isError:true with a JSON
// error payload").
func toolErrorResult(err error) *mcp.CallToolResult {
	suggestions := apperrors.SuggestionsOf(err)
	if len(suggestions) == 0 {
		suggestions = defaultSuggestions(apperrors.KindOf(err))
	}
	payload := errorPayload{Error: err.Error(), Suggestions: suggestions}
	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		data = []byte(`{"error":"internal error rendering error payload","suggestions":[]}`)
	}
	result := mcp.NewToolResultText(string(data))
	result.IsError = true
	return result
}
