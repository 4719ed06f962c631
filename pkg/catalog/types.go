package catalog

import "github.com/ekaya-inc/ekaya-engine/pkg/connections"

// ColumnInfo describes one column of an embedded data file (spec §3's
// Database.info.columns).
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DatabaseInfo is the derived, read-only metadata for an embedded data file.
type DatabaseInfo struct {
	RowCount int64        `json:"rowCount"`
	Columns  []ColumnInfo `json:"columns"`
}

// Database is a per-package embedded data file descriptor (spec §3).
type Database struct {
	Path string       `json:"path"`
	Info DatabaseInfo `json:"info"`
}

// Schedule is listed, never executed, by the core (spec §3, Non-goals).
type Schedule struct {
	Resource      string  `json:"resource"`
	Schedule      string  `json:"schedule"`
	Action        string  `json:"action"`
	Connection    string  `json:"connection"`
	LastRunTime   *string `json:"lastRunTime,omitempty"`
	LastRunStatus *string `json:"lastRunStatus,omitempty"`
}

// PackageManifest is the parsed publisher.json for a package (spec §4.5).
type PackageManifest struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Connections []string `json:"connections,omitempty"`
}

// PackageMeta is the API-facing package descriptor used in create/update
// requests and snapshots.
type PackageMeta struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// PackageSnapshot is the read-only view of a Package returned to callers
// (spec §3's "External callers receive read-only snapshots, never live
// handles").
type PackageSnapshot struct {
	Name        string   `json:"name"`
	ProjectName string   `json:"projectName"`
	Location    string   `json:"location"`
	Description string   `json:"description,omitempty"`
	Models      []string `json:"models"`
	Notebooks   []string `json:"notebooks"`
}

// ProjectMeta is the API-facing project descriptor for create/update
// requests.
type ProjectMeta struct {
	Name        string                   `json:"name"`
	Packages    []PackageMeta            `json:"packages"`
	Connections []connections.Definition `json:"connections,omitempty"`
}

// ProjectConnectionSnapshot names a connection without exposing live
// credentials or handles.
type ProjectConnectionSnapshot struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ProjectSnapshot is the read-only view of a Project.
type ProjectSnapshot struct {
	Name        string                      `json:"name"`
	RootPath    string                      `json:"rootPath"`
	Readme      string                      `json:"readme,omitempty"`
	Packages    []string                    `json:"packages"`
	Connections []ProjectConnectionSnapshot `json:"connections"`
}
