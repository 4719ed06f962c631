// Package fetch implements the Package Fetcher (spec §4.2): given a
// package's (projectName, packageName, location), materialize its working
// directory on local disk, dispatching on the location's URI scheme.
package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/retry"
)

// Fetcher materializes a package's source tree into a local directory.
type Fetcher interface {
	// Fetch materializes location under <publisherPath>/<projectName>/<packageName>
	// and returns that directory's path. Idempotent: re-fetching overwrites.
	Fetch(ctx context.Context, publisherPath, projectName, packageName, location string) (string, error)
}

// Error is PackageFetchError from spec §4.2: a BadRequest subclass for
// malformed URIs, Internal otherwise.
type Error struct {
	Kind    apperrors.Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// As exposes e as an *apperrors.Error carrying e's Kind, so
// apperrors.KindOf at the HTTP and MCP edges sees BadRequest for a bad URI.
func (e *Error) As(target any) bool {
	t, ok := target.(**apperrors.Error)
	if !ok {
		return false
	}
	*t = &apperrors.Error{Kind: e.Kind, Message: e.Message, Cause: e.Cause}
	return true
}

func badURI(location string) *Error {
	return &Error{Kind: apperrors.KindBadRequest, Message: fmt.Sprintf("unrecognized package location %q", location)}
}

func internalErr(location string, cause error) *Error {
	return &Error{Kind: apperrors.KindInternal, Message: fmt.Sprintf("failed to fetch package from %q", location), Cause: cause}
}

// DefaultFetcher dispatches by scheme to the transport-specific fetchers
// (spec §4.2): file path, git/https clone, gs:// copy, s3:// copy. A local
// path (absolute or file://) ending in .zip is extracted; the remote
// transports copy what they fetch as-is, without zip extraction.
type DefaultFetcher struct {
	Git GitFetcher
	GCS GCSFetcher
	S3  S3Fetcher
}

// NewDefaultFetcher wires the transport-specific fetchers together.
func NewDefaultFetcher(git GitFetcher, gcs GCSFetcher, s3 S3Fetcher) *DefaultFetcher {
	return &DefaultFetcher{Git: git, GCS: gcs, S3: s3}
}

func (f *DefaultFetcher) Fetch(ctx context.Context, publisherPath, projectName, packageName, location string) (string, error) {
	dest := filepath.Join(publisherPath, projectName, packageName)
	if err := os.RemoveAll(dest); err != nil {
		return "", internalErr(location, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", internalErr(location, err)
	}

	var err error
	switch {
	case strings.HasPrefix(location, "https://"), strings.HasPrefix(location, "git@"):
		if f.Git == nil {
			return "", internalErr(location, fmt.Errorf("git transport not configured"))
		}
		err = retry.Do(ctx, retry.DefaultConfig(), func() error { return f.Git.Clone(ctx, location, dest) })
	case strings.HasPrefix(location, "gs://"):
		if f.GCS == nil {
			return "", internalErr(location, fmt.Errorf("gcs transport not configured"))
		}
		err = retry.Do(ctx, retry.DefaultConfig(), func() error { return f.GCS.Copy(ctx, location, dest) })
	case strings.HasPrefix(location, "s3://"):
		if f.S3 == nil {
			return "", internalErr(location, fmt.Errorf("s3 transport not configured"))
		}
		err = retry.Do(ctx, retry.DefaultConfig(), func() error { return f.S3.Copy(ctx, location, dest) })
	case strings.HasPrefix(location, "file://"):
		err = mountLocal(strings.TrimPrefix(location, "file://"), dest)
	case filepath.IsAbs(location):
		err = mountLocal(location, dest)
	default:
		return "", badURI(location)
	}
	if err != nil {
		if fe, ok := err.(*Error); ok {
			return "", fe
		}
		return "", internalErr(location, err)
	}
	return dest, nil
}

// mountLocal bind-copies a local path into dest, extracting first if src
// ends in .zip (spec §4.2: "if the path ends in .zip, extract first and
// mount the extracted root").
func mountLocal(src, dest string) error {
	if strings.HasSuffix(strings.ToLower(src), ".zip") {
		return extractZip(src, dest)
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("local package path %q is not a directory", src)
	}
	return copyDir(src, dest)
}

func extractZip(zipPath, dest string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %q escapes destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func copyDir(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
