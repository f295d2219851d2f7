package artifact

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/gabriel-vasile/mimetype"

	"github.com/roach88/skim/internal/engine"
)

// skippedDirs are never descended into.
var skippedDirs = []string{".git", ".hg", ".svn"}

// FileSystem enumerates regular files under Roots.
//
// A root naming a file is always included. A root naming a directory
// contributes its files whose base name matches one of the query's
// specifiers (all files when there are none), descending into
// subdirectories only when the query asks to recurse. Symbolic links and
// other non-regular files are ignored.
//
// Only a missing or unresolvable root fails enumeration. A file or
// subdirectory that cannot be read is still enumerated, with an Open that
// returns the cause, so the run reports it as a load failure.
type FileSystem struct {
	Roots []string
}

// Enumerate implements engine.Provider.
func (f FileSystem) Enumerate(ctx context.Context, q engine.Query) ([]engine.Artifact, error) {
	var out []engine.Artifact
	for _, root := range f.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat root: %w", err)
		}
		if !info.IsDir() {
			out = append(out, fileArtifact(abs, info))
			continue
		}
		found, err := walk(ctx, abs, q)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func walk(ctx context.Context, root string, q engine.Query) ([]engine.Artifact, error) {
	var out []engine.Artifact
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root || d == nil {
				return err
			}
			slog.Warn("cannot read directory entry", "path", p, "error", err)
			out = append(out, unreadable(p, err))
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p == root {
				return nil
			}
			if !q.Recurse || slices.Contains(skippedDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !Matches(q.Specifiers, d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			out = append(out, unreadable(p, err))
			return nil
		}
		out = append(out, fileArtifact(p, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

// fileArtifact describes a regular file. A file whose type cannot be
// detected is enumerated as application/octet-stream; opening it then
// surfaces the underlying error.
func fileArtifact(p string, info fs.FileInfo) engine.Artifact {
	mime := "text/plain"
	if info.Size() > 0 {
		if m, err := mimetype.DetectFile(p); err == nil {
			mime = m.String()
		} else {
			mime = octetStream
		}
	}
	return engine.Artifact{
		URI:      FileURI(p),
		Size:     info.Size(),
		MIMEType: mime,
		Open: func() (io.ReadCloser, error) {
			return os.Open(p)
		},
	}
}

const octetStream = "application/octet-stream"

// unreadable is an artifact for a path that failed during the walk.
func unreadable(p string, cause error) engine.Artifact {
	return engine.Artifact{
		URI:      FileURI(p),
		MIMEType: octetStream,
		Open: func() (io.ReadCloser, error) {
			return nil, cause
		},
	}
}

// FileURI converts an absolute path into a file:// URI.
func FileURI(p string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
	if u.Path != "" && u.Path[0] != '/' {
		// Windows drive paths.
		u.Path = "/" + u.Path
	}
	return u.String()
}

// Matches reports whether name matches any of the glob specifiers. No
// specifiers matches everything.
func Matches(specifiers []string, name string) bool {
	if len(specifiers) == 0 {
		return true
	}
	for _, s := range specifiers {
		ok, err := path.Match(s, name)
		if err != nil {
			slog.Debug("bad target file specifier", "specifier", s, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
