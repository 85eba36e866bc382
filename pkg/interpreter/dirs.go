package interpreter

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/nbgate/nbgate/pkg/api"
)

// EnsurePath creates any directories missing along dirPath, parent-first.
// It is idempotent: existing segments are detected by listing the parent
// and are never re-created. Remote listing or creation failures propagate
// unmodified; nothing is retried here.
func EnsurePath(ctx context.Context, contents ContentsAPI, dirPath string) error {
	dirPath = strings.Trim(path.Clean("/"+dirPath), "/")
	if dirPath == "" {
		return nil
	}

	parent := ""
	for _, segment := range strings.Split(dirPath, "/") {
		entries, err := contents.List(ctx, parent)
		if err != nil {
			return fmt.Errorf("listing directory %q: %w", parent, err)
		}
		if !hasEntry(entries, segment, api.TypeDirectory) {
			if err := contents.CreateDirectory(ctx, parent, segment); err != nil {
				return fmt.Errorf("creating directory %q in %q: %w", segment, parent, err)
			}
		}
		parent = path.Join(parent, segment)
	}
	return nil
}

func hasEntry(entries []api.Entry, name, entryType string) bool {
	for _, e := range entries {
		if e.Name == name && e.Type == entryType {
			return true
		}
	}
	return false
}
