package interpreter

import (
	"context"
	"fmt"
	"path"

	"github.com/nbgate/nbgate/pkg/api"
)

// ResolveNotebook returns the notebook stored at nbPath, or a fresh empty
// in-memory document if none exists remotely. New documents are not
// persisted here: sessions that never execute code must not leave empty
// notebooks behind.
func ResolveNotebook(ctx context.Context, contents ContentsAPI, nbPath string) (*api.Document, error) {
	dir := path.Dir(nbPath)
	if dir == "." {
		dir = ""
	}
	name := path.Base(nbPath)

	if err := EnsurePath(ctx, contents, dir); err != nil {
		return nil, err
	}

	entries, err := contents.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("listing directory %q: %w", dir, err)
	}
	if hasEntry(entries, name, api.TypeNotebook) {
		doc, err := contents.GetNotebook(ctx, nbPath)
		if err != nil {
			return nil, fmt.Errorf("fetching notebook %q: %w", nbPath, err)
		}
		return doc, nil
	}

	return api.NewDocument(name, nbPath), nil
}
