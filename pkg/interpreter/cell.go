package interpreter

import (
	"fmt"

	"github.com/nbgate/nbgate/pkg/api"
)

// AppendCell appends a new code cell to the document's cell sequence.
// Pure mutation, no I/O. Fails with api.ErrNotANotebook, leaving the
// document untouched, if doc is not a notebook.
func AppendCell(doc *api.Document, source string, outputs []api.Output, executionCount *int) error {
	if doc.Type != api.TypeNotebook {
		return fmt.Errorf("%w: got %q", api.ErrNotANotebook, doc.Type)
	}
	if doc.Content == nil {
		// A notebook fetched without content still accepts cells.
		doc.Content = api.NewNotebook()
	}
	doc.Content.Cells = append(doc.Content.Cells, api.NewCodeCell(source, outputs, executionCount))
	return nil
}
