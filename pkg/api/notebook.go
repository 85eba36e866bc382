package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document types as reported by the contents store.
const (
	TypeNotebook  = "notebook"
	TypeDirectory = "directory"
	TypeFile      = "file"
)

// Notebook format written by this service.
const (
	NBFormat      = 4
	NBFormatMinor = 5
)

// Entry is a single item in a directory listing from the contents store.
type Entry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Writable bool   `json:"writable,omitempty"`
}

// Document is a persisted unit of work in the contents store. For
// notebooks, Content carries the nbformat document; directory documents
// are represented as Entry listings instead and never use this type.
type Document struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Type         string    `json:"type"`
	Writable     bool      `json:"writable"`
	Created      time.Time `json:"created,omitzero"`
	LastModified time.Time `json:"last_modified,omitzero"`
	Format       string    `json:"format,omitempty"`
	Content      *Notebook `json:"content"`
}

// Notebook is the nbformat payload of a notebook document.
type Notebook struct {
	Cells         []Cell         `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormatMajor int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

// Cell is one executed code record. Cells are append-only: once added to
// a notebook they are never edited or reordered.
type Cell struct {
	ID             string         `json:"id"`
	CellType       string         `json:"cell_type"`
	Source         string         `json:"source"`
	Metadata       map[string]any `json:"metadata"`
	Outputs        []Output       `json:"outputs"`
	ExecutionCount *int           `json:"execution_count"`
}

// NewNotebook returns an empty nbformat 4.5 notebook.
func NewNotebook() *Notebook {
	return &Notebook{
		Cells:         []Cell{},
		Metadata:      map[string]any{},
		NBFormatMajor: NBFormat,
		NBFormatMinor: NBFormatMinor,
	}
}

// NewDocument builds a fresh, writable in-memory notebook document. The
// document is not persisted; saving is the orchestrator's job after a
// successful execution.
func NewDocument(name, path string) *Document {
	now := time.Now().UTC()
	return &Document{
		Name:         name,
		Path:         path,
		Type:         TypeNotebook,
		Writable:     true,
		Created:      now,
		LastModified: now,
		Format:       "json",
		Content:      NewNotebook(),
	}
}

// NewCodeCell builds a code cell with a freshly generated unique ID.
func NewCodeCell(source string, outputs []Output, executionCount *int) Cell {
	if outputs == nil {
		outputs = []Output{}
	}
	return Cell{
		ID:             NewCellID(),
		CellType:       "code",
		Source:         source,
		Metadata:       map[string]any{},
		Outputs:        outputs,
		ExecutionCount: executionCount,
	}
}

// UnmarshalJSON decodes a cell, dispatching each output to its tagged
// variant by output_type.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             string            `json:"id"`
		CellType       string            `json:"cell_type"`
		Source         MultilineText     `json:"source"`
		Metadata       map[string]any    `json:"metadata"`
		Outputs        []json.RawMessage `json:"outputs"`
		ExecutionCount *int              `json:"execution_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.ID = raw.ID
	c.CellType = raw.CellType
	c.Source = string(raw.Source)
	c.Metadata = raw.Metadata
	c.ExecutionCount = raw.ExecutionCount
	c.Outputs = make([]Output, 0, len(raw.Outputs))
	for i, ro := range raw.Outputs {
		out, err := UnmarshalOutput(ro)
		if err != nil {
			return fmt.Errorf("decoding output %d: %w", i, err)
		}
		c.Outputs = append(c.Outputs, out)
	}
	return nil
}
