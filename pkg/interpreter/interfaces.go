package interpreter

import (
	"context"

	"github.com/nbgate/nbgate/pkg/api"
)

// ContentsAPI is the slice of the remote document store this package
// consumes. The two-step create-then-rename dance of the underlying
// protocol is an implementation detail hidden behind CreateDirectory.
type ContentsAPI interface {
	// List returns the entries of the directory at path ("" is the root).
	List(ctx context.Context, path string) ([]api.Entry, error)

	// GetNotebook fetches a notebook document including its content.
	GetNotebook(ctx context.Context, path string) (*api.Document, error)

	// CreateDirectory creates a directory named name inside parent.
	CreateDirectory(ctx context.Context, parent, name string) error

	// Save overwrites the document at path wholesale. There is no version
	// check; the last writer wins.
	Save(ctx context.Context, path string, doc *api.Document) error
}

// SessionRegistry is the slice of the remote session service this package
// consumes. Sessions outlive a single invocation and are reused across
// turns of the same conversation.
type SessionRegistry interface {
	// Ready blocks until the registry reports ready. The gate latches:
	// once it has succeeded, subsequent calls return immediately.
	Ready(ctx context.Context) error

	// FindByPath returns the live session bound to path, or nil if none
	// exists.
	FindByPath(ctx context.Context, path string) (Session, error)

	// StartNew starts the session described by spec and attaches to its
	// kernel.
	StartNew(ctx context.Context, spec api.SessionSpec) (Session, error)
}

// Session is a live binding between a user and a running kernel.
type Session interface {
	// ID returns the registry's session identifier.
	ID() string

	// Path returns the notebook path the session is bound to.
	Path() string

	// Kernel returns the attached kernel, or nil if none is attached.
	Kernel() Kernel
}

// Kernel submits code for execution.
type Kernel interface {
	// RequestExecute submits code and returns a handle for the resulting
	// event stream. Events are buffered until a consumer drains them, so
	// a consumer registered after submission still sees every event in
	// emission order.
	RequestExecute(ctx context.Context, code string) (ExecuteHandle, error)
}

// ExecuteHandle exposes one in-flight execution.
type ExecuteHandle interface {
	// OnEvent registers the per-event consumer. It must be called before
	// Done; the handle invokes it exactly once per event, in emission
	// order.
	OnEvent(func(api.KernelEvent))

	// Done delivers all buffered events to the registered consumer and
	// returns once the kernel has signalled completion.
	Done(ctx context.Context) error
}

// OutputSink receives rendered side outputs (markdown image references)
// before Run returns. The orchestrator calls it once per reference, in
// output order.
type OutputSink func(ctx context.Context, markdown string)
