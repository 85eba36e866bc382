package api

// SessionSpec describes a session to start in the session registry. The
// user identity is forwarded opaquely to the backend; this service never
// interprets it.
type SessionSpec struct {
	// UserID is the opaque identity of the requesting user.
	UserID string

	// Name is the session name, conventionally the notebook file name.
	Name string

	// Path is the notebook path the session is bound to. It is the join
	// key between the contents store and the session registry.
	Path string

	// KernelName selects the interpreter kind, e.g. "python3".
	KernelName string
}
