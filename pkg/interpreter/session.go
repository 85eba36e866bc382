package interpreter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nbgate/nbgate/pkg/api"
	"github.com/nbgate/nbgate/pkg/observability"
)

// DefaultKernelName is the interpreter kind requested for new sessions.
const DefaultKernelName = "python3"

// ResolveSession returns the live session bound to path, starting a new
// one for userID if none exists. Two concurrent first calls for the same
// path may both start a session; callers are expected to serialize
// invocations per conversation.
func ResolveSession(ctx context.Context, registry SessionRegistry, userID, name, path string) (Session, error) {
	if err := registry.Ready(ctx); err != nil {
		return nil, fmt.Errorf("waiting for session registry: %w", err)
	}

	sess, err := registry.FindByPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("looking up session for %q: %w", path, err)
	}
	if sess != nil {
		slog.Debug("reusing session", "path", path, "session_id", sess.ID())
		return sess, nil
	}

	sess, err = registry.StartNew(ctx, api.SessionSpec{
		UserID:     userID,
		Name:       name,
		Path:       path,
		KernelName: DefaultKernelName,
	})
	if err != nil {
		return nil, fmt.Errorf("starting session for %q: %w", path, err)
	}
	observability.SessionsStartedTotal.Inc()
	slog.Info("started session", "path", path, "session_id", sess.ID())
	return sess, nil
}
