package interpreter

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/nbgate/nbgate/pkg/debug"
	"github.com/nbgate/nbgate/pkg/observability"
)

// Interpreter orchestrates code execution for one (userID, conversationID)
// binding. The identity pair never changes once constructed; it is the
// sole key for the notebook document and the kernel session.
//
// One Run invocation is strictly sequential. Two concurrent invocations
// for the same conversation race on session creation and on the
// last-writer-wins notebook save; callers are expected to serialize
// invocations per conversation.
type Interpreter struct {
	userID         string
	conversationID string

	contents ContentsAPI
	sessions SessionRegistry
	renderer *ImageRenderer
	sink     OutputSink
}

// New creates an Interpreter bound to one user and conversation. The sink
// may be nil when no side channel for rendered images is needed.
func New(userID, conversationID string, contents ContentsAPI, sessions SessionRegistry, renderer *ImageRenderer, sink OutputSink) *Interpreter {
	return &Interpreter{
		userID:         userID,
		conversationID: conversationID,
		contents:       contents,
		sessions:       sessions,
		renderer:       renderer,
		sink:           sink,
	}
}

// NotebookPath returns the durable notebook path for this conversation.
// It is stable for the conversation's lifetime.
func (it *Interpreter) NotebookPath() string {
	return path.Join(it.userID, it.conversationID+".ipynb")
}

// Run executes code against this conversation's notebook session and
// returns the folded result text. Run is total: every internal failure is
// logged and converted into a textual error response instead of being
// returned to the caller. Runtime exceptions inside the executed code are
// not failures; their tracebacks are part of the result text.
func (it *Interpreter) Run(ctx context.Context, code string) string {
	start := time.Now()

	text, err := it.run(ctx, code)
	if err != nil {
		slog.Error("code execution failed",
			"user_id", it.userID,
			"conversation_id", it.conversationID,
			"error", err,
		)
		observability.ExecutionsTotal.WithLabelValues("error").Inc()
		observability.ExecutionDuration.Observe(time.Since(start).Seconds())
		return fmt.Sprintf("Error executing code: %v", err)
	}

	observability.ExecutionsTotal.WithLabelValues("completed").Inc()
	observability.ExecutionDuration.Observe(time.Since(start).Seconds())
	return text
}

func (it *Interpreter) run(ctx context.Context, code string) (string, error) {
	nbPath := it.NotebookPath()
	debug.Log("interpreter", "run", "path", nbPath)

	doc, err := ResolveNotebook(ctx, it.contents, nbPath)
	if err != nil {
		return "", fmt.Errorf("resolving notebook: %w", err)
	}

	sess, err := ResolveSession(ctx, it.sessions, it.userID, doc.Name, nbPath)
	if err != nil {
		return "", fmt.Errorf("resolving session: %w", err)
	}

	exec, err := Execute(ctx, sess, code)
	if err != nil {
		return "", fmt.Errorf("executing code: %w", err)
	}

	links, err := it.renderer.Render(exec.Outputs)
	if err != nil {
		return "", fmt.Errorf("rendering outputs: %w", err)
	}
	if it.sink != nil {
		for _, link := range links {
			it.sink(ctx, link)
		}
	}

	if err := AppendCell(doc, code, exec.Outputs, exec.ExecutionCount); err != nil {
		return "", err
	}

	if err := it.contents.Save(ctx, nbPath, doc); err != nil {
		return "", fmt.Errorf("saving notebook: %w", err)
	}
	observability.NotebookSavesTotal.Inc()
	debug.Log("interpreter", "saved notebook", "path", nbPath, "cells", len(doc.Content.Cells))

	return exec.Text, nil
}
