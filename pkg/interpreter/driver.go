package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nbgate/nbgate/pkg/api"
	"github.com/nbgate/nbgate/pkg/observability"
)

// ErrNoKernel is returned when a session has no kernel attached. This is
// a configuration fault, detected before any code is submitted.
var ErrNoKernel = errors.New("session has no kernel attached")

// ImagePlaceholder is the text contributed by a display_data event. The
// rendered image itself travels through the output sink, not the result
// text.
const ImagePlaceholder = "Image displayed."

// Execution is the reduced form of one kernel execution.
type Execution struct {
	// Text is the folded result text, in event emission order.
	Text string

	// Outputs is the full ordered output list, one entry per event.
	Outputs []api.Output

	// ExecutionCount is the counter of the last execute_result event,
	// or nil if none occurred.
	ExecutionCount *int
}

// Execute submits code to the session's kernel, folds the resulting event
// stream in emission order, and returns once the kernel reports the
// execution done.
//
// Folding precedence by event kind: execute_result appends its text
// representation and records the counter; display_data appends the image
// placeholder; stream appends its text verbatim; error appends the
// traceback joined by newlines. Unrecognized kinds are recorded in the
// output list but contribute no text.
func Execute(ctx context.Context, session Session, code string) (*Execution, error) {
	kernel := session.Kernel()
	if kernel == nil {
		return nil, ErrNoKernel
	}

	handle, err := kernel.RequestExecute(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("submitting execute request: %w", err)
	}

	var (
		exec Execution
		text strings.Builder
	)
	handle.OnEvent(func(ev api.KernelEvent) {
		observability.KernelEventsTotal.WithLabelValues(ev.Type).Inc()

		out := api.OutputFromEvent(ev)
		exec.Outputs = append(exec.Outputs, out)

		switch o := out.(type) {
		case *api.ExecuteResult:
			text.WriteString(o.PlainText())
			exec.ExecutionCount = o.ExecutionCount
		case *api.DisplayData:
			text.WriteString(ImagePlaceholder)
		case *api.StreamOutput:
			text.WriteString(o.Text)
		case *api.ErrorOutput:
			text.WriteString(strings.Join(o.Traceback, "\n"))
		default:
			// Recorded in the output list, no text contribution.
		}
	})

	if err := handle.Done(ctx); err != nil {
		return nil, fmt.Errorf("awaiting execution: %w", err)
	}

	exec.Text = text.String()
	return &exec, nil
}
