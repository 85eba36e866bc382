package jupyter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nbgate/nbgate/pkg/api"
	"github.com/nbgate/nbgate/pkg/debug"
	"github.com/nbgate/nbgate/pkg/interpreter"
)

// Ensure KernelConnection implements the interpreter's kernel contract.
var _ interpreter.Kernel = (*KernelConnection)(nil)

// KernelConnection is a WebSocket connection to one kernel's multiplexed
// channels. Connections are cached by the sessions client and reused
// across executions; one execution is in flight at a time, and
// RequestExecute holds the connection until the kernel signals completion.
type KernelConnection struct {
	conn      *websocket.Conn
	sessionID string

	// execMu serializes executions on this connection. It is taken in
	// RequestExecute and released when the event pump finishes.
	execMu sync.Mutex

	// mu guards dead. A dead connection is replaced by the sessions
	// client on the next lookup.
	mu   sync.Mutex
	dead bool
}

// connectKernel dials the channels socket of the given kernel.
func (s *SessionsClient) connectKernel(ctx context.Context, kernelID string) (*KernelConnection, error) {
	wsURL := fmt.Sprintf("%s/api/kernels/%s/channels?session_id=%s", s.wsBaseURL, kernelID, s.clientSessionID)

	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "token "+s.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing kernel channels (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing kernel channels: %w", err)
	}
	debug.Log("kernel", "channels connected", "kernel_id", kernelID)

	return &KernelConnection{
		conn:      conn,
		sessionID: s.clientSessionID,
	}, nil
}

// RequestExecute submits code on the shell channel and returns a handle
// for the resulting event stream. The returned handle buffers events, so
// the consumer may be registered after submission without loss.
func (k *KernelConnection) RequestExecute(ctx context.Context, code string) (interpreter.ExecuteHandle, error) {
	k.execMu.Lock()

	content, err := json.Marshal(executeRequestContent{
		Code:            code,
		StoreHistory:    true,
		UserExpressions: map[string]any{},
	})
	if err != nil {
		k.execMu.Unlock()
		return nil, fmt.Errorf("marshal execute_request: %w", err)
	}

	msgID := uuid.NewString()
	msg := Message{
		Header: MessageHeader{
			MsgID:    msgID,
			MsgType:  "execute_request",
			Session:  k.sessionID,
			Username: "nbgate",
			Version:  protocolVersion,
			Date:     time.Now().UTC().Format(time.RFC3339),
		},
		Metadata: map[string]any{},
		Content:  content,
		Channel:  channelShell,
	}
	if err := k.conn.WriteJSON(msg); err != nil {
		k.execMu.Unlock()
		return nil, fmt.Errorf("sending execute_request: %w", err)
	}
	debug.Log("kernel", "execute_request sent", "msg_id", msgID, "code", debug.Truncate(code, 120))

	future := &ExecuteFuture{
		events:    make(chan api.KernelEvent, 64),
		abandoned: make(chan struct{}),
	}
	go k.pump(msgID, future)
	return future, nil
}

// pump reads the channels socket until the execution completes: both the
// shell execute_reply and the iopub idle status for our request have been
// seen. Output events are forwarded in emission order; messages parented
// to other requests are dropped.
func (k *KernelConnection) pump(msgID string, future *ExecuteFuture) {
	defer k.execMu.Unlock()
	defer close(future.events)

	var idle, replied bool
	for !idle || !replied {
		var msg Message
		if err := k.conn.ReadJSON(&msg); err != nil {
			future.err = fmt.Errorf("reading kernel channel: %w", err)
			k.markDead()
			return
		}
		if msg.ParentHeader.MsgID != msgID {
			continue
		}

		switch {
		case msg.Channel == channelShell && msg.Header.MsgType == "execute_reply":
			replied = true
		case msg.Channel == channelIOPub && msg.Header.MsgType == "status":
			var status statusContent
			if err := json.Unmarshal(msg.Content, &status); err == nil && status.ExecutionState == "idle" {
				idle = true
			}
		case msg.Channel == channelIOPub:
			select {
			case future.events <- api.KernelEvent{Type: msg.Header.MsgType, Content: msg.Content}:
			case <-future.abandoned:
				// Consumer gave up; keep draining to completion so
				// the connection stays reusable.
			}
		}
	}
	debug.Log("kernel", "execution complete", "msg_id", msgID)
}

// Close closes the channels socket and marks the connection dead.
func (k *KernelConnection) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.dead {
		return nil
	}
	k.dead = true
	return k.conn.Close()
}

// markDead flags the connection as unusable and closes the socket. The
// sessions client dials a replacement on the next lookup.
func (k *KernelConnection) markDead() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.dead {
		k.dead = true
		k.conn.Close()
	}
}

// closed reports whether the connection has been closed or has failed.
func (k *KernelConnection) closed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.dead
}

// ExecuteFuture is the handle for one in-flight execution. Events are
// buffered until Done drains them, so registering the consumer after
// RequestExecute loses nothing.
type ExecuteFuture struct {
	events chan api.KernelEvent

	// abandoned is closed when the consumer gives up on the execution;
	// the pump stops delivering and drains the rest silently.
	abandoned   chan struct{}
	abandonOnce sync.Once

	handler func(api.KernelEvent)

	// err is written by the pump before events is closed; the channel
	// close orders it before the read in Done.
	err error
}

// OnEvent registers the per-event consumer. Must be called before Done.
func (f *ExecuteFuture) OnEvent(handler func(api.KernelEvent)) {
	f.handler = handler
}

// Done delivers every buffered event to the consumer, in emission order,
// and returns once the kernel has signalled completion. A cancelled
// context abandons the execution; the kernel itself is not interrupted,
// and the pump drains its remaining output so the connection can serve
// the next execution.
func (f *ExecuteFuture) Done(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			f.abandonOnce.Do(func() { close(f.abandoned) })
			return ctx.Err()
		case ev, ok := <-f.events:
			if !ok {
				return f.err
			}
			if f.handler != nil {
				f.handler(ev)
			}
		}
	}
}
