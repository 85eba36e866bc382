package tools

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/nbgate/nbgate/pkg/auth"
	"github.com/nbgate/nbgate/pkg/debug"
	"github.com/nbgate/nbgate/pkg/interpreter"
)

// ToolName is the name the execution tool is exposed under.
const ToolName = "execute_code"

// Fallback identities for calls that carry neither an authenticated
// subject nor explicit identifiers.
const (
	defaultUserID         = "anonymous"
	defaultConversationID = "default"
)

// Ensure Provider implements ToolExecutor.
var _ ToolExecutor = (*Provider)(nil)

// Provider executes the execute_code tool. It keeps one Interpreter per
// (userID, conversationID) binding so that repeated calls for the same
// conversation reuse the same notebook and kernel session.
type Provider struct {
	contents interpreter.ContentsAPI
	sessions interpreter.SessionRegistry
	renderer *interpreter.ImageRenderer

	mu           sync.Mutex
	interpreters map[string]*interpreter.Interpreter
}

// NewProvider creates a Provider over the given backend handles.
func NewProvider(contents interpreter.ContentsAPI, sessions interpreter.SessionRegistry, renderer *interpreter.ImageRenderer) *Provider {
	return &Provider{
		contents:     contents,
		sessions:     sessions,
		renderer:     renderer,
		interpreters: make(map[string]*interpreter.Interpreter),
	}
}

// Definition returns the JSON schema of the tool's parameters.
func (p *Provider) Definition() json.RawMessage {
	params, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Python code to execute in the conversation's notebook session",
			},
			"conversation_id": map[string]any{
				"type":        "string",
				"description": "Conversation the execution belongs to; state persists across calls",
			},
		},
		"required": []string{"code"},
	})
	return params
}

// CanExecute returns true for the execute_code tool.
func (p *Provider) CanExecute(toolName string) bool {
	return toolName == ToolName
}

// runArgs is the structured argument payload. A bare string argument is
// also accepted and treated as the code.
type runArgs struct {
	Code           string `json:"code"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// parseArguments accepts either a JSON object payload or a raw code
// string.
func parseArguments(raw string) (runArgs, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var args runArgs
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return runArgs{}, err
		}
		return args, nil
	}

	// A JSON-encoded string is unwrapped; anything else is taken verbatim.
	var code string
	if err := json.Unmarshal([]byte(trimmed), &code); err == nil {
		return runArgs{Code: code}, nil
	}
	return runArgs{Code: raw}, nil
}

// Execute runs the execute_code tool. Malformed arguments produce an
// error result; execution failures are folded into the output text by the
// interpreter and are not errors at this layer.
func (p *Provider) Execute(ctx context.Context, call ToolCall) (*ToolResult, error) {
	args, err := parseArguments(call.Arguments)
	if err != nil {
		return &ToolResult{
			CallID:  call.ID,
			Output:  "invalid arguments: " + err.Error(),
			IsError: true,
		}, nil
	}
	if args.Code == "" {
		return &ToolResult{
			CallID:  call.ID,
			Output:  "code is required",
			IsError: true,
		}, nil
	}

	// The authenticated subject decides the namespace; the user_id
	// argument is honored only on unauthenticated deployments, so a
	// caller cannot execute into another user's notebooks.
	var userID string
	if id := auth.IdentityFromContext(ctx); id != nil {
		userID = id.Subject
	}
	if userID == "" {
		userID = args.UserID
	}
	if userID == "" {
		userID = defaultUserID
	}
	conversationID := args.ConversationID
	if conversationID == "" {
		conversationID = defaultConversationID
	}

	it := p.interpreter(userID, conversationID)
	debug.Log("tools", "execute_code", "call_id", call.ID, "user_id", userID, "conversation_id", conversationID)

	return &ToolResult{
		CallID: call.ID,
		Output: it.Run(ctx, args.Code),
	}, nil
}

// interpreter returns the cached Interpreter for the binding, creating it
// on first use. The interpreter's sink forwards rendered image references
// to the call's context collector.
func (p *Provider) interpreter(userID, conversationID string) *interpreter.Interpreter {
	key := userID + "\x00" + conversationID

	p.mu.Lock()
	defer p.mu.Unlock()
	if it, ok := p.interpreters[key]; ok {
		return it
	}

	sink := func(ctx context.Context, markdown string) {
		if c := CollectorFromContext(ctx); c != nil {
			c.Append(markdown)
		}
	}
	it := interpreter.New(userID, conversationID, p.contents, p.sessions, p.renderer, sink)
	p.interpreters[key] = it
	return it
}
