package contract

import "context"

// Classifier turns a free-text customer message into an Intent.
// Implementations must always return a usable Intent; the engine depends
// on classification never failing outright.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

// Renderer optionally polishes a templated response into prose. Failures
// leave the templated text standing; callers never surface render errors.
type Renderer interface {
	Render(ctx context.Context, intent IntentKind, facts AggregatedFacts, templated string) (string, error)
}

// ToolGateway is the transport to the tool subsystem: one named remote
// operation per call. Errors are *ToolError values when the failure could
// be classified; anything else is treated as unclassified by the invoker.
type ToolGateway interface {
	Call(ctx context.Context, operation string, args map[string]any) (map[string]any, error)
}

// ToolInvoker calls one named operation with retry and backoff applied.
// The surfaced error, if any, is always a *ToolError carrying the last
// attempt's classification and the attempt count.
type ToolInvoker interface {
	Invoke(ctx context.Context, operation string, args map[string]any) (map[string]any, error)
}

// SessionStore resolves authenticated sessions to customer records.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*SessionRecord, error)
	Save(ctx context.Context, rec *SessionRecord) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionRecord is an authenticated session's customer binding.
type SessionRecord struct {
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	Channel    string `json:"channel,omitempty"`
}
