package logging

import "context"

// Context keys for logging values. Using a private type avoids collisions
// with keys set by other packages.
type contextKey int

const (
	sessionIDKey contextKey = iota
	componentKey
	agentKey
)

// WithSession adds a session ID to the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithComponent adds a component name to the context, identifying the
// subsystem generating logs (e.g. "hooks", "attach", "query").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithAgent adds an agent name to the context (e.g. "claude-code",
// "gemini-cli").
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentKey, agent)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SessionIDFromContext extracts the session ID from the context, or "".
func SessionIDFromContext(ctx context.Context) string { return stringFromContext(ctx, sessionIDKey) }

// ComponentFromContext extracts the component name from the context, or "".
func ComponentFromContext(ctx context.Context) string { return stringFromContext(ctx, componentKey) }

// AgentFromContext extracts the agent name from the context, or "".
func AgentFromContext(ctx context.Context) string { return stringFromContext(ctx, agentKey) }
