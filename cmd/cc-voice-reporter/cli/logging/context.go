package logging

import (
	"context"
)

// Context keys for logging values.
// Using private types to avoid key collisions.
type contextKey int

const (
	sessionIDKey contextKey = iota
	parentSessionIDKey
	projectKey
	componentKey
)

// WithSession adds a session ID to the context.
// If the context already has a session ID, it becomes the parent session ID.
func WithSession(ctx context.Context, sessionID string) context.Context {
	// If there's an existing session, it becomes the parent
	existing := SessionIDFromContext(ctx)
	if existing != "" && existing != sessionID {
		ctx = context.WithValue(ctx, parentSessionIDKey, existing)
	}
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithParentSession explicitly sets the parent session ID.
// Use this when you need to set the parent explicitly rather than
// having it inferred from an existing session.
func WithParentSession(ctx context.Context, parentSessionID string) context.Context {
	return context.WithValue(ctx, parentSessionIDKey, parentSessionID)
}

// WithProject adds the encoded project directory to the context. Because this
// daemon watches many projects concurrently, almost every log line needs to
// say which project it is about.
func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, projectKey, project)
}

// WithComponent adds a component name to the context.
// Component names help identify the subsystem generating logs (e.g., "tailer", "speech", "summarizer").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// SessionIDFromContext extracts the session ID from the context.
// Returns empty string if not set.
func SessionIDFromContext(ctx context.Context) string {
	if v := ctx.Value(sessionIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ParentSessionIDFromContext extracts the parent session ID from the context.
// Returns empty string if not set.
func ParentSessionIDFromContext(ctx context.Context) string {
	if v := ctx.Value(parentSessionIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ProjectFromContext extracts the encoded project directory from the context.
// Returns empty string if not set.
func ProjectFromContext(ctx context.Context) string {
	if v := ctx.Value(projectKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ComponentFromContext extracts the component name from the context.
// Returns empty string if not set.
func ComponentFromContext(ctx context.Context) string {
	if v := ctx.Value(componentKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
