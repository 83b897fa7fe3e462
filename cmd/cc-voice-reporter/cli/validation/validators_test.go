package validation

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "valid session ID uuid",
			sessionID: "f736da47-b2ca-4f86-bb32-a1bbe582e464",
			wantErr:   false,
		},
		{
			name:      "valid session ID with special characters",
			sessionID: "session-2026.01.25_test@123",
			wantErr:   false,
		},
		{
			name:      "empty session ID",
			sessionID: "",
			wantErr:   true,
			errMsg:    "session ID cannot be empty",
		},
		{
			name:      "session ID with forward slash",
			sessionID: "session/123",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
		{
			name:      "session ID with backslash",
			sessionID: "session\\123",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
		{
			name:      "path traversal attempt",
			sessionID: "../../etc/passwd",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
		{
			name:      "absolute unix path",
			sessionID: "/etc/passwd",
			wantErr:   true,
			errMsg:    "contains path separators",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.sessionID)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateSessionID(%q) expected error containing %q, got nil", tt.sessionID, tt.errMsg)
					return
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateSessionID(%q) error = %q, want error containing %q", tt.sessionID, err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("ValidateSessionID(%q) unexpected error: %v", tt.sessionID, err)
			}
		})
	}
}

func TestValidateAgentID(t *testing.T) {
	tests := []struct {
		name    string
		agentID string
		wantErr bool
	}{
		{name: "valid agent ID", agentID: "agent-test-123", wantErr: false},
		{name: "valid uuid format", agentID: "a1b2c3d4-e5f6-7890-abcd-ef1234567890", wantErr: false},
		{name: "empty is allowed", agentID: "", wantErr: false},
		{name: "slash rejected", agentID: "agent/test", wantErr: true},
		{name: "backslash rejected", agentID: "agent\\test", wantErr: true},
		{name: "dot rejected", agentID: "agent.test", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAgentID(tt.agentID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAgentID(%q) error = %v, wantErr %v", tt.agentID, err, tt.wantErr)
			}
		})
	}
}
