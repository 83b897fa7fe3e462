package telemetry

import (
	"encoding/json"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// DetachedSendCommand is the hidden subcommand name root.go registers to
// receive a payload built by TrackCommandDetached and forward it to
// PostHog from a detached child process, so the parent (in particular
// hook-receiver, which the host assistant blocks on) never waits on a
// network round trip.
const DetachedSendCommand = "__send-analytics"

// EventPayload is the data passed to the detached subprocess on stdin.
type EventPayload struct {
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties"`
	Timestamp  time.Time      `json:"timestamp"`
}

// BuildEventPayload constructs the event payload for tracking. Returns
// nil if the payload cannot be built (e.g. no stable machine ID
// available).
func BuildEventPayload(cmd *cobra.Command, extra map[string]any, version string) *EventPayload {
	if cmd == nil {
		return nil
	}

	machineID, err := machineid.ProtectedID("cc-voice-reporter")
	if err != nil {
		return nil
	}

	var flags []string
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		flags = append(flags, flag.Name)
	})

	properties := map[string]any{
		"command":     cmd.CommandPath(),
		"cli_version": version,
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
	}
	if len(flags) > 0 {
		properties["flags"] = strings.Join(flags, ",")
	}
	for k, v := range extra {
		properties[k] = v
	}

	return &EventPayload{
		Event:      "cli_command_executed",
		DistinctID: machineID,
		Properties: properties,
		Timestamp:  time.Now(),
	}
}

// TrackCommandDetached tracks a command execution by spawning a detached
// subprocess that re-invokes this same binary with the hidden
// DetachedSendCommand. Returns immediately without blocking the caller.
func TrackCommandDetached(cmd *cobra.Command, extra map[string]any, version string) {
	if os.Getenv(optOutEnvVar) != "" {
		return
	}
	if cmd == nil || cmd.Hidden {
		return
	}

	payload := BuildEventPayload(cmd, extra, version)
	if payload == nil {
		return
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return
	}

	spawnDetachedAnalytics(string(payloadJSON))
}

// spawnDetachedAnalytics re-execs the current binary with the hidden send
// command, passing the payload on stdin, and does not wait for it to
// exit. Best-effort: spawn failures are silently ignored, the same as
// every other telemetry path.
func spawnDetachedAnalytics(payloadJSON string) {
	exe, err := os.Executable()
	if err != nil {
		return
	}

	cmd := exec.Command(exe, DetachedSendCommand) //nolint:gosec // re-execs our own binary
	cmd.Stdin = strings.NewReader(payloadJSON)
	cmd.Stdout = nil
	cmd.Stderr = nil
	detachFromParent(cmd)

	//nolint:errcheck // best-effort, detached from the caller entirely
	_ = cmd.Start()
}

// SendEvent processes an event payload in the detached subprocess. Called
// by the hidden DetachedSendCommand handler.
func SendEvent(payloadJSON string) {
	var payload EventPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return
	}

	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:     PostHogEndpoint,
		Logger:       silentLogger{},
		DisableGeoIP: posthog.Ptr(true),
	})
	if err != nil {
		return
	}
	defer func() {
		_ = client.Close()
	}()

	props := posthog.NewProperties()
	for k, v := range payload.Properties {
		props.Set(k, v)
	}

	//nolint:errcheck // best-effort telemetry, don't block on the result
	_ = client.Enqueue(posthog.Capture{
		DistinctId: payload.DistinctID,
		Event:      payload.Event,
		Properties: props,
		Timestamp:  payload.Timestamp,
	})
}
