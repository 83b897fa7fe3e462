// Package telemetry reports best-effort, privacy-preserving usage events
// (which subcommand ran, with which flag names — never flag values or
// transcript content) to PostHog. Adapted from the teacher CLI's
// telemetry package: same opt-out env var convention, same fast-timeout
// HTTP transport so a telemetry hiccup never holds up CLI exit or the
// daemon's own startup.
package telemetry

import (
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// PostHogAPIKey is set at build time for production.
	PostHogAPIKey = "phc_development_key"
	// PostHogEndpoint is set at build time for production.
	PostHogEndpoint = "https://eu.i.posthog.com"
)

const optOutEnvVar = "CC_VOICE_REPORTER_TELEMETRY_OPTOUT"

// Client defines the telemetry interface.
type Client interface {
	TrackCommand(cmd *cobra.Command, extra map[string]any)
	Close()
}

// NoOpClient is a no-op implementation for when telemetry is disabled.
type NoOpClient struct{}

func (n *NoOpClient) TrackCommand(_ *cobra.Command, _ map[string]any) {}
func (n *NoOpClient) Close()                                          {}

type silentLogger struct{}

func (silentLogger) Logf(_ string, _ ...interface{})   {}
func (silentLogger) Debugf(_ string, _ ...interface{}) {}
func (silentLogger) Warnf(_ string, _ ...interface{})  {}
func (silentLogger) Errorf(_ string, _ ...interface{}) {}

// PostHogClient is the real telemetry client.
type PostHogClient struct {
	client     posthog.Client
	machineID  string
	cliVersion string
	mu         sync.RWMutex
}

// NewClient creates a telemetry client based on the opt-in setting.
// telemetryEnabled nil or false disables telemetry; the env var always
// wins regardless of the setting.
//
//nolint:ireturn // factory: returns NoOpClient or PostHogClient depending on configuration
func NewClient(version string, telemetryEnabled *bool) Client {
	if os.Getenv(optOutEnvVar) != "" {
		return &NoOpClient{}
	}
	if telemetryEnabled == nil || !*telemetryEnabled {
		return &NoOpClient{}
	}

	id, err := machineid.ProtectedID("cc-voice-reporter")
	if err != nil {
		return &NoOpClient{}
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 100 * time.Millisecond,
		}).DialContext,
		TLSHandshakeTimeout:   100 * time.Millisecond,
		ResponseHeaderTimeout: 100 * time.Millisecond,
	}

	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:           PostHogEndpoint,
		ShutdownTimeout:    100 * time.Millisecond,
		BatchUploadTimeout: 200 * time.Millisecond,
		Transport:          transport,
		Logger:             silentLogger{},
		DisableGeoIP:       posthog.Ptr(true),
		DefaultEventProperties: posthog.NewProperties().
			Set("cli_version", version).
			Set("os", runtime.GOOS).
			Set("arch", runtime.GOARCH),
	})
	if err != nil {
		return &NoOpClient{}
	}

	return &PostHogClient{
		client:     client,
		machineID:  id,
		cliVersion: version,
	}
}

// TrackCommand records a subcommand invocation. extra carries
// domain-specific, value-free properties the caller wants attached (e.g.
// {"tts_configured": true}); flag values and transcript content must never
// be passed here.
func (p *PostHogClient) TrackCommand(cmd *cobra.Command, extra map[string]any) {
	if cmd == nil || cmd.Hidden {
		return
	}

	p.mu.RLock()
	id := p.machineID
	c := p.client
	p.mu.RUnlock()
	if c == nil {
		return
	}

	var flags []string
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		flags = append(flags, flag.Name)
	})

	props := posthog.NewProperties().Set("command", cmd.CommandPath())
	if len(flags) > 0 {
		props.Set("flags", strings.Join(flags, ","))
	}
	for k, v := range extra {
		props.Set(k, v)
	}

	//nolint:errcheck // best-effort telemetry, failures should not affect the CLI
	_ = c.Enqueue(posthog.Capture{
		DistinctId: id,
		Event:      "cli_command_executed",
		Properties: props,
	})
}

// Close flushes pending events.
func (p *PostHogClient) Close() {
	p.mu.RLock()
	c := p.client
	p.mu.RUnlock()
	if c != nil {
		_ = c.Close()
	}
}
