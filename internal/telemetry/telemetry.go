// Package telemetry implements blameprompt's opt-in, anonymized usage
// event stream: which command ran, against which agent, with what
// strategy. It never transmits receipt content, prompt text, or file
// paths — only command shape.
package telemetry

import (
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// PostHogAPIKey and PostHogEndpoint are overridable at build time; the
// defaults point at a development project.
var (
	PostHogAPIKey   = "phc_development_key"
	PostHogEndpoint = "https://eu.i.posthog.com"
)

// OptOutEnvVar disables telemetry entirely regardless of config.
const OptOutEnvVar = "BLAMEPROMPT_TELEMETRY_OPTOUT"

// Client is the telemetry interface every command invocation uses.
type Client interface {
	TrackCommand(cmd *cobra.Command, agent string)
	Close()
}

// NoOpClient is used whenever telemetry is disabled, unconfigured, or
// couldn't initialize — never an error, always a silent fallback.
type NoOpClient struct{}

func (NoOpClient) TrackCommand(_ *cobra.Command, _ string) {}
func (NoOpClient) Close()                                  {}

type silentLogger struct{}

func (silentLogger) Logf(_ string, _ ...any)   {}
func (silentLogger) Debugf(_ string, _ ...any) {}
func (silentLogger) Warnf(_ string, _ ...any)  {}
func (silentLogger) Errorf(_ string, _ ...any) {}

// PostHogClient sends events via PostHog, with aggressively short timeouts
// so telemetry never slows down a hook invocation.
type PostHogClient struct {
	client    posthog.Client
	machineID string
	version   string
	mu        sync.RWMutex
}

// NewClient builds a Client based on the engine's telemetry preference.
// enabled == nil means "never asked" and defaults to disabled, matching
// the init flow's consent prompt semantics.
func NewClient(version string, enabled *bool) Client {
	if os.Getenv(OptOutEnvVar) != "" {
		return NoOpClient{}
	}
	if enabled == nil || !*enabled {
		return NoOpClient{}
	}

	id, err := machineid.ProtectedID("blameprompt")
	if err != nil {
		return NoOpClient{}
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
			Set("engine_version", version).
			Set("os", runtime.GOOS).
			Set("arch", runtime.GOARCH),
	})
	if err != nil {
		return NoOpClient{}
	}

	return &PostHogClient{client: client, machineID: id, version: version}
}

// TrackCommand records one command execution: its path, flag names (never
// values), and which agent it concerned.
func (p *PostHogClient) TrackCommand(cmd *cobra.Command, agent string) {
	if cmd == nil || cmd.Hidden {
		return
	}

	p.mu.RLock()
	id, c := p.machineID, p.client
	p.mu.RUnlock()
	if c == nil {
		return
	}

	var flags []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		flags = append(flags, f.Name)
	})

	if agent == "" {
		agent = "none"
	}
	props := posthog.NewProperties().
		Set("command", cmd.CommandPath()).
		Set("agent", agent)
	if len(flags) > 0 {
		props.Set("flags", strings.Join(flags, ","))
	}

	//nolint:errcheck // best-effort telemetry
	_ = c.Enqueue(posthog.Capture{DistinctId: id, Event: "blameprompt_command_executed", Properties: props})
}

// Close flushes any pending events. Bounded by the client's own
// ShutdownTimeout, so it never blocks CLI exit for long.
func (p *PostHogClient) Close() {
	p.mu.RLock()
	c := p.client
	p.mu.RUnlock()
	if c != nil {
		_ = c.Close()
	}
}
