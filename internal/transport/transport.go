package transport

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/keepithuman/netconfig-automation/pkg/config"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// ConnectionParams carries everything needed to reach one device.
// Credentials ride along so a gateway never has to look anything up
// mid-connection.
type ConnectionParams struct {
	DeviceType string
	Host       string
	Port       int
	Username   string
	Password   string

	ConnectTimeout time.Duration
	AuthTimeout    time.Duration
	SessionTimeout time.Duration
	BannerTimeout  time.Duration
	CommandTimeout time.Duration
}

// Addr returns the host:port dial target, defaulting the port to 22
func (p ConnectionParams) Addr() string {
	port := p.Port
	if port == 0 {
		port = types.DefaultSSHPort
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// ParamsForDevice builds connection parameters for a device using the
// configured timeouts
func ParamsForDevice(device *types.Device, cfg config.TransportConfig) ConnectionParams {
	return ConnectionParams{
		DeviceType:     device.DeviceType,
		Host:           device.Host,
		Port:           device.Port,
		Username:       device.Username,
		Password:       device.Password,
		ConnectTimeout: cfg.ConnectTimeout,
		AuthTimeout:    cfg.AuthTimeout,
		SessionTimeout: cfg.SessionTimeout,
		BannerTimeout:  cfg.BannerTimeout,
		CommandTimeout: cfg.CommandTimeout,
	}
}

// PushResult describes a completed configuration push
type PushResult struct {
	LinesApplied int
	Output       string
}

// Gateway executes commands and pushes configurations on remote
// devices. Implementations open a fresh connection per call; nothing
// is pooled across devices.
type Gateway interface {
	// Execute runs a single read command and returns its output.
	Execute(ctx context.Context, params ConnectionParams, command string) (string, error)

	// PushConfig applies a rendered configuration and persists it.
	PushConfig(ctx context.Context, params ConnectionParams, configText string) (*PushResult, error)
}

// dialect holds the per-platform command vocabulary
type dialect struct {
	showRunning string
	enterConfig string
	exitConfig  []string
}

var dialects = map[string]dialect{
	types.PlatformCiscoIOS: {
		showRunning: "show running-config",
		enterConfig: "configure terminal",
		exitConfig:  []string{"end", "write memory"},
	},
	types.PlatformCiscoNXOS: {
		showRunning: "show running-config",
		enterConfig: "configure terminal",
		exitConfig:  []string{"end", "copy running-config startup-config"},
	},
	types.PlatformAristaEOS: {
		showRunning: "show running-config",
		enterConfig: "configure terminal",
		exitConfig:  []string{"end", "write memory"},
	},
	types.PlatformJuniperJunos: {
		showRunning: "show configuration",
		enterConfig: "configure",
		exitConfig:  []string{"commit and-quit"},
	},
}

// ShowRunningCommand returns the running-config retrieval command for
// a device type, falling back to the IOS form for unknown platforms
func ShowRunningCommand(deviceType string) string {
	if d, ok := dialects[deviceType]; ok {
		return d.showRunning
	}
	return "show running-config"
}

// configSession returns the full command sequence that applies the
// given configuration lines on a platform
func configSession(deviceType, configText string) []string {
	d, ok := dialects[deviceType]
	if !ok {
		d = dialects[types.PlatformCiscoIOS]
	}

	commands := []string{d.enterConfig}
	commands = append(commands, ConfigLines(configText)...)
	commands = append(commands, d.exitConfig...)
	return commands
}

// ConfigLines splits a configuration into the lines worth sending,
// dropping blanks and comment markers
func ConfigLines(configText string) []string {
	var lines []string
	for _, raw := range strings.Split(configText, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "!" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
