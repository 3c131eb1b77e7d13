package transport

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/keepithuman/netconfig-automation/pkg/config"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

func TestShowRunningCommand(t *testing.T) {
	tests := []struct {
		deviceType string
		want       string
	}{
		{types.PlatformCiscoIOS, "show running-config"},
		{types.PlatformCiscoNXOS, "show running-config"},
		{types.PlatformAristaEOS, "show running-config"},
		{types.PlatformJuniperJunos, "show configuration"},
		{"something_else", "show running-config"},
	}

	for _, tt := range tests {
		if got := ShowRunningCommand(tt.deviceType); got != tt.want {
			t.Errorf("ShowRunningCommand(%q) = %q, want %q", tt.deviceType, got, tt.want)
		}
	}
}

func TestConfigSession(t *testing.T) {
	configText := "hostname sw1\n!\ninterface Gi0/1\n no shutdown\n\nend"

	ios := configSession(types.PlatformCiscoIOS, configText)
	if ios[0] != "configure terminal" {
		t.Errorf("expected configure terminal first, got %q", ios[0])
	}
	if ios[len(ios)-1] != "write memory" || ios[len(ios)-2] != "end" {
		t.Errorf("expected end + write memory tail, got %v", ios[len(ios)-2:])
	}

	junos := configSession(types.PlatformJuniperJunos, "set system host-name edge1")
	if junos[0] != "configure" {
		t.Errorf("expected configure first, got %q", junos[0])
	}
	if junos[len(junos)-1] != "commit and-quit" {
		t.Errorf("expected commit and-quit last, got %q", junos[len(junos)-1])
	}
}

func TestConfigLines(t *testing.T) {
	lines := ConfigLines("hostname sw1\n!\n\n  \ninterface Gi0/1\n no shutdown\r\n")

	want := []string{"hostname sw1", "interface Gi0/1", " no shutdown"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %v", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestConnectionParamsAddr(t *testing.T) {
	p := ConnectionParams{Host: "192.0.2.1"}
	if got := p.Addr(); got != "192.0.2.1:22" {
		t.Errorf("expected default port 22, got %q", got)
	}

	p.Port = 2222
	if got := p.Addr(); got != "192.0.2.1:2222" {
		t.Errorf("expected explicit port, got %q", got)
	}
}

func TestParamsForDevice(t *testing.T) {
	device := &types.Device{
		Name:       "sw1",
		Host:       "192.0.2.1",
		DeviceType: types.PlatformCiscoIOS,
		Port:       830,
		Username:   "admin",
		Password:   "secret",
	}
	cfg := config.TransportConfig{
		ConnectTimeout: 10 * time.Second,
		SessionTimeout: 60 * time.Second,
	}

	params := ParamsForDevice(device, cfg)

	if params.Host != "192.0.2.1" || params.Port != 830 {
		t.Errorf("unexpected target: %s:%d", params.Host, params.Port)
	}
	if params.Username != "admin" || params.Password != "secret" {
		t.Error("credentials not carried over")
	}
	if params.ConnectTimeout != 10*time.Second || params.SessionTimeout != 60*time.Second {
		t.Error("timeouts not carried over")
	}
}

func TestMockExecute(t *testing.T) {
	mock := NewMock()
	mock.RunningConfigs["192.0.2.1"] = "hostname sw1\nend\n"
	mock.ExecuteErrs["192.0.2.9"] = errors.New("connection refused")

	out, err := mock.Execute(context.Background(), ConnectionParams{Host: "192.0.2.1"}, "show running-config")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "hostname sw1") {
		t.Errorf("expected canned config, got %q", out)
	}

	if _, err := mock.Execute(context.Background(), ConnectionParams{Host: "192.0.2.9"}, "show version"); err == nil {
		t.Error("expected injected error")
	}

	if got := mock.Executes("192.0.2.1"); len(got) != 1 || got[0] != "show running-config" {
		t.Errorf("unexpected recorded commands: %v", got)
	}
}

func TestMockPushUpdatesRunningConfig(t *testing.T) {
	mock := NewMock()

	result, err := mock.PushConfig(context.Background(), ConnectionParams{Host: "192.0.2.1"}, "hostname new\nend")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.LinesApplied != 2 {
		t.Errorf("expected 2 lines applied, got %d", result.LinesApplied)
	}

	out, err := mock.Execute(context.Background(), ConnectionParams{Host: "192.0.2.1"}, "show running-config")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "hostname new") {
		t.Errorf("push should become the running config, got %q", out)
	}
}

func TestMockHonorsContext(t *testing.T) {
	mock := NewMock()
	mock.Delay = 500 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := mock.Execute(ctx, ConnectionParams{Host: "192.0.2.1"}, "show running-config")
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("cancellation took too long: %v", elapsed)
	}
}

func TestMockTracksInFlight(t *testing.T) {
	mock := NewMock()
	mock.Delay = 30 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mock.Execute(context.Background(), ConnectionParams{Host: "192.0.2.1"}, "show version")
		}()
	}
	wg.Wait()

	if mock.MaxInFlight() < 2 {
		t.Errorf("expected concurrent calls to overlap, max in flight %d", mock.MaxInFlight())
	}
	if mock.Calls() != 4 {
		t.Errorf("expected 4 calls recorded, got %d", mock.Calls())
	}
}
