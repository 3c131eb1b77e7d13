package transport

import (
	"context"
	"sync"
	"time"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
)

// Mock is an in-memory Gateway for tests. It never touches the
// network; responses come from the maps below, keyed by host.
type Mock struct {
	mu sync.Mutex

	// RunningConfigs holds the output Execute returns per host.
	RunningConfigs map[string]string
	// ExecuteErrs makes Execute fail for a host.
	ExecuteErrs map[string]error
	// PushErrs makes PushConfig fail for a host.
	PushErrs map[string]error
	// Delay is applied to every call before it responds.
	Delay time.Duration
	// Delays overrides Delay per host.
	Delays map[string]time.Duration

	executes    map[string][]string
	pushes      map[string][]string
	inFlight    int
	maxInFlight int
}

// NewMock creates a mock gateway with empty state
func NewMock() *Mock {
	return &Mock{
		RunningConfigs: make(map[string]string),
		ExecuteErrs:    make(map[string]error),
		PushErrs:       make(map[string]error),
		Delays:         make(map[string]time.Duration),
		executes:       make(map[string][]string),
		pushes:         make(map[string][]string),
	}
}

// Execute returns the canned running config for the host
func (m *Mock) Execute(ctx context.Context, params ConnectionParams, command string) (string, error) {
	m.begin()
	defer m.end()

	if err := m.wait(ctx, params.Host); err != nil {
		return "", neterrors.Wrap(neterrors.ErrorTypeTransport, "execute", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.executes[params.Host] = append(m.executes[params.Host], command)
	if err := m.ExecuteErrs[params.Host]; err != nil {
		return "", err
	}
	if cfg, ok := m.RunningConfigs[params.Host]; ok {
		return cfg, nil
	}
	return "hostname " + params.Host + "\nend\n", nil
}

// PushConfig records the push and makes it the host's running config
func (m *Mock) PushConfig(ctx context.Context, params ConnectionParams, configText string) (*PushResult, error) {
	m.begin()
	defer m.end()

	if err := m.wait(ctx, params.Host); err != nil {
		return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "push", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pushes[params.Host] = append(m.pushes[params.Host], configText)
	if err := m.PushErrs[params.Host]; err != nil {
		return nil, err
	}

	m.RunningConfigs[params.Host] = configText
	return &PushResult{
		LinesApplied: len(ConfigLines(configText)),
		Output:       "configuration applied",
	}, nil
}

// MaxInFlight reports the highest number of concurrent calls observed
func (m *Mock) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// Executes returns the commands Execute saw for a host
func (m *Mock) Executes(host string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executes[host]...)
}

// Pushes returns the configurations PushConfig saw for a host
func (m *Mock) Pushes(host string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pushes[host]...)
}

// Calls reports the total number of gateway calls across all hosts
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, cmds := range m.executes {
		total += len(cmds)
	}
	for _, cfgs := range m.pushes {
		total += len(cfgs)
	}
	return total
}

func (m *Mock) begin() {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()
}

func (m *Mock) end() {
	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
}

func (m *Mock) wait(ctx context.Context, host string) error {
	m.mu.Lock()
	delay := m.Delay
	if d, ok := m.Delays[host]; ok {
		delay = d
	}
	m.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
