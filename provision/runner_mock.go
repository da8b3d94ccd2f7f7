package provision

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"faunasetup/model"
	"faunasetup/plugins/fauna"
)

// MockResponse is one scripted answer of MockRunner.
type MockResponse struct {
	Result model.CommandResult
	Err    error
}

// Succeed scripts a zero exit status with the given stdout.
func Succeed(stdout string) MockResponse {
	return MockResponse{Result: model.CommandResult{Stdout: []byte(stdout)}}
}

// Fail scripts a non-zero exit status with the given stderr.
func Fail(exitCode int, stderr string) MockResponse {
	return MockResponse{Result: model.CommandResult{ExitCode: exitCode, Stderr: []byte(stderr)}}
}

// MockRunner simulates the fauna CLI for testing
type MockRunner struct {
	mu        sync.Mutex
	responses map[string][]MockResponse // command line -> queued responses
	served    map[string]int

	// Capture calls for verification
	calls []string
}

// NewMockRunner creates a new mock runner with no scripted commands
func NewMockRunner() *MockRunner {
	return &MockRunner{
		responses: make(map[string][]MockResponse),
		served:    make(map[string]int),
	}
}

// On queues responses for a command line such as "fauna create-key fensak".
// Once the queue is drained the last response keeps being served.
func (m *MockRunner) On(cmdLine string, responses ...MockResponse) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[cmdLine] = append(m.responses[cmdLine], responses...)
	return m
}

func (m *MockRunner) Run(_ context.Context, name string, args ...string) (model.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmdLine := fauna.CommandLine(name, args...)
	m.calls = append(m.calls, cmdLine)

	queue := m.responses[cmdLine]
	if len(queue) == 0 {
		return model.CommandResult{ExitCode: -1}, fmt.Errorf("mock runner: unexpected command %q", cmdLine)
	}
	i := m.served[cmdLine]
	if i >= len(queue) {
		i = len(queue) - 1
	}
	m.served[cmdLine]++
	return queue[i].Result, queue[i].Err
}

// GetCalls returns every command line run so far, in order
func (m *MockRunner) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.calls...)
}

// CallCount returns how many times cmdLine was run
func (m *MockRunner) CallCount(cmdLine string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		if c == cmdLine {
			n++
		}
	}
	return n
}

// MockClock is a clock whose waits return immediately and are recorded.
type MockClock struct {
	clock.Clock

	mu    sync.Mutex
	now   time.Time
	waits []time.Duration

	// Blocking makes every wait hang, so only a cancelled context can end it.
	Blocking bool
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{Clock: clock.WallClock, now: now}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *MockClock) After(d time.Duration) <-chan time.Time {
	return c.NewTimer(d).Chan()
}

func (c *MockClock) NewTimer(d time.Duration) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	if !c.Blocking {
		c.now = c.now.Add(d)
		ch <- c.now
	}
	return &mockTimer{ch: ch}
}

// GetWaits returns the durations of every wait requested so far
func (c *MockClock) GetWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.waits...)
}

type mockTimer struct {
	ch chan time.Time
}

func (t *mockTimer) Chan() <-chan time.Time { return t.ch }
func (t *mockTimer) Reset(time.Duration) bool { return false }
func (t *mockTimer) Stop() bool { return false }
