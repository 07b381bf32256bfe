package devserver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeScheduler queues delayed callbacks until the test runs them
type fakeScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (f *fakeScheduler) schedule(_ time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, fn)
}

// flush runs queued callbacks, including ones they schedule
func (f *fakeScheduler) flush() {
	for {
		f.mu.Lock()
		if len(f.pending) == 0 {
			f.mu.Unlock()
			return
		}
		fn := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		fn()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testScript = `
goal: Test goal
starter_prompt: Say hello
warmup: 1s
reply_delay: 10ms
greeting: Hello! Where to?
steps:
  - response: Looking up events
    next: confirm
    tool: FindEvents
    args:
      month: May
      city: Sydney
    result:
      events: [Vivid Sydney]
    followup: Found Vivid Sydney
  - response: Anything else?
    next: question
farewell: Bye now
`

type harness struct {
	agent *Agent
	sched *fakeScheduler
	clock *fakeClock
	turns []string
}

func newHarness(t *testing.T, yamlScript string) *harness {
	t.Helper()
	script, err := ParseScript([]byte(yamlScript))
	require.NoError(t, err)

	h := &harness{
		sched: &fakeScheduler{},
		clock: &fakeClock{now: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	h.agent = NewAgent(script,
		WithClock(h.clock.Now),
		WithScheduler(h.sched.schedule),
		WithTurnHook(func(actor string) { h.turns = append(h.turns, actor) }),
	)
	return h
}

// warm starts a run and moves past the warmup with the greeting in place
func (h *harness) warm(t *testing.T) {
	t.Helper()
	h.agent.Start()
	h.clock.Advance(2 * time.Second)
	h.sched.flush()
}
