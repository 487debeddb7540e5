package registration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
)

// DefaultDebounce is how long the checker waits after the last keystroke
// before hitting the backend.
const DefaultDebounce = 400 * time.Millisecond

// AvailabilityBackend is the slice of the backend client used for
// uniqueness checks.
type AvailabilityBackend interface {
	CheckUsername(ctx context.Context, username string) (bool, string, error)
	CheckEmail(ctx context.Context, email string) (bool, string, error)
}

// ReportFunc receives the field-level outcome of an availability check. An
// empty message clears the field error.
type ReportFunc func(field string, message string)

// AvailabilityChecker debounces username/email uniqueness checks. A newer
// keystroke supersedes (cancels) a pending check rather than queueing
// behind it. Network failures fail open: the field error is cleared, never
// set to a false "taken".
type AvailabilityChecker struct {
	backend  AvailabilityBackend
	logger   *logging.Logger
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	gens   map[string]uint64
}

func NewAvailabilityChecker(b AvailabilityBackend, logger *logging.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{
		backend:  b,
		logger:   logger,
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
		gens:     make(map[string]uint64),
	}
}

// NewAvailabilityCheckerWithDebounce shrinks the debounce window for tests.
func NewAvailabilityCheckerWithDebounce(b AvailabilityBackend, logger *logging.Logger, d time.Duration) *AvailabilityChecker {
	c := NewAvailabilityChecker(b, logger)
	c.debounce = d
	return c
}

// CheckUsername schedules a debounced uniqueness check for the username
// field, superseding any pending one.
func (c *AvailabilityChecker) CheckUsername(username string, report ReportFunc) {
	c.schedule("username", func(gen uint64) {
		available, msg, err := c.backend.CheckUsername(context.Background(), username)
		c.deliver("username", gen, available, msg, MsgUsernameTaken, err, report)
	})
}

// CheckEmail schedules a debounced uniqueness check for the email field.
func (c *AvailabilityChecker) CheckEmail(email string, report ReportFunc) {
	c.schedule("email", func(gen uint64) {
		available, msg, err := c.backend.CheckEmail(context.Background(), email)
		c.deliver("email", gen, available, msg, MsgEmailTaken, err, report)
	})
}

// Cancel drops any pending checks, called when the owning step unmounts.
// In-flight checks are left to finish but their verdicts are discarded.
func (c *AvailabilityChecker) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for field, t := range c.timers {
		t.Stop()
		delete(c.timers, field)
	}
	for field := range c.gens {
		c.gens[field]++
	}
}

// schedule arms the field's timer and bumps its generation. The generation
// travels with the closure so a superseded check that is already past its
// timer (network call in flight) cannot deliver a stale verdict.
func (c *AvailabilityChecker) schedule(field string, fn func(gen uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[field]; ok {
		t.Stop()
	}
	c.gens[field]++
	gen := c.gens[field]
	c.timers[field] = time.AfterFunc(c.debounce, func() { fn(gen) })
}

func (c *AvailabilityChecker) deliver(field string, gen uint64, available bool, msg string, takenMsg string, err error, report ReportFunc) {
	c.mu.Lock()
	stale := c.gens[field] != gen
	c.mu.Unlock()
	if stale {
		// A newer keystroke superseded this check while it was in flight.
		return
	}

	if err != nil {
		// Fail open: a check we couldn't run must not accuse the user.
		c.logger.Error(fmt.Sprintf("%s availability check failed: %v", field, err))
		report(field, "")
		return
	}
	if available {
		report(field, "")
		return
	}
	if msg == "" {
		msg = takenMsg
	}
	report(field, msg)
}
