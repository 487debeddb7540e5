package registration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAvailability struct {
	mu        sync.Mutex
	taken     map[string]bool
	err       error
	usernames []string
	emails    []string
}

func (f *fakeAvailability) CheckUsername(ctx context.Context, username string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usernames = append(f.usernames, username)
	return !f.taken[username], "", f.err
}

func (f *fakeAvailability) CheckEmail(ctx context.Context, email string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email)
	return !f.taken[email], "", f.err
}

func (f *fakeAvailability) checkedUsernames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.usernames...)
}

type report struct {
	field string
	msg   string
}

func collectReports() (ReportFunc, chan report) {
	ch := make(chan report, 8)
	return func(field, msg string) { ch <- report{field, msg} }, ch
}

func awaitReport(t *testing.T, ch chan report) report {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for availability report")
		return report{}
	}
}

func TestAvailability_DebounceSupersedes(t *testing.T) {
	// Three rapid keystrokes: only the final value reaches the backend.
	b := &fakeAvailability{taken: map[string]bool{}}
	c := NewAvailabilityCheckerWithDebounce(b, logging.NewTestLogger(), 40*time.Millisecond)
	defer c.Cancel()

	reportFn, reports := collectReports()
	c.CheckUsername("a", reportFn)
	c.CheckUsername("am", reportFn)
	c.CheckUsername("amal", reportFn)

	r := awaitReport(t, reports)
	assert.Equal(t, "amal", b.checkedUsernames()[0])
	assert.Equal(t, report{"username", ""}, r)

	time.Sleep(80 * time.Millisecond)
	assert.Len(t, b.checkedUsernames(), 1, "superseded keystrokes must never fire")
}

// slowAvailability blocks selected values until the test releases them,
// simulating a slow network call already in flight.
type slowAvailability struct {
	taken   map[string]bool
	gates   map[string]chan struct{}
	started chan string
}

func (f *slowAvailability) CheckUsername(ctx context.Context, username string) (bool, string, error) {
	f.started <- username
	if g, ok := f.gates[username]; ok {
		<-g
	}
	return !f.taken[username], "", nil
}

func (f *slowAvailability) CheckEmail(ctx context.Context, email string) (bool, string, error) {
	return !f.taken[email], "", nil
}

func TestAvailability_SlowSupersededCheckCannotOverwriteNewerVerdict(t *testing.T) {
	// A check for an abandoned value whose network call is still in flight
	// must not deliver after a newer check has settled the field.
	release := make(chan struct{})
	b := &slowAvailability{
		taken:   map[string]bool{"taken-user": true},
		gates:   map[string]chan struct{}{"taken-user": release},
		started: make(chan string, 4),
	}
	c := NewAvailabilityCheckerWithDebounce(b, logging.NewTestLogger(), 5*time.Millisecond)
	defer c.Cancel()

	reportFn, reports := collectReports()

	c.CheckUsername("taken-user", reportFn)
	select {
	case v := <-b.started:
		require.Equal(t, "taken-user", v)
	case <-time.After(2 * time.Second):
		t.Fatal("first check never reached the backend")
	}

	// The user kept typing: a newer check completes and clears the field.
	c.CheckUsername("free-user", reportFn)
	assert.Equal(t, report{"username", ""}, awaitReport(t, reports))

	// The abandoned check finally returns "taken"; its verdict is stale.
	close(release)
	select {
	case r := <-reports:
		t.Fatalf("stale verdict delivered: %+v", r)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestAvailability_TakenValueReported(t *testing.T) {
	b := &fakeAvailability{taken: map[string]bool{"amal": true}}
	c := NewAvailabilityCheckerWithDebounce(b, logging.NewTestLogger(), 10*time.Millisecond)
	defer c.Cancel()

	reportFn, reports := collectReports()
	c.CheckUsername("amal", reportFn)
	assert.Equal(t, report{"username", MsgUsernameTaken}, awaitReport(t, reports))

	c.CheckEmail("amal", reportFn)
	assert.Equal(t, report{"email", MsgEmailTaken}, awaitReport(t, reports))
}

func TestAvailability_FailsOpenOnNetworkError(t *testing.T) {
	// A check that could not run clears the field error instead of blocking
	// the user with a false "taken".
	b := &fakeAvailability{taken: map[string]bool{"amal": true}, err: fmt.Errorf("timeout")}
	c := NewAvailabilityCheckerWithDebounce(b, logging.NewTestLogger(), 10*time.Millisecond)
	defer c.Cancel()

	reportFn, reports := collectReports()
	c.CheckUsername("amal", reportFn)
	assert.Equal(t, report{"username", ""}, awaitReport(t, reports))
}

func TestAvailability_IndependentFields(t *testing.T) {
	// Username and email debounce independently; one does not cancel the
	// other.
	b := &fakeAvailability{taken: map[string]bool{}}
	c := NewAvailabilityCheckerWithDebounce(b, logging.NewTestLogger(), 10*time.Millisecond)
	defer c.Cancel()

	var fired atomic.Int32
	reportFn := func(field, msg string) { fired.Add(1) }

	c.CheckUsername("amal", reportFn)
	c.CheckEmail("amal@example.com", reportFn)

	require.Eventually(t, func() bool { return fired.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestAvailability_CancelDropsPending(t *testing.T) {
	b := &fakeAvailability{taken: map[string]bool{}}
	c := NewAvailabilityCheckerWithDebounce(b, logging.NewTestLogger(), 30*time.Millisecond)

	reportFn, reports := collectReports()
	c.CheckUsername("amal", reportFn)
	c.Cancel()

	select {
	case r := <-reports:
		t.Fatalf("cancelled check still reported: %+v", r)
	case <-time.After(80 * time.Millisecond):
	}
	assert.Empty(t, b.checkedUsernames())
}
