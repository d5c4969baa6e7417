package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedrunner/feedrunner/internal/store"
)

// stubSource implements PluginSource over a fixed slice, preserving
// slice order as registration order.
type stubSource struct {
	plugins []PluginInfo
}

func (s *stubSource) PluginsForEvent(event Event) []PluginInfo {
	var out []PluginInfo
	for _, p := range s.plugins {
		if p.HandlesEvent(event) {
			out = append(out, p)
		}
	}
	return out
}

func (s *stubSource) Plugin(name string) (PluginInfo, bool) {
	for _, p := range s.plugins {
		if p.Name == name {
			return p, true
		}
	}
	return PluginInfo{}, false
}

// stubSink implements FailedSink, recording calls.
type stubSink struct {
	entries []*Entry
	reasons []string
}

func (s *stubSink) AddFailed(e *Entry, reason string) {
	s.entries = append(s.entries, e)
	s.reasons = append(s.reasons, reason)
}

// validatingHandler pairs a HandlerFunc with a ConfigValidator.
type validatingHandler struct {
	handle func(ctx context.Context, event Event, f *Feed) error
	issues []ValidationIssue
}

func (h *validatingHandler) Handle(ctx context.Context, event Event, f *Feed) error {
	if h.handle == nil {
		return nil
	}
	return h.handle(ctx, event, f)
}

func (h *validatingHandler) ValidateConfig(config any) []ValidationIssue {
	return h.issues
}

func newTestFeed(config Config, plugins ...PluginInfo) *Feed {
	return New("testfeed", config, Dependencies{
		Plugins:    &stubSource{plugins: plugins},
		CacheStore: store.NewMemoryCacheStore(),
		Options:    Options{Quiet: true},
		Logger:     setupTestLogger(),
	})
}

func namedPlugin(name string, builtin bool, events []Event, priorities map[Event]int, fn func(ctx context.Context, event Event, f *Feed) error) PluginInfo {
	return PluginInfo{
		Name:       name,
		Builtin:    builtin,
		Events:     events,
		Priorities: priorities,
		Handler:    &validatingHandler{handle: fn},
	}
}

func TestDispatchOrder_DescendingPriority(t *testing.T) {
	var order []string
	record := func(name string) func(ctx context.Context, event Event, f *Feed) error {
		return func(ctx context.Context, event Event, f *Feed) error {
			order = append(order, name)
			return nil
		}
	}

	f := newTestFeed(
		Config{"A": true, "B": true},
		namedPlugin("B", false, []Event{EventFilter}, map[Event]int{EventFilter: 1}, record("B")),
		namedPlugin("A", false, []Event{EventFilter}, map[Event]int{EventFilter: 5}, record("A")),
	)
	f.runEvent(context.Background(), EventFilter, false)

	assert.Equal(t, []string{"A", "B"}, order)
}

func TestDispatchOrder_ConfiguredOverrideWins(t *testing.T) {
	var order []string
	record := func(name string) func(ctx context.Context, event Event, f *Feed) error {
		return func(ctx context.Context, event Event, f *Feed) error {
			order = append(order, name)
			return nil
		}
	}

	// B's declared default loses to A, but the feed boosts B above it.
	f := newTestFeed(
		Config{
			"A": true,
			"B": map[string]any{"priority": 10},
		},
		namedPlugin("A", false, []Event{EventFilter}, map[Event]int{EventFilter: 5}, record("A")),
		namedPlugin("B", false, []Event{EventFilter}, map[Event]int{EventFilter: 1}, record("B")),
	)
	f.runEvent(context.Background(), EventFilter, false)

	assert.Equal(t, []string{"B", "A"}, order)
}

func TestDispatchOrder_TiesKeepRegistrationOrder(t *testing.T) {
	var order []string
	record := func(name string) func(ctx context.Context, event Event, f *Feed) error {
		return func(ctx context.Context, event Event, f *Feed) error {
			order = append(order, name)
			return nil
		}
	}

	f := newTestFeed(
		Config{"x": true, "y": true, "z": true},
		namedPlugin("x", false, []Event{EventFilter}, nil, record("x")),
		namedPlugin("y", false, []Event{EventFilter}, nil, record("y")),
		namedPlugin("z", false, []Event{EventFilter}, nil, record("z")),
	)
	f.runEvent(context.Background(), EventFilter, false)

	assert.Equal(t, []string{"x", "y", "z"}, order)
}

func TestDispatch_SkipsUnconfiguredNonBuiltin(t *testing.T) {
	var ran []string
	record := func(name string) func(ctx context.Context, event Event, f *Feed) error {
		return func(ctx context.Context, event Event, f *Feed) error {
			ran = append(ran, name)
			return nil
		}
	}

	f := newTestFeed(
		Config{"configured": true},
		namedPlugin("configured", false, []Event{EventFilter}, nil, record("configured")),
		namedPlugin("unconfigured", false, []Event{EventFilter}, nil, record("unconfigured")),
		namedPlugin("builtin", true, []Event{EventFilter}, nil, record("builtin")),
	)
	f.runEvent(context.Background(), EventFilter, false)

	assert.Equal(t, []string{"configured", "builtin"}, ran)
}

func TestClassification_FilterThenAcceptSurvivesEvent(t *testing.T) {
	e := NewEntryValues("rescued", "http://example.com/r")

	input := namedPlugin("in", true, []Event{EventInput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			f.AddEntry(e)
			return nil
		})
	filterer := namedPlugin("filterer", true, []Event{EventFilter}, map[Event]int{EventFilter: 10},
		func(ctx context.Context, event Event, f *Feed) error {
			f.Filter(e, "not wanted")
			return nil
		})
	rescuer := namedPlugin("rescuer", true, []Event{EventFilter}, map[Event]int{EventFilter: 1},
		func(ctx context.Context, event Event, f *Feed) error {
			f.Accept(e, "wanted after all")
			return nil
		})

	f := newTestFeed(Config{}, input, filterer, rescuer)
	require.NoError(t, f.Execute(context.Background()))

	assert.Contains(t, f.Entries(), e)
	assert.Contains(t, f.Accepted(), e)
	assert.NotContains(t, f.Filtered(), e)
	assert.Equal(t, 0, f.Purged())
}

func TestClassification_FilteredWithoutAcceptIsPurged(t *testing.T) {
	e := NewEntryValues("unwanted", "http://example.com/u")

	input := namedPlugin("in", true, []Event{EventInput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			f.AddEntry(e)
			return nil
		})
	filterer := namedPlugin("filterer", true, []Event{EventFilter}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			f.Filter(e, "not wanted")
			return nil
		})

	f := newTestFeed(Config{}, input, filterer)
	require.NoError(t, f.Execute(context.Background()))

	assert.NotContains(t, f.Entries(), e)
	assert.Contains(t, f.Filtered(), e)
	assert.Equal(t, 1, f.Purged())
}

func TestClassification_RejectBeatsAccept(t *testing.T) {
	acceptedFirst := NewEntryValues("accepted first", "http://example.com/1")
	rejectedFirst := NewEntryValues("rejected first", "http://example.com/2")

	input := namedPlugin("in", true, []Event{EventInput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			f.AddEntry(acceptedFirst)
			f.AddEntry(rejectedFirst)
			return nil
		})
	classifier := namedPlugin("classifier", true, []Event{EventFilter}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			f.Accept(acceptedFirst, "")
			f.Reject(acceptedFirst, "rejected anyway")
			f.Reject(rejectedFirst, "rejected")
			f.Accept(rejectedFirst, "accepted anyway")
			return nil
		})

	f := newTestFeed(Config{}, input, classifier)
	require.NoError(t, f.Execute(context.Background()))

	// Rejection is permanent regardless of ordering against accept.
	assert.Empty(t, f.Entries())
	assert.Len(t, f.Rejected(), 2)
	assert.Equal(t, 0, f.Purged(), "rejected purge does not count")
}

func TestClassification_Idempotence(t *testing.T) {
	e := NewEntryValues("e", "http://example.com/e")
	f := newTestFeed(Config{})

	f.entries = append(f.entries, e)
	f.Filter(e, "a")
	f.Filter(e, "b")
	assert.Len(t, f.Filtered(), 1)

	f.Accept(e, "a")
	f.Accept(e, "b")
	assert.Len(t, f.Accepted(), 1)
	assert.Empty(t, f.Filtered(), "accept removes the filtered marking")

	f.Reject(e, "a")
	f.Reject(e, "b")
	assert.Len(t, f.Rejected(), 1)
}

func TestFail_NotifiesSinkAndPurges(t *testing.T) {
	e := NewEntryValues("broken", "http://example.com/b")
	sink := &stubSink{}

	input := namedPlugin("in", true, []Event{EventInput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			f.AddEntry(e)
			f.Fail(e, "download blew up")
			return nil
		})

	f := New("testfeed", Config{}, Dependencies{
		Plugins:    &stubSource{plugins: []PluginInfo{input}},
		CacheStore: store.NewMemoryCacheStore(),
		FailedSink: sink,
		Options:    Options{Quiet: true},
		Logger:     setupTestLogger(),
	})
	require.NoError(t, f.Execute(context.Background()))

	assert.NotContains(t, f.Entries(), e)
	assert.Contains(t, f.Failed(), e)
	require.Len(t, sink.entries, 1)
	assert.Same(t, e, sink.entries[0])
	assert.Equal(t, "download blew up", sink.reasons[0])
}

func TestUnhandledErrorAbortsFeed(t *testing.T) {
	var laterEvents []Event

	boom := namedPlugin("boom", true, []Event{EventInput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			return errors.New("kaboom")
		})
	later := namedPlugin("later", true, []Event{EventFilter, EventOutput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			laterEvents = append(laterEvents, event)
			return nil
		})

	f := newTestFeed(Config{}, boom, later)
	err := f.Execute(context.Background())

	assert.ErrorIs(t, err, ErrAborted)
	assert.True(t, f.Aborted())
	assert.Empty(t, laterEvents, "no subsequent event may run after an abort")
}

func TestWarningContinuesDispatch(t *testing.T) {
	var ran []string

	warner := namedPlugin("warner", true, []Event{EventFilter}, map[Event]int{EventFilter: 10},
		func(ctx context.Context, event Event, f *Feed) error {
			ran = append(ran, "warner")
			return NewWarning("source unreachable, skipping")
		})
	next := namedPlugin("next", true, []Event{EventFilter}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			ran = append(ran, "next")
			return nil
		})

	f := newTestFeed(Config{}, warner, next)
	require.NoError(t, f.Execute(context.Background()))

	assert.False(t, f.Aborted())
	assert.Equal(t, []string{"warner", "next"}, ran)
}

func TestWrappedWarningRecognized(t *testing.T) {
	wrapped := namedPlugin("wrapped", true, []Event{EventFilter}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			return errorsJoinWrap(NewWarning("inner condition"))
		})

	f := newTestFeed(Config{}, wrapped)
	require.NoError(t, f.Execute(context.Background()))
	assert.False(t, f.Aborted())
}

// errorsJoinWrap wraps a warning the way plugins usually do.
func errorsJoinWrap(err error) error {
	return errors.Join(errors.New("while filtering"), err)
}

func TestAbortEventRunsEveryPluginOnce(t *testing.T) {
	var abortRuns []string

	cleanup1 := namedPlugin("cleanup1", true, []Event{EventAbort}, map[Event]int{EventAbort: 10},
		func(ctx context.Context, event Event, f *Feed) error {
			abortRuns = append(abortRuns, "cleanup1")
			return nil
		})
	cleanup2 := namedPlugin("cleanup2", true, []Event{EventAbort}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			abortRuns = append(abortRuns, "cleanup2")
			return nil
		})

	f := newTestFeed(Config{}, cleanup1, cleanup2)
	f.Abort(context.Background(), false)
	f.Abort(context.Background(), false) // idempotent

	assert.True(t, f.Aborted())
	assert.Equal(t, []string{"cleanup1", "cleanup2"}, abortRuns)
}

func TestTerminate(t *testing.T) {
	var terminated int
	term := namedPlugin("term", true, []Event{EventTerminate}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			terminated++
			return nil
		})

	f := newTestFeed(Config{}, term)
	f.Terminate(context.Background())
	assert.Equal(t, 1, terminated)

	// Terminate is a no-op on aborted feeds.
	aborted := newTestFeed(Config{}, term)
	aborted.Abort(context.Background(), true)
	terminated = 0
	aborted.Terminate(context.Background())
	assert.Equal(t, 0, terminated)
}

func TestValidate_UnknownKeyword(t *testing.T) {
	var dispatched int
	known := namedPlugin("known", false, []Event{EventFilter}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			dispatched++
			return nil
		})

	f := newTestFeed(Config{"nosuch": true, "known": true}, known)
	issues := f.Validate(context.Background())

	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0].String(), "nosuch")
	assert.True(t, f.Aborted())

	err := f.Execute(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 0, dispatched, "no event dispatch after validation failure")
}

func TestValidate_PluginIssuesCollected(t *testing.T) {
	bad := PluginInfo{
		Name:   "bad",
		Events: []Event{EventFilter},
		Handler: &validatingHandler{
			issues: []ValidationIssue{{Message: "days must be positive", Path: "days", Value: -1}},
		},
	}

	f := newTestFeed(Config{"bad": map[string]any{"days": -1}}, bad)
	issues := f.Validate(context.Background())

	require.Len(t, issues, 1)
	assert.Equal(t, "bad", issues[0].Keyword)
	assert.Contains(t, issues[0].String(), "days must be positive")
	assert.True(t, f.Aborted())
}

func TestValidate_NoValidatorIsNotAnError(t *testing.T) {
	plain := PluginInfo{
		Name:   "plain",
		Events: []Event{EventFilter},
		Handler: HandlerFunc(func(ctx context.Context, event Event, f *Feed) error {
			return nil
		}),
	}

	f := newTestFeed(Config{"plain": true}, plain)
	issues := f.Validate(context.Background())

	assert.Empty(t, issues)
	assert.False(t, f.Aborted())
}

func TestExecute_CheckOnlySkipsEvents(t *testing.T) {
	var dispatched int
	p := namedPlugin("p", true, []Event{EventInput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			dispatched++
			return nil
		})

	f := New("testfeed", Config{}, Dependencies{
		Plugins:    &stubSource{plugins: []PluginInfo{p}},
		CacheStore: store.NewMemoryCacheStore(),
		Options:    Options{Quiet: true, CheckOnly: true},
		Logger:     setupTestLogger(),
	})
	require.NoError(t, f.Execute(context.Background()))
	assert.Equal(t, 0, dispatched)
}

func TestExecute_LearnSkipsMutatingEvents(t *testing.T) {
	var events []Event
	p := namedPlugin("p", true, []Event{EventInput, EventDownload, EventOutput, EventExit}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			events = append(events, event)
			return nil
		})

	f := New("testfeed", Config{}, Dependencies{
		Plugins:    &stubSource{plugins: []PluginInfo{p}},
		CacheStore: store.NewMemoryCacheStore(),
		Options:    Options{Quiet: true, Learn: true},
		Logger:     setupTestLogger(),
	})
	require.NoError(t, f.Execute(context.Background()))

	assert.Equal(t, []Event{EventInput, EventExit}, events)
}

func TestPluginCacheNamespaceFollowsPlugin(t *testing.T) {
	var namespaces []string
	p1 := namedPlugin("alpha", true, []Event{EventInput}, map[Event]int{EventInput: 2},
		func(ctx context.Context, event Event, f *Feed) error {
			namespaces = append(namespaces, f.Cache().Namespace(), f.SharedCache().Namespace())
			return nil
		})
	p2 := namedPlugin("beta", true, []Event{EventInput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			namespaces = append(namespaces, f.Cache().Namespace(), f.SharedCache().Namespace())
			return nil
		})

	f := newTestFeed(Config{}, p1, p2)
	f.runEvent(context.Background(), EventInput, false)

	assert.Equal(t, []string{"alpha", "alpha", "beta", "beta"}, namespaces)
}

func TestLogOnce_SuppressesRepeats(t *testing.T) {
	backend := store.NewMemoryCacheStore()
	f := New("testfeed", Config{}, Dependencies{
		Plugins:    &stubSource{},
		CacheStore: backend,
		Options:    Options{Quiet: true},
		Logger:     setupTestLogger(),
	})
	ctx := context.Background()
	require.NoError(t, f.sharedCache.SetNamespace(ctx, "someplugin"))

	f.LogOnce(ctx, "recurring condition")
	f.LogOnce(ctx, "recurring condition")

	keys, err := backend.Keys(ctx, SharedScope, "someplugin")
	require.NoError(t, err)
	require.Len(t, keys, 1, "one digest marker for the repeated message")
	assert.Contains(t, keys[0], "log-")
}

func TestInputURL(t *testing.T) {
	f := newTestFeed(Config{
		"shorthand":  "http://example.com/feed",
		"structured": map[string]any{"url": "http://example.com/other"},
		"broken":     map[string]any{"nourl": true},
	})

	u, err := f.InputURL("shorthand")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/feed", u)

	u, err = f.InputURL("structured")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/other", u)

	_, err = f.InputURL("broken")
	assert.ErrorIs(t, err, ErrInvalidInputConfig)

	_, err = f.InputURL("absent")
	assert.Error(t, err)
}

func TestDetailsOutput(t *testing.T) {
	var buf testBuffer
	e := NewEntryValues("shown", "http://example.com/s")

	input := namedPlugin("in", true, []Event{EventInput}, nil,
		func(ctx context.Context, event Event, f *Feed) error {
			f.AddEntry(e)
			f.Accept(e, "looks good")
			return nil
		})

	f := New("testfeed", Config{}, Dependencies{
		Plugins:    &stubSource{plugins: []PluginInfo{input}},
		CacheStore: store.NewMemoryCacheStore(),
		Options:    Options{Quiet: true, Details: true},
		Logger:     setupTestLogger(),
		DetailsOut: &buf,
	})
	require.NoError(t, f.Execute(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "Accepted shown")
	assert.Contains(t, out, "(looks good)")
	assert.Contains(t, out, "input")
}

// testBuffer is a minimal io.Writer collecting output.
type testBuffer struct {
	data []byte
}

func (b *testBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *testBuffer) String() string { return string(b.data) }
