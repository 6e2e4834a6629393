package certificate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/looplab/fsm"
)

// Lookup states.
const (
	StateIdle        = "idle"
	StateFetching    = "fetching"
	StateParsed      = "parsed"
	StateResolved    = "resolved"
	StateFound       = "found"
	StateRendered    = "rendered"
	StateNotFound    = "not_found"
	StateEmptyTable  = "empty_table"
	StateFetchFailed = "fetch_failed"
)

// Lookup events.
const (
	EventFetch   = "fetch"
	EventParse   = "parse"
	EventFail    = "fail"
	EventResolve = "resolve"
	EventEmpty   = "empty"
	EventMatch   = "match"
	EventMiss    = "miss"
	EventRender  = "render"
	EventReset   = "reset"
)

// Flow tracks one lookup through its states. A Flow is not reused: every lookup
// starts a new one at StateIdle.
type Flow struct {
	machine *fsm.FSM
	logger  *slog.Logger
	trail   []string
}

// NewFlow creates a Flow in StateIdle. Transitions are logged to logger at
// debug level.
func NewFlow(logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Flow{
		logger: logger,
		trail:  []string{StateIdle},
	}

	f.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventFetch, Src: []string{StateIdle}, Dst: StateFetching},
			{Name: EventParse, Src: []string{StateFetching}, Dst: StateParsed},
			{Name: EventFail, Src: []string{StateFetching}, Dst: StateFetchFailed},
			{Name: EventResolve, Src: []string{StateParsed}, Dst: StateResolved},
			{Name: EventEmpty, Src: []string{StateResolved}, Dst: StateEmptyTable},
			{Name: EventMatch, Src: []string{StateResolved}, Dst: StateFound},
			{Name: EventMiss, Src: []string{StateResolved}, Dst: StateNotFound},
			{Name: EventRender, Src: []string{StateFound}, Dst: StateRendered},
			{Name: EventReset, Src: []string{StateFetchFailed, StateEmptyTable, StateNotFound, StateRendered}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": f.onEnterState,
		},
	)
	return f
}

func (f *Flow) onEnterState(ctx context.Context, e *fsm.Event) {
	f.trail = append(f.trail, e.Dst)
	f.logger.DebugContext(ctx, "lookup transition",
		"event", e.Event,
		"from", e.Src,
		"to", e.Dst,
	)
}

// Fire applies event. An event that is not allowed from the current state is a
// programming error and is returned as such.
func (f *Flow) Fire(ctx context.Context, event string) error {
	if err := f.machine.Event(ctx, event); err != nil {
		return fmt.Errorf("lookup flow: %s from %s: %w", event, f.machine.Current(), err)
	}
	return nil
}

// Current returns the current state.
func (f *Flow) Current() string {
	return f.machine.Current()
}

// Trail returns every state visited, starting with StateIdle.
func (f *Flow) Trail() []string {
	out := make([]string, len(f.trail))
	copy(out, f.trail)
	return out
}
