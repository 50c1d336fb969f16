package instance

import (
	"context"
	"fmt"
)

// StatusServer is the worker side of the status protocol: it owns the
// InstStatus record and the two event channels, and satisfies both
// query.ProgressReporter and commands.Reporter structurally so neither
// of those packages needs to import instance.
type StatusServer struct {
	*InstStatus
	events  chan ServerEvent
	confirm chan ClientEvent
}

// NewStatusServer creates a server with the given event buffer depth.
// A small buffer lets the worker emit Log/NewState events without
// blocking on a UI that's busy rendering the previous tick.
func NewStatusServer(eventBuffer int) *StatusServer {
	return &StatusServer{
		InstStatus: &InstStatus{},
		events:     make(chan ServerEvent, eventBuffer),
		confirm:    make(chan ClientEvent),
	}
}

// Events is the channel the UI reads server events from.
func (s *StatusServer) Events() <-chan ServerEvent {
	return s.events
}

// Close signals the UI's event-reading goroutine to stop once it has
// drained every event the worker already sent. Callers must only call
// Close after the worker's Run has returned.
func (s *StatusServer) Close() {
	close(s.events)
}

// SendConfirmResponse is the UI's half of the confirm round-trip.
func (s *StatusServer) SendConfirmResponse(yes bool) {
	s.confirm <- ClientEvent{ConfirmResponse: &yes}
}

func (s *StatusServer) emit(ev ServerEvent) {
	if ev.Log != nil {
		vlogLevel(ev.Log.Level, ev.Log.Text)
	}
	s.events <- ev
}

// Logf emits a Log event at the given level.
func (s *StatusServer) Logf(level LogLevel, format string, args ...interface{}) {
	s.emit(logEvent(level, fmt.Sprintf(format, args...)))
}

// transition moves to st, updates the shared record, and forces an
// event so the UI can draw start/end markers without polling.
func (s *StatusServer) transition(st State) {
	s.setState(st)
	s.emit(stateEvent(st))
}

// RequestConfirm asks the operator to confirm before the first
// mutation, unless skip (the --yes flag) is set. It blocks on the
// client channel (or ctx's cancellation); any response other than
// "yes" aborts the command.
func (s *StatusServer) RequestConfirm(ctx context.Context, skip bool, prompt string) bool {
	if skip {
		return true
	}
	s.emit(ServerEvent{ConfirmRequest: &ConfirmRequestEvent{Prompt: prompt}})
	select {
	case resp := <-s.confirm:
		return resp.ConfirmResponse != nil && *resp.ConfirmResponse
	case <-ctx.Done():
		return false
	}
}

// --- query.ProgressReporter ---

func (s *StatusServer) BeginQuerying() {
	s.mu.Lock()
	s.blocksTotal, s.blocksDone, s.blocksFailed = 0, 0, 0
	s.showProgress = true
	s.mu.Unlock()
	s.transition(StateQuerying)
}

func (s *StatusServer) SetTotal(n int) {
	s.mu.Lock()
	s.blocksTotal = n
	s.mu.Unlock()
}

func (s *StatusServer) EndQuerying() {}

// --- commands.Reporter ---

func (s *StatusServer) BeginEditing() {
	s.mu.Lock()
	s.blocksDone, s.blocksFailed = 0, 0
	s.mu.Unlock()
	s.transition(StateEditing)
}

func (s *StatusServer) EndEditing() {
	s.transition(StateIdle)
}

func (s *StatusServer) BlockDone() {
	s.mu.Lock()
	s.blocksDone++
	s.mu.Unlock()
}

func (s *StatusServer) BlockFailed() {
	s.mu.Lock()
	s.blocksFailed++
	s.mu.Unlock()
}

// SuppressProgress turns off the progress bar for commands with no
// per-block loop (vacuum).
func (s *StatusServer) SuppressProgress() {
	s.mu.Lock()
	s.showProgress = false
	s.mu.Unlock()
}
