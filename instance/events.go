package instance

import "v.io/x/lib/vlog"

// LogLevel mirrors the handful of severities the UI distinguishes when
// rendering a Log event.
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogWarning
	LogError
)

// ServerEvent is one item on the worker→UI channel. Exactly one field
// is meaningful per event; which one is implied by the zero values of
// the others (NewState's zero value, StateIdle, never doubles as "no
// state change" because every transition is sent explicitly).
type ServerEvent struct {
	Log            *LogEvent
	NewState       *State
	ConfirmRequest *ConfirmRequestEvent
}

// LogEvent carries one rendered line for the UI's log pane.
type LogEvent struct {
	Level LogLevel
	Text  string
}

// ConfirmRequestEvent asks the UI to prompt the operator before the
// worker performs its first mutation. Prompt carries the ArgWarning
// message when validation warned, and otherwise a line naming the
// command and the map it is about to edit.
type ConfirmRequestEvent struct {
	Prompt string
}

// ClientEvent is one item on the UI→worker channel.
type ClientEvent struct {
	ConfirmResponse *bool
}

func logEvent(level LogLevel, text string) ServerEvent {
	return ServerEvent{Log: &LogEvent{Level: level, Text: text}}
}

func stateEvent(st State) ServerEvent {
	s := st
	return ServerEvent{NewState: &s}
}

// vlogLevel mirrors a LogEvent into the process-wide vlog stream, the
// way every other command in this codebase reports operational detail.
func vlogLevel(level LogLevel, text string) {
	switch level {
	case LogError:
		vlog.Error(text)
	case LogWarning:
		vlog.Info(text)
	default:
		vlog.VI(1).Info(text)
	}
}
