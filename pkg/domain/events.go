package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStep EventType = "step"
	EventHalt EventType = "halt"
	EventSeek EventType = "seek"
	EventEdit EventType = "edit"
	EventUndo EventType = "undo"
)

// HaltOutcome classifies how a run ended.
type HaltOutcome string

const (
	HaltNone       HaltOutcome = ""
	HaltSuccessful HaltOutcome = "successful"
	HaltFailed     HaltOutcome = "failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// StepEvent is emitted after a forward or backward step.
type StepEvent struct {
	EventBase
	Step         int    `json:"step"`
	StateID      int    `json:"state_id"`
	TransitionID int    `json:"transition_id,omitempty"`
	Head         int    `json:"head"`
	Backward     bool   `json:"backward,omitempty"`
	Symbol       string `json:"symbol"`
}

// HaltEvent is emitted when a forward step finds no matching transition.
type HaltEvent struct {
	EventBase
	Step    int         `json:"step"`
	StateID int         `json:"state_id"`
	Outcome HaltOutcome `json:"outcome"`
}

// EditEvent is emitted for every recorded edit and every undo/redo replay.
type EditEvent struct {
	EventBase
	Kind     string `json:"kind"`
	FromUndo bool   `json:"from_undo,omitempty"`
	Redo     bool   `json:"redo,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStep func(context.Context, *StepEvent)
	OnHalt func(context.Context, *HaltEvent)
	OnSeek func(context.Context, *StepEvent)
	OnEdit func(context.Context, *EditEvent)
	OnUndo func(context.Context, *EditEvent)
}

// Merge returns hooks that call h first and then o for every callback.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStep: chain(h.OnStep, o.OnStep),
		OnHalt: chain(h.OnHalt, o.OnHalt),
		OnSeek: chain(h.OnSeek, o.OnSeek),
		OnEdit: chain(h.OnEdit, o.OnEdit),
		OnUndo: chain(h.OnUndo, o.OnUndo),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
