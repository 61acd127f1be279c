package domain

import "errors"

// ErrStateNotFound is returned when a state id or name does not resolve.
var ErrStateNotFound = errors.New("state not found")

// ErrTransitionNotFound is returned when a transition id does not resolve.
var ErrTransitionNotFound = errors.New("transition not found")

// ErrNameTaken is returned when a state name collides with another state.
var ErrNameTaken = errors.New("state name already in use")

// ErrInvalidName is returned for empty state names.
var ErrInvalidName = errors.New("invalid state name")

// ErrInvalidSymbol is returned for empty or whitespace tape symbols and unknown directions.
var ErrInvalidSymbol = errors.New("invalid symbol")

// ErrNoStartState is returned when run mode is requested without a start state.
var ErrNoStartState = errors.New("no initial state")

// ErrStepOutOfRange is returned when seeking outside the recorded step history.
var ErrStepOutOfRange = errors.New("step out of range")

// ErrRunModeActive is returned when an edit is attempted while the machine is running.
var ErrRunModeActive = errors.New("machine is in run mode")

// ErrNotInRunMode is returned when a simulation call is made in edit mode.
var ErrNotInRunMode = errors.New("machine is not in run mode")

// ErrMalformedMachine is returned when a persisted machine cannot be reconstructed.
var ErrMalformedMachine = errors.New("malformed machine")

// ErrMachineNotFound is returned when a machine ID cannot be found in the store.
var ErrMachineNotFound = errors.New("machine not found")

// ErrStepLimit is returned when a headless run exceeds its step budget.
var ErrStepLimit = errors.New("step limit reached")

// ErrNothingToUndo is returned by Undo on an empty or fully undone log.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrNothingToRedo is returned by Redo when the cursor is at the end of the log.
var ErrNothingToRedo = errors.New("nothing to redo")

// ErrDuplicateID is returned when a replayed entity id is already live.
var ErrDuplicateID = errors.New("entity id already in use")
