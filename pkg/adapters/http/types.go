package http

import (
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
)

// The request and response bodies below follow the schemas of the same
// name in api/openapi.yaml.

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Created answers POST /machines.
type Created struct {
	ID string `json:"id"`
}

// StepResult answers POST /machines/{id}/step.
type StepResult struct {
	Moved   bool               `json:"moved"`
	Outcome domain.HaltOutcome `json:"outcome,omitempty"`
	View    machine.View       `json:"view"`
}

// BackResult answers POST /machines/{id}/back and a normalized seek.
type BackResult struct {
	AtStart bool         `json:"at_start"`
	View    machine.View `json:"view"`
}

// ReplayResult answers undo and redo.
type ReplayResult struct {
	Kind string       `json:"kind"`
	View machine.View `json:"view"`
}

// SeekRequest holds exactly one of Step or T.
type SeekRequest struct {
	Step *int     `json:"step,omitempty"`
	T    *float64 `json:"t,omitempty"`
}

type NewState struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type StatePatch struct {
	Name  *string  `json:"name,omitempty"`
	Final *bool    `json:"final,omitempty"`
	Start *bool    `json:"start,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
}

type NewTransition struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Read  string `json:"read"`
	Write string `json:"write"`
	Dir   string `json:"dir"`
}

type TransitionPatch struct {
	Read    *string  `json:"read,omitempty"`
	Write   *string  `json:"write,omitempty"`
	Dir     *string  `json:"dir,omitempty"`
	AnchorX *float64 `json:"anchor_x,omitempty"`
	AnchorY *float64 `json:"anchor_y,omitempty"`
}

type TapeRequest struct {
	Tape string `json:"tape"`
}
