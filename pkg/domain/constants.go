package domain

const (
	// Blank is the default blank tape symbol.
	Blank = "_"

	// NoInitialState is written in place of the start state name when none is set.
	NoInitialState = "no_initial_state"

	// DefaultAlphabet is written when a snapshot carries no alphabet.
	DefaultAlphabet = "ab"

	// MaxNameLength bounds state names accepted from the editor.
	MaxNameLength = 7
)
