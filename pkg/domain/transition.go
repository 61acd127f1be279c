package domain

import "fmt"

// Direction is the head motion applied after a write.
type Direction string

const (
	Left  Direction = "L"
	Right Direction = "R"
)

// ParseDirection accepts "L"/"R" in either case.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "L", "l":
		return Left, nil
	case "R", "r":
		return Right, nil
	}
	return "", fmt.Errorf("%w: direction %q", ErrInvalidSymbol, s)
}

// Opposite returns the reverse motion.
func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// DefaultAnchor is the anchor offset given to non-loop transitions when the
// editor supplies none.
var DefaultAnchor = Vec2{X: 20, Y: 20}

// DefaultLoopAnchor is used for self-loops created without an editor gesture.
var DefaultLoopAnchor = Vec2{X: 0, Y: 60}

// Transition is a directed, labeled edge between two states.
type Transition struct {
	ID        int       `json:"id"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Direction Direction `json:"direction"`
	Read      string    `json:"read"`
	Write     string    `json:"write"`
	Anchor    Vec2      `json:"anchor"`
}

// IsLoop reports whether the transition starts and ends on the same state.
func (t Transition) IsLoop() bool {
	return t.From == t.To
}
