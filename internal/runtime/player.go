package runtime

import (
	"context"
	"time"
)

// TickRate is the driver frequency.
const TickRate = 60

// Clocked is anything the Player can drive. Tick must apply at most one
// whole step and Playing must report false once playback stops.
type Clocked interface {
	Tick(ctx context.Context) bool
	Playing() bool
}

// Player delivers ticks to a Clocked target until it stops playing or the
// context is cancelled. Pausing only stops future ticks; a step is never
// split across ticks.
type Player struct {
	Target   Clocked
	Interval time.Duration
}

// NewPlayer creates a driver ticking at TickRate.
func NewPlayer(target Clocked) *Player {
	return &Player{
		Target:   target,
		Interval: time.Second / TickRate,
	}
}

// Run blocks while the target is playing. It returns the number of ticks
// that produced a step, and ctx.Err() if cancelled.
func (p *Player) Run(ctx context.Context) (int, error) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	steps := 0
	for p.Target.Playing() {
		select {
		case <-ctx.Done():
			return steps, ctx.Err()
		case <-ticker.C:
			if p.Target.Tick(ctx) {
				steps++
			}
		}
	}
	return steps, nil
}

// Start runs the player in a goroutine and returns a channel closed when
// it finishes.
func (p *Player) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run(ctx)
	}()
	return done
}
