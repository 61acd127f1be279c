package turing_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/turing"
	"github.com/aretw0/turing/pkg/domain"
)

// ExampleOpenFile runs a machine file to completion.
func ExampleOpenFile() {
	m, err := turing.OpenFile("examples/increment.yaml")
	if err != nil {
		log.Fatal(err)
	}

	outcome, steps, err := m.Run(context.Background(), 0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(outcome, steps, m.Tape())
	// Output: successful 8 1100_
}

// ExampleNew builds the two-state machine from scratch, then steps it
// forward and back.
func ExampleNew() {
	ctx := context.Background()
	m := turing.New()

	s0, _ := m.AddState(domain.Vec2{}, "s0")
	s1, _ := m.AddState(domain.Vec2{X: 100}, "s1")
	_ = m.SetStart(s0.ID, true)
	_ = m.SetFinal(s1.ID, true)
	_, _ = m.AddTransition(s0.ID, s1.ID, nil, domain.Right, "a", "b")
	_ = m.SetTape("a")

	if err := m.EnterRunMode(ctx); err != nil {
		log.Fatal(err)
	}
	_, _, _ = m.StepForward(ctx)
	fmt.Println(m.Tape())

	_, _ = m.StepBack(ctx)
	fmt.Println(m.Tape())
	// Output:
	// b_
	// a_
}
