/*
Package turing is the execution and edit core of a Turing machine simulator.

A machine is a graph of named states connected by transitions, a tape with a
movable head, a reversible simulator and an undo/redo log for every
structural edit. The core has no rendering of its own; presentation layers
read it through machine.View and drive it through the machine API, the HTTP
adapter or the MCP tools.

# Concept

The machine has two modes. In edit mode the graph and the tape may change and
every change is recorded so that it can be undone. In run mode the graph is
frozen, the tape is owned by the simulator, and every step can be taken back,
so a run may be scrubbed to any step in its history.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/turing"
	)

	func main() {
		m, err := turing.OpenFile("flip.tm")
		if err != nil {
			log.Fatal(err)
		}

		outcome, steps, err := m.Run(context.Background(), 0)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(outcome, steps, m.Tape())
	}
*/
package turing
