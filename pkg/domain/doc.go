/*
Package domain contains the core domain models of the Turing machine engine.

It defines the entities shared by the graph, the tape, the simulator and the
undo log. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - State: a named node of the machine graph, optionally start and/or final.
  - Transition: a directed edge consumed when its read symbol is under the head.
  - Snapshot: the persistence model of a whole machine (graph plus tape).
  - HaltOutcome: the terminal result of a run.
  - LifecycleHooks: callbacks for observing steps, halts and edits.
*/
package domain
