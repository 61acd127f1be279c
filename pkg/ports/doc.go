/*
Package ports defines the driven ports (interfaces) of the turing machine
service.

These interfaces decouple sessions from storage backends, so the same
machine can live in memory, on disk, in Redis or in SQLite.

# Key Interfaces

  - MachineStore: persists and loads machine snapshots by session ID.
  - DistributedLocker: serializes access to one session across replicas.

RunMachineStoreContract is a shared test suite every MachineStore adapter
runs against itself.
*/
package ports
