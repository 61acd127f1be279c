// Package middleware decorates machine stores with cross-cutting behavior.
package middleware

import "github.com/aretw0/turing/pkg/ports"

// Middleware allows wrapping a MachineStore to add behavior.
type Middleware func(ports.MachineStore) ports.MachineStore

// Chain applies mws to store so that the first one is outermost.
func Chain(store ports.MachineStore, mws ...Middleware) ports.MachineStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
