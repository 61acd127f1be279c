/*
Package observability sets up span export for the turing services.

Session operations open spans on the global tracer provider. InitTracing
installs either a no-op provider or an SDK provider that writes spans to a
writer as JSON, and returns the function that flushes them on shutdown.
*/
package observability
