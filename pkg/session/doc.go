/*
Package session manages live machines on behalf of servers and the CLI.

A Manager keeps machines in memory, resumes them from a ports.MachineStore
on demand and serializes access per session ID. A ports.DistributedLocker
extends the serialization across replicas sharing one store. Every
operation is traced as a "session.<op>" span.
*/
package session
