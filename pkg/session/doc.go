/*
Package session serializes access to playground sessions.

Every read-modify-write of a session runs under a per-session lock, optionally backed by
a distributed locker so that several replicas can share one store.
*/
package session
