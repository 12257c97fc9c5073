// Package persistence layers typed playground records over a ports.DocumentStore.
package persistence
