/*
Package ports defines the driven ports (interfaces) of scorebridge.

These interfaces decouple the playground from concrete storage and content backends.

# Key Interfaces

  - DocumentStore: byte documents by key (memory, file, redis).
  - SessionStore: persisted playground sessions.
  - DistributedLocker: distributed locking for concurrent session access.
  - ExampleSource: the library of ready-made scoring examples.
*/
package ports
