/*
Package ports defines the collaborator interfaces of the stanza routing engine.

The engine matches, binds and dispatches keyword occurrences. Everything around
that core is reached through these interfaces so hosts can plug in their own
implementations.

# Key Interfaces

  - Searcher: Resolves a compare string to a single route (pkg/registry).
  - Coercer: Converts bound parameters into typed invocation arguments.
  - Invoker / Action: Executes the action referenced by a route.
  - Reporter: Receives the outcome of every keyword occurrence.
  - ResultStore: Persists the results of whole runs (memory or Redis).
  - ScriptReader: Produces scenarios of raw keyword occurrences.
*/
package ports
