/*
Package domain contains the core models of the Stanza keyword engine.

It defines keyword occurrences and their cells, the parameters produced by
binding, the occurrence lifecycle, run results and the error taxonomy shared
by the registry, the binder and the dispatcher. The package has no I/O.

# Key Entities

  - Keyword: one command occurrence read from a script (ordered DataItems).
  - DataItem: one cell; immutable source text plus substituted data.
  - KeywordParameter: cells bound to one named parameter of the matched route.
  - Outcome / RunResult: what reporters and stores receive.
*/
package domain
