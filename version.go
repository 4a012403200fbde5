package stanza

import _ "embed"

// Version is the release of the stanza module.
//
//go:embed VERSION
var Version string
