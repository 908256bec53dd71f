package memstore

import _ "embed"

// DefaultSeed is the demo pipeline loaded when no seed file is configured.
//
//go:embed fixtures/pipeline.yaml
var DefaultSeed []byte
