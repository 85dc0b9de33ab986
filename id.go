package quanta

import "github.com/quantacore/quanta/id"

// ID is the TypeID-based identifier format minted by the service.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
