package metatasks

import "github.com/Liam-Lillieroth/MetaTasks/id"

// ID is the primary identifier type for all MetaTasks entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
