// Package assets manages the registry of instance-scoped resource types and
// their concrete instances. Grants in the authorization core reference
// instances registered here.
package assets

import (
	"time"

	"github.com/google/uuid"
)

// Asset is a protectable resource type that supports per-instance scoping.
type Asset struct {
	Type        string
	Description string
	CreatedAt   time.Time
}

// AssetInstance is one concrete instance of an Asset.
type AssetInstance struct {
	ID        uuid.UUID
	AssetType string
	Name      string
	CreatedAt time.Time
}
