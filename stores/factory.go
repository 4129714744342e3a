package stores

import (
	"fmt"
)

// NewStore creates a ChatStore based on the configuration type.
func NewStore(config *StoreConfig) (ChatStore, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteStore(config)
	case "postgres":
		return NewPostgresStore(config)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
