package chatstream

import (
	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/stores"
)

// Config holds everything the HTTP server needs: a store, a model catalog
// and the default model served when the client names none.
type Config struct {
	DefaultModel string
	Catalog      []models.Model_Descriptor
	Store        stores.ChatStore
	JWTSecret    string
}

// NewConfig creates a configuration with the built-in catalog and a default
// SQLite store.
func NewConfig() *Config {
	defaultStore, err := stores.NewSQLiteStoreSimple("chatstream.db")
	if err != nil {
		panic("Failed to create default SQLite store: " + err.Error())
	}

	return &Config{
		DefaultModel: DefaultModelID,
		Catalog:      DefaultCatalog(),
		Store:        defaultStore,
		JWTSecret:    "change-me",
	}
}

// WithDefaultModel sets the model used when a request names none.
func (c *Config) WithDefaultModel(modelID string) *Config {
	c.DefaultModel = modelID
	return c
}

// WithCatalog replaces the model catalog.
func (c *Config) WithCatalog(catalog []models.Model_Descriptor) *Config {
	c.Catalog = catalog
	return c
}

// WithStore sets the chat store.
func (c *Config) WithStore(store stores.ChatStore) *Config {
	c.Store = store
	return c
}

// WithSQLiteStore sets a SQLite store at the given path.
func (c *Config) WithSQLiteStore(dbPath string) *Config {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithPostgresStore sets a PostgreSQL store with the given connection details.
func (c *Config) WithPostgresStore(host, user, password, dbname string, port int) *Config {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithJWTSecret sets the secret used to verify session tokens.
func (c *Config) WithJWTSecret(secret string) *Config {
	c.JWTSecret = secret
	return c
}
