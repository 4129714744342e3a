package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	chatstream "github.com/Desarso/chatstream"
	"github.com/Desarso/chatstream/server"
	"github.com/Desarso/chatstream/stores"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	store, err := buildStore()
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	config := &chatstream.Config{
		DefaultModel: envOr("DEFAULT_MODEL", chatstream.DefaultModelID),
		Catalog:      chatstream.DefaultCatalog(),
		Store:        store,
		JWTSecret:    envOr("JWT_SECRET", "change-me"),
	}

	scheduler := cron.New()
	// Periodic store health check, and a reminder in the logs that the
	// process is alive.
	scheduler.AddFunc("@every 5m", func() {
		if err := store.Ping(); err != nil {
			log.Printf("Store ping failed: %v", err)
			return
		}
		log.Println("Store ping ok")
	})
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(config)
	addr := ":" + envOr("PORT", "8080")
	log.Printf("Listening on %s", addr)
	if err := srv.Router().Run(addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}

func buildStore() (stores.ChatStore, error) {
	storeType := envOr("DB_TYPE", "sqlite")
	connection := envOr("DB_CONNECTION", "chatstream.db")
	return stores.NewStore(stores.NewStoreConfig(storeType, connection))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
