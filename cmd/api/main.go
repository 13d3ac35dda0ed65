package main

import (
	"context"
	"log"

	"shoplist-api/core"
)

func main() {
	cfg := core.Load()

	logFile, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer logFile.Close()

	ctx := context.Background()

	if err := core.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	codec := core.NewTokenCodec([]byte(cfg.TokenSecret))
	users := core.NewPgUserRepository(pool)
	categories := core.NewPgCategoryRepository(pool)
	items := core.NewPgItemRepository(pool)
	authService := core.NewRepositoryAuthService(users, codec)

	router := core.NewRouter(authService, codec, categories, items)

	log.Printf("listening on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
