package main

import (
	"embed"
	"os"

	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/logger"
	"github.com/ghuser/marketplace/pkg/migrator"
)

//go:embed *.sql
var MigrationsFS embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg)
	if err := migrator.RunMigrations(cfg.DatabaseURL, MigrationsFS, log); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
}
