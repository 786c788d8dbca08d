package main

import (
	"log"
	"os"

	"github.com/entraops/entracopy/internal/adapters/driven/config/file"
	"github.com/entraops/entracopy/internal/adapters/driven/oauth"
	"github.com/entraops/entracopy/internal/adapters/driven/storage/sqlite"
	"github.com/entraops/entracopy/internal/adapters/driving/cli"
	"github.com/entraops/entracopy/internal/core/services"
	"github.com/entraops/entracopy/internal/graph"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetVersion(version)

	// SQLite store for the session (tokens and cached identity)
	store, err := sqlite.NewStore("")
	if err != nil {
		log.Printf("failed to create session store: %v", err)
		return 1
	}
	defer store.Close()

	// Config store holds the OAuth client configuration
	configStore, err := file.NewConfigStore("")
	if err != nil {
		log.Printf("failed to create config store: %v", err)
		return 1
	}
	cfg, err := configStore.Get()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	authorizer := oauth.NewBrowserAuthorizer(cfg.CallbackPort)
	tokenClient := oauth.NewTokenClient()
	graphClient := graph.NewClient()

	authSvc := services.NewAuthFlow(store, configStore, authorizer, tokenClient, graphClient)
	directorySvc := services.NewDirectory(authSvc, graphClient, configStore)

	cli.SetServices(&cli.Services{
		Auth:      authSvc,
		Directory: directorySvc,
	})
	cli.SetConfigStore(configStore)

	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}
