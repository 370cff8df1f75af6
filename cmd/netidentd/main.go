// Package main provides the entry point for the netident daemon.
// It wires together the network profile store, tunnel provisioner, status
// aggregator, and backup pipeline behind an authenticated management API.
package main

import (
	"log"
	"os"
	"path/filepath"

	"netident/internal/api"
	"netident/internal/auth"
	"netident/internal/backup"
	"netident/internal/history"
	"netident/internal/monitoring"
	"netident/internal/network"
	"netident/internal/secrets"
	"netident/internal/store"
	"netident/internal/system"
	"netident/internal/wireguard"
)

// dataDir returns the daemon's state directory, ~/.netident by default and
// overridable through NETIDENT_DIR.
func dataDir() string {
	if dir := os.Getenv("NETIDENT_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".netident")
}

// jwtSecret returns the JWT signing secret from the environment, generating
// an ephemeral one when none is configured. An ephemeral secret invalidates
// tokens across restarts, so deployments should set NETIDENT_JWT_SECRET.
func jwtSecret() string {
	if secret := os.Getenv("NETIDENT_JWT_SECRET"); secret != "" {
		return secret
	}
	secret, err := auth.GenerateSecureSecret()
	if err != nil {
		log.Fatal("Failed to generate JWT secret:", err)
	}
	log.Println("NETIDENT_JWT_SECRET not set, using an ephemeral secret")
	return secret
}

// main initializes and starts the netident daemon.
func main() {
	log.Println("Starting netident daemon...")

	dir := dataDir()

	logs := monitoring.NewLogManagerWithConfig(monitoring.LogConfig{
		LogLevel:    monitoring.LogLevelInfo,
		LogToFile:   true,
		LogToStdout: true,
		LogFile:     filepath.Join(dir, "logs", "netident.log"),
		BufferSize:  500,
	})
	defer logs.Close()

	events, err := history.New(filepath.Join(dir, "history.db"))
	if err != nil {
		log.Fatal("Failed to open event history:", err)
	}

	runner := system.NewExecRunner()
	prober := system.NewProber(runner)
	pinger := network.NewPingProber(runner)

	profileStore := store.New()
	cipher := secrets.New()
	provisioner := wireguard.NewProvisioner(runner, pinger)
	backupManager := backup.NewManager(cipher, profileStore, provisioner)
	aggregator := network.NewAggregatorWithInternetCheck(prober, pinger, "8.8.8.8")

	server := api.NewServer(api.Dependencies{
		AuthManager: auth.NewManager(jwtSecret()),
		Store:       profileStore,
		Connections: system.NewNMConnectionManager(runner),
		Aggregator:  aggregator,
		Provisioner: provisioner,
		Backup:      backupManager,
		History:     events,
		Logs:        logs,
	})

	addr := os.Getenv("NETIDENT_LISTEN")
	if addr == "" {
		addr = ":8080"
	}

	log.Println("Listening on", addr)
	if err := server.Router().Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
