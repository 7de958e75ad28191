// Package main provides the HTTP probe API server for performing
// handshakes against remote nodes on demand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evanxg852000/p2p-handshake/pkg/api"
	"github.com/evanxg852000/p2p-handshake/pkg/wire"
)

func main() {
	apiPort := flag.Int("api-port", 8080, "HTTP API port")
	agentName := flag.String("name", "evan", "Agent name announced to probed nodes")
	version := flag.String("version", "3.3.6", "Version announced to probed nodes")
	enableCORS := flag.Bool("cors", true, "Enable CORS headers")
	rateLimit := flag.Int("rate-limit", 60, "Rate limit (requests per minute per IP)")
	maxTimeout := flag.Duration("max-timeout", 60*time.Second, "Upper bound on per-probe timeouts")

	flag.Parse()

	fmt.Println("🚀 Handshake Probe API Server")
	fmt.Println("=============================")
	fmt.Println()

	ver, err := wire.ParseVersion(*version)
	if err != nil {
		log.Fatalf("Invalid -version: %v", err)
	}

	config := api.DefaultConfig()
	config.Port = *apiPort
	config.AgentName = *agentName
	config.Version = ver
	config.EnableCORS = *enableCORS
	config.RateLimit = *rateLimit
	config.MaxTimeout = *maxTimeout

	server := api.NewServer(config)

	go func() {
		fmt.Printf("🌐 Listening on :%d (agent %q, version %s)\n", config.Port, config.AgentName, config.Version)
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	fmt.Println("✓ Stopped")
}
