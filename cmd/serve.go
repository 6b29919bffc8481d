package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Registry web server.

The server exposes registration, search and identity lookup over HTTP.
All API routes except the health check require the API_KEY bearer token.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Server.APIKey == "" {
		fmt.Println("Warning: API_KEY is not set, all API requests will be rejected")
	}

	eng, idx, err := buildEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if cfg.Index.IsLocalMode() {
		fmt.Printf("Using local index at %s\n", cfg.Index.LocalPath)
	} else {
		fmt.Println("Using PostgreSQL/pgvector index")
	}
	fmt.Printf("Face model: %s (%d dimensions, %s detector)\n", cfg.Face.Model, cfg.Dimension(), cfg.Face.Detector)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, eng, port, host)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		if err := idx.Close(); err != nil {
			fmt.Printf("Error closing index: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Registry on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
