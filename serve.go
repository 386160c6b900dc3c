package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the JSON API for the wizard: city search and lookup, questions,
live progress, final estimates, sessions and data pack installation.

If the requested port is taken the next free one (up to 10 further) is used.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Int("port", 0, "HTTP server port (default from PORT, else 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "serve"))

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}

	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(cfg.Port, 10)
	if err != nil {
		return err
	}
	if availablePort != cfg.Port {
		log.Warn("port in use, using another", zap.Int("requested", cfg.Port), zap.Int("port", availablePort))
	}
	cfg.Port = availablePort

	log.Info("starting",
		zap.String("version", version),
		zap.Int("port", cfg.Port),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("offline", cfg.Offline))

	srv, err := server.New(ctx, *cfg, zap.L())
	if err != nil {
		return eris.Wrap(err, "serve: create server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	waitForServer(fmt.Sprintf("http://localhost:%d", cfg.Port), 10*time.Second)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Stop()
	}
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	zap.L().Warn("server may not be ready", zap.String("url", url))
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, eris.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
