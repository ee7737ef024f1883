package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docforms/internal/logger"
	"docforms/internal/store"
	"docforms/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser front end",
	Long: `Serve the document pages, the template pages and the structure editor
on server.host:server.port. Jobs started from the pages are polled in the
background and their status is shown on the document page.

Prometheus metrics are exposed on /metrics.`,
	Example: `  # Listen on the configured address
  docforms serve

  # Listen on all interfaces, port 8080
  docforms serve --host 0.0.0.0 --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Listen host (overrides server.host)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		appConfig.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		appConfig.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	server := web.New(web.Options{
		Client: client,
		Store:  store.New(),
		Auth:   appConfig.Auth,
	})
	defer server.Close()

	httpServer := &http.Server{
		Addr:              appConfig.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Str("api", client.BaseURL()).
			Msg("Serving front end")
		errCh <- httpServer.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", httpServer.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
