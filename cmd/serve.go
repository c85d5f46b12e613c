package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yourusername/invoice-api/config"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/routes"
	"github.com/yourusername/invoice-api/services"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server on PORT (default 8080).

The database schema is migrated on startup. When JWT_SECRET is set every
/api/v1 route except /api/v1/auth/refresh requires a bearer token.`,
	Example: `  # Serve with a local sqlite database
  DB_DRIVER=sqlite DATABASE_URL=invoices.db invoice-api serve

  # Serve on another port
  invoice-api serve --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
	serveCmd.Flags().Bool("release", true, "Run gin in release mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	port, _ := cmd.Flags().GetString("port")
	if port == "" {
		port = cfg.Port
	}
	if release, _ := cmd.Flags().GetBool("release"); release {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}

	router, err := routes.SetupRouter(cfg, services.New(db, services.SettingsFromConfig(cfg)))
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", port).
			Str("db_driver", cfg.DBDriver).
			Bool("auth", cfg.AuthEnabled()).
			Msg("Starting Invoice API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
