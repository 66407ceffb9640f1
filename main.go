package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cobra.OnInitialize(initConfig)

	rootCmd := &cobra.Command{
		Use:          "inventory",
		Short:        "Company hardware and software inventory service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./inventory.yaml)")
	rootCmd.PersistentFlags().String("store", "postgres", "record store backend: postgres or memory")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	serveCmd.Flags().String("addr", ":8081", "listen address")
	_ = viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tables and seed the fixed rows, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)
	return rootCmd
}

func runServe(ctx context.Context) error {
	c := loadConfig()
	setupLogging(c)
	if c.JWTSecret == devJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the development secret")
	}
	jwtSecret = []byte(c.JWTSecret)
	if !c.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := initStore(ctx, c); err != nil {
		return err
	}
	sender = newCodeSender(c)

	var handler http.Handler = newRouter(c)
	if len(c.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   c.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: true,
		}).Handler(handler)
	}

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", c.Addr).WithField("store", c.Store).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(ctx context.Context) error {
	c := loadConfig()
	setupLogging(c)
	if c.Store == "memory" {
		return errors.New("migrate needs the postgres store")
	}
	c.AutoMigrate = true
	if err := initStore(ctx, c); err != nil {
		return err
	}
	logger.Info("migration and seeding completed")
	return nil
}
