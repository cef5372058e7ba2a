package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/thulafunds/crowdfund/repository"
	"github.com/thulafunds/crowdfund/routes"
	"github.com/thulafunds/crowdfund/services"
	"github.com/thulafunds/crowdfund/utils"
	"gorm.io/gorm"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "thula",
		Short:        "Thula Funds crowdfunding API",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./config.yaml, then next to the binary)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "check-campaigns",
			Short: "Report campaigns whose receiving wallet is invalid",
			RunE:  runCheckCampaigns,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads config, sets up logging and opens the database
func bootstrap() (*utils.Config, *gorm.DB, error) {
	cfg, err := utils.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	utils.InitLogger(cfg.Log)

	if wd, err := os.Getwd(); err == nil {
		log.Debug().Str("working_dir", wd).Msg("configuration loaded")
	}

	db, err := utils.InitDatabase(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	return utils.MigrateDatabase(db)
}

func runCheckCampaigns(cmd *cobra.Command, args []string) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	audit, err := services.NewCampaignService(repository.New(db)).CheckCampaigns(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d campaigns:\n", audit.Total)
	for i, e := range audit.Entries {
		wallet := e.WalletAddress
		if wallet == "" {
			wallet = "NOT SET"
		}
		mark := "valid"
		if !e.Valid {
			mark = "INVALID"
		}
		fmt.Fprintf(out, "%d. %s\n   ID: %s\n   Status: %s\n   Wallet: %s (%s)\n", i+1, e.Title, e.ID, e.Status, wallet, mark)
	}
	fmt.Fprintf(out, "Summary: %d valid, %d invalid, %d total\n", audit.Valid, audit.Invalid, audit.Total)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}

	if cfg.Database.Migrate {
		if err := utils.MigrateDatabase(db); err != nil {
			return err
		}
	}

	paymentConfig, err := services.NewPaymentConfig(cfg.X402, cfg.Gate)
	if err != nil {
		return err
	}
	if paymentConfig.WalletAddress == "" {
		log.Warn().Msg("x402.wallet_address is not set; 402 challenges will carry an empty payment address")
	}

	repo := repository.New(db)
	paymentService := services.NewPaymentService(repo, paymentConfig)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	router.Use(gin.Recovery())
	router.Use(routes.RequestID())
	router.Use(routes.RequestLogger())
	router.Use(routes.Metrics())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})))
	router.Use(routes.SecurityHeaders())

	apiRoutes := routes.NewAPIRoutes(repo, paymentService, cfg.RateLimit.PerMinute)
	apiRoutes.SetupRoutes(router)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go apiRoutes.Hub().Run(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("mode", gin.Mode()).Msg("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
