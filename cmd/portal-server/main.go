package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ferticare/portal/internal/config"
	"github.com/ferticare/portal/internal/domain/assigndrug"
	"github.com/ferticare/portal/internal/domain/catalog"
	"github.com/ferticare/portal/internal/domain/contract"
	"github.com/ferticare/portal/internal/domain/payment"
	"github.com/ferticare/portal/internal/domain/schedule"
	"github.com/ferticare/portal/internal/domain/treatment"
	"github.com/ferticare/portal/internal/platform/auth"
	"github.com/ferticare/portal/internal/platform/db"
	"github.com/ferticare/portal/internal/platform/middleware"
)

// contractGatewayAdapter narrows the contract service to the slice the
// treatment workflow needs, avoiding a circular import between the two
// packages.
type contractGatewayAdapter struct {
	svc *contract.Service
}

func (a *contractGatewayAdapter) Create(ctx context.Context, treatmentID uuid.UUID, deadline time.Time) error {
	_, err := a.svc.Create(ctx, treatmentID, deadline, nil)
	return err
}

func (a *contractGatewayAdapter) InfoByTreatment(ctx context.Context, treatmentID uuid.UUID) (treatment.ContractInfo, error) {
	c, err := a.svc.GetByTreatment(ctx, treatmentID)
	if err != nil {
		return treatment.ContractInfo{}, err
	}
	return treatment.ContractInfo{Signed: c.Signed(), Deadline: c.Deadline}, nil
}

func (a *contractGatewayAdapter) UnsignedPastDeadline(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	contracts, err := a.svc.ListUnsignedPastDeadline(ctx, now)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(contracts))
	for i, c := range contracts {
		ids[i] = c.TreatmentID
	}
	return ids, nil
}

// paymentGatewayAdapter adapts the payment service to treatment.PaymentGateway.
type paymentGatewayAdapter struct {
	svc *payment.Service
}

func (a *paymentGatewayAdapter) Create(ctx context.Context, treatmentID uuid.UUID, scheduleID *uuid.UUID, amount int64, deadline *time.Time) error {
	_, err := a.svc.Create(ctx, treatmentID, scheduleID, amount, deadline)
	return err
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "Fertility clinic treatment and scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.JWTSecret)}))
	}

	e.Use(db.ConnMiddleware(pool))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// -- Services --

	tx := db.NewTransactor(pool)

	catalogSvc := catalog.NewCatalogService(catalog.NewServiceRepoPG(pool), catalog.NewDrugRepoPG(pool))
	contractSvc := contract.NewService(contract.NewRepoPG(pool), tx)
	paymentSvc := payment.NewService(payment.NewRepoPG(pool))
	assignDrugSvc := assigndrug.NewService(assigndrug.NewRepoPG(pool))
	scheduleSvc := schedule.NewService(schedule.NewRepoPG(pool), tx)
	treatmentSvc := treatment.NewService(treatment.NewRepoPG(pool), tx,
		time.Duration(cfg.ContractSignDays)*24*time.Hour)

	// Cross-service wiring. The domain packages declare the narrow interfaces
	// they consume; most are satisfied by the services directly, the contract
	// and payment gateways through the adapters above.
	contractSvc.SetActivator(treatmentSvc)
	assignDrugSvc.SetTreatmentSource(treatmentSvc)
	scheduleSvc.SetTreatmentSource(treatmentSvc)
	scheduleSvc.SetPaymentSource(paymentSvc)
	scheduleSvc.SetItemLedger(treatmentSvc)
	treatmentSvc.SetContractGateway(&contractGatewayAdapter{svc: contractSvc})
	treatmentSvc.SetPaymentGateway(&paymentGatewayAdapter{svc: paymentSvc})
	treatmentSvc.SetScheduleGateway(scheduleSvc)
	treatmentSvc.SetPrescriptionGateway(assignDrugSvc)
	treatmentSvc.SetPricer(catalogSvc)

	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)
	contract.NewHandler(contractSvc).RegisterRoutes(apiV1)
	payment.NewHandler(paymentSvc).RegisterRoutes(apiV1)
	assigndrug.NewHandler(assignDrugSvc).RegisterRoutes(apiV1)
	schedule.NewHandler(scheduleSvc).RegisterRoutes(apiV1)
	treatment.NewHandler(treatmentSvc).RegisterRoutes(apiV1)

	// Deadline sweep. Treatments whose contract went unsigned past its
	// deadline are cancelled and their open appointments withdrawn.
	sweepInterval, err := time.ParseDuration(cfg.SweepInterval)
	if err != nil {
		logger.Fatal().Err(err).Str("value", cfg.SweepInterval).Msg("invalid SWEEP_INTERVAL")
	}
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := treatmentSvc.ReconcileDeadlines(sweepCtx)
				if err != nil {
					logger.Error().Err(err).Msg("deadline sweep failed")
					continue
				}
				if n > 0 {
					logger.Info().Int("cancelled", n).Msg("deadline sweep cancelled expired treatments")
				}
			}
		}
	}()

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
