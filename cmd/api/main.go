package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/config"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
	appHTTP "github.com/cmlabs-hris/attendance-tracker/internal/handler/http"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-tracker/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-tracker/internal/repository/postgresql"
	"github.com/cmlabs-hris/attendance-tracker/internal/repository/sqlite"
	attendanceService "github.com/cmlabs-hris/attendance-tracker/internal/service/attendance"
	statsService "github.com/cmlabs-hris/attendance-tracker/internal/service/stats"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// stores bundles the record store and directory selected by DB_DRIVER.
type stores struct {
	attendanceRepo attendance.AttendanceRepository
	directory      employee.Directory
	close          func()
}

func openStores(ctx context.Context, cfg *config.Config, loc *time.Location) (stores, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return stores{}, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return stores{}, err
		}
		return stores{
			attendanceRepo: postgresql.NewAttendanceRepository(db, loc),
			directory:      postgresql.NewEmployeeRepository(db),
			close:          db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		writer := database.NewWorker(db)
		return stores{
			attendanceRepo: sqlite.NewAttendanceRepository(db, writer, loc),
			directory:      sqlite.NewDirectory(db, writer),
			close: func() {
				writer.Close()
				if err := db.Close(); err != nil {
					slog.Error("Failed to close sqlite database", "error", err)
				}
			},
		}, nil

	case config.DriverMemory:
		slog.Warn("Using in-memory store; records are lost on restart")
		return stores{
			attendanceRepo: memory.NewAttendanceRepository(loc),
			directory:      memory.NewDirectory(),
			close:          func() {},
		}, nil
	}
	return stores{}, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, loc)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	defer st.close()

	policy, err := attendanceService.NewClockPolicy(
		cfg.Attendance.WorkStartTime,
		cfg.Attendance.WorkEndTime,
		cfg.Attendance.GracePeriodMinutes,
		cfg.Attendance.HalfDayThresholdHours,
		loc,
	)
	if err != nil {
		return fmt.Errorf("attendance policy: %w", err)
	}

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return err
	}

	attendanceSvc := attendanceService.NewAttendanceService(st.attendanceRepo, policy, time.Now)
	statsSvc := statsService.NewStatsService(st.attendanceRepo, st.directory, loc, time.Now)

	router := appHTTP.NewRouter(
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewStatsHandler(statsSvc),
		appHTTP.RouterOptions{
			AppName:        cfg.App.Name,
			Version:        cfg.App.Version,
			Env:            cfg.App.Env,
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       cfg.SlogLevel(),
		},
	)

	if cfg.Cron.MarkAbsentEnabled {
		scheduler := cron.NewScheduler()
		cron.NewAttendanceJobs(st.attendanceRepo, st.directory, policy, time.Now).
			RegisterJobs(scheduler, cfg.Cron.MarkAbsentInterval)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start cron scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr, "store", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
