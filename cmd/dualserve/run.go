package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dualserve/internal/config"
	"dualserve/internal/health"
	"dualserve/internal/httpapi"
	"dualserve/internal/service"
	"dualserve/internal/supervisor"
)

type runFlags struct {
	commonFlags
	grace       int
	healthAddr  string
	corsOrigins string
	quiet       bool
}

func newRunCmd(logw io.Writer) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the selected services and supervise them until one exits",
		Example: "  dualserve run --mode Both\n" +
			"  SERVE_MODE=A API_PORT=9000 dualserve run\n" +
			"  dualserve run -c dualserve.yaml --grace 20",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd, os.Getenv)
			if err != nil {
				return exitWith(supervisor.ExitConfig, err)
			}
			if cmd.Flags().Changed("grace") {
				cfg.GraceSeconds = f.grace
			}
			if cmd.Flags().Changed("health-addr") {
				cfg.Health.Addr = f.healthAddr
			}
			if cmd.Flags().Changed("cors-origins") {
				cfg.Health.CORSEnabled = true
				cfg.Health.CORSOrigins = splitCSV(f.corsOrigins)
			}
			logger := newLogger(logw, cfg.LogLevel, cfg.LogFormat)
			code := runSupervisor(cmd.Context(), cfg, logger, !f.quiet, []os.Signal{os.Interrupt, syscall.SIGTERM})
			if code != 0 {
				return exitWith(code, nil)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.grace, "grace", 0, "Seconds a service may take to stop before it is killed; overrides SERVE_GRACE_SECONDS")
	cmd.Flags().StringVar(&f.healthAddr, "health-addr", "", "Listen address of the health surface; overrides HEALTH_ADDR")
	cmd.Flags().StringVar(&f.corsOrigins, "cors-origins", "", "Comma separated origins allowed to call the health surface")
	cmd.Flags().BoolVar(&f.quiet, "quiet-children", false, "Do not forward service output into the log")
	return cmd
}

// runSupervisor owns one supervised run and returns the process exit code.
// Configuration problems are reported before anything is bound or launched.
func runSupervisor(ctx context.Context, cfg config.Config, logger zerolog.Logger, forward bool, signals []os.Signal) int {
	specs, err := cfg.Resolve()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return supervisor.ExitConfig
	}
	mode, _ := service.ParseMode(cfg.Mode)
	policy, err := health.ParsePolicy(cfg.Health.Policy)
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return supervisor.ExitConfig
	}

	ln, err := net.Listen("tcp", cfg.Health.Addr)
	if err != nil {
		logger.Error().Err(err).Str("addr", cfg.Health.Addr).Msg("health listener")
		return supervisor.ExitLaunchFailed
	}

	sup := supervisor.New(supervisor.Options{
		GracePeriod:   cfg.Grace(),
		Signals:       signals,
		Logger:        &logger,
		ForwardOutput: forward,
	})
	agg := health.New(sup, policy, health.WithTimeout(cfg.ProbeTimeout()), health.WithLogger(logger))

	httpapi.SetLogger(logger.With().Str("component", "http").Logger())
	httpapi.SetCORSOptions(cfg.Health.CORSEnabled, cfg.Health.CORSOrigins, cfg.Health.CORSMethods, cfg.Health.CORSHeaders)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	srv := &http.Server{
		Handler:           httpapi.NewMux(sup, agg, string(mode)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	logger.Info().Str("addr", ln.Addr().String()).Str("mode", string(mode)).Str("policy", string(policy)).
		Str("run_id", sup.RunID()).Msg("health surface listening")

	if ctx == nil {
		ctx = context.Background()
	}
	if err := sup.Start(ctx, specs); err != nil {
		logger.Error().Err(err).Msg("start failed")
	}

	select {
	case <-sup.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("health server failed; shutting down")
		}
		sup.Shutdown()
	}
	code := sup.Wait()

	cancelBase()
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("health server shutdown")
	}
	return code
}
