package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dualserve/internal/health"
	"dualserve/internal/supervisor"
)

func newCheckCmd() *cobra.Command {
	var f commonFlags
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the configured services once; exit 0 when ready",
		Long:  "Probes the health endpoint of every service selected by the mode and folds the results with the readiness policy. Suitable as a container HEALTHCHECK.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd, os.Getenv)
			if err != nil {
				return exitWith(supervisor.ExitConfig, err)
			}
			specs, err := cfg.Resolve()
			if err != nil {
				return exitWith(supervisor.ExitConfig, err)
			}
			policy, err := health.ParsePolicy(cfg.Health.Policy)
			if err != nil {
				return exitWith(supervisor.ExitConfig, err)
			}
			targets := make(health.StaticSource, 0, len(specs))
			for _, s := range specs {
				targets = append(targets, health.Target{Name: s.Name, URL: s.HealthURL()})
			}
			if timeout <= 0 {
				timeout = cfg.ProbeTimeout()
			}
			agg := health.New(targets, policy, health.WithTimeout(timeout), health.WithLogger(zerolog.Nop()))
			rep := agg.Check(context.Background())
			w := cmd.OutOrStdout()
			for _, p := range rep.Probes {
				state := "ready"
				if !p.Ready {
					state = "not ready"
				}
				if p.Err != nil {
					fmt.Fprintf(w, "%-8s %-10s %s (%v)\n", p.Target.Name, state, p.Target.URL, p.Err)
				} else {
					fmt.Fprintf(w, "%-8s %-10s %s (%d)\n", p.Target.Name, state, p.Target.URL, p.StatusCode)
				}
			}
			if !rep.Ready {
				fmt.Fprintf(w, "not ready (policy %s)\n", rep.Policy)
				return exitWith(1, nil)
			}
			fmt.Fprintf(w, "ready (policy %s)\n", rep.Policy)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-probe timeout (default from config)")
	return cmd
}
