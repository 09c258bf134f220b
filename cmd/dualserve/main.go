package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"dualserve/internal/config"
	"dualserve/internal/supervisor"
)

var version = "dev"

// exitError carries a process exit code out of a cobra command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error { return &exitError{code: code, err: err} }

func main() { os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr)) }

// execute runs the CLI and maps the result to a process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "dualserve:", ee.err)
		}
		return ee.code
	}
	// flag parsing and unknown commands
	fmt.Fprintln(stderr, "dualserve:", err)
	return supervisor.ExitConfig
}

// commonFlags are shared by run and check.
type commonFlags struct {
	configPath string
	mode       string
	logLevel   string
	logFormat  string
	policy     string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", os.Getenv("DUALSERVE_CONFIG"), "Config file (.yaml, .yml, .json or .toml)")
	fs.StringVar(&f.mode, "mode", "", "Service mode: A (predict), B (ui) or Both; overrides SERVE_MODE")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error; overrides DUALSERVE_LOG_LEVEL")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format: json|console (default: console on a terminal)")
	fs.StringVar(&f.policy, "policy", "", "Readiness policy when both services run: any|all")
}

// load builds the effective config: defaults, then file, then env, then flags.
func (f *commonFlags) load(cmd *cobra.Command, getenv func(string) string) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	set := cmd.Flags().Changed
	if set("mode") {
		cfg.Mode = f.mode
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if set("policy") {
		cfg.Health.Policy = f.policy
	}
	return cfg, nil
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "dualserve",
		Short:         "Run the prediction API and the UI under one supervisor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(stderr), newCheckCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dualserve %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	})
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// splitCSV splits a comma separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
