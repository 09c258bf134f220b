package deployctl

import (
	"os"

	"github.com/spf13/cobra"
)

// buildRootCmdWith constructs the Cobra command tree wired to a Deployer.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "deployctl",
		Short:         "Deploy the dualserve container in mode A, B or Both",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.Name, "name", cfg.Name, "Container name (defaults DEPLOYCTL_NAME or dualserve)")
	pf.StringVar(&cfg.Image, "image", cfg.Image, "Image tag (defaults DEPLOYCTL_IMAGE or dualserve:latest)")
	pf.StringVar(&cfg.DockerBin, "docker", cfg.DockerBin, "Docker CLI binary")
	pf.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "Host port mapped to the supervisor health surface")
	pf.IntVar(&cfg.Grace, "grace", cfg.Grace, "Seconds a stop may take before the container is killed")
	pf.StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults DEPLOYCTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetLogLevel(cfg.LogLvl)
	}

	newDeployer := func() *Deployer {
		d := NewDeployer(cfg, fnNewRunner())
		d.out = root.OutOrStdout()
		return d
	}

	deployCmd := &cobra.Command{
		Use:     "deploy",
		Short:   "Build the image and (re)start the deployment",
		Example: "  deployctl deploy --mode Both\n  deployctl deploy --mode A --api-port 9000 --no-build",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newDeployer().Deploy(cmd.Context())
		},
	}
	df := deployCmd.Flags()
	df.StringVar(&cfg.Mode, "mode", cfg.Mode, "Service mode: A (predict), B (ui) or Both (defaults SERVE_MODE)")
	df.IntVar(&cfg.APIPort, "api-port", cfg.APIPort, "Host port for the prediction API")
	df.IntVar(&cfg.UIPort, "ui-port", cfg.UIPort, "Host port for the UI")
	df.StringVar(&cfg.Context, "context", cfg.Context, "Docker build context")
	df.StringVar(&cfg.Dockerfile, "file", cfg.Dockerfile, "Dockerfile (defaults <context>/Dockerfile)")
	df.DurationVar(&cfg.ReadyTimeout, "ready-timeout", cfg.ReadyTimeout, "How long to wait for /readyz")
	df.BoolVar(&cfg.Force, "force", cfg.Force, "Kill listeners on busy host ports")
	df.BoolVar(&cfg.NoBuild, "no-build", cfg.NoBuild, "Skip the image build")

	stopCmd := &cobra.Command{Use: "stop", Short: "Gracefully stop the deployment", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return newDeployer().Stop(cmd.Context())
	}}

	logsCmd := &cobra.Command{Use: "logs", Short: "Show deployment output", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return newDeployer().Logs(cmd.Context())
	}}
	logsCmd.Flags().BoolVarP(&cfg.Follow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().StringVar(&cfg.Tail, "tail", "", "Number of lines to show from the end")

	statusCmd := &cobra.Command{Use: "status", Short: "Print container state and readiness", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return newDeployer().Status(cmd.Context())
	}}

	cleanupCmd := &cobra.Command{Use: "cleanup", Short: "Remove the container and the image", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return newDeployer().Cleanup(cmd.Context())
	}}

	root.AddCommand(deployCmd, stopCmd, logsCmd, statusCmd, cleanupCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	root.AddCommand(completionCmd)
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}
