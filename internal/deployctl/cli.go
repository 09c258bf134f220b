package deployctl

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns an exit code: 0 on success, 2 on invalid input, 1 on any other error.
func MainWithArgs(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args)
}

func run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		root := buildRootCmdWith(DefaultConfig())
		root.SetOut(logOut)
		_ = root.Usage()
		return 2
	}
	root := buildRootCmdWith(DefaultConfig())
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		errl("%v", err)
		var ue *UsageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

// Main returns an exit code (0 for success, non-zero on error) for use by cmd/deployctl.
func Main() int { return MainWithArgs(os.Args[1:]) }
