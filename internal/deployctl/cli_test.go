package deployctl

import (
	"context"
	"strconv"
	"testing"
)

func TestMainWithArgs_NoArgs_ShowsUsageAndExit2(t *testing.T) {
	captureLog(t)
	if code := MainWithArgs([]string{}); code != 2 {
		t.Fatalf("expected exit code 2 for no args, got %d", code)
	}
}

func TestMainWithArgs_UnknownCommand_Exit1(t *testing.T) {
	captureLog(t)
	if code := MainWithArgs([]string{"wat"}); code != 1 {
		t.Fatalf("expected exit code 1 for unknown command, got %d", code)
	}
}

func TestMainWithArgs_InvalidMode_Exit2(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	captureLog(t)
	if code := run(context.Background(), []string{"deploy", "--mode", "ab"}); code != 2 {
		t.Fatalf("expected exit code 2 for invalid mode, got %d", code)
	}
	if len(eng.calls) != 0 {
		t.Fatalf("invalid mode must not touch docker: %v", eng.calls)
	}
}

func TestMainWithArgs_FlagsAreParsedAndPassedToDocker(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	captureLog(t)
	cfg := testConfig(t)
	args := []string{
		"--name", "custom", "--image", "img:1", "--grace", "7", "--log-level", "debug",
		"--health-port", strconv.Itoa(cfg.HealthPort),
		"deploy", "--mode", "B", "--ui-port", strconv.Itoa(cfg.UIPort), "--context", cfg.Context,
	}
	if code := run(context.Background(), args); code != 0 {
		t.Fatalf("expected exit code 0, got %d (calls %v)", code, eng.calls)
	}
	if eng.containers["custom"] != StateRunning || !eng.images["img:1"] {
		t.Fatalf("flags not applied: containers=%v images=%v", eng.containers, eng.images)
	}
	if eng.called("run -d --name custom --stop-timeout 12") != 1 {
		t.Fatalf("unexpected run call: %v", eng.calls)
	}
}

func TestMainWithArgs_StopAndCleanupNoopExit0(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	captureLog(t)
	for _, cmd := range []string{"stop", "cleanup", "status"} {
		if code := run(context.Background(), []string{cmd}); code != 0 {
			t.Fatalf("%s on a clean host: expected 0, got %d", cmd, code)
		}
	}
	if code := run(context.Background(), []string{"logs"}); code != 1 {
		t.Fatalf("logs without deployment: expected 1, got %d", code)
	}
}
