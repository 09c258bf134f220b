package deployctl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644))
	ports := make([]int, 3)
	for i := range ports {
		p, err := chooseFreePort()
		require.NoError(t, err)
		ports[i] = p
	}
	return &Config{
		Name:         "dualserve-test",
		Image:        "dualserve:test",
		DockerBin:    "docker",
		Context:      dir,
		Mode:         "Both",
		APIPort:      ports[0],
		UIPort:       ports[1],
		HealthPort:   ports[2],
		Grace:        3,
		ReadyTimeout: time.Second,
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := logOut
	logOut = &buf
	t.Cleanup(func() { logOut = old; SetLogLevel("info") })
	return &buf
}

func TestDeployFresh(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	log := captureLog(t)
	cfg := testConfig(t)

	require.NoError(t, NewDeployer(cfg, eng).Deploy(context.Background()))
	require.Equal(t, StateRunning, eng.containers[cfg.Name])
	require.True(t, eng.images[cfg.Image])
	require.Equal(t, 1, eng.called("build"))
	require.Zero(t, eng.called("stop"))

	var run string
	for _, c := range eng.calls {
		if strings.HasPrefix(c, "run ") {
			run = c
		}
	}
	require.Contains(t, run, "-e SERVE_MODE=Both")
	require.Contains(t, run, "--stop-timeout 8")
	require.Contains(t, run, ":8000")
	require.Contains(t, run, ":8501")
	require.Contains(t, run, ":8090")
	require.Contains(t, log.String(), "ready on")
}

func TestDeployModeSelectsPorts(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	captureLog(t)
	cfg := testConfig(t)
	cfg.Mode = "a"
	cfg.NoBuild = true

	require.NoError(t, NewDeployer(cfg, eng).Deploy(context.Background()))
	run := eng.calls[len(eng.calls)-1]
	require.Contains(t, run, "SERVE_MODE=A")
	require.Contains(t, run, ":8000")
	require.NotContains(t, run, ":8501")
	require.Zero(t, eng.called("build"))
}

func TestDeployReplacesRunningDeployment(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	captureLog(t)
	cfg := testConfig(t)
	eng.containers[cfg.Name] = StateRunning

	require.NoError(t, NewDeployer(cfg, eng).Deploy(context.Background()))
	require.Equal(t, 1, eng.called("stop -t 3 "+cfg.Name))
	require.Equal(t, 1, eng.called("rm -f "+cfg.Name))
	require.Equal(t, StateRunning, eng.containers[cfg.Name])
}

func TestDeployReplacesStoppedContainer(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	captureLog(t)
	cfg := testConfig(t)
	eng.containers[cfg.Name] = StateExited

	require.NoError(t, NewDeployer(cfg, eng).Deploy(context.Background()))
	require.Zero(t, eng.called("stop"))
	require.Equal(t, 1, eng.called("rm -f "+cfg.Name))
}

func TestDeployInvalidModeHasNoSideEffects(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	captureLog(t)
	cfg := testConfig(t)
	cfg.Mode = "C"

	err := NewDeployer(cfg, eng).Deploy(context.Background())
	var ue *UsageError
	require.ErrorAs(t, err, &ue)
	require.Empty(t, eng.calls)
}

func TestDeployNotReady(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, false)
	log := captureLog(t)
	cfg := testConfig(t)

	require.Error(t, NewDeployer(cfg, eng).Deploy(context.Background()))
	require.Contains(t, log.String(), "did not become ready")
}

func TestDeployBuildFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.failOn = "build"
	withStubs(t, eng, true)
	captureLog(t)
	cfg := testConfig(t)

	err := NewDeployer(cfg, eng).Deploy(context.Background())
	require.ErrorContains(t, err, "build image")
	require.Zero(t, eng.called("run"))
}

func TestDeployMissingDockerfile(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	captureLog(t)
	cfg := testConfig(t)
	cfg.Context = t.TempDir()

	var ue *UsageError
	require.ErrorAs(t, NewDeployer(cfg, eng).Deploy(context.Background()), &ue)
	require.Zero(t, eng.called("run"))
}

func TestStopIsIdempotent(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	log := captureLog(t)
	cfg := testConfig(t)
	d := NewDeployer(cfg, eng)

	require.NoError(t, d.Stop(context.Background()))
	require.Contains(t, log.String(), "nothing to stop")

	eng.containers[cfg.Name] = StateRunning
	require.NoError(t, d.Stop(context.Background()))
	require.Equal(t, StateExited, eng.containers[cfg.Name])

	require.NoError(t, d.Stop(context.Background()))
	require.Contains(t, log.String(), "already stopped")
	require.Equal(t, 1, eng.called("stop"))
}

func TestStopRestartingContainer(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	log := captureLog(t)
	cfg := testConfig(t)
	eng.containers[cfg.Name] = StateRestarting

	require.NoError(t, NewDeployer(cfg, eng).Stop(context.Background()))
	require.Equal(t, 1, eng.called("stop"))
	require.Equal(t, StateExited, eng.containers[cfg.Name])
	require.NotContains(t, log.String(), "already stopped")
}

func TestCleanupIsIdempotent(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, true)
	log := captureLog(t)
	cfg := testConfig(t)
	eng.containers[cfg.Name] = StateExited
	eng.images[cfg.Image] = true
	d := NewDeployer(cfg, eng)

	require.NoError(t, d.Cleanup(context.Background()))
	require.Empty(t, eng.containers)
	require.Empty(t, eng.images)

	require.NoError(t, d.Cleanup(context.Background()))
	require.Contains(t, log.String(), "Nothing to clean")
	require.Equal(t, 1, eng.called("rmi"))
}

func TestLogs(t *testing.T) {
	eng := newFakeEngine()
	eng.logs = "service started"
	withStubs(t, eng, true)
	captureLog(t)
	cfg := testConfig(t)
	cfg.Follow = true
	d := NewDeployer(cfg, eng)
	var out bytes.Buffer
	d.out = &out

	require.True(t, errors.Is(d.Logs(context.Background()), ErrNoDeployment))

	eng.containers[cfg.Name] = StateRunning
	require.NoError(t, d.Logs(context.Background()))
	require.Equal(t, "service started", out.String())
	require.Equal(t, 1, eng.called("logs -f "+cfg.Name))
}

func TestStatus(t *testing.T) {
	eng := newFakeEngine()
	withStubs(t, eng, false)
	log := captureLog(t)
	cfg := testConfig(t)
	d := NewDeployer(cfg, eng)

	require.NoError(t, d.Status(context.Background()))
	require.Contains(t, log.String(), cfg.Name+": absent")

	eng.containers[cfg.Name] = StateRunning
	require.NoError(t, d.Status(context.Background()))
	require.Contains(t, log.String(), cfg.Name+": running, not ready")
}

func TestEngineErrorsPropagate(t *testing.T) {
	eng := newFakeEngine()
	eng.failOn = "container inspect"
	withStubs(t, eng, true)
	captureLog(t)
	d := NewDeployer(testConfig(t), eng)
	for name, fn := range map[string]func(context.Context) error{
		"stop": d.Stop, "logs": d.Logs, "status": d.Status, "cleanup": d.Cleanup, "deploy": d.Deploy,
	} {
		var ce *CmdError
		if err := fn(context.Background()); !errors.As(err, &ce) {
			t.Fatalf("%s: expected CmdError, got %v", name, err)
		}
	}
}
