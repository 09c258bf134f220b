package deployctl

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"dualserve/internal/common/fsutil"
	"dualserve/internal/service"
)

// Ports the supervisor listens on inside the container.
const (
	containerAPIPort    = 8000
	containerUIPort     = 8501
	containerHealthPort = 8090
)

// Config holds the deployment parameters shared by every command.
type Config struct {
	Name         string
	Image        string
	DockerBin    string
	LogLvl       string
	Context      string
	Dockerfile   string
	Mode         string
	APIPort      int
	UIPort       int
	HealthPort   int
	Grace        int
	ReadyTimeout time.Duration
	Force        bool
	NoBuild      bool
	Follow       bool
	Tail         string
}

// DefaultConfig returns defaults, honouring DEPLOYCTL_* and the service port variables.
func DefaultConfig() *Config {
	return &Config{
		Name:         envStr("DEPLOYCTL_NAME", "dualserve"),
		Image:        envStr("DEPLOYCTL_IMAGE", "dualserve:latest"),
		DockerBin:    envStr("DEPLOYCTL_DOCKER", "docker"),
		LogLvl:       envStr("DEPLOYCTL_LOG_LEVEL", "info"),
		Context:      envStr("DEPLOYCTL_CONTEXT", "."),
		Mode:         envStr("SERVE_MODE", string(service.ModeBoth)),
		APIPort:      envInt("API_PORT", containerAPIPort),
		UIPort:       envInt("UI_PORT", containerUIPort),
		HealthPort:   envInt("DEPLOYCTL_HEALTH_PORT", containerHealthPort),
		Grace:        envInt("SERVE_GRACE_SECONDS", 10),
		ReadyTimeout: 2 * time.Minute,
		Force:        envBool("DEPLOYCTL_FORCE", false),
	}
}

// ErrNoDeployment is returned by commands that need an existing container.
var ErrNoDeployment = errors.New("no deployment")

// UsageError marks invalid user input; it maps to exit code 2.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Deployer runs deployment actions against one container.
type Deployer struct {
	cfg    *Config
	docker *Docker
	out    io.Writer
}

// NewDeployer returns a Deployer using r to run docker.
func NewDeployer(cfg *Config, r Runner) *Deployer {
	return &Deployer{cfg: cfg, docker: NewDocker(cfg.DockerBin, r), out: os.Stdout}
}

func (d *Deployer) portMap(mode service.Mode) map[int]int {
	m := map[int]int{d.cfg.HealthPort: containerHealthPort}
	if mode == service.ModeA || mode == service.ModeBoth {
		m[d.cfg.APIPort] = containerAPIPort
	}
	if mode == service.ModeB || mode == service.ModeBoth {
		m[d.cfg.UIPort] = containerUIPort
	}
	return m
}

func (d *Deployer) readyURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/readyz", d.cfg.HealthPort)
}

// Deploy builds the image and starts a container in the requested mode,
// replacing any previous deployment, then waits for aggregated readiness.
func (d *Deployer) Deploy(ctx context.Context) error {
	mode, err := service.ParseMode(d.cfg.Mode)
	if err != nil {
		return &UsageError{Err: err}
	}
	if d.cfg.Grace < 0 {
		return &UsageError{Err: fmt.Errorf("grace must not be negative: %d", d.cfg.Grace)}
	}
	name := d.cfg.Name

	state, err := d.docker.ContainerState(ctx, name)
	if err != nil {
		return err
	}
	switch state {
	case StateAbsent:
	case StateRunning, StatePaused, StateRestarting:
		info("[deploy] Stopping running deployment %s", name)
		if err := d.docker.Stop(ctx, name, d.cfg.Grace); err != nil {
			return err
		}
		fallthrough
	default:
		info("[deploy] Removing previous container %s (%s)", name, state)
		if err := d.docker.Remove(ctx, name); err != nil {
			return err
		}
	}

	ports := d.portMap(mode)
	hostPorts := make([]int, 0, len(ports))
	for p := range ports {
		hostPorts = append(hostPorts, p)
	}
	slices.Sort(hostPorts)
	if err := ensurePorts(ctx, d.docker.R, hostPorts, d.cfg.Force); err != nil {
		return err
	}

	if !d.cfg.NoBuild {
		dir, err := fsutil.Resolve("", d.cfg.Context)
		if err != nil {
			return err
		}
		dockerfile := d.cfg.Dockerfile
		if dockerfile == "" {
			dockerfile = filepath.Join(dir, "Dockerfile")
		}
		if !fsutil.PathExists(dockerfile) {
			return &UsageError{Err: fmt.Errorf("dockerfile not found: %s", dockerfile)}
		}
		info("[deploy] Building image %s from %s", d.cfg.Image, dir)
		if err := d.docker.Build(ctx, d.cfg.Image, dockerfile, dir); err != nil {
			return fmt.Errorf("build image: %w", err)
		}
	}

	id, err := d.docker.RunDetached(ctx, RunSpec{
		Name:  name,
		Image: d.cfg.Image,
		Env: map[string]string{
			"SERVE_MODE":          string(mode),
			"SERVE_GRACE_SECONDS": fmt.Sprint(d.cfg.Grace),
		},
		Ports: ports,
		// leave the supervisor its full grace before docker escalates
		StopTimeout: d.cfg.Grace + 5,
	})
	if err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	info("[deploy] Started %s (%s) mode=%s", name, shortID(id), mode)

	wctx, cancel := context.WithTimeout(ctx, d.cfg.ReadyTimeout)
	defer cancel()
	if err := fnWaitHTTP(wctx, d.readyURL(), 200, time.Second); err != nil {
		errl("[deploy] %s did not become ready; see: deployctl logs --name %s", name, name)
		return err
	}
	info("[deploy] %s ready on %s", name, d.readyURL())
	return nil
}

// Stop gracefully stops the deployment. Stopping nothing succeeds.
func (d *Deployer) Stop(ctx context.Context) error {
	state, err := d.docker.ContainerState(ctx, d.cfg.Name)
	if err != nil {
		return err
	}
	switch state {
	case StateAbsent:
		info("[stop] No deployment %s; nothing to stop", d.cfg.Name)
		return nil
	case StateRunning, StatePaused, StateRestarting:
	default:
		info("[stop] %s already stopped (%s)", d.cfg.Name, state)
		return nil
	}
	info("[stop] Stopping %s (grace %ds)", d.cfg.Name, d.cfg.Grace)
	if err := d.docker.Stop(ctx, d.cfg.Name, d.cfg.Grace); err != nil {
		return err
	}
	info("[stop] %s stopped", d.cfg.Name)
	return nil
}

// Logs attaches to the deployment's output.
func (d *Deployer) Logs(ctx context.Context) error {
	state, err := d.docker.ContainerState(ctx, d.cfg.Name)
	if err != nil {
		return err
	}
	if state == StateAbsent {
		return fmt.Errorf("%w named %s", ErrNoDeployment, d.cfg.Name)
	}
	return d.docker.Logs(ctx, d.cfg.Name, d.cfg.Follow, d.cfg.Tail, d.out)
}

// Status prints the container state and, when running, the aggregated readiness.
func (d *Deployer) Status(ctx context.Context) error {
	state, err := d.docker.ContainerState(ctx, d.cfg.Name)
	if err != nil {
		return err
	}
	if state != StateRunning {
		info("[status] %s: %s", d.cfg.Name, state)
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	readiness := "ready"
	if err := fnWaitHTTP(pctx, d.readyURL(), 200, time.Second); err != nil {
		readiness = "not ready"
	}
	info("[status] %s: %s, %s", d.cfg.Name, state, readiness)
	return nil
}

// Cleanup removes the container and the image. Cleaning a clean host succeeds.
func (d *Deployer) Cleanup(ctx context.Context) error {
	did := false
	state, err := d.docker.ContainerState(ctx, d.cfg.Name)
	if err != nil {
		return err
	}
	if state != StateAbsent {
		info("[cleanup] Removing container %s", d.cfg.Name)
		if err := d.docker.Remove(ctx, d.cfg.Name); err != nil {
			return err
		}
		did = true
	}
	ok, err := d.docker.ImageExists(ctx, d.cfg.Image)
	if err != nil {
		return err
	}
	if ok {
		info("[cleanup] Removing image %s", d.cfg.Image)
		if err := d.docker.RemoveImage(ctx, d.cfg.Image); err != nil {
			return err
		}
		did = true
	}
	if !did {
		info("[cleanup] Nothing to clean for %s", d.cfg.Name)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
