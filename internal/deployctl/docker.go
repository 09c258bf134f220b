package deployctl

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Container states reported by docker inspect.
const (
	StateRunning    = "running"
	StateRestarting = "restarting"
	StateExited     = "exited"
	StateCreated    = "created"
	StatePaused     = "paused"
	StateAbsent     = "absent"
)

// Docker drives the docker CLI.
type Docker struct {
	Bin string
	R   Runner
}

// NewDocker returns a client for the docker binary bin.
func NewDocker(bin string, r Runner) *Docker {
	if bin == "" {
		bin = "docker"
	}
	if r == nil {
		r = execRunner{}
	}
	return &Docker{Bin: bin, R: r}
}

func (d *Docker) cmd(args ...string) Cmd { return Cmd{Path: d.Bin, Args: args} }

func isNoSuchObject(err error) bool {
	var ce *CmdError
	if !errors.As(err, &ce) {
		return false
	}
	s := strings.ToLower(ce.Stderr)
	return strings.Contains(s, "no such object") || strings.Contains(s, "no such container") || strings.Contains(s, "no such image")
}

// ContainerState returns the container's state, StateAbsent if it does not exist.
func (d *Docker) ContainerState(ctx context.Context, name string) (string, error) {
	out, err := d.R.Output(ctx, d.cmd("container", "inspect", "--format", "{{.State.Status}}", name))
	if err != nil {
		if isNoSuchObject(err) {
			return StateAbsent, nil
		}
		return "", err
	}
	return out, nil
}

// ImageExists reports whether image is present locally.
func (d *Docker) ImageExists(ctx context.Context, image string) (bool, error) {
	_, err := d.R.Output(ctx, d.cmd("image", "inspect", "--format", "{{.Id}}", image))
	if err != nil {
		if isNoSuchObject(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Build builds image from the build context dir.
func (d *Docker) Build(ctx context.Context, image, dockerfile, dir string) error {
	args := []string{"build", "-t", image}
	if dockerfile != "" {
		args = append(args, "-f", dockerfile)
	}
	return d.R.Run(ctx, d.cmd(append(args, dir)...))
}

// RunSpec describes a detached container start.
type RunSpec struct {
	Name        string
	Image       string
	Env         map[string]string
	Ports       map[int]int // host -> container
	StopTimeout int
}

// RunDetached starts a container in the background and returns its id.
func (d *Docker) RunDetached(ctx context.Context, rs RunSpec) (string, error) {
	args := []string{"run", "-d", "--name", rs.Name}
	if rs.StopTimeout > 0 {
		args = append(args, "--stop-timeout", strconv.Itoa(rs.StopTimeout))
	}
	for _, k := range sortedKeys(rs.Env) {
		args = append(args, "-e", k+"="+rs.Env[k])
	}
	for _, host := range sortedKeys(rs.Ports) {
		args = append(args, "-p", strconv.Itoa(host)+":"+strconv.Itoa(rs.Ports[host]))
	}
	return d.R.Output(ctx, d.cmd(append(args, rs.Image)...))
}

// Stop asks the container to stop, waiting up to grace seconds before docker kills it.
func (d *Docker) Stop(ctx context.Context, name string, grace int) error {
	_, err := d.R.Output(ctx, d.cmd("stop", "-t", strconv.Itoa(grace), name))
	return err
}

// Remove force-removes a container.
func (d *Docker) Remove(ctx context.Context, name string) error {
	_, err := d.R.Output(ctx, d.cmd("rm", "-f", name))
	return err
}

// RemoveImage deletes a local image.
func (d *Docker) RemoveImage(ctx context.Context, image string) error {
	_, err := d.R.Output(ctx, d.cmd("rmi", image))
	return err
}

// Logs copies container output to w.
func (d *Docker) Logs(ctx context.Context, name string, follow bool, tail string, w io.Writer) error {
	args := []string{"logs"}
	if follow {
		args = append(args, "-f")
	}
	if tail != "" {
		args = append(args, "--tail", tail)
	}
	c := d.cmd(append(args, name)...)
	c.Stdout, c.Stderr = w, w
	return d.R.Run(ctx, c)
}
