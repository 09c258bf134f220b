package deployctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeEngine emulates the subset of the docker CLI that Docker uses.
type fakeEngine struct {
	mu         sync.Mutex
	containers map[string]string // name -> state
	images     map[string]bool
	calls      []string
	failOn     string // subcommand that fails
	logs       string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{containers: map[string]string{}, images: map[string]bool{}}
}

func (f *fakeEngine) called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeEngine) exec(c Cmd) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := strings.Join(c.Args, " ")
	f.calls = append(f.calls, line)
	if len(c.Args) == 0 {
		return "", errors.New("no args")
	}
	if f.failOn != "" && strings.HasPrefix(line, f.failOn) {
		return "", &CmdError{Cmd: c.String(), Stderr: "simulated failure", Err: errors.New("exit status 1")}
	}
	last := c.Args[len(c.Args)-1]
	noSuch := func(kind string) error {
		return &CmdError{Cmd: c.String(), Stderr: fmt.Sprintf("Error: No such %s: %s", kind, last), Err: errors.New("exit status 1")}
	}
	switch {
	case strings.HasPrefix(line, "container inspect"):
		if st, ok := f.containers[last]; ok {
			return st, nil
		}
		return "", noSuch("object")
	case strings.HasPrefix(line, "image inspect"):
		if f.images[last] {
			return "sha256:abc", nil
		}
		return "", noSuch("image")
	case c.Args[0] == "build":
		f.images[c.Args[2]] = true
		return "", nil
	case c.Args[0] == "run":
		name := c.Args[3]
		if _, ok := f.containers[name]; ok {
			return "", &CmdError{Cmd: c.String(), Stderr: "Conflict. The container name is already in use", Err: errors.New("exit status 125")}
		}
		f.containers[name] = StateRunning
		return "0123456789abcdef0123", nil
	case c.Args[0] == "stop":
		if _, ok := f.containers[last]; !ok {
			return "", noSuch("container")
		}
		f.containers[last] = StateExited
		return last, nil
	case c.Args[0] == "rm":
		delete(f.containers, last)
		return last, nil
	case c.Args[0] == "rmi":
		if !f.images[last] {
			return "", noSuch("image")
		}
		delete(f.images, last)
		return "", nil
	case c.Args[0] == "logs":
		return f.logs, nil
	}
	return "", nil
}

func (f *fakeEngine) Run(ctx context.Context, c Cmd) error {
	out, err := f.exec(c)
	if err == nil && c.Stdout != nil && out != "" {
		_, _ = io.WriteString(c.Stdout, out)
	}
	return err
}

func (f *fakeEngine) Output(ctx context.Context, c Cmd) (string, error) { return f.exec(c) }

// withStubs swaps the runner and readiness wait for the duration of a test.
func withStubs(t *testing.T, eng *fakeEngine, ready bool) {
	t.Helper()
	oldRunner, oldWait := fnNewRunner, fnWaitHTTP
	fnNewRunner = func() Runner { return eng }
	fnWaitHTTP = func(ctx context.Context, url string, want int, every time.Duration) error {
		if ready {
			return nil
		}
		return fmt.Errorf("timed out waiting for %s", url)
	}
	t.Cleanup(func() { fnNewRunner, fnWaitHTTP = oldRunner, oldWait })
}
