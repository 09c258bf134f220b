package deployctl

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// chooseFreePort finds an available TCP port by asking the kernel for :0
func chooseFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func isPortBusy(port int) (bool, string) {
	// Try connecting; if succeeds, someone is listening.
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return true, "tcp listener detected"
	}
	return false, ""
}

// waitHTTP polls url until it answers with want or ctx ends.
func waitHTTP(ctx context.Context, url string, want int, every time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	last := "no response"
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == want {
				return nil
			}
			last = resp.Status
		} else {
			last = err.Error()
		}
		select {
		case <-time.After(every):
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s to return %d (last: %s)", url, want, last)
		}
	}
}

func ensurePorts(ctx context.Context, r Runner, ports []int, force bool) error {
	for _, p := range ports {
		busy, desc := isPortBusy(p)
		if !busy {
			debug("[ports] Port %d is free", p)
			continue
		}
		warn("[ports] Port %d is busy: %s", p, desc)
		if !force {
			return fmt.Errorf("port %d is in use; re-run with --force or free it", p)
		}
		info("[ports] --force set; attempting to kill listeners on :%d", p)
		_ = r.Run(ctx, Cmd{Path: "fuser", Args: []string{"-k", fmt.Sprintf("%d/tcp", p)}})
		time.Sleep(300 * time.Millisecond)
		if busy2, _ := isPortBusy(p); busy2 {
			return fmt.Errorf("could not free port %d; still in use", p)
		}
		info("[ports] Freed port %d", p)
	}
	return nil
}
