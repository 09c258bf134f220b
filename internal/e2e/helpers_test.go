package e2e

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"dualserve/internal/service"
)

// buildFakeService compiles testdata/fake_service.go once per test.
func buildFakeService(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e in -short mode")
	}
	bin := filepath.Join(t.TempDir(), "fake_service")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_service.go")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake service: %v: %s", err, string(out))
	}
	return bin
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func fakeSpec(t *testing.T, bin, name, path string, extra ...string) service.Spec {
	t.Helper()
	return service.Spec{
		Name:       name,
		Host:       "127.0.0.1",
		Port:       freePort(t),
		Command:    bin,
		Args:       append([]string{"-host", "{host}", "-port", "{port}", "-path", path}, extra...),
		HealthPath: path,
	}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// statusOf returns the status code of a GET, or an error when nothing
// answered.
func statusOf(url string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// waitStatus polls url until it returns want or the deadline passes. A
// service that is not listening yet counts as not there yet.
func waitStatus(t *testing.T, url string, want int, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	last := "no response"
	for time.Now().Before(deadline) {
		code, err := statusOf(url)
		if err == nil && code == want {
			return
		}
		if err != nil {
			last = err.Error()
		} else {
			last = http.StatusText(code)
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("%s: expected %d within %s, last %s", url, want, within, last)
}
