package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	return home
}

func TestExpandHome(t *testing.T) {
	home := setHome(t)
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil || p != home {
		t.Fatalf("expected %q, got %q err=%v", home, p, err)
	}
	exp, err := ExpandHome("~/apps/ui")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if want := filepath.Join(home, "apps", "ui"); exp != want {
		t.Fatalf("expected %q, got %q", want, exp)
	}
}

func TestResolve(t *testing.T) {
	home := setHome(t)
	base := filepath.Join(string(filepath.Separator), "srv", "deploy")
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"app", filepath.Join(base, "app")},
		{"~/app", filepath.Join(home, "app")},
	}
	for _, c := range cases {
		got, err := Resolve(base, c.in)
		if err != nil || got != c.want {
			t.Fatalf("Resolve(%q) = %q, %v; want %q", c.in, got, err, c.want)
		}
	}
	if got, _ := Resolve("", "app"); got != "app" {
		t.Fatalf("relative without base should stay relative, got %q", got)
	}
}

func TestPathExists(t *testing.T) {
	d := t.TempDir()
	f := filepath.Join(d, "Dockerfile")
	if PathExists(f) {
		t.Fatalf("did not expect %s to exist", f)
	}
	if err := os.WriteFile(f, []byte("FROM scratch\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !PathExists(f) {
		t.Fatalf("expected %s to exist", f)
	}
}
