package deployctl

import (
	"bytes"
	"strings"
	"testing"
)

func TestEnvStr(t *testing.T) {
	key := "DEPLOYCTL_ENV_STR"
	t.Setenv(key, "")
	if got := envStr(key, "def"); got != "def" {
		t.Fatalf("envStr default: got %q", got)
	}
	t.Setenv(key, "val")
	if got := envStr(key, "def"); got != "val" {
		t.Fatalf("envStr set: got %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	key := "DEPLOYCTL_ENV_BOOL"
	t.Setenv(key, "")
	if !envBool(key, true) || envBool(key, false) {
		t.Fatalf("envBool should return default when unset")
	}
	for _, v := range []string{"1", "true", "YES"} {
		t.Setenv(key, v)
		if !envBool(key, false) {
			t.Fatalf("envBool %s -> false", v)
		}
	}
	t.Setenv(key, "no")
	if envBool(key, true) {
		t.Fatalf("envBool no -> true")
	}
}

func TestEnvInt(t *testing.T) {
	key := "DEPLOYCTL_ENV_INT"
	t.Setenv(key, "")
	if got := envInt(key, 7); got != 7 {
		t.Fatalf("envInt default -> %d", got)
	}
	t.Setenv(key, "42")
	if got := envInt(key, 0); got != 42 {
		t.Fatalf("envInt 42 -> %d", got)
	}
	t.Setenv(key, "bad")
	if got := envInt(key, 5); got != 5 {
		t.Fatalf("envInt bad -> %d", got)
	}
}

func TestLogLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	old := logOut
	logOut = &buf
	t.Cleanup(func() { logOut = old; SetLogLevel("info") })

	SetLogLevel("warn")
	info("hidden")
	warn("shown %d", 1)
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "WARN shown 1") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
