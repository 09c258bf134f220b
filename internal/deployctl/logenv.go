package deployctl

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Status lines go to logOut as "<time> LEVEL message"; operators read them,
// so they stay plain text rather than structured events.
var (
	minLevel           = zerolog.InfoLevel
	logOut   io.Writer = os.Stdout
)

func init() {
	SetLogLevel(envStr("DEPLOYCTL_LOG_LEVEL", "info"))
}

// SetLogLevel sets the lowest level printed. Unknown names mean info.
func SetLogLevel(level string) {
	name := strings.ToLower(strings.TrimSpace(level))
	l, err := zerolog.ParseLevel(name)
	switch {
	case name == "warning":
		l = zerolog.WarnLevel
	case name == "err":
		l = zerolog.ErrorLevel
	case err != nil || l == zerolog.NoLevel:
		l = zerolog.InfoLevel
	}
	minLevel = l
}

func logf(l zerolog.Level, format string, a ...any) {
	if l < minLevel {
		return
	}
	fmt.Fprintf(logOut, "%s %s %s\n", time.Now().Format(time.TimeOnly), strings.ToUpper(l.String()), fmt.Sprintf(format, a...))
}

func debug(format string, a ...any) { logf(zerolog.DebugLevel, format, a...) }
func info(format string, a ...any)  { logf(zerolog.InfoLevel, format, a...) }
func warn(format string, a ...any)  { logf(zerolog.WarnLevel, format, a...) }
func errl(format string, a ...any)  { logf(zerolog.ErrorLevel, format, a...) }

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envBool accepts strconv.ParseBool values plus yes/no.
func envBool(key string, def bool) bool {
	v := strings.ToLower(envStr(key, ""))
	switch v {
	case "":
		return def
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(envStr(key, ""))
	if err != nil {
		return def
	}
	return n
}
