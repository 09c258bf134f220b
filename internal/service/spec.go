package service

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
)

// Well-known service names.
const (
	NamePredict = "predict"
	NameUI      = "ui"
)

// Spec describes one launchable service. It is built from configuration at
// startup and never mutated after launch.
type Spec struct {
	Name       string
	Host       string
	Port       int
	Command    string
	Args       []string
	Env        map[string]string
	Dir        string
	HealthPath string
}

// Addr is the bind address handed to the child.
func (s Spec) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ProbeHost returns the host used to reach the service from the supervisor.
// Wildcard bind addresses are reached over loopback.
func (s Spec) ProbeHost() string {
	if isWildcard(s.Host) {
		return "127.0.0.1"
	}
	return s.Host
}

func isWildcard(host string) bool {
	switch strings.TrimSpace(host) {
	case "", "0.0.0.0", "::", "[::]":
		return true
	}
	return false
}

// BindsOver reports whether s and o would compete for the same listening
// socket: same port, and the same host or a wildcard on either side.
func (s Spec) BindsOver(o Spec) bool {
	if s.Port != o.Port {
		return false
	}
	return isWildcard(s.Host) || isWildcard(o.Host) || strings.EqualFold(strings.TrimSpace(s.Host), strings.TrimSpace(o.Host))
}

// HealthURL is the full URL of the service's readiness route.
func (s Spec) HealthURL() string {
	p := s.HealthPath
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "http://" + net.JoinHostPort(s.ProbeHost(), strconv.Itoa(s.Port)) + p
}

// ExpandedArgs substitutes {host}, {port} and {name} in the configured args.
func (s Spec) ExpandedArgs() []string {
	r := strings.NewReplacer("{host}", s.Host, "{port}", strconv.Itoa(s.Port), "{name}", s.Name)
	out := make([]string, len(s.Args))
	for i, a := range s.Args {
		out[i] = r.Replace(a)
	}
	return out
}

// Environ returns the extra environment for the child: the configured Env
// plus HOST and PORT, sorted for stable output.
func (s Spec) Environ() []string {
	env := []string{"HOST=" + s.Host, "PORT=" + strconv.Itoa(s.Port)}
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+s.Env[k])
	}
	return env
}

// Validate checks the fields a launch needs.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("service name is empty")
	}
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("service %s: command is empty", s.Name)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("service %s: invalid port %d", s.Name, s.Port)
	}
	return nil
}
