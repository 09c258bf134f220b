package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

func main() {
	var (
		host       string
		port       int
		path       string
		readyAfter time.Duration
		exitAfter  time.Duration
		exitCode   int
	)
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.IntVar(&port, "port", 0, "port")
	flag.StringVar(&path, "path", "/", "health path")
	flag.DurationVar(&readyAfter, "ready-after", 0, "report 503 until this much time has passed")
	flag.DurationVar(&exitAfter, "exit-after", 0, "exit on its own after this long")
	flag.IntVar(&exitCode, "exit-code", 0, "code used with -exit-after")
	flag.Parse()

	start := time.Now()
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if time.Since(start) < readyAfter {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: net.JoinHostPort(host, strconv.Itoa(port)), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	var exitC <-chan time.Time
	if exitAfter > 0 {
		exitC = time.After(exitAfter)
	}
	select {
	case <-sigCh:
	case <-exitC:
		os.Exit(exitCode)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
