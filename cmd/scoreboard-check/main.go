package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/scorecheck"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 2 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the tournament service")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every ranked entry")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	if _, err := scorecheck.Run(ctx, &scorecheck.Config{
		BaseURL: *baseURL,
		Timeout: *timeout,
		Verbose: *verbose,
	}); err != nil {
		cancel()
		os.Exit(1)
	}
}
