package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/BradenHooton/haulgate/internal/challenge"
	"github.com/BradenHooton/haulgate/internal/classify"
	"github.com/BradenHooton/haulgate/internal/client"
	"github.com/BradenHooton/haulgate/internal/config"
	"github.com/BradenHooton/haulgate/internal/credentials"
	"github.com/BradenHooton/haulgate/internal/device"
	"github.com/BradenHooton/haulgate/internal/metrics"
	"github.com/BradenHooton/haulgate/internal/session"
)

var version = "dev"

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
	env := device.NewHostEnvironment(cfg.AppName, version)
	userAgent, _ := env.UserAgent()

	api := client.New(cfg.APIBaseURL, logger,
		client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		client.WithMetrics(m),
		client.WithTracer(otel.Tracer("github.com/BradenHooton/haulgate/cmd/login")),
		client.WithUserAgent(userAgent),
	)

	devices := device.NewProvider(device.NewFileStore(cfg.DeviceStorePath), env, logger)
	contexts := challenge.NewMemoryContextStore()
	classifier := classify.New(cfg.SupportEmail)
	nav := newNavChannel()

	tokens := session.NewFileTokenStore(cfg.TokenStorePath)
	newEstablisher := func() *session.Establisher {
		return session.NewEstablisher(tokens, nav, logger, session.WithRedirectDelay(cfg.RedirectDelay))
	}

	login := credentials.NewHandler(api, devices, contexts, newEstablisher(), classifier, logger,
		credentials.WithMaxAttempts(cfg.MaxLoginAttempts),
		credentials.WithMetrics(m),
	)

	// a closed Establisher never redirects again, so every code screen gets its own
	newController := func() *challenge.Controller {
		return challenge.NewController(api, devices, newEstablisher(), contexts, nav, classifier, logger,
			challenge.WithConfig(challenge.Config{
				ResendCooldown: int(cfg.ResendCooldown.Seconds()),
				ClearOnReject:  cfg.ClearOnReject,
			}),
			challenge.WithInitialCooldown(int(cfg.InitialCooldown.Seconds())),
			challenge.WithMetrics(m),
		)
	}

	t := &terminal{
		in:            bufio.NewScanner(os.Stdin),
		out:           os.Stdout,
		login:         login,
		newController: newController,
		nav:           nav,
	}

	if err := t.run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
