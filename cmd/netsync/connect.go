package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/client"
)

type connectOptions struct {
	addr        string
	udpAddr     string
	username    string
	tick        time.Duration
	metricsAddr string
	logLevel    string
	noRateLimit bool
}

func connectCmd() *cobra.Command {
	var o connectOptions

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server and stay in sync",
		Long: `Connect to a server over TCP or WebSocket plus UDP.

Lines typed on stdin are sent as chat. "/history" toggles the chat
history view. Interrupt to disconnect.

Examples:
  netsync connect --addr=127.0.0.1:26950 --udp=127.0.0.1:26950 --username=alice
  netsync connect --addr=ws://127.0.0.1:8080/ws --metrics-addr=:9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd.Context(), o, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&o.addr, "addr", "a", "127.0.0.1:26950", "Reliable endpoint: host:port for TCP or a ws:// URL")
	cmd.Flags().StringVarP(&o.udpAddr, "udp", "u", "127.0.0.1:26950", "UDP endpoint (empty disables the datagram channel)")
	cmd.Flags().StringVarP(&o.username, "username", "n", "player", "Username sent after Welcome")
	cmd.Flags().DurationVar(&o.tick, "tick", time.Second/30, "Tick interval")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&o.noRateLimit, "no-rate-limit", false, "Disable inbound datagram rate limiting")

	return cmd
}

func runConnect(ctx context.Context, o connectOptions, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if o.metricsAddr != "" {
		srv := serveMetrics(o.metricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	tc := client.DefaultTransportConfig()
	if o.noRateLimit {
		tc.RateLimit = client.NoRateLimit()
	}

	cfg := client.NewConfigWithTransport(o.addr, o.udpAddr, o.username, tc)
	cfg.TickRate = o.tick
	cfg.Logger = logger
	cfg.Metrics = reg
	cfg.Renderer = newLogRenderer(logger)
	cfg.ChatView = newConsoleView(out)

	sess, err := client.New(cfg)
	if err != nil {
		return err
	}
	if err := sess.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			logger.Warn("close", "error", err)
		}
	}()

	logger.Info("session started", "session", sess.ID(), "addr", o.addr, "udp", o.udpAddr)

	return loop(ctx, sess, readLines(in), o.tick, logger)
}

// loop ticks the session and relays stdin lines until ctx is done.
func loop(ctx context.Context, sess netsync.Session, lines <-chan string, tick time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			sess.Tick(ctx)

		case ev := <-sess.Health():
			logger.Warn("unhealthy", "channel", ev.Channel, "reason", ev.Reason, "failures", ev.Failures, "error", ev.Err)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if err := relay(ctx, sess, line); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("chat not sent", "error", err)
			}
		}
	}
}

// relay handles one stdin line.
func relay(ctx context.Context, sess netsync.Session, line string) error {
	if strings.TrimSpace(line) == "/history" {
		sess.ToggleChat()
		return nil
	}
	return sess.SendChat(ctx, line)
}

func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	return srv
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}
