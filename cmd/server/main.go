package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

	"github.com/ganot/hourbank/internal/app"
	"github.com/ganot/hourbank/internal/config"
	"github.com/ganot/hourbank/internal/mcp"
	"github.com/ganot/hourbank/internal/metrics"
	"github.com/ganot/hourbank/internal/notify"
	"github.com/ganot/hourbank/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hourbank: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the root without a subcommand
// serves, so the binary can be launched directly by MCP clients.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hourbank",
		Short:         "Project lifecycle and hour budget engine",
		Long:          "hourbank tracks project statuses and hour budgets and serves them over REST and MCP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newAPIKeyCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP or stdio server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newAPIKeyCmd() *cobra.Command {
	var actor, description string
	cmd := &cobra.Command{
		Use:     "apikey",
		Short:   "Issue a bearer token for an actor",
		Example: "hourbank apikey --actor alice --description \"CI pipeline\"",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(actor) == "" {
				return errors.New("apikey: --actor must not be blank")
			}
			env, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()
			return issueAPIKey(cmd.Context(), env.store, cmd.OutOrStdout(), actor, description)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor the key authenticates as (required)")
	cmd.Flags().StringVar(&description, "description", "", "free-form note stored with the key")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

// environment holds what every subcommand needs: config, logger and an open
// store.
type environment struct {
	cfg    config.Config
	logger *slog.Logger
	store  *app.Store
	close  func()
}

func setup(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	var closers []func()
	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			closers = append(closers, func() { _ = fileWriter.Close() })
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	store, err := app.OpenStore(ctx, cfg.DB, cfg.Ledger.LockTimeout, logger)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	return &environment{
		cfg:    cfg,
		logger: logger,
		store:  store,
		close: func() {
			_ = store.Close()
			for _, c := range closers {
				c()
			}
		},
	}, nil
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close()
	cfg, logger, store := env.cfg, env.logger, env.store

	machine, err := app.LoadMachine(cfg.Lifecycle.TablePath)
	if err != nil {
		return err
	}

	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		store.Activity = m.ObserveActivity(store.Activity)
		notifiers = append(notifiers, m)
	}

	components, err := app.Build(store, machine, notifiers, cfg, logger)
	if err != nil {
		return err
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      components.Services,
		Resolver:      store.APIKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	if cfg.Sweep.Enabled {
		g.Go(func() error {
			return components.Sweeper.Run(ctx, cfg.Sweep.Interval)
		})
	}

	if cfg.Transport.Mode == "stdio" {
		g.Go(func() error {
			// The process ends with stdin; stop the sweeper with it.
			defer cancel()
			return runStdioMode(ctx, logger, mcpServer)
		})
	} else {
		router := transport.NewServer(components.Services, transport.Options{
			Logger:      logger,
			Auth:        restAuth(cfg, store),
			MCP:         newMCPHandler(mcpServer),
			Metrics:     m,
			MetricsPath: cfg.Metrics.Path,
		})
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("server listening", "addr", httpServer.Addr, "auth", cfg.Auth.Enabled, "db", cfg.DB.Driver)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			logger.Info("shutting down")
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")
	// Run blocks until stdin closes or ctx is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func newMCPHandler(mcpServer *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)
}

func restAuth(cfg config.Config, store *app.Store) func(http.Handler) http.Handler {
	if !cfg.Auth.Enabled {
		return transport.HeaderActorMiddleware
	}
	return transport.AuthMiddleware(store.APIKeys)
}

// issueAPIKey stores a new bearer token for actor and prints it once.
func issueAPIKey(ctx context.Context, store *app.Store, out io.Writer, actor, description string) error {
	token, err := newToken()
	if err != nil {
		return err
	}
	if err := store.APIKeys.Add(ctx, token, strings.TrimSpace(actor), description); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "hb_" + hex.EncodeToString(buf), nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
