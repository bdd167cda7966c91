package mcp

import (
	"log/slog"

	"github.com/ganot/hourbank/internal/app"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Config contains server configuration.
type Config struct {
	Services      app.Services
	Resolver      ActorResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "hourbank",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server, cfg.Services.Lifecycle.Machine())

	// Stdio is local only and never authenticates.
	actor := headerActorMiddleware(DefaultActor)
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		actor = authMiddleware(cfg.Resolver)
	}
	// Within one call the first middleware runs outermost.
	server.AddReceivingMiddleware(actor, trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	registerTools(server, &handler{services: cfg.Services, logger: logger})

	return server
}
