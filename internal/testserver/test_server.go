// Package testserver runs a complete hourbank HTTP server over an in-memory
// database for end-to-end tests.
package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ganot/hourbank/internal/app"
	"github.com/ganot/hourbank/internal/config"
	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/mcp"
	"github.com/ganot/hourbank/internal/sqlite"
	"github.com/ganot/hourbank/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server   *httptest.Server
	Store    *app.Store
	Services app.Services
	Token    string
	Actor    string
}

// New starts a server that requires bearer auth and registers token for
// actor.
func New(t *testing.T, token, actor string) *TestServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(":memory:", 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	store := app.NewSQLiteStore(db)

	components, err := app.Build(store, lifecycle.MustDefault(), nil, config.Default(), nil)
	require.NoError(t, err)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      components.Services,
		Resolver:      store.APIKeys,
		AuthEnabled:   true,
		TransportMode: "http",
		Version:       "test",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	router := transport.NewServer(components.Services, transport.Options{
		Auth: transport.AuthMiddleware(store.APIKeys),
		MCP:  mcpHandler,
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		Store:    store,
		Services: components.Services,
		Token:    token,
		Actor:    actor,
	}
	require.NoError(t, ts.AddAPIKey(token, actor))

	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
	})

	return ts
}

// AddAPIKey registers another token.
func (ts *TestServer) AddAPIKey(token, actor string) error {
	return ts.Store.APIKeys.Add(context.Background(), token, actor, "test key")
}

// URL returns the absolute URL of path on the server.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}
