package functional_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// stdioSession wraps an MCP client session for stdio transport testing
type stdioSession struct {
	session *sdkmcp.ClientSession
}

func newStdioSession(t *testing.T, extraEnv ...string) *stdioSession {
	t.Helper()

	binaryPath := "./bin/hourbank"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		binaryPath = "../../bin/hourbank"
		if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
			t.Skip("Server binary not found. Run 'go build -o bin/hourbank ./cmd/server' first.")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = append(os.Environ(),
		"HOURBANK_TRANSPORT_MODE=stdio",
		"HOURBANK_DB_DRIVER=sqlite",
		"HOURBANK_DB_PATH=:memory:",
		"HOURBANK_SWEEP_ENABLED=false",
	)
	cmd.Env = append(cmd.Env, extraEnv...)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		cancel()
	})

	return &stdioSession{session: session}
}

func (s *stdioSession) callTool(t *testing.T, name string, args map[string]any) (json.RawMessage, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content, "Tool %s returned no content", name)

	for _, content := range result.Content {
		if textContent, ok := content.(*sdkmcp.TextContent); ok {
			return json.RawMessage(textContent.Text), result.IsError
		}
	}
	t.Fatalf("Tool %s returned no text content", name)
	return nil, false
}

func (s *stdioSession) mustCallTool(t *testing.T, name string, args map[string]any) json.RawMessage {
	t.Helper()
	out, isErr := s.callTool(t, name, args)
	require.False(t, isErr, "Tool %s returned error: %s", name, out)
	return out
}

func TestStdioFunctional_Handshake(t *testing.T) {
	s := newStdioSession(t)

	initResult := s.session.InitializeResult()
	require.Equal(t, "hourbank", initResult.ServerInfo.Name)

	tools, err := s.session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, tools.Tools)

	doc, err := s.session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "hourbank://docs/lifecycle"})
	require.NoError(t, err)
	require.NotEmpty(t, doc.Contents)
	require.Contains(t, doc.Contents[0].Text, "Expired")
}

func TestStdioFunctional_BudgetWorkflow(t *testing.T) {
	s := newStdioSession(t)

	var created struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		CreatedBy string `json:"createdBy"`
	}
	require.NoError(t, json.Unmarshal(s.mustCallTool(t, "create_project", map[string]any{
		"name":        "Stdio project",
		"total_hours": 4,
	}), &created))
	require.Equal(t, "Active", created.Status)
	require.Equal(t, "mcp", created.CreatedBy)

	s.mustCallTool(t, "consume_hours", map[string]any{"project_id": created.ID, "hours": 4})

	var acceptance struct {
		CanAccept bool   `json:"canAccept"`
		Warning   string `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(s.mustCallTool(t, "check_acceptance", map[string]any{"project_id": created.ID}), &acceptance))
	require.True(t, acceptance.CanAccept)
	require.NotEmpty(t, acceptance.Warning)

	out, isErr := s.callTool(t, "consume_hours", map[string]any{"project_id": created.ID, "hours": 0.5})
	require.True(t, isErr)
	require.Contains(t, string(out), "Insufficient hours")

	s.mustCallTool(t, "release_hours", map[string]any{"project_id": created.ID, "hours": 10})

	var proj struct {
		UsedHours string `json:"usedHours"`
	}
	require.NoError(t, json.Unmarshal(s.mustCallTool(t, "get_project", map[string]any{"project_id": created.ID}), &proj))
	require.Equal(t, "0", proj.UsedHours)
}

func TestStdioFunctional_BlockPolicy(t *testing.T) {
	s := newStdioSession(t, "HOURBANK_EXHAUSTED_HOURS=block")

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(s.mustCallTool(t, "create_project", map[string]any{
		"name":        "No budget",
		"total_hours": 0,
	}), &created))

	var acceptance struct {
		CanAccept bool   `json:"canAccept"`
		Reason    string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(s.mustCallTool(t, "check_acceptance", map[string]any{"project_id": created.ID}), &acceptance))
	require.False(t, acceptance.CanAccept)
	require.Equal(t, "Project has no available hours", acceptance.Reason)
}
