package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ganot/hourbank/internal/app"
	"github.com/ganot/hourbank/internal/config"
	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/metrics"
	"github.com/ganot/hourbank/internal/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sqlite.New(":memory:", time.Second)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))

	store := app.NewSQLiteStore(db)
	components, err := app.Build(store, lifecycle.MustDefault(), nil, config.Default(), nil)
	require.NoError(t, err)

	server := httptest.NewServer(NewServer(components.Services, Options{}))
	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
	})
	return server
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ActorHeader, "alice")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func createProject(t *testing.T, server *httptest.Server, body string) project.Project {
	t.Helper()

	resp, data := doJSON(t, http.MethodPost, server.URL+"/api/v1/projects", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var proj project.Project
	require.NoError(t, json.Unmarshal(data, &proj))
	return proj
}

func TestHTTPServer_Health(t *testing.T) {
	server := newTestAPI(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_CreateAndGetProject(t *testing.T) {
	server := newTestAPI(t)

	proj := createProject(t, server, `{"name":"Website","totalHours":"40.5"}`)
	assert.Equal(t, fmt.Sprintf("1-%d", time.Now().UTC().Year()), proj.Code)
	assert.Equal(t, project.StatusActive, proj.Status)
	assert.Equal(t, "alice", proj.CreatedBy)
	assert.Equal(t, "alice", proj.OwnerID)
	assert.True(t, proj.TotalHours.Equal(decimal.RequireFromString("40.5")))

	resp, data := doJSON(t, http.MethodGet, server.URL+"/api/v1/projects/"+proj.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got project.Project
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, proj.ID, got.ID)
	assert.True(t, got.UsedHours.IsZero())

	resp, data = doJSON(t, http.MethodGet, server.URL+"/api/v1/projects?status=Active", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Projects []project.Project `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Projects, 1)
}

func TestHTTPServer_CreateProjectValidation(t *testing.T) {
	server := newTestAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing hours", body: `{"name":"Website"}`},
		{name: "negative hours", body: `{"name":"Website","totalHours":-1}`},
		{name: "missing name", body: `{"totalHours":10}`},
		{name: "unknown field", body: `{"name":"Website","totalHours":10,"color":"red"}`},
		{name: "malformed", body: `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := doJSON(t, http.MethodPost, server.URL+"/api/v1/projects", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))
			assert.Contains(t, string(data), `"code":"validation"`)
		})
	}
}

func TestHTTPServer_ListProjectsInvalidStatus(t *testing.T) {
	server := newTestAPI(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/projects?status=Dormant", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_NotFound(t *testing.T) {
	server := newTestAPI(t)

	resp, data := doJSON(t, http.MethodGet, server.URL+"/api/v1/projects/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(data), `"code":"not_found"`)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/projects/missing/hours", `{"hoursToAdd":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_Transitions(t *testing.T) {
	server := newTestAPI(t)
	proj := createProject(t, server, `{"name":"Website","totalHours":10}`)
	base := server.URL + "/api/v1/projects/" + proj.ID

	resp, data := doJSON(t, http.MethodGet, base+"/transitions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var valid lifecycle.ValidTransitions
	require.NoError(t, json.Unmarshal(data, &valid))
	assert.Equal(t, project.StatusActive, valid.CurrentStatus)
	assert.Contains(t, valid.ValidNextStates, project.StatusOnHold)
	assert.Contains(t, valid.RequiresReason, project.StatusOnHold)

	resp, _ = doJSON(t, http.MethodPost, base+"/status", `{"status":"On Hold"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/status", `{"status":"Pending"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/status", `{"status":"Dormant"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = doJSON(t, http.MethodPost, base+"/status", `{"status":"On Hold","reason":"waiting on client"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var result lifecycle.TransitionResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, project.StatusOnHold, result.Project.Status)
	assert.NotEmpty(t, result.HistoryID)

	resp, data = doJSON(t, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		History    []project.StatusHistoryEntry `json:"history"`
		Pagination pagination                   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(data, &history))
	require.Len(t, history.History, 1)
	assert.Equal(t, project.StatusActive, history.History[0].FromStatus)
	assert.Equal(t, project.StatusOnHold, history.History[0].ToStatus)
	assert.Equal(t, "alice", history.History[0].ChangedBy)
	assert.Equal(t, 1, history.Pagination.Total)

	resp, data = doJSON(t, http.MethodGet, base+"/acceptance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"canAccept":false`)
}

func TestHTTPServer_ConsumeAndRelease(t *testing.T) {
	server := newTestAPI(t)
	proj := createProject(t, server, `{"name":"Website","totalHours":10}`)
	hours := server.URL + "/api/v1/projects/" + proj.ID + "/hours"

	resp, data := doJSON(t, http.MethodPost, hours, `{"hoursToAdd":6}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var body struct {
		Project project.Project `json:"project"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.True(t, body.Project.UsedHours.Equal(decimal.NewFromInt(6)))

	resp, data = doJSON(t, http.MethodPost, hours, `{"hoursToAdd":5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), "Insufficient hours")

	resp, _ = doJSON(t, http.MethodPost, hours, `{"hoursToAdd":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, hours, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = doJSON(t, http.MethodPost, hours, `{"hoursToAdd":-10}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &body))
	assert.True(t, body.Project.UsedHours.IsZero())

	resp, data = doJSON(t, http.MethodGet, hours+"/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var txns struct {
		Transactions []project.HourTransaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(data, &txns))
	require.Len(t, txns.Transactions, 3)
	assert.Equal(t, project.KindAllocation, txns.Transactions[0].Kind)
	assert.Equal(t, project.KindConsumption, txns.Transactions[1].Kind)
	assert.Equal(t, project.KindRelease, txns.Transactions[2].Kind)
	assert.True(t, txns.Transactions[2].Delta.Equal(decimal.NewFromInt(-6)))

	resp, data = doJSON(t, http.MethodGet, hours+"/verify", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"valid":true`)
}

func TestHTTPServer_ExtendAndAdjust(t *testing.T) {
	server := newTestAPI(t)
	proj := createProject(t, server, `{"name":"Website","totalHours":10}`)
	hours := server.URL + "/api/v1/projects/" + proj.ID + "/hours"

	resp, data := doJSON(t, http.MethodPost, hours+"/extend", `{"additionalHours":5,"reason":"scope grew"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var ext struct {
		Project   project.Project `json:"project"`
		Extension struct {
			AdditionalHours decimal.Decimal `json:"additionalHours"`
			AvailableHours  decimal.Decimal `json:"availableHours"`
		} `json:"extension"`
	}
	require.NoError(t, json.Unmarshal(data, &ext))
	assert.True(t, ext.Project.TotalHours.Equal(decimal.NewFromInt(15)))
	assert.True(t, ext.Extension.AvailableHours.Equal(decimal.NewFromInt(15)))

	resp, _ = doJSON(t, http.MethodPost, hours+"/extend", `{"additionalHours":0,"reason":"scope grew"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, hours+"/extend", `{"additionalHours":5,"reason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = doJSON(t, http.MethodPost, hours+"/adjust", `{"adjustment":3,"reason":"missed timesheet"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var adj struct {
		Adjustment struct {
			Hours         decimal.Decimal `json:"hours"`
			BalanceBefore decimal.Decimal `json:"balanceBefore"`
			BalanceAfter  decimal.Decimal `json:"balanceAfter"`
		} `json:"adjustment"`
	}
	require.NoError(t, json.Unmarshal(data, &adj))
	assert.True(t, adj.Adjustment.BalanceBefore.IsZero())
	assert.True(t, adj.Adjustment.BalanceAfter.Equal(decimal.NewFromInt(3)))

	resp, _ = doJSON(t, http.MethodPost, hours+"/adjust", `{"adjustment":-5,"reason":"too much"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, hours+"/adjust", `{"adjustment":100,"reason":"too much"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHTTPServer_ExpireOverdueAndNearDeadline(t *testing.T) {
	server := newTestAPI(t)

	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	soon := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	overdue := createProject(t, server, fmt.Sprintf(`{"name":"Late","totalHours":1,"deadline":%q}`, past))
	upcoming := createProject(t, server, fmt.Sprintf(`{"name":"Soon","totalHours":1,"deadline":%q}`, soon))

	resp, data := doJSON(t, http.MethodGet, server.URL+"/api/v1/projects/near-deadline?daysAhead=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var near struct {
		Projects  []project.Project `json:"projects"`
		DaysAhead int               `json:"daysAhead"`
	}
	require.NoError(t, json.Unmarshal(data, &near))
	require.Len(t, near.Projects, 1)
	assert.Equal(t, upcoming.ID, near.Projects[0].ID)
	assert.Equal(t, 3, near.DaysAhead)

	_, data = doJSON(t, http.MethodGet, server.URL+"/api/v1/projects/near-deadline", nil)
	require.NoError(t, json.Unmarshal(data, &near))
	assert.Equal(t, 7, near.DaysAhead)
	require.Len(t, near.Projects, 1)

	near.Projects = nil
	_, data = doJSON(t, http.MethodGet, server.URL+"/api/v1/projects/near-deadline?daysAhead=0", nil)
	require.NoError(t, json.Unmarshal(data, &near))
	assert.Equal(t, 0, near.DaysAhead)
	assert.Empty(t, near.Projects)

	resp, data = doJSON(t, http.MethodPost, server.URL+"/api/v1/projects/expire-overdue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var expired struct {
		Message         string   `json:"message"`
		ExpiredProjects []string `json:"expiredProjects"`
	}
	require.NoError(t, json.Unmarshal(data, &expired))
	assert.Equal(t, "Expired 1 project", expired.Message)
	assert.Equal(t, []string{overdue.ID}, expired.ExpiredProjects)

	resp, data = doJSON(t, http.MethodPost, server.URL+"/api/v1/projects/expire-overdue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &expired))
	assert.Equal(t, "Expired 0 projects", expired.Message)
	assert.Empty(t, expired.ExpiredProjects)
}

func TestHTTPServer_RenameAndDelete(t *testing.T) {
	server := newTestAPI(t)
	proj := createProject(t, server, `{"name":"Website","totalHours":10}`)
	base := server.URL + "/api/v1/projects/" + proj.ID

	resp, data := doJSON(t, http.MethodPatch, base, `{"name":"Web Shop"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), `"name":"Web Shop"`)

	resp, data = doJSON(t, http.MethodGet, base+"/activity", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "project_renamed")

	resp, _ = doJSON(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_AuthRequired(t *testing.T) {
	db, err := sqlite.New(":memory:", time.Second)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	store := app.NewSQLiteStore(db)
	t.Cleanup(func() { _ = store.Close() })

	components, err := app.Build(store, lifecycle.MustDefault(), nil, config.Default(), nil)
	require.NoError(t, err)
	require.NoError(t, store.APIKeys.Add(context.Background(), "secret", "carol", "test"))

	server := httptest.NewServer(NewServer(components.Services, Options{Auth: AuthMiddleware(store.APIKeys)}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/api/v1/projects")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/projects", bytes.NewBufferString(`{"name":"Website","totalHours":1}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var proj project.Project
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proj))
	assert.Equal(t, "carol", proj.CreatedBy)
}

func TestHTTPServer_Metrics(t *testing.T) {
	db, err := sqlite.New(":memory:", time.Second)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	store := app.NewSQLiteStore(db)
	t.Cleanup(func() { _ = store.Close() })

	components, err := app.Build(store, lifecycle.MustDefault(), nil, config.Default(), nil)
	require.NoError(t, err)

	server := httptest.NewServer(NewServer(components.Services, Options{Metrics: metrics.New()}))
	t.Cleanup(server.Close)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/projects/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data := doJSON(t, http.MethodGet, server.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `route="/api/v1/projects/{id}`)
}
