package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/testutil"
	"github.com/guestflow/guestflow/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *testutil.Harness) {
	t.Helper()

	h := testutil.NewHarness(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewAPIHandlers(h.Orchestrator, h.Manager, h.Repos, h.Registry, validate)

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return app, h
}

func doJSON(t *testing.T, app *fiber.App, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Buffer

	if payload == nil {
		reqBody = bytes.NewBuffer(nil)
	} else if str, ok := payload.(string); ok {
		reqBody = bytes.NewBufferString(str)
	} else {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, url, reqBody)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestAPIHandlers_CreateGuest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "successful creation",
			requestBody: web.CreateGuestRequest{
				Name:     "Alice",
				Phone:    "+15550001111",
				Category: "family",
				Tags:     []string{"vip"},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing phone",
			requestBody:    web.CreateGuestRequest{Name: "Alice"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp, body := doJSON(t, app, http.MethodPost, "/projects/p1/guests/", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var guest models.Guest
				require.NoError(t, json.Unmarshal(body, &guest))
				assert.NotEmpty(t, guest.ID)
				assert.Equal(t, "p1", guest.ProjectID)
				assert.Equal(t, "Alice", guest.Name)
				assert.Equal(t, models.RSVPPending, guest.RSVPStatus)
			}
		})
	}
}

func TestAPIHandlers_PublishChatflow(t *testing.T) {
	t.Parallel()

	app, h := setupTestApp(t)

	tpl := h.SeedTemplate(t, "p1", "invite", "Hello {{guest_name}}")

	createBody := web.CreateChatflowRequest{Name: "rsvp flow"}
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{"variable": "reply"})
	createBody.Nodes = nodes
	createBody.Edges = edges

	resp, body := doJSON(t, app, http.MethodPost, "/projects/p1/chatflows/", createBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var flow models.Chatflow
	require.NoError(t, json.Unmarshal(body, &flow))
	assert.Equal(t, models.ChatflowStatusDraft, flow.Status)

	resp, body = doJSON(t, app, http.MethodPost, "/projects/p1/chatflows/"+flow.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.Unmarshal(body, &flow))
	assert.Equal(t, models.ChatflowStatusPublished, flow.Status)
}

func TestAPIHandlers_PublishChatflow_RejectsInvalidGraph(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	// No trigger node.
	createBody := web.CreateChatflowRequest{
		Name:  "broken flow",
		Nodes: []*models.Node{{ID: "finish", Type: models.NodeTypeEnd}},
	}

	resp, body := doJSON(t, app, http.MethodPost, "/projects/p1/chatflows/", createBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var flow models.Chatflow
	require.NoError(t, json.Unmarshal(body, &flow))

	resp, _ = doJSON(t, app, http.MethodPost, "/projects/p1/chatflows/"+flow.ID+"/publish", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_StartCampaign_EmptyAudience(t *testing.T) {
	t.Parallel()

	app, h := setupTestApp(t)

	tpl := h.SeedTemplate(t, "p1", "invite", "Hello {{guest_name}}")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{"variable": "reply"})
	flow := h.SeedChatflow(t, "p1", "rsvp flow", nodes, edges)
	camp := h.SeedCampaign(t, "p1", "launch", flow.ID, models.GuestFilter{Categories: []string{"nobody"}})

	resp, _ := doJSON(t, app, http.MethodPost, "/projects/p1/campaigns/"+camp.ID+"/start", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAPIHandlers_CampaignLifecycle(t *testing.T) {
	t.Parallel()

	app, h := setupTestApp(t)

	h.SeedGuest(t, "p1", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "p1", "invite", "Hello {{guest_name}}")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{"variable": "reply"})
	flow := h.SeedChatflow(t, "p1", "rsvp flow", nodes, edges)
	camp := h.SeedCampaign(t, "p1", "launch", flow.ID, models.GuestFilter{})

	resp, body := doJSON(t, app, http.MethodPost, "/projects/p1/campaigns/"+camp.ID+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var started models.Campaign
	require.NoError(t, json.Unmarshal(body, &started))
	assert.Equal(t, models.CampaignStatusRunning, started.Status)

	// A second start is an invalid transition.
	resp, _ = doJSON(t, app, http.MethodPost, "/projects/p1/campaigns/"+camp.ID+"/start", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/projects/p1/campaigns/"+camp.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats models.CampaignStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.TotalExecutions)
}

func TestAPIHandlers_GetCampaign_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/projects/p1/campaigns/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_BulkCancel_ValidatesBody(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/projects/p1/executions/cancel", web.BulkActionRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_BulkCancel_ReportsPerID(t *testing.T) {
	t.Parallel()

	app, h := setupTestApp(t)

	h.SeedGuest(t, "p1", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "p1", "invite", "Hello {{guest_name}}")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{"variable": "reply"})
	flow := h.SeedChatflow(t, "p1", "rsvp flow", nodes, edges)
	camp := h.SeedCampaign(t, "p1", "launch", flow.ID, models.GuestFilter{})

	resp, _ := doJSON(t, app, http.MethodPost, "/projects/p1/campaigns/"+camp.ID+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	execs, err := h.Manager.ListByCampaign(t.Context(), "p1", camp.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)

	resp, body := doJSON(t, app, http.MethodPost, "/projects/p1/executions/cancel", web.BulkActionRequest{
		ExecutionIDs: []string{execs[0].ID, "missing"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Succeeded []string `json:"succeeded"`
		Failed    []struct {
			ID    string `json:"id"`
			Error string `json:"error"`
		} `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, []string{execs[0].ID}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "missing", result.Failed[0].ID)
}

func TestAPIHandlers_InboundReply_UnknownGuest(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/projects/p1/replies", web.InboundReplyRequest{
		GuestID: "ghost",
		Message: "yes",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
