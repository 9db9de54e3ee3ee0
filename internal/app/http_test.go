package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type apiClient struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newAPIClient(t *testing.T, env *testEnv) *apiClient {
	t.Helper()
	server := httptest.NewServer(NewHTTPServer(env.svc, "*").Handler())
	t.Cleanup(server.Close)
	return &apiClient{t: t, server: server}
}

func (c *apiClient) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.server.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func (c *apiClient) expect(method, path string, body any, status int, out any) {
	c.t.Helper()
	resp, raw := c.do(method, path, body)
	if resp.StatusCode != status {
		c.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			c.t.Fatalf("%s %s: decode %s: %v", method, path, raw, err)
		}
	}
}

func (c *apiClient) login(username string) {
	c.t.Helper()
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	c.token = ""
	c.expect(http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": testPassword}, http.StatusOK, &tokens)
	if tokens.TokenType != "bearer" || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		c.t.Fatalf("unexpected token response %+v", tokens)
	}
	c.token = tokens.AccessToken
}

type errorBody struct {
	Code    string         `json:"code"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details"`
}

func TestHealthAndReady(t *testing.T) {
	client := newAPIClient(t, newTestEnv(t))

	var health map[string]any
	client.expect(http.MethodGet, "/api/health", nil, http.StatusOK, &health)
	if health["ok"] != true {
		t.Fatalf("unexpected health %v", health)
	}

	var ready struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	client.expect(http.MethodGet, "/api/ready", nil, http.StatusOK, &ready)
	if ready.Status != "ready" || ready.Checks["database"]["status"] != "ok" {
		t.Fatalf("unexpected ready %+v", ready)
	}
	if _, ok := ready.Checks["redis"]; ok {
		t.Fatalf("redis check should be absent when not configured")
	}
}

func TestRequestsWithoutSessionAreRejected(t *testing.T) {
	client := newAPIClient(t, newTestEnv(t))

	paths := []string{"/api/lists", "/api/tags", "/api/activity", "/api/auth/me", "/api/search?q=milk"}
	for _, path := range paths {
		var body errorBody
		client.expect(http.MethodGet, path, nil, http.StatusUnauthorized, &body)
		if body.Code != "UNAUTHORIZED" {
			t.Fatalf("%s: unexpected error %+v", path, body)
		}
	}

	client.token = "not-a-token"
	client.expect(http.MethodGet, "/api/lists", nil, http.StatusUnauthorized, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	client := newAPIClient(t, newTestEnv(t))

	var user UserView
	client.expect(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "dana@example.com", "username": "dana", "password": testPassword,
	}, http.StatusCreated, &user)
	if user.Username != "dana" || !user.IsActive {
		t.Fatalf("unexpected user %+v", user)
	}

	var dup errorBody
	client.expect(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "dana@example.com", "username": "dana2", "password": testPassword,
	}, http.StatusConflict, &dup)

	var bad errorBody
	client.expect(http.MethodPost, "/api/auth/login", map[string]string{"username": "dana", "password": "nope-nope-nope"}, http.StatusUnauthorized, &bad)

	client.login("dana")
	var me UserView
	client.expect(http.MethodGet, "/api/auth/me", nil, http.StatusOK, &me)
	if me.ID != user.ID {
		t.Fatalf("expected me %d, got %d", user.ID, me.ID)
	}

	client.expect(http.MethodPost, "/api/auth/logout", map[string]string{}, http.StatusOK, nil)
	client.expect(http.MethodGet, "/api/auth/me", nil, http.StatusUnauthorized, nil)
}

func TestLogoutBody(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "alice")
	client := newAPIClient(t, env)
	client.login("alice")

	var bad errorBody
	client.expect(http.MethodPost, "/api/auth/logout", `{"refresh_token":`, http.StatusBadRequest, &bad)
	if bad.Code != "INVALID_BODY" {
		t.Fatalf("unexpected error %+v", bad)
	}
	// A rejected logout leaves the session alone.
	client.expect(http.MethodGet, "/api/auth/me", nil, http.StatusOK, nil)

	client.expect(http.MethodPost, "/api/auth/logout", nil, http.StatusOK, nil)
	client.expect(http.MethodGet, "/api/auth/me", nil, http.StatusUnauthorized, nil)
}

func TestInactiveUserGetsForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "alice")
	client := newAPIClient(t, env)
	client.login("alice")

	client.expect(http.MethodPut, "/api/auth/me", map[string]any{"is_active": false}, http.StatusOK, nil)

	var body errorBody
	client.expect(http.MethodGet, "/api/lists", nil, http.StatusForbidden, &body)
	if body.Code != "USER_INACTIVE" {
		t.Fatalf("unexpected error %+v", body)
	}
}

func TestInvalidRequests(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "alice")
	client := newAPIClient(t, env)
	client.login("alice")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{name: "malformed json", method: http.MethodPost, path: "/api/lists", body: "{", status: http.StatusBadRequest, code: "INVALID_BODY"},
		{name: "blank name", method: http.MethodPost, path: "/api/lists", body: map[string]string{"name": " "}, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "bad color", method: http.MethodPost, path: "/api/lists", body: map[string]string{"name": "x", "color": "blue"}, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "non numeric id", method: http.MethodGet, path: "/api/lists/abc", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "missing list", method: http.MethodGet, path: "/api/lists/999", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown route", method: http.MethodGet, path: "/api/nothing", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "bad skip", method: http.MethodGet, path: "/api/lists?skip=x", status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "method", method: http.MethodPatch, path: "/api/lists", status: http.StatusMethodNotAllowed, code: "METHOD_NOT_ALLOWED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			client.expect(tt.method, tt.path, tt.body, tt.status, &body)
			if body.Code != tt.code {
				t.Fatalf("expected code %s, got %+v", tt.code, body)
			}
		})
	}
}

func TestListTaskAndSharingFlow(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "alice")
	env.user(t, "bob")
	alice := newAPIClient(t, env)
	alice.login("alice")
	bob := newAPIClient(t, env)
	bob.login("bob")

	var list ListView
	alice.expect(http.MethodPost, "/api/lists", map[string]string{"name": "Groceries"}, http.StatusCreated, &list)
	if list.PermissionLevel != "owner" || list.Color != defaultListColor {
		t.Fatalf("unexpected list %+v", list)
	}
	listPath := fmt.Sprintf("/api/lists/%d", list.ID)

	bob.expect(http.MethodGet, listPath, nil, http.StatusForbidden, nil)

	var grant GrantView
	alice.expect(http.MethodPost, listPath+"/permissions", map[string]string{"user_identifier": "bob", "permission_level": "view"}, http.StatusCreated, &grant)

	var seen ListView
	bob.expect(http.MethodGet, listPath, nil, http.StatusOK, &seen)
	if seen.PermissionLevel != "view" {
		t.Fatalf("expected view level, got %s", seen.PermissionLevel)
	}
	bob.expect(http.MethodPost, listPath+"/todos", map[string]string{"name": "Milk", "due_date": "2026-03-10"}, http.StatusForbidden, nil)

	alice.expect(http.MethodPut, fmt.Sprintf("%s/permissions/%d", listPath, grant.ID), map[string]string{"permission_level": "update"}, http.StatusOK, nil)

	var task TaskView
	bob.expect(http.MethodPost, listPath+"/todos", map[string]string{"name": "Milk", "due_date": "2026-03-10"}, http.StatusCreated, &task)
	if task.DueDate != "2026-03-10" || task.CreatedBy == 0 {
		t.Fatalf("unexpected task %+v", task)
	}
	taskPath := fmt.Sprintf("%s/todos/%d", listPath, task.ID)

	var updated TaskView
	bob.expect(http.MethodPut, taskPath, map[string]string{"status": "Completed"}, http.StatusOK, &updated)
	if updated.CompletedAt == nil {
		t.Fatalf("expected completed_at, got %+v", updated)
	}

	var tasks Page[TaskView]
	alice.expect(http.MethodGet, listPath+"/todos", nil, http.StatusOK, &tasks)
	if tasks.Total != 1 {
		t.Fatalf("expected one task, got %d", tasks.Total)
	}

	bob.expect(http.MethodGet, listPath+"/permissions", nil, http.StatusForbidden, nil)
	bob.expect(http.MethodDelete, listPath, nil, http.StatusForbidden, nil)

	var feed Page[map[string]any]
	bob.expect(http.MethodGet, fmt.Sprintf("/api/activity/list/%d?limit=2", list.ID), nil, http.StatusOK, &feed)
	if feed.Total != 5 || len(feed.Items) != 2 || feed.Items[0]["action_type"] != "status_changed" {
		t.Fatalf("unexpected feed %+v", feed)
	}

	bob.expect(http.MethodDelete, taskPath, nil, http.StatusNoContent, nil)
	alice.expect(http.MethodDelete, listPath, nil, http.StatusNoContent, nil)
	bob.expect(http.MethodGet, listPath, nil, http.StatusNotFound, nil)
}

func TestTagRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "alice")
	client := newAPIClient(t, env)
	client.login("alice")

	var tag TagView
	client.expect(http.MethodPost, "/api/tags", map[string]string{"name": "Urgent", "color": "#EF4444"}, http.StatusCreated, &tag)
	var conflict errorBody
	client.expect(http.MethodPost, "/api/tags", map[string]string{"name": "Urgent"}, http.StatusConflict, &conflict)
	if conflict.Code != "CONFLICT" {
		t.Fatalf("unexpected error %+v", conflict)
	}

	var renamed TagView
	client.expect(http.MethodPut, fmt.Sprintf("/api/tags/%d", tag.ID), map[string]string{"name": "Soon"}, http.StatusOK, &renamed)
	if renamed.Name != "Soon" || renamed.Color != "#EF4444" {
		t.Fatalf("unexpected tag %+v", renamed)
	}

	var tags Page[TagView]
	client.expect(http.MethodGet, "/api/tags", nil, http.StatusOK, &tags)
	if tags.Total != 1 {
		t.Fatalf("expected one tag, got %d", tags.Total)
	}
	client.expect(http.MethodDelete, fmt.Sprintf("/api/tags/%d", tag.ID), nil, http.StatusNoContent, nil)
}

func TestExportHTMLRoute(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "alice")
	client := newAPIClient(t, env)
	client.login("alice")

	var list ListView
	client.expect(http.MethodPost, "/api/lists", map[string]string{"name": "Groceries"}, http.StatusCreated, &list)
	client.expect(http.MethodPost, fmt.Sprintf("/api/lists/%d/todos", list.ID), map[string]string{"name": "Milk", "due_date": "2026-03-10"}, http.StatusCreated, nil)

	resp, raw := client.do(http.MethodGet, fmt.Sprintf("/api/lists/%d/export?format=html", list.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `inline; filename="Groceries.html"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if !strings.Contains(string(raw), "Milk") {
		t.Fatalf("export is missing the task")
	}

	client.expect(http.MethodGet, fmt.Sprintf("/api/lists/%d/export?format=odt", list.ID), nil, http.StatusUnprocessableEntity, nil)
}

func TestSearchRouteWithoutIndex(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "alice")
	client := newAPIClient(t, env)
	client.login("alice")

	var resp struct {
		Results []map[string]any `json:"results"`
		Query   string           `json:"query"`
	}
	client.expect(http.MethodGet, "/api/search?q=milk", nil, http.StatusOK, &resp)
	if resp.Query != "milk" || len(resp.Results) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	client.expect(http.MethodGet, "/api/search?q=milk&type=user", nil, http.StatusUnprocessableEntity, nil)
}
