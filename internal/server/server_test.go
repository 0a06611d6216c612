package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/config"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/db"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/engine"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	CEO    domain.User
	Staff  domain.User
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	e.Now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	ceo, err := e.BootstrapUser(ctx, "ceo@example.com", "Boss", "")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	staff, err := e.CreateUser(ctx, engine.UserCreateOptions{
		Email: "staff@example.com", Name: "Staff", Role: "manager", ActorID: ceo.ID,
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	return &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		CEO:    ceo,
		Staff:  staff,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
}

func (s *testServer) token(t *testing.T, u domain.User) string {
	t.Helper()
	token, err := IssueToken(testSecret, u.ID, u.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()
	resp, _ := s.do(t, http.MethodGet, "/v1/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()
	resp, _ := s.do(t, http.MethodGet, "/v1/clients", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list = %d, want 401", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/v1/clients", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token = %d, want 401", resp.StatusCode)
	}
}

func TestClientLabelEndpoint(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()
	token := s.token(t, s.Staff)

	resp, data := s.do(t, http.MethodPost, "/v1/managers", token, map[string]any{"name": "Ana"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create manager = %d: %s", resp.StatusCode, data)
	}
	var m domain.Manager
	json.Unmarshal(data, &m)

	resp, data = s.do(t, http.MethodPost, "/v1/clients", token, map[string]any{
		"name": "Acme", "manager_id": m.ID, "status": "active",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create client = %d: %s", resp.StatusCode, data)
	}
	var c domain.Client
	json.Unmarshal(data, &c)

	resp, data = s.do(t, http.MethodPut, "/v1/clients/"+c.ID+"/label", token, map[string]any{"label": "ruim"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set label = %d: %s", resp.StatusCode, data)
	}
	json.Unmarshal(data, &c)
	if c.Classification != "critico" {
		t.Fatalf("classification = %s, want critico", c.Classification)
	}

	resp, _ = s.do(t, http.MethodPut, "/v1/clients/missing/label", token, map[string]any{"label": "bom"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing client = %d, want 404", resp.StatusCode)
	}
}

func TestWorkflowSessionFlow(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()
	token := s.token(t, s.Staff)

	// An overdue task owned by the caller becomes the pending item.
	ctx := context.Background()
	if _, err := s.Engine.CreateTask(ctx, engine.TaskCreateOptions{
		Kind:    domain.KindDepartment,
		Title:   "send the report",
		OwnerID: s.Staff.ID,
		DueDate: "2024-03-01",
		ActorID: s.Staff.ID,
	}); err != nil {
		t.Fatal(err)
	}

	resp, data := s.do(t, http.MethodGet, "/v1/workflow/current", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("current = %d: %s", resp.StatusCode, data)
	}
	var state struct {
		Item      *struct{ ID, Kind, Title string } `json:"item"`
		Remaining int                               `json:"remaining"`
	}
	json.Unmarshal(data, &state)
	if state.Item == nil || state.Item.Title != "send the report" {
		t.Fatalf("expected pending task shown, got %s", data)
	}

	// Blank text is rejected and the item stays shown.
	resp, _ = s.do(t, http.MethodPost, "/v1/workflow/justify", token, map[string]any{"text": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank justify = %d, want 400", resp.StatusCode)
	}
	resp, data = s.do(t, http.MethodGet, "/v1/workflow/current", token, nil)
	json.Unmarshal(data, &state)
	if state.Item == nil {
		t.Fatalf("item vanished after rejected text: %s", data)
	}

	resp, data = s.do(t, http.MethodPost, "/v1/workflow/justify", token, map[string]any{"text": "was blocked on approvals"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("justify = %d: %s", resp.StatusCode, data)
	}
	json.Unmarshal(data, &state)
	if state.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", state.Remaining)
	}
}

func TestAdminEndpointsGatedOnStoredRole(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()
	staffToken := s.token(t, s.Staff)
	ceoToken := s.token(t, s.CEO)

	// Staff cannot create users even with a forged role claim; the
	// stored record decides.
	forged, err := IssueToken(testSecret, s.Staff.ID, "ceo")
	if err != nil {
		t.Fatal(err)
	}
	for _, token := range []string{staffToken, forged} {
		resp, _ := s.do(t, http.MethodPost, "/v1/admin/users", token, map[string]any{
			"email": "new@example.com", "role": "manager",
		})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("staff create user = %d, want 403", resp.StatusCode)
		}
	}

	resp, data := s.do(t, http.MethodPost, "/v1/admin/users", ceoToken, map[string]any{
		"email": "new@example.com", "role": "manager",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ceo create user = %d: %s", resp.StatusCode, data)
	}
	var u domain.User
	json.Unmarshal(data, &u)

	// Deleting the protected account is an authorization failure.
	resp, data = s.do(t, http.MethodDelete, "/v1/admin/users/"+s.CEO.ID, ceoToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("delete ceo = %d, want 403: %s", resp.StatusCode, data)
	}
	resp, _ = s.do(t, http.MethodDelete, "/v1/admin/users/"+u.ID, ceoToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete user = %d, want 204", resp.StatusCode)
	}
}

func TestChangeFeedEndpoint(t *testing.T) {
	s := newTestServer(t)
	defer s.Close()
	token := s.token(t, s.Staff)

	resp, data := s.do(t, http.MethodGet, "/v1/changes?cursor=0", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("changes = %d: %s", resp.StatusCode, data)
	}
	var page struct {
		Events []domain.Event `json:"events"`
		Cursor int64          `json:"cursor"`
	}
	json.Unmarshal(data, &page)
	if len(page.Events) == 0 {
		t.Fatalf("expected bootstrap events in feed: %s", data)
	}
	if page.Cursor != page.Events[len(page.Events)-1].ID {
		t.Fatalf("cursor %d does not match last event %d", page.Cursor, page.Events[len(page.Events)-1].ID)
	}

	// Polling after the cursor yields nothing new.
	resp, data = s.do(t, http.MethodGet, "/v1/changes?cursor="+itoa(page.Cursor), token, nil)
	json.Unmarshal(data, &page)
	if len(page.Events) != 0 {
		t.Fatalf("expected empty page after cursor, got %d events", len(page.Events))
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
