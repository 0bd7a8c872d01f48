package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/PortNumber53/simple-publish-engine/internal/adapters"
	"github.com/PortNumber53/simple-publish-engine/internal/engine"
	"github.com/PortNumber53/simple-publish-engine/internal/models"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	eng := engine.New(engine.Config{
		Adapters: adapters.NewMockRegistry(),
		Logger:   log.New(io.Discard, "", 0),
	})
	h := New(eng)
	r := mux.NewRouter()
	RegisterRoutes(h, r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, eng
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	raw, _ := io.ReadAll(res.Body)
	res.Body.Close()
	return res, raw
}

func createAccount(t *testing.T, srv *httptest.Server, platform string) string {
	t.Helper()
	res, raw := doJSON(t, "POST", srv.URL+"/api/accounts", map[string]any{
		"platform":    platform,
		"username":    "tester",
		"accessToken": "tok",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create account: status %d body %s", res.StatusCode, raw)
	}
	var acct models.Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	return acct.ID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	res, raw := doJSON(t, "GET", srv.URL+"/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if !strings.Contains(string(raw), `"ok"`) {
		t.Fatalf("body = %s", raw)
	}
}

func TestAccountLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createAccount(t, srv, "twitter")

	res, raw := doJSON(t, "GET", srv.URL+"/api/accounts/"+id, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get: status %d", res.StatusCode)
	}
	if strings.Contains(string(raw), "tok") {
		t.Fatalf("access token must never appear in responses: %s", raw)
	}

	res, raw = doJSON(t, "PUT", srv.URL+"/api/accounts/"+id, map[string]any{"displayName": "Brand"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d body %s", res.StatusCode, raw)
	}
	var acct models.Account
	json.Unmarshal(raw, &acct)
	if acct.DisplayName != "Brand" {
		t.Fatalf("displayName = %q", acct.DisplayName)
	}

	res, _ = doJSON(t, "DELETE", srv.URL+"/api/accounts/"+id, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", res.StatusCode)
	}
	res, _ = doJSON(t, "GET", srv.URL+"/api/accounts/"+id, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", res.StatusCode)
	}
}

func TestCreateAccount_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	res, _ := doJSON(t, "POST", srv.URL+"/api/accounts", map[string]any{"platform": "friendster"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsupported platform: status %d", res.StatusCode)
	}

	req, _ := http.NewRequest("POST", srv.URL+"/api/accounts", strings.NewReader("{not json"))
	raw, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad JSON: status %d", raw.StatusCode)
	}
}

func TestListAccounts_Filters(t *testing.T) {
	srv, _ := newTestServer(t)
	createAccount(t, srv, "twitter")
	createAccount(t, srv, "linkedin")

	var out struct {
		Accounts []*models.Account `json:"accounts"`
	}
	_, raw := doJSON(t, "GET", srv.URL+"/api/accounts", nil)
	json.Unmarshal(raw, &out)
	if len(out.Accounts) != 2 {
		t.Fatalf("all accounts = %d, want 2", len(out.Accounts))
	}

	_, raw = doJSON(t, "GET", srv.URL+"/api/accounts?platform=twitter", nil)
	out.Accounts = nil
	json.Unmarshal(raw, &out)
	if len(out.Accounts) != 1 || out.Accounts[0].Platform != "twitter" {
		t.Fatalf("platform filter wrong: %+v", out.Accounts)
	}
}

func TestSchedulePost_Validation422(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createAccount(t, srv, "twitter")

	res, raw := doJSON(t, "POST", srv.URL+"/api/accounts/"+id+"/posts", map[string]any{
		"content": map[string]any{"text": strings.Repeat("a", 281)},
	})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422; body %s", res.StatusCode, raw)
	}
	var out struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Valid || len(out.Errors) == 0 {
		t.Fatalf("unexpected validation payload: %+v", out)
	}
}

func TestSchedulePost_AndPublishNow(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createAccount(t, srv, "twitter")

	res, raw := doJSON(t, "POST", srv.URL+"/api/accounts/"+id+"/posts", map[string]any{
		"content": map[string]any{"text": "hello world"},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("schedule: status %d body %s", res.StatusCode, raw)
	}
	var post models.PostRequest
	json.Unmarshal(raw, &post)
	if post.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending", post.Status)
	}

	res, raw = doJSON(t, "POST", srv.URL+"/api/posts/"+post.ID+"/publish", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("publish now: status %d body %s", res.StatusCode, raw)
	}
	var published models.PostRequest
	json.Unmarshal(raw, &published)
	if published.Status != models.StatusPublished {
		t.Fatalf("status = %s, want published", published.Status)
	}
	if published.PlatformPostID == nil {
		t.Fatalf("platformPostId missing")
	}
}

func TestSchedulePost_UnknownAccount404(t *testing.T) {
	srv, _ := newTestServer(t)
	res, _ := doJSON(t, "POST", srv.URL+"/api/accounts/acc_missing/posts", map[string]any{
		"content": map[string]any{"text": "x"},
	})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", res.StatusCode)
	}
}

func TestCancelPost_Conflict(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createAccount(t, srv, "twitter")

	_, raw := doJSON(t, "POST", srv.URL+"/api/accounts/"+id+"/posts", map[string]any{
		"content": map[string]any{"text": "cancel me"},
	})
	var post models.PostRequest
	json.Unmarshal(raw, &post)

	res, raw := doJSON(t, "POST", srv.URL+"/api/posts/"+post.ID+"/cancel", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("cancel: status %d body %s", res.StatusCode, raw)
	}
	var cancelled models.PostRequest
	json.Unmarshal(raw, &cancelled)
	if cancelled.Status != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	res, _ = doJSON(t, "POST", srv.URL+"/api/posts/post_missing/cancel", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("cancel unknown: status %d, want 409", res.StatusCode)
	}
}

func TestListPosts_StatusFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createAccount(t, srv, "twitter")
	for i := 0; i < 2; i++ {
		doJSON(t, "POST", srv.URL+"/api/accounts/"+id+"/posts", map[string]any{
			"content": map[string]any{"text": fmt.Sprintf("post %d", i)},
		})
	}

	var out struct {
		Posts []*models.PostRequest `json:"posts"`
	}
	_, raw := doJSON(t, "GET", srv.URL+"/api/posts?status=pending", nil)
	json.Unmarshal(raw, &out)
	if len(out.Posts) != 2 {
		t.Fatalf("pending posts = %d, want 2", len(out.Posts))
	}

	_, raw = doJSON(t, "GET", srv.URL+"/api/accounts/"+id+"/posts", nil)
	out.Posts = nil
	json.Unmarshal(raw, &out)
	if len(out.Posts) != 2 {
		t.Fatalf("account posts = %d, want 2", len(out.Posts))
	}
}

func TestGetPlatformLimits(t *testing.T) {
	srv, _ := newTestServer(t)

	res, raw := doJSON(t, "GET", srv.URL+"/api/platforms/twitter/limits", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var out struct {
		Platform           string          `json:"platform"`
		Limits             platformsLimits `json:"limits"`
		RateLimitRemaining int             `json:"rateLimitRemaining"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Platform != "twitter" || out.Limits.MaxTextLength != 280 {
		t.Fatalf("unexpected limits payload: %s", raw)
	}
	if out.RateLimitRemaining != 50 {
		t.Fatalf("rateLimitRemaining = %d, want 50", out.RateLimitRemaining)
	}

	res, _ = doJSON(t, "GET", srv.URL+"/api/platforms/orkut/limits", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown platform: status %d", res.StatusCode)
	}
}

// platformsLimits mirrors just the field this test cares about.
type platformsLimits struct {
	MaxTextLength int `json:"MaxTextLength"`
}
