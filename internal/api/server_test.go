package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tabward/internal/api"
	"tabward/internal/browser"
	"tabward/internal/database"
	"tabward/internal/reaper"
	"tabward/internal/testutil"
)

type fixture struct {
	engine *reaper.Engine
	tabs   *browser.MemoryDirectory
	store  *database.MemoryStore
	server *httptest.Server
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()

	tabs := browser.NewMemoryDirectory()
	store := database.NewMemoryStore()
	settings := reaper.DefaultSettings()
	settings.ThresholdValue = 10
	settings.ThresholdUnit = reaper.UnitSeconds

	engine := reaper.NewEngine(tabs, store, store, testutil.NewManualScheduler(),
		reaper.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(), settings)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	handler := api.NewHandler(api.Deps{
		Engine:  engine,
		Archive: store,
		Tabs:    tabs,
		Token:   token,
		Log:     reaper.NewNopLogger(),
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &fixture{engine: engine, tabs: tabs, store: store, server: server}
}

func (f *fixture) do(t *testing.T, method, path, token string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestBearerAuth(t *testing.T) {
	f := newFixture(t, "sekrit")

	t.Run("rejects missing token", func(t *testing.T) {
		resp, body := f.do(t, http.MethodGet, "/v1/status", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
		if body["error"] == nil {
			t.Error("response has no error body")
		}
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/v1/status", "wrong")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("accepts correct token", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/v1/status", "sekrit")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})
}

func TestHandlers_NoAuthWhenTokenEmpty(t *testing.T) {
	f := newFixture(t, "")
	resp, _ := f.do(t, http.MethodGet, "/v1/status", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 without auth configured", resp.StatusCode)
	}
}

func TestHandlers_Tabs(t *testing.T) {
	f := newFixture(t, "")
	f.tabs.AddTab(reaper.Tab{ID: "t1", URL: "https://example.com/", Title: "Example"})

	t.Run("reset", func(t *testing.T) {
		resp, body := f.do(t, http.MethodPost, "/v1/tabs/t1/reset", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body["success"] != true {
			t.Errorf("body = %v, want success", body)
		}
	})

	t.Run("lock and unlock", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPut, "/v1/tabs/t1/lock", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("lock status = %d, want 200", resp.StatusCode)
		}

		_, debug := f.do(t, http.MethodGet, "/v1/tabs/t1/debug", "")
		if debug["isLocked"] != true {
			t.Errorf("isLocked = %v after lock, want true", debug["isLocked"])
		}

		resp, _ = f.do(t, http.MethodDelete, "/v1/tabs/t1/lock", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unlock status = %d, want 200", resp.StatusCode)
		}

		_, debug = f.do(t, http.MethodGet, "/v1/tabs/t1/debug", "")
		if debug["isLocked"] != false {
			t.Errorf("isLocked = %v after unlock, want false", debug["isLocked"])
		}
	})

	t.Run("debug info for open tab", func(t *testing.T) {
		resp, body := f.do(t, http.MethodGet, "/v1/tabs/t1/debug", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body["exists"] != true {
			t.Errorf("exists = %v, want true", body["exists"])
		}
		if body["url"] != "https://example.com/" {
			t.Errorf("url = %v", body["url"])
		}
		if body["thresholdMs"] != float64(10000) {
			t.Errorf("thresholdMs = %v, want 10000", body["thresholdMs"])
		}
	})

	t.Run("debug info for unknown tab", func(t *testing.T) {
		resp, body := f.do(t, http.MethodGet, "/v1/tabs/ghost/debug", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body["exists"] != false {
			t.Errorf("exists = %v, want false", body["exists"])
		}
	})
}

func TestHandlers_Settings(t *testing.T) {
	f := newFixture(t, "")
	resp, body := f.do(t, http.MethodGet, "/v1/settings", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["thresholdValue"] != float64(10) {
		t.Errorf("thresholdValue = %v, want 10", body["thresholdValue"])
	}
	if body["thresholdUnit"] != "seconds" {
		t.Errorf("thresholdUnit = %v, want seconds", body["thresholdUnit"])
	}
}

func TestHandlers_Archive(t *testing.T) {
	closedAt := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	record := func(id string) reaper.ArchivedTab {
		return reaper.ArchivedTab{
			ID:       id,
			URL:      "https://example.com/" + id,
			Title:    "Tab " + id,
			ClosedAt: closedAt,
			Date:     "2024-01-15",
		}
	}

	t.Run("list with limit", func(t *testing.T) {
		f := newFixture(t, "")
		f.store.Prepend(record("tab_a"))
		f.store.Prepend(record("tab_b"))
		f.store.Prepend(record("tab_c"))

		resp, body := f.do(t, http.MethodGet, "/v1/archive?limit=2", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		tabs, ok := body["tabs"].([]any)
		if !ok {
			t.Fatalf("tabs = %T, want list", body["tabs"])
		}
		if len(tabs) != 2 {
			t.Errorf("len(tabs) = %d, want 2", len(tabs))
		}
		first := tabs[0].(map[string]any)
		if first["id"] != "tab_c" {
			t.Errorf("first id = %v, want newest (tab_c)", first["id"])
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		f := newFixture(t, "")
		resp, _ := f.do(t, http.MethodGet, "/v1/archive?limit=bogus", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("empty archive lists as empty array", func(t *testing.T) {
		f := newFixture(t, "")
		resp, body := f.do(t, http.MethodGet, "/v1/archive", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		tabs, ok := body["tabs"].([]any)
		if !ok || len(tabs) != 0 {
			t.Errorf("tabs = %v, want []", body["tabs"])
		}
	})

	t.Run("delete", func(t *testing.T) {
		f := newFixture(t, "")
		f.store.Prepend(record("tab_a"))

		resp, _ := f.do(t, http.MethodDelete, "/v1/archive/tab_a", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if n, _ := f.store.Count(); n != 0 {
			t.Errorf("Count() = %d, want 0", n)
		}
	})

	t.Run("delete missing", func(t *testing.T) {
		f := newFixture(t, "")
		resp, _ := f.do(t, http.MethodDelete, "/v1/archive/nope", "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("restore reopens and removes the record", func(t *testing.T) {
		f := newFixture(t, "")
		f.store.Prepend(record("tab_a"))

		resp, body := f.do(t, http.MethodPost, "/v1/archive/tab_a/restore", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body["url"] != "https://example.com/tab_a" {
			t.Errorf("url = %v", body["url"])
		}

		if !f.tabs.Has("restored-https://example.com/tab_a") {
			t.Error("restored tab not present in the directory")
		}
		if n, _ := f.store.Count(); n != 0 {
			t.Errorf("Count() = %d after restore, want 0", n)
		}
	})

	t.Run("restore missing", func(t *testing.T) {
		f := newFixture(t, "")
		resp, _ := f.do(t, http.MethodPost, "/v1/archive/nope/restore", "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}
