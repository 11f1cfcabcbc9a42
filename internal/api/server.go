// Package api exposes the local control surface collaborators (popup, debug
// overlay, content scripts) talk to: timer resets, tab locking, debug
// snapshots, and the closed-tab archive.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tabward/internal/reaper"
)

// Deps carries the collaborators the handlers need.
type Deps struct {
	Engine  *reaper.Engine
	Archive reaper.ArchiveStore
	Tabs    reaper.TabDirectory
	Token   string // empty disables auth (loopback-only setups)
	Log     reaper.Logger
}

// NewHandler builds the control API router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	if deps.Token != "" {
		r.Use(BearerAuth(deps.Token))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/tabs/{id}/reset", handleResetTimer(deps))
		r.Put("/tabs/{id}/lock", handleSetLock(deps, true))
		r.Delete("/tabs/{id}/lock", handleSetLock(deps, false))
		r.Get("/tabs/{id}/debug", handleDebugInfo(deps))
		r.Get("/status", handleStatus(deps))
		r.Get("/settings", handleSettings(deps))
		r.Get("/archive", handleListArchive(deps))
		r.Delete("/archive/{id}", handleDeleteArchived(deps))
		r.Post("/archive/{id}/restore", handleRestoreArchived(deps))
	})

	return r
}

// BearerAuth rejects requests without the expected bearer token.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleResetTimer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := chi.URLParam(r, "id")
		if err := deps.Engine.ResetTimer(r.Context(), tabID); err != nil {
			httpError(w, http.StatusInternalServerError, "engine_error", "resetting timer: %v", err)
			return
		}
		writeJSON(w, map[string]any{"success": true})
	}
}

func handleSetLock(deps Deps, locked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := chi.URLParam(r, "id")
		if err := deps.Engine.SetLock(r.Context(), tabID, locked); err != nil {
			httpError(w, http.StatusInternalServerError, "engine_error", "updating lock: %v", err)
			return
		}
		writeJSON(w, map[string]any{"success": true, "locked": locked})
	}
}

func handleDebugInfo(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := chi.URLParam(r, "id")
		info, err := deps.Engine.DebugInfo(r.Context(), tabID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "engine_error", "collecting debug info: %v", err)
			return
		}
		writeJSON(w, info)
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := deps.Engine.Status(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "engine_error", "collecting status: %v", err)
			return
		}
		writeJSON(w, status)
	}
}

func handleSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := deps.Engine.CurrentSettings(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "engine_error", "reading settings: %v", err)
			return
		}
		writeJSON(w, settings)
	}
}

func handleListArchive(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit: %q", raw)
				return
			}
			limit = n
		}
		recs, err := deps.Archive.List(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "listing archive: %v", err)
			return
		}
		if recs == nil {
			recs = []reaper.ArchivedTab{}
		}
		writeJSON(w, map[string]any{"tabs": recs})
	}
}

func handleDeleteArchived(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := deps.Archive.Get(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "looking up archived tab: %v", err)
			return
		}
		if rec == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "no archived tab with id %s", id)
			return
		}
		if err := deps.Archive.Delete(id); err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "deleting archived tab: %v", err)
			return
		}
		writeJSON(w, map[string]any{"success": true})
	}
}

func handleRestoreArchived(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := deps.Archive.Get(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "looking up archived tab: %v", err)
			return
		}
		if rec == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "no archived tab with id %s", id)
			return
		}
		if err := deps.Tabs.OpenTab(r.Context(), rec.URL); err != nil {
			httpError(w, http.StatusBadGateway, "browser_error", "reopening tab: %v", err)
			return
		}
		if err := deps.Archive.Delete(id); err != nil {
			// The tab is already open; a leftover record is the lesser harm.
			deps.Log.Warn("removing restored archive record", "id", id, "error", err)
		}
		writeJSON(w, rec)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
