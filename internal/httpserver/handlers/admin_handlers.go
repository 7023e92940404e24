package handlers

import (
	"net/http"

	"itsaportal/internal/auth"
	"itsaportal/internal/identity"
	"itsaportal/internal/lifecycle"
	"itsaportal/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// requireStaff renders the access-denied panel for anyone who is not an
// active staff member and returns the staff member's auth id otherwise.
func requireStaff(w http.ResponseWriter, r *http.Request, lg *zap.SugaredLogger) (string, bool) {
	id := auth.FromContext(r.Context())
	level, err := id.Capability(r.Context())
	if err != nil {
		lg.Warnw("staff check failed", "error", err)
	}
	if level != identity.Staff {
		respondStatus(w, http.StatusForbidden, map[string]any{
			"error":         "Access Denied",
			"message":       "You don't have admin privileges.",
			"access_denied": true,
		})
		return "", false
	}
	return id.Session().User.ID, true
}

// filtered lists every application joined with its client, narrowed by the
// q and status query parameters.
func filtered(svc *lifecycle.Service, r *http.Request) ([]applicationView, []models.Client, error) {
	apps, err := svc.ListApplications(r.Context(), lifecycle.Everyone)
	if err != nil {
		return nil, nil, err
	}
	clients, err := svc.ListClients(r.Context())
	if err != nil {
		return nil, nil, err
	}
	q := r.URL.Query()
	apps = lifecycle.FilterApplications(apps, clients, q.Get("q"), q.Get("status"))

	byID := make(map[string]*models.Client, len(clients))
	for i := range clients {
		byID[clients[i].ID] = &clients[i]
	}
	views := viewsOf(svc, apps)
	for i := range views {
		views[i].Client = byID[views[i].ClientID]
	}
	return views, clients, nil
}

func AdminDashboard(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r, lg); !ok {
			return
		}
		views, clients, err := filtered(svc, r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		stats, err := svc.Stats(r.Context(), lifecycle.Everyone)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		docs, err := svc.ListDocuments(r.Context(), lifecycle.Everyone)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"stats":        stats,
			"applications": views,
			"clients":      clients,
			"documents":    docs,
		})
	}
}

func AdminApplications(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r, lg); !ok {
			return
		}
		views, _, err := filtered(svc, r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, views)
	}
}

func UpdateStatus(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireStaff(w, r, lg)
		if !ok {
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := decode(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		if err := svc.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), req.Status); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"updated": true})
	}
}

func AdminClients(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r, lg); !ok {
			return
		}
		clients, err := svc.ListClients(r.Context())
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, clients)
	}
}

func AdminDocuments(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r, lg); !ok {
			return
		}
		docs, err := svc.ListDocuments(r.Context(), lifecycle.Everyone)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, docs)
	}
}

func ReviewDocument(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireStaff(w, r, lg)
		if !ok {
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := decode(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		if err := svc.ReviewDocument(r.Context(), actor, chi.URLParam(r, "id"), req.Status); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"updated": true})
	}
}

func DocumentDownload(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r, lg); !ok {
			return
		}
		url, err := svc.DocumentURL(r.Context(), lifecycle.Everyone, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"url": url})
	}
}

func AdminMessages(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r, lg); !ok {
			return
		}
		msgs, err := svc.ListMessages(r.Context(), lifecycle.Everyone)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, msgs)
	}
}

func SendMessage(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireStaff(w, r, lg)
		if !ok {
			return
		}
		var req struct {
			RecipientID string `json:"recipient_id"`
			Subject     string `json:"subject"`
			Content     string `json:"content"`
		}
		if err := decode(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		msg, err := svc.SendMessage(r.Context(), actor, req.RecipientID, req.Subject, req.Content)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, msg)
	}
}

func AdminStats(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r, lg); !ok {
			return
		}
		stats, err := svc.Stats(r.Context(), lifecycle.Everyone)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, stats)
	}
}

// AuditLogs returns recent lifecycle audit rows. ?application_id narrows
// them to one application.
func AuditLogs(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r, lg); !ok {
			return
		}
		logs, err := svc.ListAuditLogs(r.Context(), r.URL.Query().Get("application_id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, logs)
	}
}
