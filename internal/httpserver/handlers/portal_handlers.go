package handlers

import (
	"net/http"

	"itsaportal/internal/auth"
	"itsaportal/internal/lifecycle"
	"itsaportal/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadMemory = 32 << 20

type applicationView struct {
	models.Application
	StatusLabel   string                `json:"status_label"`
	StatusVariant string                `json:"status_variant"`
	Service       lifecycle.ServiceInfo `json:"service"`
	Price         string                `json:"price"`
	Client        *models.Client        `json:"client,omitempty"`
	Documents     []models.Document     `json:"documents,omitempty"`
}

func viewOf(svc *lifecycle.Service, a models.Application) applicationView {
	info := lifecycle.ServiceInfoFor(a)
	st := lifecycle.Status(a.Status)
	return applicationView{
		Application:   a,
		StatusLabel:   st.Label(),
		StatusVariant: st.Variant(),
		Service:       info,
		Price:         svc.FormatPrice(info),
	}
}

func viewsOf(svc *lifecycle.Service, apps []models.Application) []applicationView {
	out := make([]applicationView, 0, len(apps))
	for _, a := range apps {
		out = append(out, viewOf(svc, a))
	}
	return out
}

// clientScope resolves the signed-in client's profile. Accounts without one
// (staff, or a profile still being reconciled) get 403.
func clientScope(w http.ResponseWriter, r *http.Request, lg *zap.SugaredLogger) (*models.Client, bool) {
	profile, err := auth.FromContext(r.Context()).Profile(r.Context())
	if err != nil {
		lg.Warnw("profile lookup failed", "error", err)
	}
	if profile == nil {
		respondStatus(w, http.StatusForbidden, errorBody{Error: "Client profile not found"})
		return nil, false
	}
	return profile, true
}

func Dashboard(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		scope := lifecycle.Owned(me.ID)
		apps, err := svc.ListApplications(r.Context(), scope)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		docs, err := svc.ListDocuments(r.Context(), scope)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		msgs, err := svc.ListMessages(r.Context(), scope)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		stats, err := svc.Stats(r.Context(), scope)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"profile":      me,
			"stats":        stats,
			"applications": viewsOf(svc, apps),
			"documents":    docs,
			"messages":     msgs,
			"services":     catalogView(svc),
		})
	}
}

func ListApplications(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		apps, err := svc.ListApplications(r.Context(), lifecycle.Owned(me.ID))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, viewsOf(svc, apps))
	}
}

func CreateApplication(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		var in lifecycle.Intake
		if err := decode(r, &in); err != nil {
			respondError(w, lg, err)
			return
		}
		app, err := svc.CreateApplication(r.Context(), me.ID, in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, viewOf(svc, *app))
	}
}

func GetApplication(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		scope := lifecycle.Owned(me.ID)
		app, err := svc.GetApplication(r.Context(), scope, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		docs, err := svc.ListDocuments(r.Context(), scope)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		v := viewOf(svc, *app)
		v.Documents = lifecycle.DocumentsForApplication(docs, app.ID)
		respondJSON(w, v)
	}
}

func Payment(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		app, err := svc.GetApplication(r.Context(), lifecycle.Owned(me.ID), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, svc.PaymentInstructions(*app))
	}
}

// UploadDocument takes a multipart form with "file" and "document_type".
func UploadDocument(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respondError(w, lg, &lifecycle.ValidationError{Field: "file", Message: "Please select a file"})
			return
		}
		up := lifecycle.Upload{
			ApplicationID: chi.URLParam(r, "id"),
			ClientID:      me.ID,
			DocumentType:  r.FormValue("document_type"),
		}
		if f, hdr, err := r.FormFile("file"); err == nil {
			defer f.Close()
			up.Body = f
			up.FileName = hdr.Filename
			up.Size = hdr.Size
			up.MimeType = hdr.Header.Get("Content-Type")
		}
		doc, err := svc.UploadDocument(r.Context(), up)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, doc)
	}
}

func MyDocuments(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		docs, err := svc.ListDocuments(r.Context(), lifecycle.Owned(me.ID))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, docs)
	}
}

func MyMessages(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		msgs, err := svc.ListMessages(r.Context(), lifecycle.Owned(me.ID))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, msgs)
	}
}

func MarkMessageRead(svc *lifecycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := clientScope(w, r, lg)
		if !ok {
			return
		}
		if err := svc.MarkMessageRead(r.Context(), lifecycle.Owned(me.ID), chi.URLParam(r, "id")); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"read": true})
	}
}

type statusOption struct {
	Value   lifecycle.Status `json:"value"`
	Label   string           `json:"label"`
	Variant string           `json:"variant"`
}

func Catalog(svc *lifecycle.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make([]statusOption, 0, len(lifecycle.Statuses))
		for _, s := range lifecycle.Statuses {
			statuses = append(statuses, statusOption{Value: s, Label: s.Label(), Variant: s.Variant()})
		}
		respondJSON(w, map[string]any{
			"services":       catalogView(svc),
			"document_types": lifecycle.DocumentTypes,
			"countries":      lifecycle.Countries,
			"statuses":       statuses,
		})
	}
}
