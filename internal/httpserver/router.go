package httpserver

import (
	"net/http"

	"itsaportal/internal/auth"
	"itsaportal/internal/events"
	"itsaportal/internal/gateway"
	"itsaportal/internal/httpserver/handlers"
	"itsaportal/internal/identity"
	"itsaportal/internal/lifecycle"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Gateway   *gateway.Gateway
	Service   *lifecycle.Service
	Publisher events.Publisher
	Identity  identity.Options
	Cookies   handlers.Cookies
}

func NewRouter(d Deps, lg *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Group(func(site chi.Router) {
		site.Use(auth.Session(d.Gateway, d.Identity, d.Cookies, lg))

		site.Get("/", handlers.Landing(d.Service))
		site.Get("/about", handlers.About())
		site.Get("/contact", handlers.Contact())
		site.Post("/v1/contact", handlers.ContactSubmit(d.Publisher, lg))
		site.Get("/login", handlers.FormPage("login", "email", "password"))
		site.Get("/register", handlers.FormPage("register", "first_name", "last_name", "email", "phone", "password", "confirm_password"))
		site.Get("/admin/login", handlers.FormPage("admin_login", "email", "password"))
		site.Get("/auth/callback", handlers.Callback(d.Cookies, lg))
		site.Get("/v1/catalog", handlers.Catalog(d.Service))

		site.Post("/v1/auth/login", handlers.Login("/dashboard", d.Cookies, lg))
		site.Post("/v1/auth/admin/login", handlers.Login("/admin", d.Cookies, lg))
		site.Post("/v1/auth/register", handlers.Register(lg))
		site.Post("/v1/auth/logout", handlers.Logout(d.Cookies, lg))
		site.Post("/v1/auth/password/reset", handlers.ResetPassword(lg))
		site.Post("/v1/auth/password", handlers.UpdatePassword(lg))
		site.Get("/v1/me", handlers.Me(lg))

		site.Group(func(client chi.Router) {
			client.Use(auth.RequireSession("/login"))
			client.Get("/dashboard", handlers.Dashboard(d.Service, lg))
			client.Get("/v1/applications", handlers.ListApplications(d.Service, lg))
			client.Post("/v1/applications", handlers.CreateApplication(d.Service, lg))
			client.Get("/v1/applications/{id}", handlers.GetApplication(d.Service, lg))
			client.Get("/v1/applications/{id}/payment", handlers.Payment(d.Service, lg))
			client.Post("/v1/applications/{id}/documents", handlers.UploadDocument(d.Service, lg))
			client.Get("/v1/documents", handlers.MyDocuments(d.Service, lg))
			client.Get("/v1/messages", handlers.MyMessages(d.Service, lg))
			client.Post("/v1/messages/{id}/read", handlers.MarkMessageRead(d.Service, lg))
		})

		site.Group(func(admin chi.Router) {
			admin.Use(auth.RequireSession("/admin/login"))
			admin.Get("/admin", handlers.AdminDashboard(d.Service, lg))
			admin.Get("/admin/*", handlers.AdminDashboard(d.Service, lg))
			admin.Get("/v1/admin/applications", handlers.AdminApplications(d.Service, lg))
			admin.Patch("/v1/admin/applications/{id}/status", handlers.UpdateStatus(d.Service, lg))
			admin.Get("/v1/admin/clients", handlers.AdminClients(d.Service, lg))
			admin.Get("/v1/admin/documents", handlers.AdminDocuments(d.Service, lg))
			admin.Patch("/v1/admin/documents/{id}", handlers.ReviewDocument(d.Service, lg))
			admin.Get("/v1/admin/documents/{id}/download", handlers.DocumentDownload(d.Service, lg))
			admin.Get("/v1/admin/messages", handlers.AdminMessages(d.Service, lg))
			admin.Post("/v1/admin/messages", handlers.SendMessage(d.Service, lg))
			admin.Get("/v1/admin/stats", handlers.AdminStats(d.Service, lg))
			admin.Get("/v1/admin/audit", handlers.AuditLogs(d.Service, lg))
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/", http.StatusSeeOther)
	})
	return r
}
