package handlers

import (
	"net/http"
	"strings"

	"itsaportal/internal/events"
	"itsaportal/internal/lifecycle"

	"go.uber.org/zap"
)

type contactInfo struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Href  string `json:"href,omitempty"`
}

var contacts = []contactInfo{
	{Label: "Phone", Value: "+234 801 234 5678", Href: "tel:+2348012345678"},
	{Label: "Email", Value: "info@itsatravels.com", Href: "mailto:info@itsatravels.com"},
	{Label: "Address", Value: "Ibadan, Nigeria"},
	{Label: "Hours", Value: "Mon - Fri: 9am - 6pm"},
}

var contactSubjects = map[string]string{
	"study-visa":  "Study Visa Inquiry",
	"work-visa":   "Work Visa Inquiry",
	"tourism":     "Tourism & Travel",
	"scholarship": "Scholarship Application",
	"cv-services": "CV Writing Services",
	"other":       "Other",
}

type serviceView struct {
	lifecycle.ServiceInfo
	FormattedPrice string `json:"formatted_price"`
}

func catalogView(svc *lifecycle.Service) []serviceView {
	out := make([]serviceView, 0, len(lifecycle.Catalog))
	for _, s := range lifecycle.Catalog {
		out = append(out, serviceView{ServiceInfo: s, FormattedPrice: svc.FormatPrice(s)})
	}
	return out
}

func Landing(svc *lifecycle.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{
			"page":      "landing",
			"services":  catalogView(svc),
			"countries": lifecycle.Countries,
			"contact":   contacts,
		})
	}
}

func About() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{
			"page":    "about",
			"title":   "Your Trusted Partner for Global Opportunities",
			"summary": "ITSA TRAVELS & EDU-CONSULT helps individuals achieve their international dreams with visa processing, study abroad programs and travel services.",
			"contact": contacts,
		})
	}
}

func Contact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{"page": "contact", "contact": contacts, "subjects": contactSubjects})
	}
}

type contactReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ContactSubmit accepts the public enquiry form and hands it to the event
// stream; nothing is emailed from here.
func ContactSubmit(pub events.Publisher, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contactReq
		if err := decode(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		for _, f := range []struct{ field, value, msg string }{
			{"name", req.Name, "Please enter your name"},
			{"email", req.Email, "Please enter your email"},
			{"message", req.Message, "Please enter a message"},
		} {
			if strings.TrimSpace(f.value) == "" {
				respondError(w, lg, &lifecycle.ValidationError{Field: f.field, Message: f.msg})
				return
			}
		}
		if _, ok := contactSubjects[req.Subject]; !ok {
			respondError(w, lg, &lifecycle.ValidationError{Field: "subject", Message: "Please select a subject"})
			return
		}
		err := pub.Publish(r.Context(), events.Event{
			Type: events.ContactReceived,
			Data: map[string]any{
				"name":    req.Name,
				"email":   req.Email,
				"phone":   req.Phone,
				"subject": req.Subject,
				"message": req.Message,
			},
		})
		if err != nil {
			lg.Warnw("contact enquiry publish failed", "error", err)
		}
		respondStatus(w, http.StatusAccepted, map[string]any{"received": true})
	}
}

// FormPage describes the fields of the login and registration screens.
func FormPage(page string, fields ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{"page": page, "fields": fields})
	}
}
