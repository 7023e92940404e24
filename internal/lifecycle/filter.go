package lifecycle

import (
	"strings"

	"itsaportal/internal/models"
)

// StatusAll disables the status predicate in FilterApplications.
const StatusAll = "all"

// FilterApplications narrows an already fetched collection. term matches the
// owning client's email, first or last name, or the reference number,
// case-insensitively; status must match exactly unless it is empty or "all".
// Input order is preserved.
func FilterApplications(apps []models.Application, clients []models.Client, term, status string) []models.Application {
	byID := make(map[string]models.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Application, 0, len(apps))
	for _, a := range apps {
		if status != "" && status != StatusAll && a.Status != status {
			continue
		}
		if term != "" && !matches(term, a, byID[a.ClientID]) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matches(term string, a models.Application, c models.Client) bool {
	for _, field := range []string{c.Email, c.FirstName, c.LastName, a.Reference} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// ApplicationsForClient keeps only rows owned by clientID.
func ApplicationsForClient(apps []models.Application, clientID string) []models.Application {
	out := make([]models.Application, 0, len(apps))
	for _, a := range apps {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out
}

func DocumentsForApplication(docs []models.Document, applicationID string) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d.ApplicationID == applicationID {
			out = append(out, d)
		}
	}
	return out
}

// ServiceInfoFor resolves the catalog entry named by the application's form
// data, or FallbackService.
func ServiceInfoFor(a models.Application) ServiceInfo {
	info, _ := LookupService(ParseFormData(a.FormData).ServiceType())
	return info
}
