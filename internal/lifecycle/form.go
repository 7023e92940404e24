package lifecycle

import (
	"bytes"
	"encoding/json"
)

// FormData is the intake payload stored on an application. The variant is
// chosen by service type; see ParseFormData.
type FormData interface {
	ServiceType() ServiceType
	json.Marshaler
}

type Personal struct {
	MaritalStatus string `json:"marital_status,omitempty"`
	HomeAddress   string `json:"home_address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
}

type Passport struct {
	Number     string `json:"passport_number,omitempty"`
	IssueDate  string `json:"passport_issue_date,omitempty"`
	ExpiryDate string `json:"passport_expiry_date,omitempty"`
}

type NextOfKin struct {
	FullName     string `json:"full_name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Address      string `json:"address,omitempty"`
}

func (n *NextOfKin) empty() bool { return n == nil || *n == NextOfKin{} }

// PassportForm covers services that travel on the applicant's passport.
type PassportForm struct {
	Service ServiceType
	Personal
	Passport
	NextOfKin *NextOfKin
}

// PersonalForm covers desk services that need no travel document.
type PersonalForm struct {
	Service ServiceType
	Personal
	NextOfKin *NextOfKin
}

// UnknownForm keeps whatever was stored when it cannot be classified.
type UnknownForm struct {
	Service ServiceType
	Raw     json.RawMessage
}

func (f PassportForm) ServiceType() ServiceType { return f.Service }
func (f PersonalForm) ServiceType() ServiceType { return f.Service }
func (f UnknownForm) ServiceType() ServiceType  { return f.Service }

// formWire is the flat layout the portals have always written.
type formWire struct {
	ServiceType ServiceType `json:"service_type"`
	Personal
	Passport
	NextOfKin *NextOfKin `json:"next_of_kin,omitempty"`
}

func (f PassportForm) MarshalJSON() ([]byte, error) {
	w := formWire{ServiceType: f.Service, Personal: f.Personal, Passport: f.Passport}
	if !f.NextOfKin.empty() {
		w.NextOfKin = f.NextOfKin
	}
	return json.Marshal(w)
}

func (f PersonalForm) MarshalJSON() ([]byte, error) {
	w := formWire{ServiceType: f.Service, Personal: f.Personal}
	if !f.NextOfKin.empty() {
		w.NextOfKin = f.NextOfKin
	}
	return json.Marshal(w)
}

func (f UnknownForm) MarshalJSON() ([]byte, error) {
	if len(f.Raw) == 0 || !json.Valid(f.Raw) {
		return []byte("{}"), nil
	}
	return f.Raw, nil
}

func formKind(st ServiceType) string {
	switch st {
	case ServiceStudyAdmission, ServiceWorkPermit, ServiceTouristVisa, ServiceScholarship:
		return "passport"
	case ServiceCVWriting, ServiceConsultation:
		return "personal"
	}
	return ""
}

// ParseFormData never fails. Anything it cannot decode becomes an UnknownForm
// with an empty service type. Payloads stored as a JSON string holding the
// object are unwrapped once.
func ParseFormData(raw []byte) FormData {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return UnknownForm{}
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	var w formWire
	if len(raw) == 0 || json.Unmarshal(raw, &w) != nil {
		return UnknownForm{}
	}
	nok := w.NextOfKin
	if nok.empty() {
		nok = nil
	}
	switch formKind(w.ServiceType) {
	case "passport":
		return PassportForm{Service: w.ServiceType, Personal: w.Personal, Passport: w.Passport, NextOfKin: nok}
	case "personal":
		return PersonalForm{Service: w.ServiceType, Personal: w.Personal, NextOfKin: nok}
	}
	return UnknownForm{Service: w.ServiceType, Raw: json.RawMessage(raw)}
}
