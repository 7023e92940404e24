package lifecycle

type ServiceType string

const (
	ServiceStudyAdmission ServiceType = "study_admission"
	ServiceWorkPermit     ServiceType = "work_permit"
	ServiceTouristVisa    ServiceType = "tourist_visa"
	ServiceScholarship    ServiceType = "scholarship"
	ServiceCVWriting      ServiceType = "cv_writing"
	ServiceConsultation   ServiceType = "consultation"
)

// ServiceInfo prices are whole currency units. MaxPrice is zero unless the
// service is quoted as a range.
type ServiceInfo struct {
	ID          ServiceType `json:"id"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	Price       int64       `json:"price"`
	MaxPrice    int64       `json:"max_price,omitempty"`
}

func (s ServiceInfo) IsRange() bool { return s.MaxPrice > 0 }

var Catalog = []ServiceInfo{
	{ID: ServiceStudyAdmission, Label: "Study Admission Application", Description: "University & college programs", Price: 500000},
	{ID: ServiceWorkPermit, Label: "Work Permit Application", Description: "Employment permits", Price: 3800000, MaxPrice: 5500000},
	{ID: ServiceTouristVisa, Label: "Tourist Visa Application", Description: "Travel & tourism", Price: 3500000},
	{ID: ServiceScholarship, Label: "Scholarship Application", Description: "Funding opportunities", Price: 300000},
	{ID: ServiceCVWriting, Label: "CV/Resume/Personal Statement Writing", Description: "Professional documents", Price: 50000},
	{ID: ServiceConsultation, Label: "Consultation", Description: "Expert guidance", Price: 15000},
}

// FallbackService stands in for any service type outside the catalog.
var FallbackService = ServiceInfo{Label: "Application", Price: 0}

func LookupService(id ServiceType) (ServiceInfo, bool) {
	for _, s := range Catalog {
		if s.ID == id {
			return s, true
		}
	}
	return FallbackService, false
}

var DocumentTypes = []string{
	"International Passport",
	"Passport Photograph",
	"Birth Certificate",
	"Educational Certificates",
	"Transcripts",
	"Employment Letter",
	"Bank Statement",
	"Proof of Address",
	"Marriage Certificate",
	"Other",
}

var Countries = []string{
	"United Kingdom", "Canada", "United States", "Germany", "Poland",
	"Australia", "France", "Netherlands", "Ireland", "Sweden", "Other",
}

type BankAccount struct {
	Bank          string `json:"bank"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
}

// BankAccounts are shown on the payment screen; no payment is processed.
var BankAccounts = []BankAccount{
	{Bank: "Zenith Bank Plc", AccountName: "Itsa Travels & Edu-Consult", AccountNumber: "1310731161"},
	{Bank: "UBA Plc", AccountName: "Itsa Travels & Edu-Consult", AccountNumber: "1028373185"},
	{Bank: "Guaranty Trust Bank (GTB)", AccountName: "Itsa Travels & Edu-Consult", AccountNumber: "0680861929"},
}
