package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Client struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	AuthID    string    `gorm:"column:auth_user_id;type:uuid;uniqueIndex;not null" json:"auth_user_id"`
	Email     string    `gorm:"not null" json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// FullName joins first and last name, skipping blanks.
func (c Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

type StaffMember struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	AuthID    string    `gorm:"column:auth_user_id;type:uuid;uniqueIndex;not null" json:"auth_user_id"`
	Email     string    `json:"email"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (StaffMember) TableName() string { return "staff_members" }

func (s *StaffMember) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type Application struct {
	ID                 string    `gorm:"type:uuid;primaryKey" json:"id"`
	Reference          string    `gorm:"column:reference_number;uniqueIndex;not null" json:"reference_number"`
	ClientID           string    `gorm:"type:uuid;index;not null" json:"client_id"`
	Status             string    `gorm:"not null;default:submitted" json:"status"`
	DestinationCountry *string   `json:"destination_country,omitempty"`
	TravelDate         *string   `json:"travel_date,omitempty"`
	ClientNotes        *string   `json:"client_notes,omitempty"`
	Priority           string    `gorm:"not null;default:normal" json:"priority"`
	FormData           JSONB     `gorm:"type:jsonb" json:"form_data"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

func (a *Application) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Document struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID string    `gorm:"type:uuid;index;not null" json:"application_id"`
	DocumentType  string    `gorm:"not null" json:"document_type"`
	FileName      string    `gorm:"not null" json:"file_name"`
	FilePath      string    `gorm:"not null" json:"file_path"`
	FileSize      int64     `json:"file_size"`
	MimeType      string    `json:"mime_type"`
	UploadedBy    string    `gorm:"type:uuid;not null" json:"uploaded_by"`
	Status        string    `gorm:"not null;default:pending_review" json:"status"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (Document) TableName() string { return "application_documents" }

func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

type Message struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID    string    `gorm:"type:uuid;not null" json:"sender_id"`
	RecipientID string    `gorm:"type:uuid;index;not null" json:"recipient_id"`
	Subject     string    `json:"subject"`
	Content     string    `gorm:"not null" json:"content"`
	IsFromAdmin bool      `gorm:"not null;default:false" json:"is_from_admin"`
	IsRead      bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type AuditLog struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID       *string   `gorm:"type:uuid" json:"actor_id,omitempty"`
	ApplicationID *string   `gorm:"type:uuid;index" json:"application_id,omitempty"`
	Action        string    `gorm:"not null" json:"action"`
	Metadata      JSONB     `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Portal lists the tables owned by the portal itself, in migration order.
func Portal() []any {
	return []any{&Client{}, &StaffMember{}, &Application{}, &Document{}, &Message{}, &AuditLog{}}
}
