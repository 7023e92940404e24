// Package lifecycle is the application workflow shared by the client and
// admin portals: statuses, the service catalog, intake form data, documents
// and staff messages.
package lifecycle

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"itsaportal/internal/events"
	"itsaportal/internal/gateway"
	"itsaportal/internal/models"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tableClients      = "clients"
	tableApplications = "applications"
	tableDocuments    = "application_documents"
	tableMessages     = "messages"
	tableAuditLogs    = "audit_logs"

	DefaultSubject  = "Message from ITSA Travels"
	PaymentEmail    = "info@itsatravels.com"
	ReferencePrefix = "ITSA-"
	PriorityNormal  = "normal"
)

// Scope limits reads to one client's rows, or to everything for staff.
type Scope struct {
	ClientID string
	All      bool
}

func Owned(clientID string) Scope { return Scope{ClientID: clientID} }

var Everyone = Scope{All: true}

// none reports a client scope with no client, which must see nothing.
func (s Scope) none() bool { return !s.All && s.ClientID == "" }

type Options struct {
	Bucket       string
	PresignTTL   time.Duration
	Formatter    *Formatter
	Publisher    events.Publisher
	Tracer       trace.Tracer
	Now          func() time.Time
	NewReference func() string
}

type Service struct {
	gw    *gateway.Gateway
	lg    *zap.SugaredLogger
	opts  Options
	money *Formatter
}

func NewService(gw *gateway.Gateway, lg *zap.SugaredLogger, opts Options) *Service {
	if opts.Bucket == "" {
		opts.Bucket = "documents"
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	if opts.Formatter == nil {
		opts.Formatter = MustFormatter("NGN", "en-NG")
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NewLogPublisher(lg)
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("itsaportal/lifecycle")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewReference == nil {
		opts.NewReference = func() string { return ReferencePrefix + ulid.Make().String() }
	}
	return &Service{gw: gw, lg: lg, opts: opts, money: opts.Formatter}
}

func (s *Service) Formatter() *Formatter { return s.money }

func (s *Service) FormatPrice(info ServiceInfo) string { return s.money.FormatPrice(info) }

// trace starts a span; the returned func ends it, recording *errp.
func (s *Service) trace(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.opts.Tracer.Start(ctx, "lifecycle."+name, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
	}
}

// requireGateway turns a mutation into a configuration error once local
// validation has passed.
func (s *Service) requireGateway() error {
	if !s.gw.Configured() {
		return gateway.ErrNotConfigured
	}
	return nil
}

func (s *Service) ListApplications(ctx context.Context, scope Scope) (apps []models.Application, err error) {
	ctx, end := s.trace(ctx, "ListApplications", attribute.Bool("all", scope.All))
	defer end(&err)
	if scope.none() {
		return []models.Application{}, nil
	}
	q := gateway.Query{}.Newest()
	if !scope.All {
		q = q.And("client_id", scope.ClientID)
	}
	apps = []models.Application{}
	if err := s.gw.Tables().Select(ctx, tableApplications, q, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetApplication returns gateway.ErrNotFound for rows outside scope.
func (s *Service) GetApplication(ctx context.Context, scope Scope, id string) (*models.Application, error) {
	if scope.none() || id == "" {
		return nil, gateway.Wrap("get application", gateway.ErrNotFound)
	}
	q := gateway.Where("id", id).First()
	if !scope.All {
		q = q.And("client_id", scope.ClientID)
	}
	var rows []models.Application
	if err := s.gw.Tables().Select(ctx, tableApplications, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gateway.Wrap("get application", gateway.ErrNotFound)
	}
	return &rows[0], nil
}

// Intake is what a client submits from the multi-step form. FormData is
// stored as given; only its service type is checked.
type Intake struct {
	DestinationCountry string          `json:"destination_country"`
	TravelDate         string          `json:"travel_date"`
	Notes              string          `json:"notes"`
	FormData           json.RawMessage `json:"form_data"`
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) CreateApplication(ctx context.Context, clientID string, in Intake) (app *models.Application, err error) {
	ctx, end := s.trace(ctx, "CreateApplication")
	defer end(&err)

	if clientID == "" {
		return nil, invalid("client_id", "Client profile not found")
	}
	form := ParseFormData(in.FormData)
	if form.ServiceType() == "" {
		return nil, invalid("service_type", "Please select a service")
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	app = &models.Application{
		Reference:          s.opts.NewReference(),
		ClientID:           clientID,
		Status:             string(StatusSubmitted),
		DestinationCountry: optional(in.DestinationCountry),
		TravelDate:         optional(in.TravelDate),
		ClientNotes:        optional(in.Notes),
		Priority:           PriorityNormal,
		FormData:           models.JSONB(in.FormData),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.gw.Tables().Insert(ctx, tableApplications, app); err != nil {
		return nil, err
	}
	s.record(ctx, events.Event{
		Type:          events.ApplicationSubmitted,
		ApplicationID: app.ID,
		ClientID:      clientID,
		ActorID:       clientID,
		Data:          map[string]any{"reference": app.Reference, "service_type": string(form.ServiceType())},
	})
	return app, nil
}

// UpdateStatus relabels an application. Any status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, actorID, applicationID, status string) (err error) {
	ctx, end := s.trace(ctx, "UpdateStatus", attribute.String("status", status))
	defer end(&err)

	if applicationID == "" {
		return invalid("application_id", "No application selected")
	}
	st, err := ParseStatus(status)
	if err != nil {
		return err
	}
	if err := s.requireGateway(); err != nil {
		return err
	}
	err = s.gw.Tables().UpdateByID(ctx, tableApplications, applicationID, map[string]any{
		"status":     string(st),
		"updated_at": s.opts.Now().UTC(),
	})
	if err != nil {
		return err
	}
	s.record(ctx, events.Event{
		Type:          events.ApplicationStatusChanged,
		ApplicationID: applicationID,
		ActorID:       actorID,
		Data:          map[string]any{"status": string(st)},
	})
	return nil
}

// Upload is one file a client attaches to an application.
type Upload struct {
	ApplicationID string
	ClientID      string
	DocumentType  string
	FileName      string
	Size          int64
	MimeType      string
	Body          io.Reader
}

func (s *Service) UploadDocument(ctx context.Context, up Upload) (doc *models.Document, err error) {
	ctx, end := s.trace(ctx, "UploadDocument", attribute.String("document_type", up.DocumentType))
	defer end(&err)

	switch {
	case up.Body == nil || up.FileName == "":
		return nil, invalid("file", "Please select a file")
	case strings.TrimSpace(up.DocumentType) == "":
		return nil, invalid("document_type", "Please select a document type")
	case up.ApplicationID == "":
		return nil, invalid("application_id", "Please select an application")
	case up.ClientID == "":
		return nil, invalid("client_id", "Client profile not found")
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	if _, err := s.GetApplication(ctx, Owned(up.ClientID), up.ApplicationID); err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	path := up.ClientID + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "." + extension(up.FileName)
	if err := s.gw.Storage().Upload(ctx, s.opts.Bucket, path, up.Body, up.Size, up.MimeType); err != nil {
		return nil, err
	}

	doc = &models.Document{
		ApplicationID: up.ApplicationID,
		DocumentType:  strings.TrimSpace(up.DocumentType),
		FileName:      up.FileName,
		FilePath:      path,
		FileSize:      up.Size,
		MimeType:      up.MimeType,
		UploadedBy:    up.ClientID,
		Status:        string(DocumentPendingReview),
		CreatedAt:     now,
	}
	if err := s.gw.Tables().Insert(ctx, tableDocuments, doc); err != nil {
		s.lg.Warnw("document row insert failed after upload", "path", path, "error", err)
		return nil, err
	}
	s.record(ctx, events.Event{
		Type:          events.DocumentUploaded,
		ApplicationID: up.ApplicationID,
		ClientID:      up.ClientID,
		ActorID:       up.ClientID,
		Data:          map[string]any{"document_id": doc.ID, "document_type": doc.DocumentType},
	})
	return doc, nil
}

func extension(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "bin"
	}
	return strings.ToLower(ext)
}

// ReviewDocument records a staff decision. Repeating a decision is a no-op
// success; a document never returns to pending_review.
func (s *Service) ReviewDocument(ctx context.Context, actorID, documentID, decision string) (err error) {
	ctx, end := s.trace(ctx, "ReviewDocument", attribute.String("decision", decision))
	defer end(&err)

	if documentID == "" {
		return invalid("document_id", "No document selected")
	}
	d, err := ParseDecision(decision)
	if err != nil {
		return err
	}
	if err := s.requireGateway(); err != nil {
		return err
	}
	if err := s.gw.Tables().UpdateByID(ctx, tableDocuments, documentID, map[string]any{"status": string(d)}); err != nil {
		return err
	}
	s.record(ctx, events.Event{
		Type:    events.DocumentReviewed,
		ActorID: actorID,
		Data:    map[string]any{"document_id": documentID, "status": string(d)},
	})
	return nil
}

// DocumentURL returns a short-lived download link for a stored document.
func (s *Service) DocumentURL(ctx context.Context, scope Scope, documentID string) (string, error) {
	docs, err := s.ListDocuments(ctx, scope)
	if err != nil {
		return "", err
	}
	for _, d := range docs {
		if d.ID == documentID {
			return s.gw.Storage().SignedURL(ctx, s.opts.Bucket, d.FilePath, s.opts.PresignTTL)
		}
	}
	return "", gateway.Wrap("document url", gateway.ErrNotFound)
}

func (s *Service) ListDocuments(ctx context.Context, scope Scope) (docs []models.Document, err error) {
	ctx, end := s.trace(ctx, "ListDocuments", attribute.Bool("all", scope.All))
	defer end(&err)
	if scope.none() {
		return []models.Document{}, nil
	}
	q := gateway.Query{}.Newest()
	if !scope.All {
		q = q.And("uploaded_by", scope.ClientID)
	}
	docs = []models.Document{}
	if err := s.gw.Tables().Select(ctx, tableDocuments, q, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Service) ListClients(ctx context.Context) ([]models.Client, error) {
	clients := []models.Client{}
	if err := s.gw.Tables().Select(ctx, tableClients, gateway.Query{}.Newest(), &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// SendMessage stores a staff message to a client. Subject defaults to
// DefaultSubject.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID, subject, content string) (msg *models.Message, err error) {
	ctx, end := s.trace(ctx, "SendMessage")
	defer end(&err)

	content = strings.TrimSpace(content)
	switch {
	case recipientID == "":
		return nil, invalid("recipient_id", "Please select a recipient")
	case content == "":
		return nil, invalid("content", "Message cannot be empty")
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	var rcpt []models.Client
	if err := s.gw.Tables().Select(ctx, tableClients, gateway.Where("id", recipientID).First(), &rcpt); err != nil {
		return nil, err
	}
	if len(rcpt) == 0 {
		return nil, invalid("recipient_id", "Recipient not found")
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	msg = &models.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Subject:     subject,
		Content:     content,
		IsFromAdmin: true,
		CreatedAt:   s.opts.Now().UTC(),
	}
	if err := s.gw.Tables().Insert(ctx, tableMessages, msg); err != nil {
		return nil, err
	}
	s.record(ctx, events.Event{
		Type:     events.MessageSent,
		ClientID: recipientID,
		ActorID:  senderID,
		Data:     map[string]any{"message_id": msg.ID},
	})
	return msg, nil
}

func (s *Service) ListMessages(ctx context.Context, scope Scope) ([]models.Message, error) {
	if scope.none() {
		return []models.Message{}, nil
	}
	q := gateway.Query{}.Newest()
	if !scope.All {
		q = q.And("recipient_id", scope.ClientID)
	}
	msgs := []models.Message{}
	if err := s.gw.Tables().Select(ctx, tableMessages, q, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkMessageRead flags a message in scope as read.
func (s *Service) MarkMessageRead(ctx context.Context, scope Scope, messageID string) error {
	if err := s.requireGateway(); err != nil {
		return err
	}
	msgs, err := s.ListMessages(ctx, scope)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.ID == messageID {
			return s.gw.Tables().UpdateByID(ctx, tableMessages, messageID, map[string]any{"is_read": true})
		}
	}
	return gateway.Wrap("mark read", gateway.ErrNotFound)
}

// ListAuditLogs returns the latest audit rows, optionally for one
// application.
func (s *Service) ListAuditLogs(ctx context.Context, applicationID string) ([]models.AuditLog, error) {
	q := gateway.Query{Limit: 200}.Newest()
	if applicationID != "" {
		q = q.And("application_id", applicationID)
	}
	logs := []models.AuditLog{}
	if err := s.gw.Tables().Select(ctx, tableAuditLogs, q, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Stats backs the dashboard tiles. Client scopes fill InProgress, Completed
// and Unread; the staff scope fills Pending, Approved and Clients.
type Stats struct {
	Total      int `json:"total"`
	InProgress int `json:"in_progress,omitempty"`
	Completed  int `json:"completed,omitempty"`
	Unread     int `json:"unread,omitempty"`
	Pending    int `json:"pending,omitempty"`
	Approved   int `json:"approved,omitempty"`
	Clients    int `json:"clients,omitempty"`
}

func (s *Service) Stats(ctx context.Context, scope Scope) (Stats, error) {
	apps, err := s.ListApplications(ctx, scope)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Total: len(apps)}
	if scope.All {
		for _, a := range apps {
			switch Status(a.Status) {
			case StatusSubmitted:
				st.Pending++
			case StatusApproved:
				st.Approved++
			}
		}
		clients, err := s.ListClients(ctx)
		if err != nil {
			return Stats{}, err
		}
		st.Clients = len(clients)
		return st, nil
	}
	for _, a := range apps {
		if Status(a.Status).InProgress() {
			st.InProgress++
		}
		if Status(a.Status).Done() {
			st.Completed++
		}
	}
	msgs, err := s.ListMessages(ctx, scope)
	if err != nil {
		return Stats{}, err
	}
	for _, m := range msgs {
		if !m.IsRead {
			st.Unread++
		}
	}
	return st, nil
}

// Payment is the static bank-transfer screen for one application.
type Payment struct {
	Reference  string        `json:"reference_number"`
	Service    ServiceInfo   `json:"service"`
	Amount     string        `json:"amount"`
	Accounts   []BankAccount `json:"accounts"`
	ProofEmail string        `json:"proof_email"`
}

func (s *Service) PaymentInstructions(app models.Application) Payment {
	info := ServiceInfoFor(app)
	return Payment{
		Reference:  app.Reference,
		Service:    info,
		Amount:     s.money.FormatPrice(info),
		Accounts:   BankAccounts,
		ProofEmail: PaymentEmail,
	}
}

// record writes the audit row and publishes the event. Both are best effort.
func (s *Service) record(ctx context.Context, ev events.Event) {
	ev.At = s.opts.Now().UTC()
	row := &models.AuditLog{
		Action:    ev.Type,
		Metadata:  models.MustJSONB(ev.Data),
		CreatedAt: ev.At,
	}
	if ev.ActorID != "" {
		row.ActorID = &ev.ActorID
	}
	if ev.ApplicationID != "" {
		row.ApplicationID = &ev.ApplicationID
	}
	if err := s.gw.Tables().Insert(ctx, tableAuditLogs, row); err != nil {
		s.lg.Warnw("audit log write failed", "action", ev.Type, "error", err)
	}
	if err := s.opts.Publisher.Publish(ctx, ev); err != nil {
		s.lg.Warnw("event publish failed", "type", ev.Type, "error", err)
	}
}
