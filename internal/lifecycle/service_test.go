package lifecycle_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"itsaportal/internal/events"
	"itsaportal/internal/gateway"
	"itsaportal/internal/gateway/gatewaytest"
	"itsaportal/internal/lifecycle"
	"itsaportal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu  sync.Mutex
	evs []events.Event
	err error
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return r.err
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.evs))
	for i, ev := range r.evs {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	env  *gatewaytest.Env
	svc  *lifecycle.Service
	pub  *recorder
	base time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := gatewaytest.New(t)
	pub := &recorder{}
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	svc := lifecycle.NewService(env.Gateway, zap.NewNop().Sugar(), lifecycle.Options{
		Publisher: pub,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	})
	return &fixture{env: env, svc: svc, pub: pub, base: base}
}

func intake(service string) lifecycle.Intake {
	return lifecycle.Intake{
		DestinationCountry: "Canada",
		FormData:           []byte(`{"service_type":"` + service + `","passport_number":"A1","next_of_kin":{"full_name":"Ada Obi"}}`),
	}
}

func TestCreateThenListRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "amaka@example.com")

	in := intake("study_admission")
	app, err := f.svc.CreateApplication(ctx, c.ID, in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(app.Reference, lifecycle.ReferencePrefix))
	assert.Equal(t, lifecycle.PriorityNormal, app.Priority)

	apps, err := f.svc.ListApplications(ctx, lifecycle.Owned(c.ID))
	require.NoError(t, err)
	require.Len(t, apps, 1)
	got := apps[0]
	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, string(lifecycle.StatusSubmitted), got.Status)
	assert.JSONEq(t, string(in.FormData), string(got.FormData))
	require.NotNil(t, got.DestinationCountry)
	assert.Equal(t, "Canada", *got.DestinationCountry)
	assert.Nil(t, got.TravelDate)
	assert.Equal(t, "Study Admission Application", lifecycle.ServiceInfoFor(got).Label)

	assert.Equal(t, []string{events.ApplicationSubmitted}, f.pub.types())
	var audits int64
	require.NoError(t, f.env.DB.Model(&models.AuditLog{}).Count(&audits).Error)
	assert.EqualValues(t, 1, audits)
}

func TestCreateRequiresServiceType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "a@example.com")

	for _, raw := range []string{``, `{}`, `{"service_type":""}`, `garbage`} {
		_, err := f.svc.CreateApplication(ctx, c.ID, lifecycle.Intake{FormData: []byte(raw)})
		var verr *lifecycle.ValidationError
		require.True(t, errors.As(err, &verr), raw)
		assert.Equal(t, "service_type", verr.Field)
	}
	apps, err := f.svc.ListApplications(ctx, lifecycle.Everyone)
	require.NoError(t, err)
	assert.Empty(t, apps)
	assert.Empty(t, f.pub.types())
}

func TestListOrderedNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "a@example.com")

	var want []string
	for _, svc := range []string{"scholarship", "cv_writing", "consultation"} {
		app, err := f.svc.CreateApplication(ctx, c.ID, intake(svc))
		require.NoError(t, err)
		want = append([]string{app.ID}, want...)
	}
	apps, err := f.svc.ListApplications(ctx, lifecycle.Owned(c.ID))
	require.NoError(t, err)
	var got []string
	for _, a := range apps {
		got = append(got, a.ID)
	}
	assert.Equal(t, want, got)
}

func TestOwnershipScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clients := []models.Client{
		f.env.Client(t, "one@example.com"),
		f.env.Client(t, "two@example.com"),
		f.env.Client(t, "three@example.com"),
	}
	owner := map[string]string{}
	for i := 0; i < 9; i++ {
		c := clients[(i*7)%len(clients)]
		app, err := f.svc.CreateApplication(ctx, c.ID, intake("tourist_visa"))
		require.NoError(t, err)
		owner[app.ID] = c.ID
	}

	for _, c := range clients {
		apps, err := f.svc.ListApplications(ctx, lifecycle.Owned(c.ID))
		require.NoError(t, err)
		for _, a := range apps {
			assert.Equal(t, c.ID, a.ClientID)
			assert.Equal(t, c.ID, owner[a.ID])
		}
	}
	all, err := f.svc.ListApplications(ctx, lifecycle.Everyone)
	require.NoError(t, err)
	assert.Len(t, all, 9)

	empty, err := f.svc.ListApplications(ctx, lifecycle.Owned(""))
	require.NoError(t, err)
	assert.Empty(t, empty)

	var foreign string
	for id, cid := range owner {
		if cid != clients[0].ID {
			foreign = id
			break
		}
	}
	_, err = f.svc.GetApplication(ctx, lifecycle.Owned(clients[0].ID), foreign)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	got, err := f.svc.GetApplication(ctx, lifecycle.Everyone, foreign)
	require.NoError(t, err)
	assert.Equal(t, foreign, got.ID)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "a@example.com")
	staff := f.env.Staff(t, "staff@example.com")
	app, err := f.svc.CreateApplication(ctx, c.ID, intake("work_permit"))
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateStatus(ctx, staff, app.ID, "cancelled"))
	require.NoError(t, f.svc.UpdateStatus(ctx, staff, app.ID, "submitted"))

	got, err := f.svc.GetApplication(ctx, lifecycle.Owned(c.ID), app.ID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", got.Status)
	assert.True(t, got.UpdatedAt.After(app.UpdatedAt))

	err = f.svc.UpdateStatus(ctx, staff, app.ID, "teleported")
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	err = f.svc.UpdateStatus(ctx, staff, "00000000-0000-0000-0000-000000000000", "approved")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.Equal(t, lifecycle.KindGateway, lifecycle.KindOf(err))

	assert.Equal(t, []string{
		events.ApplicationSubmitted,
		events.ApplicationStatusChanged,
		events.ApplicationStatusChanged,
	}, f.pub.types())
}

func upload(appID, clientID string) lifecycle.Upload {
	body := "%PDF-1.4 passport scan"
	return lifecycle.Upload{
		ApplicationID: appID,
		ClientID:      clientID,
		DocumentType:  "International Passport",
		FileName:      "Passport.PDF",
		Size:          int64(len(body)),
		MimeType:      "application/pdf",
		Body:          strings.NewReader(body),
	}
}

func TestUploadDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "a@example.com")
	app, err := f.svc.CreateApplication(ctx, c.ID, intake("study_admission"))
	require.NoError(t, err)

	doc, err := f.svc.UploadDocument(ctx, upload(app.ID, c.ID))
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.DocumentPendingReview), doc.Status)
	assert.Equal(t, c.ID, doc.UploadedBy)

	prefix := c.ID + "/"
	require.True(t, strings.HasPrefix(doc.FilePath, prefix), doc.FilePath)
	stamp := strings.TrimSuffix(strings.TrimPrefix(doc.FilePath, prefix), ".pdf")
	_, err = strconv.ParseInt(stamp, 10, 64)
	assert.NoError(t, err, doc.FilePath)

	blob, ok := f.env.Storage.Blob("documents", doc.FilePath)
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.4 passport scan", string(blob))

	docs, err := f.svc.ListDocuments(ctx, lifecycle.Owned(c.ID))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Len(t, lifecycle.DocumentsForApplication(docs, app.ID), 1)

	url, err := f.svc.DocumentURL(ctx, lifecycle.Everyone, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "mem://documents/"+doc.FilePath+"?ttl=900", url)
}

func TestUploadDocumentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	noFile := upload("app", "client")
	noFile.Body = nil
	noType := upload("app", "client")
	noType.DocumentType = " "
	noApp := upload("", "client")

	for field, up := range map[string]lifecycle.Upload{"file": noFile, "document_type": noType, "application_id": noApp} {
		_, err := f.svc.UploadDocument(ctx, up)
		var verr *lifecycle.ValidationError
		require.True(t, errors.As(err, &verr), field)
		assert.Equal(t, field, verr.Field)
	}
	assert.Zero(t, f.env.Storage.Len())
}

func TestUploadBlobFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "a@example.com")
	app, err := f.svc.CreateApplication(ctx, c.ID, intake("study_admission"))
	require.NoError(t, err)

	f.env.Storage.Fail = true
	_, err = f.svc.UploadDocument(ctx, upload(app.ID, c.ID))
	require.Error(t, err)
	assert.Equal(t, lifecycle.KindGateway, lifecycle.KindOf(err))

	docs, err := f.svc.ListDocuments(ctx, lifecycle.Everyone)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUploadToForeignApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.env.Client(t, "owner@example.com")
	other := f.env.Client(t, "other@example.com")
	app, err := f.svc.CreateApplication(ctx, owner.ID, intake("study_admission"))
	require.NoError(t, err)

	_, err = f.svc.UploadDocument(ctx, upload(app.ID, other.ID))
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.Zero(t, f.env.Storage.Len())
}

func TestReviewDocumentIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "a@example.com")
	staff := f.env.Staff(t, "staff@example.com")
	app, err := f.svc.CreateApplication(ctx, c.ID, intake("study_admission"))
	require.NoError(t, err)
	doc, err := f.svc.UploadDocument(ctx, upload(app.ID, c.ID))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.svc.ReviewDocument(ctx, staff, doc.ID, "approved"))
		docs, err := f.svc.ListDocuments(ctx, lifecycle.Owned(c.ID))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "approved", docs[0].Status)
	}

	err = f.svc.ReviewDocument(ctx, staff, doc.ID, "pending_review")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "a@example.com")
	staff := f.env.Staff(t, "staff@example.com")

	_, err := f.svc.SendMessage(ctx, staff, c.ID, "", "   ")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	_, err = f.svc.SendMessage(ctx, staff, "", "", "hello")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	_, err = f.svc.SendMessage(ctx, staff, "00000000-0000-0000-0000-000000000000", "", "hello")
	var verr *lifecycle.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "recipient_id", verr.Field)

	msg, err := f.svc.SendMessage(ctx, staff, c.ID, "", "Your visa is ready")
	require.NoError(t, err)
	assert.True(t, msg.IsFromAdmin)
	assert.Equal(t, lifecycle.DefaultSubject, msg.Subject)

	inbox, err := f.svc.ListMessages(ctx, lifecycle.Owned(c.ID))
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.False(t, inbox[0].IsRead)

	st, err := f.svc.Stats(ctx, lifecycle.Owned(c.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Unread)

	require.NoError(t, f.svc.MarkMessageRead(ctx, lifecycle.Owned(c.ID), msg.ID))
	inbox, err = f.svc.ListMessages(ctx, lifecycle.Owned(c.ID))
	require.NoError(t, err)
	assert.True(t, inbox[0].IsRead)

	stranger := f.env.Client(t, "b@example.com")
	err = f.svc.MarkMessageRead(ctx, lifecycle.Owned(stranger.ID), msg.ID)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.env.Client(t, "a@example.com")
	f.env.Client(t, "b@example.com")
	staff := f.env.Staff(t, "staff@example.com")

	var ids []string
	for i := 0; i < 4; i++ {
		app, err := f.svc.CreateApplication(ctx, c.ID, intake("consultation"))
		require.NoError(t, err)
		ids = append(ids, app.ID)
	}
	require.NoError(t, f.svc.UpdateStatus(ctx, staff, ids[1], "approved"))
	require.NoError(t, f.svc.UpdateStatus(ctx, staff, ids[2], "completed"))
	require.NoError(t, f.svc.UpdateStatus(ctx, staff, ids[3], "rejected"))

	mine, err := f.svc.Stats(ctx, lifecycle.Owned(c.ID))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Stats{Total: 4, InProgress: 1, Completed: 2}, mine)

	all, err := f.svc.Stats(ctx, lifecycle.Everyone)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Stats{Total: 4, Pending: 1, Approved: 1, Clients: 2}, all)
}

func TestPaymentInstructions(t *testing.T) {
	f := newFixture(t)
	app := models.Application{Reference: "ITSA-X", FormData: models.JSONB(`{"service_type":"work_permit"}`)}

	p := f.svc.PaymentInstructions(app)
	assert.Equal(t, "ITSA-X", p.Reference)
	assert.Equal(t, "Work Permit Application", p.Service.Label)
	assert.Equal(t, f.svc.FormatPrice(p.Service), p.Amount)
	assert.Contains(t, p.Amount, " - ")
	assert.Len(t, p.Accounts, 3)
	assert.Equal(t, lifecycle.PaymentEmail, p.ProofEmail)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	c := f.env.Client(t, "a@example.com")

	_, err := f.svc.CreateApplication(context.Background(), c.ID, intake("scholarship"))
	assert.NoError(t, err)
}

func TestUnconfiguredGateway(t *testing.T) {
	svc := lifecycle.NewService(gateway.Unconfigured(), zap.NewNop().Sugar(), lifecycle.Options{})
	ctx := context.Background()

	apps, err := svc.ListApplications(ctx, lifecycle.Everyone)
	require.NoError(t, err)
	assert.Empty(t, apps)

	_, err = svc.CreateApplication(ctx, "client", intake("scholarship"))
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
	assert.Equal(t, gateway.NotConfiguredMessage, lifecycle.Message(err))

	_, err = svc.CreateApplication(ctx, "client", lifecycle.Intake{})
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))

	assert.ErrorIs(t, svc.UpdateStatus(ctx, "staff", "app", "approved"), gateway.ErrNotConfigured)
	assert.ErrorIs(t, svc.ReviewDocument(ctx, "staff", "doc", "approved"), gateway.ErrNotConfigured)
	_, err = svc.SendMessage(ctx, "staff", "client", "", "hi")
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
	_, err = svc.UploadDocument(ctx, upload("app", "client"))
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)

	st, err := svc.Stats(ctx, lifecycle.Everyone)
	require.NoError(t, err)
	assert.Zero(t, st.Total)
}
