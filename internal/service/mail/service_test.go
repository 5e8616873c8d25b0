package mail

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spiralover/mailer-server/internal/model"
	"github.com/spiralover/mailer-server/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMails struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Mail
}

func newFakeMails() *fakeMails {
	return &fakeMails{rows: make(map[uuid.UUID]model.Mail)}
}

func (f *fakeMails) Insert(_ context.Context, _ *sqlx.Tx, m model.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[m.MailID] = m
	return nil
}

func (f *fakeMails) FindByID(_ context.Context, id uuid.UUID) (model.Mail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return model.Mail{}, sql.ErrNoRows
	}
	return m, nil
}

func (f *fakeMails) MarkSent(_ context.Context, _ *sqlx.Tx, id uuid.UUID, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.rows[id]
	m.Status = model.MailStatusSent
	m.SentAt = &sentAt
	f.rows[id] = m
	return nil
}

func (f *fakeMails) UpdateDelivery(_ context.Context, _ *sqlx.Tx, id uuid.UUID, status model.MailStatus, trials int16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.rows[id]
	m.Status = status
	m.Trials = trials
	f.rows[id] = m
	return nil
}

type fakeAddresses struct {
	mu   sync.Mutex
	rows []model.MailAddress
}

func (f *fakeAddresses) Insert(_ context.Context, _ *sqlx.Tx, a model.MailAddress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, a)
	return nil
}

func (f *fakeAddresses) ListByMail(_ context.Context, mailID uuid.UUID) ([]model.MailAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MailAddress
	for _, a := range f.rows {
		if a.MailID == mailID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeErrors struct {
	mu   sync.Mutex
	rows []model.MailError
}

func (f *fakeErrors) Insert(_ context.Context, _ *sqlx.Tx, e model.MailError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, e)
	return nil
}

func (f *fakeErrors) ListByMail(_ context.Context, mailID uuid.UUID) ([]model.MailError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MailError
	for _, e := range f.rows {
		if e.MailID == mailID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePusher struct {
	mu     sync.Mutex
	pushes map[string][]any
}

func (f *fakePusher) Push(_ context.Context, q string, v any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushes == nil {
		f.pushes = make(map[string][]any)
	}
	f.pushes[q] = append(f.pushes[q], v)
	return int64(len(f.pushes[q])), nil
}

func newTestService() (*Service, *fakeMails, *fakeAddresses, *fakeErrors, *fakePusher) {
	fm := newFakeMails()
	fa := &fakeAddresses{}
	fe := &fakeErrors{}
	fp := &fakePusher{}
	names := queue.Names{
		Awaiting:   "q.awaiting",
		Processing: "q.processing",
		Success:    "q.success",
		Failure:    "q.failure",
	}
	svc := New(nil, fm, fa, fe, fp, names)
	return svc, fm, fa, fe, fp
}

func testPayload() model.MailQueueablePayload {
	return model.MailQueueablePayload{
		CreatedBy:     uuid.New(),
		ApplicationID: uuid.New(),
		Subject:       "Hi",
		Message:       "<p>hello</p>",
		Receiver:      []model.MailBox{{Name: "A", Email: "a@x.com"}},
		From:          &model.MailBox{Name: "Mailer", Email: "noreply@x.com"},
	}
}

func TestCreatePersistsMailAndAddresses(t *testing.T) {
	svc, fm, fa, _, _ := newTestService()

	payload := testPayload()
	payload.Cc = []model.MailBox{{Name: "C", Email: "c@x.com"}}

	saved, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, model.MailStatusAwaiting, saved.Mail.Status)
	assert.EqualValues(t, 0, saved.Mail.Trials)
	assert.Equal(t, "Hi", saved.Mail.Subject)
	assert.Equal(t, "noreply@x.com", saved.Mail.FromEmail)

	stored, err := fm.FindByID(context.Background(), saved.Mail.MailID)
	require.NoError(t, err)
	assert.Equal(t, model.MailStatusAwaiting, stored.Status)

	addrs, err := fa.ListByMail(context.Background(), saved.Mail.MailID)
	require.NoError(t, err)
	require.Len(t, addrs, 2)

	byType := map[model.MailAddressType]string{}
	for _, a := range addrs {
		byType[a.AddrType] = a.Email
	}
	assert.Equal(t, "a@x.com", byType[model.AddressTypeReceiver])
	assert.Equal(t, "c@x.com", byType[model.AddressTypeCc])

	assert.Equal(t, []model.MailBox{{Name: "A", Email: "a@x.com"}}, saved.Receiver)
	assert.Equal(t, []model.MailBox{{Name: "C", Email: "c@x.com"}}, saved.Cc)
}

func TestCreateRequiresFrom(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	payload := testPayload()
	payload.From = nil

	_, err := svc.Create(context.Background(), payload)
	assert.ErrorIs(t, err, ErrMissingFrom)
}

func TestPushToAwaitingQueueUsesConfiguredName(t *testing.T) {
	svc, _, _, _, fp := newTestService()

	payload := testPayload()
	n, err := svc.PushToAwaitingQueue(context.Background(), payload)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.Len(t, fp.pushes["q.awaiting"], 1)
	assert.Equal(t, payload, fp.pushes["q.awaiting"][0])
}

func TestMarkAsSuccessSetsSentAndIsIdempotent(t *testing.T) {
	svc, fm, _, _, _ := newTestService()

	saved, err := svc.Create(context.Background(), testPayload())
	require.NoError(t, err)

	resp := model.MailSuccessResponse{SavedMail: saved, ResponseBody: "sent"}

	m, err := svc.MarkAsSuccess(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, model.MailStatusSent, m.Status)
	require.NotNil(t, m.SentAt)

	first, err := fm.FindByID(context.Background(), m.MailID)
	require.NoError(t, err)

	// duplicate envelope delivery keeps terminal state untouched
	m2, err := svc.MarkAsSuccess(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, model.MailStatusSent, m2.Status)
	assert.Equal(t, first.SentAt, m2.SentAt)
}

func TestMarkAsRetryingIncrementsTrialsAndRecordsError(t *testing.T) {
	svc, fm, _, fe, _ := newTestService()

	saved, err := svc.Create(context.Background(), testPayload())
	require.NoError(t, err)

	resp := model.MailFailureResponse{SavedMail: saved, ErrorMessage: "connection refused"}

	for want := int16(1); want <= 3; want++ {
		m, err := svc.MarkAsRetrying(context.Background(), resp)
		require.NoError(t, err)
		assert.Equal(t, want, m.Trials)
		assert.Equal(t, model.MailStatusRetrying, m.Status)
	}

	stored, err := fm.FindByID(context.Background(), saved.Mail.MailID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored.Trials)

	rows, err := fe.ListByMail(context.Background(), saved.Mail.MailID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, "connection refused", row.SMTPError)
	}
}

func TestMarkAsFailureIsTerminal(t *testing.T) {
	svc, fm, _, fe, _ := newTestService()

	saved, err := svc.Create(context.Background(), testPayload())
	require.NoError(t, err)

	resp := model.MailFailureResponse{SavedMail: saved, ErrorMessage: "relay denied"}

	m, err := svc.MarkAsFailure(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, model.MailStatusFailed, m.Status)
	assert.EqualValues(t, 1, m.Trials)

	// no transition nor audit row once terminal
	m2, err := svc.MarkAsRetrying(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, model.MailStatusFailed, m2.Status)
	assert.EqualValues(t, 1, m2.Trials)

	stored, err := fm.FindByID(context.Background(), saved.Mail.MailID)
	require.NoError(t, err)
	assert.Equal(t, model.MailStatusFailed, stored.Status)

	rows, err := fe.ListByMail(context.Background(), saved.Mail.MailID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
