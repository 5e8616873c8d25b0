package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spiralover/mailer-server/internal/model"
)

// MailsRepository defines persistence for the mails table.
type MailsRepository interface {
	// Insert writes a new mail row. If tx is nil an internal transaction
	// is opened and committed; otherwise the given tx is used.
	Insert(ctx context.Context, tx *sqlx.Tx, m model.Mail) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Mail, error)
	// MarkSent sets status=sent and stamps sent_at.
	MarkSent(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, sentAt time.Time) error
	// UpdateDelivery sets the delivery status and trial counter.
	UpdateDelivery(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.MailStatus, trials int16) error
}

type MailsRepositoryImpl struct {
	db *sqlx.DB
}

func NewMailsRepository(db *sqlx.DB) *MailsRepositoryImpl {
	return &MailsRepositoryImpl{db: db}
}

func (r *MailsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *MailsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, m model.Mail) error {
	const q = `
		INSERT INTO mails
		    (mail_id, created_by, application_id, subject, message,
		     from_name, from_email, reply_to_name, reply_to_email,
		     trials, status, sent_at, next_retrial_at, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			m.MailID.String(), m.CreatedBy.String(), m.ApplicationID.String(),
			m.Subject, m.Message,
			m.FromName, m.FromEmail, m.ReplyToName, m.ReplyToEmail,
			m.Trials, m.Status.String(), m.SentAt, m.NextRetrialAt,
		)
		return err
	})
}

func (r *MailsRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (model.Mail, error) {
	const q = `SELECT * FROM mails WHERE mail_id = ?`
	var m model.Mail
	if err := r.db.GetContext(ctx, &m, q, id.String()); err != nil {
		return model.Mail{}, err
	}
	return m, nil
}

func (r *MailsRepositoryImpl) MarkSent(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, sentAt time.Time) error {
	const q = `
		UPDATE mails
		SET status = ?, sent_at = ?, updated_at = NOW()
		WHERE mail_id = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, model.MailStatusSent.String(), sentAt, id.String())
		return err
	})
}

func (r *MailsRepositoryImpl) UpdateDelivery(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.MailStatus, trials int16) error {
	const q = `
		UPDATE mails
		SET status = ?, trials = ?, updated_at = NOW()
		WHERE mail_id = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, status.String(), trials, id.String())
		return err
	})
}
