package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spiralover/mailer-server/internal/model"
)

// MailErrorsRepository defines persistence for the append-only
// mail_errors audit table.
type MailErrorsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, e model.MailError) error
	ListByMail(ctx context.Context, mailID uuid.UUID) ([]model.MailError, error)
}

type MailErrorsRepositoryImpl struct {
	db *sqlx.DB
}

func NewMailErrorsRepository(db *sqlx.DB) *MailErrorsRepositoryImpl {
	return &MailErrorsRepositoryImpl{db: db}
}

func (r *MailErrorsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *MailErrorsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, e model.MailError) error {
	const q = `
		INSERT INTO mail_errors (mail_error_id, mail_id, smtp_error, created_at)
		VALUES (?, ?, ?, NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, e.MailErrorID.String(), e.MailID.String(), e.SMTPError)
		return err
	})
}

func (r *MailErrorsRepositoryImpl) ListByMail(ctx context.Context, mailID uuid.UUID) ([]model.MailError, error) {
	const q = `SELECT * FROM mail_errors WHERE mail_id = ? ORDER BY created_at`
	var out []model.MailError
	if err := r.db.SelectContext(ctx, &out, q, mailID.String()); err != nil {
		return nil, err
	}
	return out, nil
}
