package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spiralover/mailer-server/internal/model"
)

// MailAddressesRepository defines persistence for the mail_addresses table.
type MailAddressesRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, a model.MailAddress) error
	ListByMail(ctx context.Context, mailID uuid.UUID) ([]model.MailAddress, error)
}

type MailAddressesRepositoryImpl struct {
	db *sqlx.DB
}

func NewMailAddressesRepository(db *sqlx.DB) *MailAddressesRepositoryImpl {
	return &MailAddressesRepositoryImpl{db: db}
}

func (r *MailAddressesRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *MailAddressesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, a model.MailAddress) error {
	const q = `
		INSERT INTO mail_addresses
		    (mail_address_id, mail_id, name, email, addr_type, created_at)
		VALUES
		    (?, ?, ?, ?, ?, NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			a.MailAddressID.String(), a.MailID.String(), a.Name, a.Email, a.AddrType.String(),
		)
		return err
	})
}

func (r *MailAddressesRepositoryImpl) ListByMail(ctx context.Context, mailID uuid.UUID) ([]model.MailAddress, error) {
	const q = `SELECT * FROM mail_addresses WHERE mail_id = ? ORDER BY created_at`
	var out []model.MailAddress
	if err := r.db.SelectContext(ctx, &out, q, mailID.String()); err != nil {
		return nil, err
	}
	return out, nil
}
