package model

import (
	"time"

	"github.com/google/uuid"
)

// MailError is an append-only audit row recorded per failed delivery
// attempt. History accumulates across retries and is never overwritten.
type MailError struct {
	MailErrorID uuid.UUID `db:"mail_error_id" json:"mail_error_id"`
	MailID      uuid.UUID `db:"mail_id" json:"mail_id"`
	SMTPError   string    `db:"smtp_error" json:"smtp_error"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
