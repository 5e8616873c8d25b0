package model

import (
	"time"

	"github.com/google/uuid"
)

type MailStatus string

const (
	MailStatusAwaiting   MailStatus = "awaiting"
	MailStatusProcessing MailStatus = "processing"
	MailStatusRetrying   MailStatus = "retrying"
	MailStatusFailed     MailStatus = "failed"
	MailStatusSent       MailStatus = "sent"
)

func (s MailStatus) String() string {
	return string(s)
}

func (s MailStatus) Valid() bool {
	switch s {
	case MailStatusAwaiting, MailStatusProcessing, MailStatusRetrying, MailStatusFailed, MailStatusSent:
		return true
	}
	return false
}

// Terminal reports whether no further status transition is expected.
func (s MailStatus) Terminal() bool {
	return s == MailStatusSent || s == MailStatusFailed
}

// MailBox is the canonical sender/recipient shape used on every payload.
type MailBox struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Mail is the DB entity persisted in the mails table, one row per outbound
// message and its delivery lifecycle.
type Mail struct {
	MailID        uuid.UUID  `db:"mail_id" json:"mail_id"`
	CreatedBy     uuid.UUID  `db:"created_by" json:"created_by"`
	ApplicationID uuid.UUID  `db:"application_id" json:"application_id"`
	Subject       string     `db:"subject" json:"subject"`
	Message       string     `db:"message" json:"message"`
	FromName      string     `db:"from_name" json:"from_name"`
	FromEmail     string     `db:"from_email" json:"from_email"`
	ReplyToName   *string    `db:"reply_to_name" json:"reply_to_name"`
	ReplyToEmail  *string    `db:"reply_to_email" json:"reply_to_email"`
	Trials        int16      `db:"trials" json:"trials"`
	Status        MailStatus `db:"status" json:"status"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at"`
	NextRetrialAt *time.Time `db:"next_retrial_at" json:"next_retrial_at"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
