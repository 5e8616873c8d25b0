package model

import (
	"time"

	"github.com/google/uuid"
)

type MailAddressType string

const (
	AddressTypeCc       MailAddressType = "cc"
	AddressTypeBcc      MailAddressType = "bcc"
	AddressTypeReplyTo  MailAddressType = "reply_to"
	AddressTypeReceiver MailAddressType = "receiver"
)

func (t MailAddressType) String() string {
	return string(t)
}

// MailAddress is one recipient-class entry (cc, bcc, reply_to, receiver)
// belonging to a Mail row.
type MailAddress struct {
	MailAddressID uuid.UUID       `db:"mail_address_id" json:"mail_address_id"`
	MailID        uuid.UUID       `db:"mail_id" json:"mail_id"`
	Name          string          `db:"name" json:"name"`
	Email         string          `db:"email" json:"email"`
	AddrType      MailAddressType `db:"addr_type" json:"addr_type"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

func (a MailAddress) MailBox() MailBox {
	return MailBox{Name: a.Name, Email: a.Email}
}
