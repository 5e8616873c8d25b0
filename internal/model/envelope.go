package model

import "github.com/google/uuid"

// Queue envelopes. These are never persisted; they exist only as JSON on
// the redis queues, owned by whichever worker holds them after a pop.

// MailQueueablePayload is the creation request pushed onto the awaiting
// queue by external callers.
type MailQueueablePayload struct {
	CreatedBy     uuid.UUID `json:"created_by"`
	ApplicationID uuid.UUID `json:"application_id"`

	Subject  string    `json:"subject"`
	Message  string    `json:"message"`
	Receiver []MailBox `json:"receiver"`
	Cc       []MailBox `json:"cc"`
	Bcc      []MailBox `json:"bcc"`
	ReplyTo  []MailBox `json:"reply_to"`
	From     *MailBox  `json:"from"`
}

// MailSaved is a persisted Mail plus its resolved address lists, the unit
// of work carried on the processing queue.
type MailSaved struct {
	Mail     Mail      `json:"mail"`
	Receiver []MailBox `json:"receiver"`
	Cc       []MailBox `json:"cc"`
	Bcc      []MailBox `json:"bcc"`
	ReplyTo  []MailBox `json:"reply_to"`
}

// MailSuccessResponse travels on the success queue after an SMTP send.
type MailSuccessResponse struct {
	SavedMail    MailSaved `json:"saved_mail"`
	ResponseBody string    `json:"response_body"`
}

// MailFailureResponse travels on the failure queue after a failed SMTP send.
type MailFailureResponse struct {
	SavedMail    MailSaved `json:"saved_mail"`
	ErrorMessage string    `json:"error_message"`
}
