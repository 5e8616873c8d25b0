package worker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spiralover/mailer-server/internal/events"
	"github.com/spiralover/mailer-server/internal/metrics"
	"github.com/spiralover/mailer-server/internal/model"
	"github.com/spiralover/mailer-server/internal/smtp"
	"go.uber.org/zap"
)

// MailStore is the slice of the mail service the queue handlers consume.
type MailStore interface {
	Create(ctx context.Context, payload model.MailQueueablePayload) (model.MailSaved, error)
	Find(ctx context.Context, id uuid.UUID) (model.Mail, error)
	MarkAsSuccess(ctx context.Context, resp model.MailSuccessResponse) (model.Mail, error)
	MarkAsRetrying(ctx context.Context, resp model.MailFailureResponse) (model.Mail, error)
	MarkAsFailure(ctx context.Context, resp model.MailFailureResponse) (model.Mail, error)
	PushToProcessingQueue(ctx context.Context, saved model.MailSaved) (int64, error)
	PushToSuccessQueue(ctx context.Context, resp model.MailSuccessResponse) (int64, error)
	PushToFailureQueue(ctx context.Context, resp model.MailFailureResponse) (int64, error)
}

// Handlers binds one handler per pipeline stage to the store, the SMTP
// sender and the event publisher. Status is only ever mutated by the
// success and failure handlers; the processing handler just moves
// envelopes.
type Handlers struct {
	Store       MailStore
	Sender      smtp.Sender
	Events      events.Publisher
	From        model.MailBox
	MaxRetrials int16
}

// Awaiting turns a MailQueueablePayload into a persisted mail and hands it
// to the processing queue. A DB failure here is logged and the payload
// dropped: nothing durable exists yet, so there is nothing to resume.
func (h *Handlers) Awaiting(log *zap.Logger) Handler {
	return func(ctx context.Context, item string) {
		var payload model.MailQueueablePayload
		if err := json.Unmarshal([]byte(item), &payload); err != nil {
			log.Error("error decoding awaiting", zap.Error(err))
			return
		}

		log.Info("handling awaiting", zap.String("subject", payload.Subject))

		if payload.From == nil {
			from := h.From
			payload.From = &from
		}

		saved, err := h.Store.Create(ctx, payload)
		if err != nil {
			metrics.MailsTotal.WithLabelValues("dropped").Inc()
			log.Error("db error creating mail",
				zap.String("subject", payload.Subject),
				zap.Error(err),
			)
			return
		}

		metrics.MailsTotal.WithLabelValues("created").Inc()
		h.publish(ctx, log, saved.Mail, "")

		if _, err := h.Store.PushToProcessingQueue(ctx, saved); err != nil {
			log.Error("push to processing failed",
				zap.String("mail_id", saved.Mail.MailID.String()),
				zap.Error(err),
			)
		}
	}
}

// Processing performs the SMTP delivery and routes the outcome envelope.
func (h *Handlers) Processing(log *zap.Logger) Handler {
	return func(ctx context.Context, item string) {
		var saved model.MailSaved
		if err := json.Unmarshal([]byte(item), &saved); err != nil {
			log.Error("error decoding processing", zap.Error(err))
			return
		}

		log.Info("processing", zap.String("subject", saved.Mail.Subject))

		if err := h.Sender.Send(saved); err != nil {
			metrics.SMTPSendsTotal.WithLabelValues("failure").Inc()
			log.Error("failed to send mail, routing to failure queue",
				zap.String("subject", saved.Mail.Subject),
				zap.Error(err),
			)
			if _, perr := h.Store.PushToFailureQueue(ctx, model.MailFailureResponse{
				SavedMail:    saved,
				ErrorMessage: err.Error(),
			}); perr != nil {
				log.Error("push to failure queue failed", zap.Error(perr))
			}
			return
		}

		metrics.SMTPSendsTotal.WithLabelValues("success").Inc()
		if _, err := h.Store.PushToSuccessQueue(ctx, model.MailSuccessResponse{
			SavedMail:    saved,
			ResponseBody: "sent",
		}); err != nil {
			log.Error("push to success queue failed", zap.Error(err))
		}
	}
}

// Success marks the mail sent. Duplicate success envelopes are harmless.
func (h *Handlers) Success(log *zap.Logger) Handler {
	return func(ctx context.Context, item string) {
		var resp model.MailSuccessResponse
		if err := json.Unmarshal([]byte(item), &resp); err != nil {
			log.Error("error decoding success", zap.Error(err))
			return
		}

		log.Info("marking as success", zap.String("subject", resp.SavedMail.Mail.Subject))

		m, err := h.Store.MarkAsSuccess(ctx, resp)
		if err != nil {
			log.Error("mark as success failed",
				zap.String("mail_id", resp.SavedMail.Mail.MailID.String()),
				zap.Error(err),
			)
			return
		}

		metrics.MailsTotal.WithLabelValues("sent").Inc()
		h.publish(ctx, log, m, "")
	}
}

// Failure applies the bounded retry policy: one more trial and either back
// to the processing queue or the terminal failed status. Either way the
// SMTP error joins the audit trail.
func (h *Handlers) Failure(log *zap.Logger) Handler {
	return func(ctx context.Context, item string) {
		var resp model.MailFailureResponse
		if err := json.Unmarshal([]byte(item), &resp); err != nil {
			log.Error("error decoding failure", zap.Error(err))
			return
		}

		log.Info("marking as failure", zap.String("subject", resp.SavedMail.Mail.Subject))

		current, err := h.Store.Find(ctx, resp.SavedMail.Mail.MailID)
		if err != nil {
			log.Error("mail lookup failed",
				zap.String("mail_id", resp.SavedMail.Mail.MailID.String()),
				zap.Error(err),
			)
			return
		}
		if current.Status.Terminal() {
			return
		}

		if current.Trials+1 < h.MaxRetrials {
			m, err := h.Store.MarkAsRetrying(ctx, resp)
			if err != nil {
				log.Error("mark as retrying failed", zap.Error(err))
				return
			}

			log.Info("retrying", zap.Int16("trials", m.Trials))
			metrics.MailsTotal.WithLabelValues("retrying").Inc()
			h.publish(ctx, log, m, resp.ErrorMessage)

			saved := resp.SavedMail
			saved.Mail = m
			if _, err := h.Store.PushToProcessingQueue(ctx, saved); err != nil {
				log.Error("requeue to processing failed", zap.Error(err))
			}
			return
		}

		m, err := h.Store.MarkAsFailure(ctx, resp)
		if err != nil {
			log.Error("mark as failure failed", zap.Error(err))
			return
		}

		metrics.MailsTotal.WithLabelValues("failed").Inc()
		h.publish(ctx, log, m, resp.ErrorMessage)
	}
}

func (h *Handlers) publish(ctx context.Context, log *zap.Logger, m model.Mail, smtpError string) {
	if h.Events == nil {
		return
	}
	err := h.Events.Publish(ctx, events.Event{
		MailID: m.MailID.String(),
		Status: m.Status.String(),
		Trials: m.Trials,
		Error:  smtpError,
	})
	if err != nil {
		log.Warn("lifecycle event publish failed",
			zap.String("mail_id", m.MailID.String()),
			zap.Error(err),
		)
	}
}
