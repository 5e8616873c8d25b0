package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spiralover/mailer-server/internal/model"
	"github.com/spiralover/mailer-server/internal/queue"
	"github.com/spiralover/mailer-server/internal/repository"
)

var ErrMissingFrom = errors.New("mail payload has no from mailbox")

// pusher is the slice of queue.Client the service needs.
type pusher interface {
	Push(ctx context.Context, queue string, v any) (int64, error)
}

// Service owns Mail/MailAddress/MailError persistence and the queue entry
// points. It holds no in-process state of its own; correctness relies on
// each mail id being carried by exactly one in-flight queue envelope.
type Service struct {
	db        *sqlx.DB
	mails     repository.MailsRepository
	addresses repository.MailAddressesRepository
	errs      repository.MailErrorsRepository
	queue     pusher
	names     queue.Names
}

func New(
	db *sqlx.DB,
	mailsRepo repository.MailsRepository,
	addressesRepo repository.MailAddressesRepository,
	errorsRepo repository.MailErrorsRepository,
	qc pusher,
	names queue.Names,
) *Service {
	return &Service{
		db:        db,
		mails:     mailsRepo,
		addresses: addressesRepo,
		errs:      errorsRepo,
		queue:     qc,
		names:     names,
	}
}

// Create inserts the Mail row (status=awaiting, trials=0) and one address
// row per cc/bcc/reply_to/receiver entry, all in a single transaction, and
// returns the saved mail with its resolved address lists.
func (s *Service) Create(ctx context.Context, payload model.MailQueueablePayload) (model.MailSaved, error) {
	if payload.From == nil {
		return model.MailSaved{}, ErrMissingFrom
	}

	m := model.Mail{
		MailID:        uuid.New(),
		CreatedBy:     payload.CreatedBy,
		ApplicationID: payload.ApplicationID,
		Subject:       payload.Subject,
		Message:       payload.Message,
		FromName:      payload.From.Name,
		FromEmail:     payload.From.Email,
		Trials:        0,
		Status:        model.MailStatusAwaiting,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	saved := model.MailSaved{Mail: m}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.mails.Insert(ctx, tx, m); err != nil {
			return fmt.Errorf("insert mail: %w", err)
		}

		insert := func(boxes []model.MailBox, t model.MailAddressType) ([]model.MailBox, error) {
			out := make([]model.MailBox, 0, len(boxes))
			for _, box := range boxes {
				addr := model.MailAddress{
					MailAddressID: uuid.New(),
					MailID:        m.MailID,
					Name:          box.Name,
					Email:         box.Email,
					AddrType:      t,
					CreatedAt:     time.Now(),
				}
				if err := s.addresses.Insert(ctx, tx, addr); err != nil {
					return nil, fmt.Errorf("insert %s address: %w", t, err)
				}
				out = append(out, addr.MailBox())
			}
			return out, nil
		}

		var err error
		if saved.Cc, err = insert(payload.Cc, model.AddressTypeCc); err != nil {
			return err
		}
		if saved.Bcc, err = insert(payload.Bcc, model.AddressTypeBcc); err != nil {
			return err
		}
		if saved.ReplyTo, err = insert(payload.ReplyTo, model.AddressTypeReplyTo); err != nil {
			return err
		}
		saved.Receiver, err = insert(payload.Receiver, model.AddressTypeReceiver)
		return err
	})
	if err != nil {
		return model.MailSaved{}, err
	}
	return saved, nil
}

// withTx runs fn inside one transaction on the pool. Without a pool (unit
// tests against fake repositories) fn runs with a nil tx and each
// repository call stands alone.
func (s *Service) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.db == nil {
		return fn(nil)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Find re-fetches a mail row by id.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (model.Mail, error) {
	return s.mails.FindByID(ctx, id)
}

// MarkAsSuccess sets status=sent and stamps sent_at. Re-delivery of the
// same success envelope is a no-op once the row is terminal.
func (s *Service) MarkAsSuccess(ctx context.Context, resp model.MailSuccessResponse) (model.Mail, error) {
	m, err := s.mails.FindByID(ctx, resp.SavedMail.Mail.MailID)
	if err != nil {
		return model.Mail{}, err
	}
	if m.Status.Terminal() {
		return m, nil
	}

	now := time.Now()
	if err := s.mails.MarkSent(ctx, nil, m.MailID, now); err != nil {
		return model.Mail{}, err
	}
	m.Status = model.MailStatusSent
	m.SentAt = &now
	return m, nil
}

// MarkAsRetrying increments trials, sets status=retrying and appends the
// failure to the audit trail.
func (s *Service) MarkAsRetrying(ctx context.Context, resp model.MailFailureResponse) (model.Mail, error) {
	return s.logFailure(ctx, resp, model.MailStatusRetrying)
}

// MarkAsFailure increments trials, sets the terminal failed status and
// appends the failure to the audit trail.
func (s *Service) MarkAsFailure(ctx context.Context, resp model.MailFailureResponse) (model.Mail, error) {
	return s.logFailure(ctx, resp, model.MailStatusFailed)
}

// logFailure commits the status/trials update and the mail_errors insert in
// one transaction so a crash cannot leave the status stale relative to the
// audit trail.
func (s *Service) logFailure(ctx context.Context, resp model.MailFailureResponse, status model.MailStatus) (model.Mail, error) {
	m, err := s.mails.FindByID(ctx, resp.SavedMail.Mail.MailID)
	if err != nil {
		return model.Mail{}, err
	}
	if m.Status.Terminal() {
		return m, nil
	}

	m.Trials++
	m.Status = status

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.mails.UpdateDelivery(ctx, tx, m.MailID, status, m.Trials); err != nil {
			return fmt.Errorf("update delivery: %w", err)
		}
		if err := s.errs.Insert(ctx, tx, model.MailError{
			MailErrorID: uuid.New(),
			MailID:      m.MailID,
			SMTPError:   resp.ErrorMessage,
			CreatedAt:   time.Now(),
		}); err != nil {
			return fmt.Errorf("insert mail error: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Mail{}, err
	}
	return m, nil
}

// PushToAwaitingQueue is the sole public entry point for enqueueing mail.
func (s *Service) PushToAwaitingQueue(ctx context.Context, payload model.MailQueueablePayload) (int64, error) {
	return s.queue.Push(ctx, s.names.Awaiting, payload)
}

func (s *Service) PushToProcessingQueue(ctx context.Context, saved model.MailSaved) (int64, error) {
	return s.queue.Push(ctx, s.names.Processing, saved)
}

func (s *Service) PushToSuccessQueue(ctx context.Context, resp model.MailSuccessResponse) (int64, error) {
	return s.queue.Push(ctx, s.names.Success, resp)
}

func (s *Service) PushToFailureQueue(ctx context.Context, resp model.MailFailureResponse) (int64, error) {
	return s.queue.Push(ctx, s.names.Failure, resp)
}
