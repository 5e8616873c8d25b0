package smtp

import (
	"crypto/tls"
	"fmt"

	"github.com/spiralover/mailer-server/internal/model"
	"gopkg.in/gomail.v2"
)

// Encryption modes accepted by NewSender.
const (
	EncryptionLocal    = "local"
	EncryptionBasic    = "basic"
	EncryptionStartTLS = "starttls"
	EncryptionTLS      = "tls"
)

type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Encryption string // local | basic | starttls | tls
}

// Sender delivers one saved mail over SMTP.
type Sender interface {
	Send(saved model.MailSaved) error
}

// GomailSender is the real transport. There is no per-send timeout; a
// hanging server blocks the calling poller until the connection drops.
type GomailSender struct {
	dialer *gomail.Dialer
}

func NewSender(cfg Config) (*GomailSender, error) {
	switch cfg.Encryption {
	case EncryptionLocal:
		return &GomailSender{dialer: &gomail.Dialer{Host: cfg.Host, Port: cfg.Port}}, nil
	case EncryptionBasic:
		return &GomailSender{dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)}, nil
	case EncryptionStartTLS, EncryptionTLS:
		if cfg.Username == "" || cfg.Password == "" {
			return nil, fmt.Errorf("smtp encryption %q requires credentials", cfg.Encryption)
		}
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
		d.SSL = cfg.Encryption == EncryptionTLS
		return &GomailSender{dialer: d}, nil
	default:
		return nil, fmt.Errorf("smtp encryption must be one of (local, basic, starttls, tls), got %q", cfg.Encryption)
	}
}

func (s *GomailSender) Send(saved model.MailSaved) error {
	return s.dialer.DialAndSend(BuildMessage(saved))
}

// BuildMessage renders a saved mail as a MIME message with the receiver,
// cc, bcc and reply_to lists mapped to their native SMTP headers. The body
// is sent verbatim as HTML.
func BuildMessage(saved model.MailSaved) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", saved.Mail.FromEmail, saved.Mail.FromName)

	format := func(boxes []model.MailBox) []string {
		out := make([]string, 0, len(boxes))
		for _, box := range boxes {
			out = append(out, m.FormatAddress(box.Email, box.Name))
		}
		return out
	}

	if to := format(saved.Receiver); len(to) > 0 {
		m.SetHeader("To", to...)
	}
	if cc := format(saved.Cc); len(cc) > 0 {
		m.SetHeader("Cc", cc...)
	}
	if bcc := format(saved.Bcc); len(bcc) > 0 {
		m.SetHeader("Bcc", bcc...)
	}
	if replyTo := format(saved.ReplyTo); len(replyTo) > 0 {
		m.SetHeader("Reply-To", replyTo...)
	}

	m.SetHeader("Subject", saved.Mail.Subject)
	m.SetBody("text/html", saved.Mail.Message)
	return m
}
