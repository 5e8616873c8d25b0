package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailer_mails_total",
			Help: "Mail lifecycle counter by stage",
		},
		[]string{"stage"}, // created|sent|retrying|failed|dropped
	)

	SMTPSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailer_smtp_sends_total",
			Help: "SMTP delivery attempts by outcome",
		},
		[]string{"outcome"}, // success|failure
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mailer_queue_depth",
			Help: "Current length of each pipeline queue",
		},
		[]string{"queue"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MailsTotal,
		SMTPSendsTotal,
		QueueDepth,
	)
}
