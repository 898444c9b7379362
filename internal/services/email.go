package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"kasir/internal/models"
	"kasir/internal/money"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"gopkg.in/gomail.v2"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailConfig, SMTP settings of the receipt mailer.
type MailConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   string
}

// EmailService, sends sale invoice receipts over SMTP.
type EmailService struct {
	sender  Sender
	from    string
	to      string
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     zerolog.Logger
}

// NewEmailService builds the mailer. Without SMTP credentials or a recipient
// it only logs what it would have sent.
func NewEmailService(cfg MailConfig, log zerolog.Logger) *EmailService {
	log = log.With().Str("component", "mail").Logger()

	var sender Sender
	if cfg.User != "" && cfg.Pass != "" && cfg.To != "" {
		sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	} else {
		log.Info().Msg("SMTP not configured, receipts are logged only")
	}
	return newEmailService(sender, cfg.From, cfg.To, log)
}

func newEmailService(sender Sender, from, to string, log zerolog.Logger) *EmailService {
	es := &EmailService{sender: sender, from: from, to: to, log: log}
	es.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			es.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("mail breaker state changed")
		},
	})
	return es
}

// SendInvoiceReceipt mails the receipt of a committed invoice.
func (es *EmailService) SendInvoiceReceipt(ctx context.Context, store models.Store, inv models.SaleInvoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if es.sender == nil {
		es.log.Info().Int64("invoice", inv.ID).Str("total", money.Format(inv.TotalAmount)).Msg("receipt not sent, mail disabled")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", es.from)
	m.SetHeader("To", es.to)
	m.SetHeader("Subject", fmt.Sprintf("Faktur Penjualan #%d - %s", inv.ID, store.Name))
	m.SetBody("text/html", receiptBody(store, inv))

	_, err := es.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, es.sender.DialAndSend(m)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		es.log.Warn().Int64("invoice", inv.ID).Msg("receipt skipped, mail breaker open")
		return err
	}
	if err != nil {
		es.log.Error().Err(err).Int64("invoice", inv.ID).Msg("receipt send failed")
		return err
	}

	es.log.Info().Int64("invoice", inv.ID).Str("to", es.to).Msg("receipt sent")
	return nil
}

func receiptBody(store models.Store, inv models.SaleInvoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Faktur Penjualan #%d</h2>\n", inv.ID)
	fmt.Fprintf(&b, "<p>%s<br>%s</p>\n", html.EscapeString(store.Name), inv.InvoiceDate.Format("02-01-2006 15:04"))
	b.WriteString("<table>\n<tr><th>Produk</th><th>Jumlah</th><th>Harga</th><th>Total</th></tr>\n")
	for _, l := range inv.Lines {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(l.ProductName), l.Quantity, money.Format(l.UnitPrice), money.Format(l.TotalPrice))
	}
	fmt.Fprintf(&b, "</table>\n<p><strong>Total: %s</strong></p>\n", money.Format(inv.TotalAmount))
	return b.String()
}
