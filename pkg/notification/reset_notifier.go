package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/financeflow/financeflow/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

const resetSubject = "Password Reset Request - FinanceFlow"

var resetEmailTemplate = template.Must(template.New("reset_password").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #4F46E5;">Password Reset Request</h2>
    <p>You requested to reset your password for FinanceFlow.</p>
    <p>Click the button below to reset your password:</p>
    <p><a href="{{.Link}}" style="background-color: #4F46E5; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a></p>
    <p>Or copy this link into your browser: {{.Link}}</p>
    <p>This link will expire at {{.ExpiresAt}}.</p>
    <p style="color: #666; font-size: 14px;">If you did not request this, please ignore this email.</p>
  </div>
</body>
</html>`))

type resetEmailData struct {
	Link      string
	ExpiresAt string
}

// ResetNotifier delivers password reset requests by email or SMS from a background worker.
type ResetNotifier struct {
	mailer   Mailer
	sms      SmsSender
	resetURL string
	queue    chan event_bus.PasswordResetRequest
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewResetNotifier starts the delivery worker. A nil mailer or sms sender disables that channel.
func NewResetNotifier(mailer Mailer, sms SmsSender, resetURL string) *ResetNotifier {
	n := &ResetNotifier{
		mailer:   mailer,
		sms:      sms,
		resetURL: resetURL,
		queue:    make(chan event_bus.PasswordResetRequest, 100),
	}
	n.wg.Add(1)
	go n.worker()
	return n
}

// Subscribe queues every password reset request published on bus.
func (n *ResetNotifier) Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped(bus, event_bus.PasswordResetRequested, func(e event_bus.EventT[event_bus.PasswordResetRequest]) error {
		return n.enqueue(e.Data)
	})
}

func (n *ResetNotifier) enqueue(request event_bus.PasswordResetRequest) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return fmt.Errorf("reset notifier is closed, dropping request of user %d", request.UserId)
	}
	select {
	case n.queue <- request:
		return nil
	default:
		return fmt.Errorf("reset notification queue is full, dropping request of user %d", request.UserId)
	}
}

// Close stops accepting requests and waits for queued ones to be delivered. It is safe to call twice.
func (n *ResetNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *ResetNotifier) worker() {
	defer n.wg.Done()
	for request := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := n.Deliver(ctx, request); err != nil {
			log.Errorf("Error delivering password reset to user %d: %v", request.UserId, err)
		}
		cancel()
	}
}

func (n *ResetNotifier) Deliver(ctx context.Context, request event_bus.PasswordResetRequest) error {
	switch request.Channel {
	case event_bus.ResetByEmail:
		if n.mailer == nil {
			log.Warnf("email delivery is not configured, password reset for user %d not sent", request.UserId)
			return nil
		}
		body, err := n.resetEmail(request)
		if err != nil {
			return err
		}
		return n.mailer.Send(ctx, Mail{To: request.Email, Subject: resetSubject, Html: body})
	case event_bus.ResetBySms:
		if n.sms == nil {
			log.Warnf("sms delivery is not configured, password reset for user %d not sent", request.UserId)
			return nil
		}
		return n.sms.SendSms(ctx, request.Phone, "Your FinanceFlow password reset code: "+request.Token)
	default:
		return fmt.Errorf("unknown reset channel %q", request.Channel)
	}
}

func (n *ResetNotifier) resetEmail(request event_bus.PasswordResetRequest) (string, error) {
	var body bytes.Buffer
	err := resetEmailTemplate.Execute(&body, resetEmailData{
		Link:      n.resetURL + request.Token,
		ExpiresAt: request.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return "", fmt.Errorf("error executing reset email template: %w", err)
	}
	return body.String(), nil
}
