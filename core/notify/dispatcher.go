package notify

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/ada/core"
)

const (
	reminderTemplate = "payment_reminder"
	receiptTemplate  = "payment_receipt"

	dateLayout = "2006-01-02"
)

// Contact is where a student's notifications go. Empty channels are skipped.
type Contact struct {
	Email string
	Phone string
}

func (c Contact) IsEmpty() bool { return c.Email == "" && c.Phone == "" }

// Notifier sends payment reminders and receipts. Both report whether every attempted channel succeeded.
type Notifier interface {
	SendReminder(ctx context.Context, c Contact, studentName string, amount decimal.Decimal, dueDate time.Time) bool
	SendReceipt(ctx context.Context, c Contact, studentName string, amount decimal.Decimal, receiptURL string) bool
}

type reminderData struct {
	StudentName string
	Amount      string
	DueDate     string
}

type receiptData struct {
	StudentName string
	Amount      string
	ReceiptURL  string
}

// Dispatcher delivers notifications over email and SMS. Failures are logged, never returned.
type Dispatcher struct {
	email  core.EmailService
	sms    core.SMSService
	logger core.Logger
}

var _ Notifier = (*Dispatcher)(nil)

func NewDispatcher(email core.EmailService, sms core.SMSService, logger core.Logger) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, logger: logger}
}

func (d *Dispatcher) SendReminder(ctx context.Context, c Contact, studentName string, amount decimal.Decimal, dueDate time.Time) bool {
	data := reminderData{
		StudentName: studentName,
		Amount:      amount.String(),
		DueDate:     dueDate.Format(dateLayout),
	}
	msg := &core.EmailMessage{
		Subject:      "Payment Reminder",
		TemplateName: reminderTemplate,
		TemplateData: data,
	}
	sms := fmt.Sprintf(
		"Dear %s, your payment of %s is due on %s. Please make the payment at your earliest convenience.",
		data.StudentName, data.Amount, data.DueDate)
	return d.send(ctx, c, studentName, msg, sms)
}

func (d *Dispatcher) SendReceipt(ctx context.Context, c Contact, studentName string, amount decimal.Decimal, receiptURL string) bool {
	data := receiptData{
		StudentName: studentName,
		Amount:      amount.String(),
		ReceiptURL:  receiptURL,
	}
	msg := &core.EmailMessage{
		Subject:      "Payment Receipt",
		TemplateName: receiptTemplate,
		TemplateData: data,
	}
	sms := fmt.Sprintf(
		"Dear %s, thank you for your payment of %s. You can download your receipt from: %s",
		data.StudentName, data.Amount, data.ReceiptURL)
	return d.send(ctx, c, studentName, msg, sms)
}

func (d *Dispatcher) send(ctx context.Context, c Contact, name string, msg *core.EmailMessage, smsBody string) bool {
	if c.IsEmpty() {
		d.logger.Warn(fmt.Sprintf("notify: no contact info for %q, %q not sent", name, msg.Subject))
		return false
	}

	ok := true
	if c.Email != "" {
		msg.To = []mail.Address{{Name: name, Address: c.Email}}
		if err := d.email.SendMessages(ctx, msg); err != nil {
			d.logger.Error(fmt.Sprintf("notify: sending %q email to %s: %v", msg.Subject, c.Email, err), err)
			ok = false
		}
	}
	if c.Phone != "" {
		if err := d.sms.SendMessages(ctx, &core.SMSMessage{To: c.Phone, Body: smsBody}); err != nil {
			d.logger.Error(fmt.Sprintf("notify: sending %q SMS to %s: %v", msg.Subject, c.Phone, err), err)
			ok = false
		}
	}
	return ok
}
