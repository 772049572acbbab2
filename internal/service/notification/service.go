// Package notification mails appointment changes to the clinic mailbox.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/model"
)

// Sender delivers composed messages. *gomail.Dialer implements it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Service interface {
	// Notify handles one relayed outbox event. Events that carry nothing to
	// announce are ignored.
	Notify(ctx context.Context, event *model.OutboxEvent) error
}

type service struct {
	sender Sender
	from   string
	to     string
	logger zerolog.Logger
}

func NewService(cfg config.NotificationConfig, logger zerolog.Logger) Service {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	return NewServiceWithSender(d, cfg.From, cfg.To, logger)
}

func NewServiceWithSender(sender Sender, from, to string, logger zerolog.Logger) Service {
	return &service{
		sender: sender,
		from:   from,
		to:     to,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

var subjects = map[string]string{
	model.EventAppointmentBooked:      "New appointment",
	model.EventAppointmentRescheduled: "Appointment rescheduled",
	model.EventAppointmentCancelled:   "Appointment cancelled",
}

func (s *service) Notify(ctx context.Context, event *model.OutboxEvent) error {
	subject, ok := subjects[event.EventType]
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var appt model.Appointment
	if err := json.Unmarshal(event.Payload, &appt); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	m.SetHeader("Subject", fmt.Sprintf("%s: %s %s", subject, appt.Date, appt.StartTime))
	m.SetBody("text/plain", renderBody(subject, &appt))

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s notice: %w", event.EventType, err)
	}

	s.logger.Debug().
		Str("event_id", event.ID.String()).
		Str("appointment_id", appt.ID.String()).
		Msg("notification sent")
	return nil
}

func renderBody(subject string, appt *model.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", subject)
	fmt.Fprintf(&b, "Appointment: %s\n", appt.ID)
	fmt.Fprintf(&b, "Doctor:      %s\n", appt.DoctorID)
	fmt.Fprintf(&b, "Patient:     %s\n", appt.PatientID)
	fmt.Fprintf(&b, "When:        %s %s-%s\n", appt.Date, appt.StartTime, appt.EndTime)
	fmt.Fprintf(&b, "Status:      %s\n", appt.Status)
	if appt.Reason != "" {
		fmt.Fprintf(&b, "Reason:      %s\n", appt.Reason)
	}
	if appt.CancelReason != nil {
		fmt.Fprintf(&b, "Cancelled:   %s\n", *appt.CancelReason)
	}
	return b.String()
}
