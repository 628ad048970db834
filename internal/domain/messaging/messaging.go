package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/phone"
	"github.com/jerseyhouse/storefront/internal/validation"
)

var ErrNotImplemented = errors.New("sms log repository: not implemented")

// Purpose tags why a message was sent.
type Purpose string

const (
	PurposeOTP               Purpose = "otp"
	PurposeOrderConfirmation Purpose = "order_confirmation"
	PurposeDeliveryUpdate    Purpose = "delivery_update"
	PurposePaymentUpdate     Purpose = "payment_update"
)

// LogStatus is the delivery result recorded for a message.
type LogStatus string

const (
	LogSent   LogStatus = "sent"
	LogFailed LogStatus = "failed"
)

// SMSLog records one outbound message.
type SMSLog struct {
	ID          string    `json:"id"`
	Recipient   string    `json:"recipient"`
	Body        string    `json:"body"`
	Purpose     Purpose   `json:"purpose"`
	Status      LogStatus `json:"status"`
	ProviderRef string    `json:"provider_ref,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LogFilter narrows SMS log listings.
type LogFilter struct {
	Purpose Purpose
	Status  LogStatus
}

// Matches applies the filter in memory.
func (f LogFilter) Matches(l SMSLog) bool {
	return (f.Purpose == "" || f.Purpose == l.Purpose) && (f.Status == "" || f.Status == l.Status)
}

// LogRepository persists SMS logs.
type LogRepository interface {
	Append(ctx context.Context, entry SMSLog) (SMSLog, error)
	List(ctx context.Context, filter LogFilter, offset, limit int) ([]SMSLog, error)
}

// NullLogRepository discards logs.
type NullLogRepository struct{}

func (NullLogRepository) Append(context.Context, SMSLog) (SMSLog, error) {
	return SMSLog{}, ErrNotImplemented
}

func (NullLogRepository) List(context.Context, LogFilter, int, int) ([]SMSLog, error) {
	return nil, ErrNotImplemented
}

// Sender hands a message to an SMS gateway and returns its reference.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// LogSender writes messages to the logger instead of a gateway.
type LogSender struct {
	Logger   *slog.Logger
	SenderID string
}

func (s LogSender) Send(_ context.Context, to, body string) (string, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("sms_outbound", "sender_id", s.SenderID, "to", phone.Mask(to), "body", body)
	return "log-" + uuid.NewString(), nil
}

// Message is an outbound SMS.
type Message struct {
	To      string
	Body    string
	Purpose Purpose
}

// Service sends SMS and keeps the log.
type Service interface {
	Send(ctx context.Context, msg Message) (SMSLog, error)
	Logs(ctx context.Context, filter LogFilter, offset, limit int) ([]SMSLog, error)
	DeliveryStageChanged(ctx context.Context, status delivery.Status) error
}

// Options configures the messaging service.
type Options struct {
	Sender    Sender
	Logs      LogRepository
	Logger    *slog.Logger
	StoreName string
	// PhoneForOrder resolves the customer phone for delivery updates.
	PhoneForOrder func(ctx context.Context, orderID string) (phone, code string, err error)
}

// NewService builds the messaging service.
func NewService(opts Options) Service {
	s := &service{
		sender:    opts.Sender,
		logs:      opts.Logs,
		logger:    opts.Logger,
		storeName: opts.StoreName,
		lookup:    opts.PhoneForOrder,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.sender == nil {
		s.sender = LogSender{Logger: s.logger}
	}
	if s.logs == nil {
		s.logs = NullLogRepository{}
	}
	if s.storeName == "" {
		s.storeName = "Jersey House"
	}
	return s
}

type service struct {
	sender    Sender
	logs      LogRepository
	logger    *slog.Logger
	storeName string
	lookup    func(ctx context.Context, orderID string) (string, string, error)
}

// Send always records a log entry; the returned error is the gateway error.
func (s *service) Send(ctx context.Context, msg Message) (SMSLog, error) {
	to, err := phone.Normalize(msg.To)
	if err != nil {
		return SMSLog{}, err
	}
	body := strings.TrimSpace(msg.Body)
	if body == "" {
		return SMSLog{}, validation.Required("body")
	}

	entry := SMSLog{
		Recipient: to,
		Body:      body,
		Purpose:   msg.Purpose,
		Status:    LogSent,
		CreatedAt: time.Now().UTC(),
	}
	ref, sendErr := s.sender.Send(ctx, to, body)
	if sendErr != nil {
		entry.Status = LogFailed
		entry.Error = sendErr.Error()
		s.logger.Error("sms send failed", "to", phone.Mask(to), "purpose", msg.Purpose, "err", sendErr)
	}
	entry.ProviderRef = ref

	saved, err := s.logs.Append(ctx, entry)
	if err != nil {
		if !errors.Is(err, ErrNotImplemented) {
			s.logger.Error("sms log append failed", "err", err)
		}
		saved = entry
	}
	return saved, sendErr
}

func (s *service) Logs(ctx context.Context, filter LogFilter, offset, limit int) ([]SMSLog, error) {
	return s.logs.List(ctx, filter, offset, limit)
}

// DeliveryStageChanged texts the customer about a delivery update.
func (s *service) DeliveryStageChanged(ctx context.Context, status delivery.Status) error {
	if s.lookup == nil {
		return nil
	}
	to, code, err := s.lookup(ctx, status.OrderID)
	if err != nil {
		return fmt.Errorf("resolve order phone: %w", err)
	}

	body := fmt.Sprintf("%s: your order %s is now %q.", s.storeName, code, status.Stage.Label())
	if status.Stage == delivery.StageDispatched && status.TrackingNumber != "" {
		body += " Tracking: " + strings.TrimSpace(status.Courier+" "+status.TrackingNumber) + "."
	}
	_, err = s.Send(ctx, Message{To: to, Body: body, Purpose: PurposeDeliveryUpdate})
	return err
}
