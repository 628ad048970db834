package messaging_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/messaging"
	"github.com/jerseyhouse/storefront/internal/logger"
	"github.com/jerseyhouse/storefront/internal/storage/memory"
)

type fakeSender struct {
	to   []string
	body []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, body string) (string, error) {
	f.to = append(f.to, to)
	f.body = append(f.body, body)
	if f.err != nil {
		return "", f.err
	}
	return "ref-1", nil
}

func TestSendNormalizesAndLogs(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	logs := memory.NewSMSLogRepository()
	svc := messaging.NewService(messaging.Options{Sender: sender, Logs: logs, Logger: logger.Discard()})

	entry, err := svc.Send(ctx, messaging.Message{To: "077 123 4567", Body: " hello ", Purpose: messaging.PurposeOTP})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if entry.Recipient != "94771234567" || entry.Body != "hello" || entry.Status != messaging.LogSent {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.ProviderRef != "ref-1" || entry.ID == "" {
		t.Fatalf("expected provider ref and id, got %+v", entry)
	}
	if sender.to[0] != "94771234567" {
		t.Fatalf("gateway received %s", sender.to[0])
	}
}

func TestSendRecordsFailure(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{err: errors.New("gateway timeout")}
	logs := memory.NewSMSLogRepository()
	svc := messaging.NewService(messaging.Options{Sender: sender, Logs: logs, Logger: logger.Discard()})

	if _, err := svc.Send(ctx, messaging.Message{To: "0771234567", Body: "hi", Purpose: messaging.PurposeOTP}); err == nil {
		t.Fatalf("expected gateway error")
	}

	failed, err := svc.Logs(ctx, messaging.LogFilter{Status: messaging.LogFailed}, 0, 0)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Error != "gateway timeout" {
		t.Fatalf("expected one failed log entry, got %+v", failed)
	}
}

func TestSendRejectsBadInput(t *testing.T) {
	svc := messaging.NewService(messaging.Options{Sender: &fakeSender{}, Logger: logger.Discard()})
	if _, err := svc.Send(context.Background(), messaging.Message{To: "not a phone", Body: "x"}); err == nil {
		t.Fatalf("expected phone validation error")
	}
	if _, err := svc.Send(context.Background(), messaging.Message{To: "0771234567", Body: "  "}); err == nil {
		t.Fatalf("expected body validation error")
	}
}

func TestDeliveryStageChanged(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	svc := messaging.NewService(messaging.Options{
		Sender:    sender,
		Logs:      memory.NewSMSLogRepository(),
		Logger:    logger.Discard(),
		StoreName: "Jersey House",
		PhoneForOrder: func(_ context.Context, orderID string) (string, string, error) {
			if orderID != "order-1" {
				return "", "", errors.New("unknown order")
			}
			return "94771234567", "JS-ABCD2345", nil
		},
	})

	err := svc.DeliveryStageChanged(ctx, delivery.Status{
		OrderID:        "order-1",
		Stage:          delivery.StageDispatched,
		Courier:        "Domex",
		TrackingNumber: "DX99",
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	body := sender.body[0]
	for _, want := range []string{"JS-ABCD2345", "Dispatched", "Domex DX99"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in %q", want, body)
		}
	}

	deliveryLogs, err := svc.Logs(ctx, messaging.LogFilter{Purpose: messaging.PurposeDeliveryUpdate}, 0, 0)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if len(deliveryLogs) != 1 {
		t.Fatalf("expected one delivery log, got %d", len(deliveryLogs))
	}

	if err := svc.DeliveryStageChanged(ctx, delivery.Status{OrderID: "other", Stage: delivery.StageArrived}); err == nil {
		t.Fatalf("expected lookup error")
	}
}
