package service

import (
	"context"
	"testing"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/repository"
)

// A webhook replay after a failed event publish must re-emit
// new_replenishment instead of leaving the row stuck in processing.
func TestConfirmPaymentReplayRepublishes(t *testing.T) {
	pool := newServiceTestPool(t)
	ctx := context.Background()
	c := cache.New("", "", 0)
	pub := &capturePublisher{}
	svc := NewReplenishmentService(pool, c, pub)
	users := repository.NewUserRepository(pool)
	repl := repository.NewReplenishmentRepository(pool)

	u := newServiceTestUser(t, users)
	rp, err := svc.CreatePayment(ctx, u.ID, 1, 100, 100)
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	// first delivery flips the row but loses the event
	pub.failNext = true
	if _, err := svc.ConfirmPayment(ctx, rp.ExternalID); err == nil {
		t.Fatal("expected publish failure to surface")
	}
	got, err := repl.GetByID(ctx, rp.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.ReplenishmentProcessing {
		t.Fatalf("status = %q, want processing", got.Status)
	}
	if len(pub.events) != 0 {
		t.Fatalf("captured %d events before the replay", len(pub.events))
	}

	// the provider retries; the processing row re-emits
	got, err = svc.ConfirmPayment(ctx, rp.ExternalID)
	if err != nil {
		t.Fatalf("replay ConfirmPayment: %v", err)
	}
	if got == nil || got.ID != rp.ID {
		t.Fatalf("replay returned %+v, want replenishment %d", got, rp.ID)
	}
	if len(pub.events) != 1 {
		t.Fatalf("captured %d events, want 1", len(pub.events))
	}
	ev, ok := pub.events[0].(events.NewReplenishment)
	if !ok || ev.ReplenishmentID != rp.ID {
		t.Fatalf("republished event = %+v", pub.events[0])
	}

	// a finished row stays quiet
	if err := repl.SetStatus(ctx, rp.ID, domain.ReplenishmentCompleted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err = svc.ConfirmPayment(ctx, rp.ExternalID)
	if err != nil {
		t.Fatalf("completed replay: %v", err)
	}
	if got != nil || len(pub.events) != 1 {
		t.Fatalf("completed replay re-emitted: rp=%+v events=%d", got, len(pub.events))
	}
}

func TestConfirmPaymentUnknownReference(t *testing.T) {
	pool := newServiceTestPool(t)
	c := cache.New("", "", 0)
	svc := NewReplenishmentService(pool, c, &capturePublisher{})

	got, err := svc.ConfirmPayment(context.Background(), "no-such-reference")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if got != nil {
		t.Fatalf("unknown reference returned %+v", got)
	}
}
