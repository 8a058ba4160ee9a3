package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()

	var got NewActivatePromoCode
	r.Register(KeyPromoCodeActivated, Typed(func(ctx context.Context, p NewActivatePromoCode) error {
		got = p
		return nil
	}))

	env, err := Wrap(NewActivatePromoCode{PromoCodeID: 5, UserID: 9}, time.Now())
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if err := r.Dispatch(context.Background(), env); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got.PromoCodeID != 5 || got.UserID != 9 {
		t.Fatalf("handler saw %+v", got)
	}
}

func TestRouterDispatchUnknownAcks(t *testing.T) {
	r := NewRouter()
	r.Register(KeyVoucherActivated, func(ctx context.Context, env Envelope) error { return nil })

	// unknown key in a known family and a fully unknown one both ack (nil)
	for _, event := range []string{"voucher.revoked", "shipping.dispatched"} {
		env := Envelope{Event: event, Payload: []byte(`{}`)}
		if err := r.Dispatch(context.Background(), env); err != nil {
			t.Fatalf("Dispatch(%s) = %v, want nil", event, err)
		}
	}
}

func TestRouterHandlerErrorPropagates(t *testing.T) {
	r := NewRouter()
	want := errors.New("db down")
	r.Register(KeyNewReferral, func(ctx context.Context, env Envelope) error { return want })

	env := Envelope{Event: KeyNewReferral, Payload: []byte(`{}`)}
	if err := r.Dispatch(context.Background(), env); !errors.Is(err, want) {
		t.Fatalf("Dispatch = %v, want %v", err, want)
	}
}

func TestTypedRejectsMalformedPayload(t *testing.T) {
	h := Typed(func(ctx context.Context, p NewActivationVoucher) error { return nil })
	env := Envelope{Event: KeyVoucherActivated, Payload: []byte(`{"voucher_id":"not a number"}`)}
	if err := h(context.Background(), env); err == nil {
		t.Fatal("expected decode error")
	}
}
