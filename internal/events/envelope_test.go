package events

import (
	"testing"
	"time"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	src := ReplenishmentCompleted{
		UserID:                7,
		ReplenishmentID:       42,
		Amount:                1500,
		TotalSumReplenishment: 9000,
		Language:              "en",
		Username:              "alice",
	}

	env, err := Wrap(src, now)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if env.Event != KeyReplenishmentCompleted {
		t.Fatalf("event = %q, want %q", env.Event, KeyReplenishmentCompleted)
	}
	if env.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp not normalized to UTC: %v", env.Timestamp)
	}

	body, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := DecodeEnvelope(body)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	payload, err := decoded.DecodePayload()
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	got, ok := payload.(ReplenishmentCompleted)
	if !ok {
		t.Fatalf("payload type = %T", payload)
	}
	if got != src {
		t.Fatalf("payload = %+v, want %+v", got, src)
	}
}

func TestDecodeEnvelopeEmptyEvent(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"timestamp":"2026-08-01T00:00:00Z","payload":{}}`)); err == nil {
		t.Fatal("expected error for missing event field")
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestDecodePayloadUnknownKind(t *testing.T) {
	env := Envelope{Event: "inventory.restocked", Payload: []byte(`{}`)}
	if _, err := env.DecodePayload(); err == nil {
		t.Fatal("expected error for unknown event kind")
	}
}

func TestNewReferralMirrorsCompleted(t *testing.T) {
	completed := ReplenishmentCompleted{
		UserID:                3,
		ReplenishmentID:       8,
		Amount:                100,
		TotalSumReplenishment: 500,
		Language:              "ru",
	}
	ref := NewReferral(completed)
	if ref.Key() != KeyNewReferral {
		t.Fatalf("key = %q", ref.Key())
	}
	if ref.UserID != completed.UserID || ref.Amount != completed.Amount {
		t.Fatalf("conversion lost fields: %+v", ref)
	}
}
