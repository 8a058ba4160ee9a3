package events

import "testing"

func TestOutboxDrainOrder(t *testing.T) {
	o := NewOutbox()
	o.Add(ReplenishmentCompleted{ReplenishmentID: 1})
	o.Add(NewReferral{ReplenishmentID: 1})
	o.Add(SendLog{Text: "done"})

	if o.Len() != 3 {
		t.Fatalf("Len = %d", o.Len())
	}

	evs := o.Drain()
	if len(evs) != 3 {
		t.Fatalf("drained %d events", len(evs))
	}
	wantKeys := []string{KeyReplenishmentCompleted, KeyNewReferral, KeySendLog}
	for i, e := range evs {
		if e.Key() != wantKeys[i] {
			t.Fatalf("event %d key = %q, want %q", i, e.Key(), wantKeys[i])
		}
	}
	if o.Len() != 0 {
		t.Fatalf("outbox not empty after drain: %d", o.Len())
	}
}

func TestOutboxDiscard(t *testing.T) {
	o := NewOutbox()
	o.Add(SendLog{Text: "never sent"})
	o.Discard()
	if evs := o.Drain(); len(evs) != 0 {
		t.Fatalf("discarded outbox drained %d events", len(evs))
	}
}
