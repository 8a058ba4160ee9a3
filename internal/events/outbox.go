package events

// Outbox collects events produced inside a database transaction so their
// publication can be deferred until the transaction commits. It is a plain
// value threaded through the call chain, never ambient state. Not safe for
// concurrent use; a unit of work owns exactly one.
type Outbox struct {
	events []Event
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Add appends an event; insertion order is the publication order.
func (o *Outbox) Add(e Event) {
	o.events = append(o.events, e)
}

// Drain returns the collected events and empties the buffer. Call it only
// after the enclosing transaction committed.
func (o *Outbox) Drain() []Event {
	evs := o.events
	o.events = nil
	return evs
}

// Discard drops the buffer; used on rollback so phantom events never leave
// the process.
func (o *Outbox) Discard() {
	o.events = nil
}

func (o *Outbox) Len() int {
	return len(o.events)
}
