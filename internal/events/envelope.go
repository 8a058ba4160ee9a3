package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys are dotted <domain>.<name>; the queue binds per-domain
// wildcards, the router dispatches on the full key.
const (
	KeyNewReplenishment       = "replenishment.new_replenishment"
	KeyReplenishmentCompleted = "replenishment.completed"
	KeyReplenishmentFailed    = "replenishment.failed"
	KeyNewReferral            = "referral.new_referral"
	KeyVoucherActivated       = "voucher.activated"
	KeyPromoCodeActivated     = "promo_code.activated"
	KeyPurchaseAccount        = "purchase.account"
	KeyPurchaseUniversal      = "purchase.universal"
	KeySendLog                = "message.send_log"
)

// Event is one routed payload. Key returns the routing key the payload
// travels under.
type Event interface {
	Key() string
}

// Envelope is the wire format: {event, timestamp, payload}.
type Envelope struct {
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Wrap builds an envelope around an event with a UTC timestamp.
func Wrap(e Event, now time.Time) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload %s: %w", e.Key(), err)
	}
	return Envelope{
		Event:     e.Key(),
		Timestamp: now.UTC(),
		Payload:   payload,
	}, nil
}

// Encode serializes the envelope for the broker.
func (env Envelope) Encode() ([]byte, error) {
	return json.Marshal(env)
}

// DecodeEnvelope parses a broker message body.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: empty event field")
	}
	return env, nil
}

// NewReplenishment is emitted by the payment webhook once a replenishment
// moved to processing.
type NewReplenishment struct {
	ReplenishmentID int64 `json:"replenishment_id"`
	UserID          int64 `json:"user_id"`
	OriginAmount    int64 `json:"origin_amount"`
	Amount          int64 `json:"amount"`
}

func (NewReplenishment) Key() string { return KeyNewReplenishment }

// ReplenishmentCompleted reports the outcome of a completed top-up. Error is
// set when funds landed but the bookkeeping after the credit failed.
type ReplenishmentCompleted struct {
	UserID                int64  `json:"user_id"`
	ReplenishmentID       int64  `json:"replenishment_id"`
	Amount                int64  `json:"amount"`
	TotalSumReplenishment int64  `json:"total_sum_replenishment"`
	Error                 bool   `json:"error"`
	ErrorStr              string `json:"error_str,omitempty"`
	Language              string `json:"language"`
	Username              string `json:"username,omitempty"`
}

func (ReplenishmentCompleted) Key() string { return KeyReplenishmentCompleted }

// ReplenishmentFailed reports a top-up that failed before the credit.
type ReplenishmentFailed struct {
	UserID          int64  `json:"user_id"`
	ReplenishmentID int64  `json:"replenishment_id"`
	Error           bool   `json:"error"`
	ErrorStr        string `json:"error_str,omitempty"`
	Language        string `json:"language"`
	Username        string `json:"username,omitempty"`
}

func (ReplenishmentFailed) Key() string { return KeyReplenishmentFailed }

// NewReferral mirrors ReplenishmentCompleted under the referral domain; it
// triggers the referral payout handler.
type NewReferral struct {
	UserID                int64  `json:"user_id"`
	ReplenishmentID       int64  `json:"replenishment_id"`
	Amount                int64  `json:"amount"`
	TotalSumReplenishment int64  `json:"total_sum_replenishment"`
	Error                 bool   `json:"error"`
	ErrorStr              string `json:"error_str,omitempty"`
	Language              string `json:"language"`
	Username              string `json:"username,omitempty"`
}

func (NewReferral) Key() string { return KeyNewReferral }

// NewActivationVoucher carries a voucher activation already credited to the
// activator; the handler does the counter/limit bookkeeping.
type NewActivationVoucher struct {
	VoucherID     int64  `json:"voucher_id"`
	UserID        int64  `json:"user_id"`
	Language      string `json:"language"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
}

func (NewActivationVoucher) Key() string { return KeyVoucherActivated }

// NewActivatePromoCode carries a promo-code activation.
type NewActivatePromoCode struct {
	PromoCodeID int64 `json:"promo_code_id"`
	UserID      int64 `json:"user_id"`
}

func (NewActivatePromoCode) Key() string { return KeyPromoCodeActivated }

// Movement is one item moved from stock to a buyer.
type Movement struct {
	StorageID  int64 `json:"storage_id"`
	SoldID     int64 `json:"sold_id"`
	Cost       int64 `json:"cost"`
	Price      int64 `json:"price"`
	Profit     int64 `json:"profit"`
	PurchaseID int64 `json:"purchase_id"`
}

// NewPurchaseAccount reports a finished account purchase; the stock move is
// already authoritative, the handler only does wallet/audit/log bookkeeping.
type NewPurchaseAccount struct {
	UserID            int64      `json:"user_id"`
	CategoryID        int64      `json:"category_id"`
	AmountPurchase    int64      `json:"amount_purchase"`
	AccountMovement   []Movement `json:"account_movement"`
	UserBalanceBefore int64      `json:"user_balance_before"`
	UserBalanceAfter  int64      `json:"user_balance_after"`
	ProductLeft       int64      `json:"product_left"`
}

func (NewPurchaseAccount) Key() string { return KeyPurchaseAccount }

// NewPurchaseUniversal is the universal-product twin of NewPurchaseAccount.
type NewPurchaseUniversal struct {
	UserID            int64      `json:"user_id"`
	CategoryID        int64      `json:"category_id"`
	AmountPurchase    int64      `json:"amount_purchase"`
	ProductMovement   []Movement `json:"product_movement"`
	UserBalanceBefore int64      `json:"user_balance_before"`
	UserBalanceAfter  int64      `json:"user_balance_after"`
	ProductLeft       int64      `json:"product_left"`
}

func (NewPurchaseUniversal) Key() string { return KeyPurchaseUniversal }

// Log levels for SendLog.
const (
	LogLvlInfo    = "info"
	LogLvlWarning = "warning"
	LogLvlError   = "error"
)

// SendLog is the operational report channel: handlers never talk to the chat
// layer directly, they emit one of these.
type SendLog struct {
	Text                string `json:"text"`
	LogLvl              string `json:"log_lvl"`
	ChannelForLoggingID int64  `json:"channel_for_logging_id,omitempty"`
}

func (SendLog) Key() string { return KeySendLog }

// DecodePayload maps the envelope's event tag onto its typed payload.
func (env Envelope) DecodePayload() (Event, error) {
	var (
		e   Event
		err error
	)
	switch env.Event {
	case KeyNewReplenishment:
		e, err = unmarshalPayload[NewReplenishment](env.Payload)
	case KeyReplenishmentCompleted:
		e, err = unmarshalPayload[ReplenishmentCompleted](env.Payload)
	case KeyReplenishmentFailed:
		e, err = unmarshalPayload[ReplenishmentFailed](env.Payload)
	case KeyNewReferral:
		e, err = unmarshalPayload[NewReferral](env.Payload)
	case KeyVoucherActivated:
		e, err = unmarshalPayload[NewActivationVoucher](env.Payload)
	case KeyPromoCodeActivated:
		e, err = unmarshalPayload[NewActivatePromoCode](env.Payload)
	case KeyPurchaseAccount:
		e, err = unmarshalPayload[NewPurchaseAccount](env.Payload)
	case KeyPurchaseUniversal:
		e, err = unmarshalPayload[NewPurchaseUniversal](env.Payload)
	case KeySendLog:
		e, err = unmarshalPayload[SendLog](env.Payload)
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Event)
	}
	return e, err
}

func unmarshalPayload[T Event](raw json.RawMessage) (Event, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", v.Key(), err)
	}
	return v, nil
}
