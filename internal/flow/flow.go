// Package flow models the order confirmation and payment flow as an
// explicit state machine: a tagged state set, a single pure reducer over
// enumerated transitions, and a Flow type that carries the screen-local
// data (preview, quantity, order, password buffer) alongside the state.
//
// The set of valid transitions is exhaustive; anything else is rejected
// with ErrInvalidTransition.
package flow

import (
	"errors"
	"fmt"

	"github.com/xiangyupai/order-service/internal/models"
)

type State string

const (
	StateIdle          State = "idle"
	StateConfirming    State = "confirming"
	StateAttempting    State = "attempting"
	StateNeedsPassword State = "needs_password"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

type Event string

const (
	EventOpenConfirm     Event = "open_confirm"
	EventDismiss         Event = "dismiss"
	EventAttempt         Event = "attempt"
	EventSucceed         Event = "succeed"
	EventRequirePassword Event = "require_password"
	EventFail            Event = "fail"
	EventVerifyOK        Event = "verify_ok"
	EventVerifyFail      Event = "verify_fail"
)

// PasswordLength is the exact payment password length accepted locally;
// anything else is rejected before a gateway call is made.
const PasswordLength = 6

var (
	ErrInvalidTransition   = errors.New("invalid flow transition")
	ErrSubmitUnavailable   = errors.New("submit unavailable")
	ErrNoOrderInfo         = errors.New("no order submitted")
	ErrInsufficientBalance = errors.New("insufficient balance for order")
	ErrPasswordLength      = errors.New("payment password must be 6 characters")
)

// transitions enumerates every valid (state, event) pair. A verification
// failure keeps the password modal open for another manual attempt.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventOpenConfirm: StateConfirming,
	},
	StateConfirming: {
		EventAttempt: StateAttempting,
		EventDismiss: StateIdle,
	},
	StateAttempting: {
		EventSucceed:         StateSucceeded,
		EventRequirePassword: StateNeedsPassword,
		EventFail:            StateFailed,
	},
	StateNeedsPassword: {
		EventVerifyOK:   StateSucceeded,
		EventVerifyFail: StateNeedsPassword,
		EventDismiss:    StateIdle,
	},
	StateFailed: {
		EventOpenConfirm: StateConfirming,
		EventDismiss:     StateIdle,
	},
}

// Apply is the pure reducer: it maps a (state, event) pair to the next
// state or reports ErrInvalidTransition.
func Apply(s State, e Event) (State, error) {
	next, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}

	return next, nil
}

// Flow holds one confirmation screen's worth of payment state. It is not
// safe for concurrent use; callers drive it from a single goroutine the
// same way the original screen drives it from the UI thread.
type Flow struct {
	state    State
	preview  *models.OrderPreview
	quantity *Quantity
	order    *models.OrderInfo
	password string
	busy     bool
}

func New() *Flow {
	return &Flow{state: StateIdle}
}

// LoadPreview installs the priced snapshot and arms the quantity counter.
// Called once per load (or retry); the preview is immutable afterwards.
func (f *Flow) LoadPreview(p *models.OrderPreview) {
	f.preview = p
	f.quantity = NewQuantity(p.QuantityOptions, p.Price.UnitPrice)
}

func (f *Flow) State() State {
	return f.state
}

func (f *Flow) Preview() *models.OrderPreview {
	return f.preview
}

func (f *Flow) Order() *models.OrderInfo {
	return f.order
}

func (f *Flow) Password() string {
	return f.password
}

// Increase and Decrease delegate to the bounded counter; both are no-ops
// before a preview is loaded.

func (f *Flow) Increase() bool {
	if f.quantity == nil {
		return false
	}

	return f.quantity.Increase()
}

func (f *Flow) Decrease() bool {
	if f.quantity == nil {
		return false
	}

	return f.quantity.Decrease()
}

func (f *Flow) Value() int {
	if f.quantity == nil {
		return 0
	}

	return f.quantity.Value()
}

// Total recomputes unitPrice * quantity; zero until a preview is loaded.
func (f *Flow) Total() int64 {
	if f.quantity == nil {
		return 0
	}

	return f.quantity.Total()
}

// CanSubmit guards the order submitter: a preview must be loaded, the
// quantity positive, and no call in flight.
func (f *Flow) CanSubmit() bool {
	return f.preview != nil && !f.busy && f.Value() > 0
}

// BeginSubmit marks a submission in flight so re-entrant submits become
// no-ops while the request runs.
func (f *Flow) BeginSubmit() error {
	if !f.CanSubmit() {
		return ErrSubmitUnavailable
	}

	f.busy = true

	return nil
}

// AbortSubmit clears the in-flight flag after a failed submission so the
// user may re-attempt.
func (f *Flow) AbortSubmit() {
	f.busy = false
}

// CompleteSubmit records the created order and runs the balance gate: if
// the server explicitly reported an insufficient balance, the flow stays
// in Idle (the confirmation modal never opens) and ErrInsufficientBalance
// steers the caller to the top-up prompt. Absent or true proceeds to
// Confirming.
func (f *Flow) CompleteSubmit(order *models.OrderInfo) error {
	f.busy = false

	if order == nil {
		return ErrNoOrderInfo
	}

	f.order = order

	if pi := order.PaymentInfo; pi != nil && pi.SufficientBalance != nil && !*pi.SufficientBalance {
		return ErrInsufficientBalance
	}

	return f.apply(EventOpenConfirm)
}

// BeginAttempt moves Confirming -> Attempting. Payment handlers are
// no-ops without an order.
func (f *Flow) BeginAttempt() error {
	if f.order == nil {
		return ErrNoOrderInfo
	}

	if err := f.apply(EventAttempt); err != nil {
		return err
	}

	f.busy = true

	return nil
}

// ApplyAttempt resolves one payment attempt. A transport error is passed
// as a failed result by the caller; it never mutates the order.
func (f *Flow) ApplyAttempt(res *models.PaymentAttemptResult) error {
	f.busy = false

	switch {
	case res == nil:
		return f.apply(EventFail)
	case res.PaymentStatus == models.PaymentStatusSuccess:
		if err := f.apply(EventSucceed); err != nil {
			return err
		}
		f.resolve()
		return nil
	case res.PaymentStatus == models.PaymentStatusRequirePassword || res.RequirePassword:
		return f.apply(EventRequirePassword)
	default:
		return f.apply(EventFail)
	}
}

// EnterPassword stores the password buffer for verification. Length is
// checked locally so an invalid password never costs a round-trip.
func (f *Flow) EnterPassword(password string) error {
	if f.state != StateNeedsPassword {
		return fmt.Errorf("%w: enter_password on %s", ErrInvalidTransition, f.state)
	}

	if len(password) != PasswordLength {
		return ErrPasswordLength
	}

	f.password = password

	return nil
}

// ApplyVerification resolves the password step. Non-success clears the
// buffer (forcing full re-entry) and keeps the modal open.
func (f *Flow) ApplyVerification(res *models.PasswordVerificationResult) error {
	f.password = ""

	if res != nil && res.PaymentStatus == models.PaymentStatusSuccess {
		if err := f.apply(EventVerifyOK); err != nil {
			return err
		}
		f.resolve()
		return nil
	}

	return f.apply(EventVerifyFail)
}

// Dismiss closes whichever modal is open. The order, if any, is kept so a
// reopened confirmation reuses it without a second submission.
func (f *Flow) Dismiss() error {
	return f.apply(EventDismiss)
}

// Reopen re-arms the confirmation modal after a failed attempt.
func (f *Flow) Reopen() error {
	if f.order == nil {
		return ErrNoOrderInfo
	}

	return f.apply(EventOpenConfirm)
}

// ConfirmVisible reports whether the payment confirmation modal is shown.
func (f *Flow) ConfirmVisible() bool {
	return f.state == StateConfirming || f.state == StateAttempting
}

// PasswordVisible reports whether the password modal is shown.
func (f *Flow) PasswordVisible() bool {
	return f.state == StateNeedsPassword
}

func (f *Flow) apply(e Event) error {
	next, err := Apply(f.state, e)
	if err != nil {
		return err
	}

	f.state = next

	return nil
}

// resolve is the idempotent success cleanup: both modals closed, password
// buffer emptied.
func (f *Flow) resolve() {
	f.password = ""
	f.busy = false
}
