package models

import "time"

// Payment attempt outcomes returned by the pay and verify endpoints.
const (
	PaymentStatusSuccess         = "success"
	PaymentStatusRequirePassword = "require_password"
	PaymentStatusFailed          = "failed"
)

// Order lifecycle statuses persisted in storage.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusFailed         = "failed"
)

// PaymentMethodBalance is the only payment method the service accepts.
const PaymentMethodBalance = "balance"

type SkillInfo struct {
	GameArea    string `json:"gameArea,omitempty"`
	RankDisplay string `json:"rankDisplay,omitempty"`
}

type Provider struct {
	ID        int64     `json:"id"`
	Avatar    string    `json:"avatar"`
	Nickname  string    `json:"nickname"`
	Gender    string    `json:"gender"`
	Age       int       `json:"age,omitempty"`
	Tags      []string  `json:"tags"`
	SkillInfo SkillInfo `json:"skillInfo"`
}

type ServiceInfo struct {
	Name string `json:"name"`
}

type PriceInfo struct {
	// UnitPrice is in integer coins, no fractional units.
	UnitPrice   int64  `json:"unitPrice"`
	DisplayText string `json:"displayText"`
}

type QuantityOptions struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// OrderPreview is the read-only snapshot used to render the confirmation
// screen. Quantity is the only dimension the client may vary afterwards.
type OrderPreview struct {
	Provider        Provider        `json:"provider"`
	Service         ServiceInfo     `json:"service"`
	Price           PriceInfo       `json:"price"`
	QuantityOptions QuantityOptions `json:"quantityOptions"`
	UserBalance     int64           `json:"userBalance"`
}

// PaymentInfo rides along on the create-order response. SufficientBalance
// is a pointer: absent means the server made no claim and the client
// proceeds normally.
type PaymentInfo struct {
	SufficientBalance *bool `json:"sufficientBalance,omitempty"`
}

// OrderInfo is created once an order is submitted and held for the
// remainder of the payment flow.
type OrderInfo struct {
	OrderID     string       `json:"orderId"`
	OrderNo     string       `json:"orderNo"`
	Amount      int64        `json:"amount"`
	PaymentInfo *PaymentInfo `json:"paymentInfo,omitempty"`
}

// PaymentAttemptResult is the outcome of one payment attempt. Exactly one
// branch is taken: success and failed are terminal, require_password
// demands a subsequent verification call.
type PaymentAttemptResult struct {
	PaymentStatus   string `json:"paymentStatus"`
	RequirePassword bool   `json:"requirePassword"`
	Balance         int64  `json:"balance"`
	FailureReason   string `json:"failureReason,omitempty"`
}

// PasswordVerificationResult is always terminal: success or a non-success
// status with a reason.
type PasswordVerificationResult struct {
	PaymentStatus string `json:"paymentStatus"`
	FailureReason string `json:"failureReason,omitempty"`
}

// Wallet is the payer's stored balance plus whether a payment password
// is configured for it.
type Wallet struct {
	UserID      int64
	Balance     int64
	HasPassword bool
}

// Order is the persisted order row shared by the storage layers.
type Order struct {
	OrderID   string    `db:"order_id" json:"order_id"`
	OrderNo   string    `db:"order_no" json:"order_no"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ServiceID int64     `db:"service_id" json:"service_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Amount    int64     `db:"amount" json:"amount"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderEvent is published to Kafka when an order reaches a terminal
// payment state and consumed by the settlement processor.
type OrderEvent struct {
	OrderID    string    `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	UserID     int64     `json:"user_id"`
	ServiceID  int64     `json:"service_id"`
	Quantity   int       `json:"quantity"`
	Amount     int64     `json:"amount"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
