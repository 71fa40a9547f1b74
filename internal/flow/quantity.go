package flow

import "github.com/xiangyupai/order-service/internal/models"

// Quantity is a bounded counter over server-provided min/max. Mutations
// outside the bounds are no-ops, so min <= value <= max holds at all
// times after construction.
type Quantity struct {
	min       int
	max       int
	value     int
	unitPrice int64
}

// NewQuantity builds a counter from the preview's quantity options,
// clamping the default into [min, max].
func NewQuantity(opts models.QuantityOptions, unitPrice int64) *Quantity {
	value := opts.Default
	if value < opts.Min {
		value = opts.Min
	}
	if value > opts.Max {
		value = opts.Max
	}

	return &Quantity{
		min:       opts.Min,
		max:       opts.Max,
		value:     value,
		unitPrice: unitPrice,
	}
}

// Increase bumps the counter by one. Returns false when already at max.
func (q *Quantity) Increase() bool {
	if q.value >= q.max {
		return false
	}

	q.value++

	return true
}

// Decrease lowers the counter by one. Returns false when already at min.
func (q *Quantity) Decrease() bool {
	if q.value <= q.min {
		return false
	}

	q.value--

	return true
}

func (q *Quantity) Value() int {
	return q.value
}

// Total is unitPrice * value, exact integer arithmetic in coins.
func (q *Quantity) Total() int64 {
	return q.unitPrice * int64(q.value)
}
