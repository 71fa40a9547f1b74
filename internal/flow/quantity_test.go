package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiangyupai/order-service/internal/models"
)

func TestQuantity_TotalIsExact(t *testing.T) {
	q := NewQuantity(models.QuantityOptions{Min: 1, Max: 5, Default: 1}, 100)

	for want := 1; want <= 5; want++ {
		require.Equal(t, want, q.Value())
		require.Equal(t, int64(want)*100, q.Total())

		q.Increase()
	}
}

func TestQuantity_BoundsAreNoOps(t *testing.T) {
	q := NewQuantity(models.QuantityOptions{Min: 1, Max: 3, Default: 1}, 50)

	assert.False(t, q.Decrease(), "decrease at min must be a no-op")
	assert.Equal(t, 1, q.Value())

	require.True(t, q.Increase())
	require.True(t, q.Increase())
	assert.Equal(t, 3, q.Value())

	assert.False(t, q.Increase(), "increase at max must be a no-op")
	assert.Equal(t, 3, q.Value())
	assert.Equal(t, int64(150), q.Total())
}

func TestQuantity_DefaultIsClamped(t *testing.T) {
	tests := []struct {
		name string
		opts models.QuantityOptions
		want int
	}{
		{"below min", models.QuantityOptions{Min: 2, Max: 5, Default: 0}, 2},
		{"above max", models.QuantityOptions{Min: 1, Max: 5, Default: 9}, 5},
		{"in range", models.QuantityOptions{Min: 1, Max: 5, Default: 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuantity(tt.opts, 10)
			assert.Equal(t, tt.want, q.Value())
		})
	}
}
