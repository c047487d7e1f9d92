package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBar(t *testing.T) {
	tests := []struct {
		value         float64
		filled, empty int
	}{
		{0, 0, 10},
		{0.5, 5, 5},
		{0.84, 8, 2},
		{1, 10, 0},
		{1.7, 10, 0},
		{-1, 0, 10},
	}
	for _, tt := range tests {
		out := Bar(tt.value, 10)
		assert.Equal(t, tt.filled, strings.Count(out, "█"), "value %v", tt.value)
		assert.Equal(t, tt.empty, strings.Count(out, "░"), "value %v", tt.value)
	}
	assert.Empty(t, Bar(0.5, 0))
}

func TestOfflineBannerCarriesMessage(t *testing.T) {
	assert.Contains(t, OfflineBanner(), "You're offline.")
}

func TestStatusLabel(t *testing.T) {
	assert.Contains(t, StatusLabel(true), "online")
	assert.NotContains(t, StatusLabel(true), "offline")
	assert.Contains(t, StatusLabel(false), "offline")
}

func TestKeyValue(t *testing.T) {
	out := KeyValue("pending", 3)
	assert.Contains(t, out, "pending:")
	assert.Contains(t, out, "3")
}
