package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{1234, "1,234"},
		{1234567.8, "1,234,568"},
		{12.6, "13"},
		{5.56, "5.6"},
		{2.04, "2"},
		{0.256, "0.26"},
		{0.999, "1"},
		{-3.25, "-3.3"},
		{-0.001, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestFormatNumberDecimals(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3.142", FormatNumberDecimals(3.14159, 3))
	assert.Equal(t, "5", FormatNumberDecimals(5, 2), "integers never get decimals")
	assert.Equal(t, "1,000.5", FormatNumberDecimals(1000.5, 1))
}

func TestQuantityLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label    string
		quantity float64
		want     string
	}{
		{"detections", 1, "detection"},
		{"detections", 2, "detections"},
		{"detections", 0, "detections"},
		{"species detected", 1, "species detected"},
		{"species", 1, "species"},
		{"nights monitored", 1, "nights monitored"},
		{"sites", 1, "site"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, QuantityLabel(tt.label, tt.quantity))
		})
	}
}
