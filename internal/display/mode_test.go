package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_Boundary(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		count int
		want  Mode
	}{
		{0, ModeList},
		{1, ModeList},
		{20, ModeList}, // exactly at threshold stays LIST
		{21, ModeCloud},
		{500, ModeCloud},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Detect(tt.count, cfg), "count=%d", tt.count)
	}
}

func TestDetect_CustomThreshold(t *testing.T) {
	cfg := Config{ListToCloudThreshold: 5}

	assert.Equal(t, ModeList, Detect(5, cfg))
	assert.Equal(t, ModeCloud, Detect(6, cfg))
}

func TestDetect_ZeroConfigFallsBackToDefault(t *testing.T) {
	assert.Equal(t, ModeList, Detect(20, Config{}))
	assert.Equal(t, ModeCloud, Detect(21, Config{}))
}

func TestDetect_SecondThresholdIsUnused(t *testing.T) {
	// CloudToListThreshold must not influence the rule.
	cfg := Config{ListToCloudThreshold: 20, CloudToListThreshold: 10}

	assert.Equal(t, ModeList, Detect(15, cfg))
	assert.Equal(t, ModeCloud, Detect(21, cfg))
}
