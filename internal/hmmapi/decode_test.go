package hmmapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDeterministicChain(t *testing.T) {
	now := time.Now()
	req := DecodeRequest{
		Steps: []StepRequest{
			{
				Fix:        Fix{Lat: 1, Lon: 1, At: now},
				Candidates: []string{"A", "B"},
				Emissions:  map[string]float64{"A": 1, "B": 0},
			},
			{
				Fix:         Fix{Lat: 1.1, Lon: 1.1, At: now.Add(time.Second)},
				Candidates:  []string{"A", "B"},
				Emissions:   map[string]float64{"A": 1, "B": 0},
				Transitions: map[string]float64{transitionKey("A", "A"): 1, transitionKey("B", "B"): 1},
			},
		},
	}

	resp, err := Decode(req)
	require.NoError(t, err)
	require.Len(t, resp.States, 2)
	assert.Equal(t, "A", resp.States[0].State)
	assert.Equal(t, "A", resp.States[1].State)
	assert.False(t, resp.Broken)
}

func TestDecodeRejectsMalformedTransitionKey(t *testing.T) {
	req := DecodeRequest{
		Steps: []StepRequest{
			{Candidates: []string{"A"}, Emissions: map[string]float64{"A": 1}},
			{Candidates: []string{"A"}, Emissions: map[string]float64{"A": 1}, Transitions: map[string]float64{"A-A": 1}},
		},
	}
	_, err := Decode(req)
	assert.Error(t, err)
}

func TestDecodeReportsBrokenSequence(t *testing.T) {
	req := DecodeRequest{
		Steps: []StepRequest{
			{Candidates: []string{"A"}, Emissions: map[string]float64{"A": 1}},
			{Candidates: []string{"A"}, Emissions: map[string]float64{"A": 0}, Transitions: map[string]float64{transitionKey("A", "A"): 1}},
		},
	}
	resp, err := Decode(req)
	require.NoError(t, err)
	assert.True(t, resp.Broken)
	assert.Len(t, resp.States, 1)
}

func TestDecodeRequiresAtLeastOneStep(t *testing.T) {
	_, err := Decode(DecodeRequest{})
	assert.Error(t, err)
}
