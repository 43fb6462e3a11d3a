package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestResolve_Precedence(t *testing.T) {
	base := DefaultSettings()
	base.ChatModel = "default-chat"
	base.EmbeddingModel = "default-embed"

	tenant := &Overrides{
		ChatModel: ptr("tenant-chat"),
		TopK:      ptr(7),
		MinScore:  ptr(0.3),
	}
	call := &Overrides{
		TopK:           ptr(3),
		StrictMode:     ptr(false),
		TimeoutSeconds: ptr(2),
	}

	got, err := Resolve(base, tenant, call)
	require.NoError(t, err)

	assert.Equal(t, "tenant-chat", got.ChatModel)
	assert.Equal(t, "default-embed", got.EmbeddingModel)
	assert.Equal(t, 3, got.TopK)
	assert.Equal(t, 0.3, got.MinScore)
	assert.False(t, got.StrictMode)
	assert.Equal(t, 2*time.Second, got.ProviderTimeout)

	// Base is untouched.
	assert.Equal(t, "default-chat", base.ChatModel)
	assert.Equal(t, 5, base.TopK)
}

func TestResolve_NilLayers(t *testing.T) {
	base := DefaultSettings()
	got, err := Resolve(base, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, base.TopK, got.TopK)
	assert.Equal(t, base.NoiseMarkers, got.NoiseMarkers)
}

func TestResolve_CopiesSlicesAndPointers(t *testing.T) {
	base := DefaultSettings()
	topP := float32(0.9)
	o := &Overrides{NoiseMarkers: []string{"ad break"}, TopP: &topP}

	got, err := Resolve(base, o)
	require.NoError(t, err)

	o.NoiseMarkers[0] = "changed"
	topP = 0.1
	assert.Equal(t, []string{"ad break"}, got.NoiseMarkers)
	require.NotNil(t, got.TopP)
	assert.Equal(t, float32(0.9), *got.TopP)

	got.NoiseMarkers[0] = "mutated"
	assert.Equal(t, DefaultNoiseMarkers()[0], base.NoiseMarkers[0])
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name string
		o    *Overrides
	}{
		{name: "zero top_k", o: &Overrides{TopK: ptr(0)}},
		{name: "min_score at 1", o: &Overrides{MinScore: ptr(1.0)}},
		{name: "confidence above 1", o: &Overrides{ConfidenceMin: ptr(1.5)}},
		{name: "zero timeout", o: &Overrides{TimeoutSeconds: ptr(0)}},
		{name: "zero context budget", o: &Overrides{ContextCharBudget: ptr(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(DefaultSettings(), tt.o)
			assert.Error(t, err)
		})
	}
}

func TestSettings_PoolSize(t *testing.T) {
	s := DefaultSettings()
	s.TopK = 5
	assert.Equal(t, 50, s.PoolSize())
	s.TopK = 10
	assert.Equal(t, 80, s.PoolSize())
}

func TestCallOverrides_Layer(t *testing.T) {
	var none *CallOverrides
	assert.Nil(t, none.Layer())

	var call CallOverrides
	require.NoError(t, json.Unmarshal([]byte(`{
		"embedding_api_base": "https://elsewhere.example.net",
		"chat_api_base": "https://elsewhere.example.net",
		"embedding_model": "other-emb",
		"chat_model": "other-chat",
		"timeout_seconds": 900,
		"top_k": 2,
		"strict_mode": false,
		"noise_markers": ["sponsored"]
	}`), &call))

	base := DefaultSettings()
	base.EmbeddingModel = "emb"
	tenant := &Overrides{ChatModel: ptr("tenant-chat"), ChatAPIBase: ptr("https://tenant-llm.internal")}

	got, err := Resolve(base, tenant, call.Layer())
	require.NoError(t, err)

	assert.Equal(t, "emb", got.EmbeddingModel)
	assert.Equal(t, base.EmbeddingAPIBase, got.EmbeddingAPIBase)
	assert.Equal(t, "tenant-chat", got.ChatModel)
	assert.Equal(t, "https://tenant-llm.internal", got.ChatAPIBase)
	assert.Equal(t, base.ProviderTimeout, got.ProviderTimeout)
	assert.Equal(t, 2, got.TopK)
	assert.False(t, got.StrictMode)
	assert.Equal(t, []string{"sponsored"}, got.NoiseMarkers)
}
