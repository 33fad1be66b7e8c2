package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferenceInputRoundTripsThroughJSON(t *testing.T) {
	in := InferenceInput{Variant: InputText, Text: "hello"}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out InferenceInput
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestCorrectionAttemptRoundTripsThroughJSON(t *testing.T) {
	attempt := CorrectionAttempt{
		Iteration:           2,
		FailuresBefore:      10,
		FailuresBeforeUndef: false,
		FailuresAfter:       9,
		ImprovementPercent:  10.0,
		FixesApplied: []FixDescription{
			{FailureSignature: "t:msg", Strategy: "openai", PatchContent: "fn f() {}", ProviderTag: "openai"},
		},
		Success: true,
	}

	data, err := json.Marshal(attempt)
	require.NoError(t, err)

	var out CorrectionAttempt
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, attempt, out)
}

func TestModelDescriptorOmitsEmptyOptionalFields(t *testing.T) {
	d := ModelDescriptor{ID: "gpt2-small", Name: "GPT-2 Small", Modality: ModalityText, Backend: BackendMock}

	data, err := json.Marshal(d)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "remote_uri")
	assert.NotContains(t, string(data), "local_path")
}
