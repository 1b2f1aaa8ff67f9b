package analyzeprofile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/matching/profile"
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/models"
)

func createTestHandler(t *testing.T) *Handler {
	a, err := profile.NewAnalyzer(rules.MustDefault())
	require.NoError(t, err)
	return NewHandler(LoadConfig(), a, logger.NewZapAdapter(zaptest.NewLogger(t)))
}

func TestExecute_RegisteredBusiness(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		Message: "I have a small shop and need a loan",
		Profile: "I run a business, GSTIN 29ABCDE1234F1Z5, Udyam UDYAM-MH-02-1234567",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PersonaMSME, out.Persona)
	assert.True(t, out.HasProfile)
	assert.True(t, out.IsExistingBusiness)
	assert.Contains(t, out.ExistingRegistrations, models.RegUdyam)
	assert.Contains(t, out.ExistingRegistrations, models.RegGSTIN)
	assert.Contains(t, out.ExcludedKeywords, "startup scheme")
	assert.NotEmpty(t, out.ExclusionReasons)
	assert.True(t, out.Profile.Udyam)
}

func TestExecute_PersonaFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		persona models.Persona
	}{
		{"farmer message", Input{Message: "I am a farmer growing wheat"}, models.PersonaFarmer},
		{"crop type only", Input{Message: "need help", CropType: "paddy"}, models.PersonaFarmer},
		{"business type only", Input{Message: "need help", BusinessType: "retail"}, models.PersonaMSME},
		{"falls back to profile text", Input{Profile: "I am a farmer growing wheat"}, models.PersonaFarmer},
		{"nothing to go on", Input{Message: "hello there"}, models.PersonaUnclear},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), &tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.persona, out.Persona)
			assert.NotEmpty(t, out.PersonaConfidence)
		})
	}
}

func TestExecute_EmptyProfileSerializesEmptyLists(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{Message: "hello"})
	require.NoError(t, err)
	assert.False(t, out.HasProfile)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &vars))
	assert.Equal(t, []interface{}{}, vars["existingRegistrations"])
	assert.Equal(t, []interface{}{}, vars["excludedKeywords"])
	assert.Equal(t, []interface{}{}, vars["exclusionReasons"])
}

func TestExecute_Errors(t *testing.T) {
	h := createTestHandler(t)

	_, err := h.Execute(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "INVALID_SCHEME_INPUT", string(h.mapError(err).Code))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	_, err = h.Execute(ctx, &Input{Message: "farmer"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, h.mapError(err).Retryable)
}
