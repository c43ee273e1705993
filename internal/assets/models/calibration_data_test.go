package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCorrelationData() CalibrationData {
	return CalibrationData{
		"temperature": map[string]any{
			"measured_values":         []any{20.1, 25.0, 30.2},
			"reference_values":        []any{20.0, 25.0, 30.0},
			"correlation_coefficient": 0.999,
			"uncertainty":             0.1,
		},
	}
}

func TestValidateCorrelationData(t *testing.T) {
	t.Run("valid payload passes", func(t *testing.T) {
		valid, msg := validCorrelationData().ValidateCorrelationData()
		assert.True(t, valid)
		assert.Equal(t, "Validation successful", msg)
	})

	t.Run("empty payload is rejected", func(t *testing.T) {
		valid, msg := CalibrationData{}.ValidateCorrelationData()
		assert.False(t, valid)
		assert.Equal(t, "Calibration data is required", msg)
	})

	t.Run("missing field is reported with parameter name", func(t *testing.T) {
		data := validCorrelationData()
		payload := data["temperature"].(map[string]any)
		delete(payload, "correlation_coefficient")

		valid, msg := data.ValidateCorrelationData()
		assert.False(t, valid)
		assert.Equal(t, "Missing required field 'correlation_coefficient' for parameter 'temperature'", msg)
	})

	t.Run("length mismatch is rejected", func(t *testing.T) {
		data := CalibrationData{
			"temperature": map[string]any{
				"measured_values":         []any{20.1, 25.0},
				"reference_values":        []any{20.0, 25.0, 30.0},
				"correlation_coefficient": 0.999,
				"uncertainty":             0.1,
			},
		}
		valid, msg := data.ValidateCorrelationData()
		assert.False(t, valid)
		assert.Equal(t, "Measured and reference values must have the same length for parameter 'temperature'", msg)
	})

	t.Run("non-numeric coefficient is rejected", func(t *testing.T) {
		data := validCorrelationData()
		data["temperature"].(map[string]any)["correlation_coefficient"] = "high"

		valid, msg := data.ValidateCorrelationData()
		assert.False(t, valid)
		assert.Equal(t, "Correlation coefficient must be a number for parameter 'temperature'", msg)
	})

	t.Run("non-numeric uncertainty is rejected", func(t *testing.T) {
		data := validCorrelationData()
		data["temperature"].(map[string]any)["uncertainty"] = true

		valid, msg := data.ValidateCorrelationData()
		assert.False(t, valid)
		assert.Equal(t, "Uncertainty must be a number for parameter 'temperature'", msg)
	})

	t.Run("reserved submission keys are skipped", func(t *testing.T) {
		data := validCorrelationData()
		data["standard_used"] = "NIST-123"
		data["uncertainty"] = 0.05
		data["humidity"] = map[string]any{"measured_value": 45.0, "uncertainty": 1.0}

		valid, msg := data.ValidateCorrelationData()
		assert.True(t, valid)
		assert.Equal(t, "Validation successful", msg)
	})

	t.Run("non-map parameter payload is rejected", func(t *testing.T) {
		data := CalibrationData{"pressure": "not-a-dict"}
		valid, msg := data.ValidateCorrelationData()
		assert.False(t, valid)
		assert.Equal(t, "Missing required field 'measured_values' for parameter 'pressure'", msg)
	})
}

func TestEvaluateAcceptanceCriteria(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	t.Run("no criteria passes trivially", func(t *testing.T) {
		valid, msg := validCorrelationData().EvaluateAcceptanceCriteria(nil)
		assert.True(t, valid)
		assert.Equal(t, "No acceptance criteria defined", msg)
	})

	t.Run("criteria within bounds pass", func(t *testing.T) {
		criteria := AcceptanceCriteria{
			"temperature": {Tolerance: f(0.5), CorrelationThreshold: f(0.99)},
		}
		valid, msg := validCorrelationData().EvaluateAcceptanceCriteria(criteria)
		assert.True(t, valid)
		assert.Equal(t, "All acceptance criteria met", msg)
	})

	t.Run("unknown parameter fails", func(t *testing.T) {
		criteria := AcceptanceCriteria{"pressure": {Tolerance: f(0.5)}}
		valid, msg := validCorrelationData().EvaluateAcceptanceCriteria(criteria)
		assert.False(t, valid)
		assert.Equal(t, "Parameter 'pressure' not found in calibration data", msg)
	})

	t.Run("tolerance exceeded fails", func(t *testing.T) {
		criteria := AcceptanceCriteria{"temperature": {Tolerance: f(0.1)}}
		valid, msg := validCorrelationData().EvaluateAcceptanceCriteria(criteria)
		assert.False(t, valid)
		assert.Equal(t, "Measurement exceeds tolerance for parameter 'temperature'", msg)
	})

	t.Run("coefficient below threshold fails", func(t *testing.T) {
		criteria := AcceptanceCriteria{"temperature": {CorrelationThreshold: f(0.9999)}}
		valid, msg := validCorrelationData().EvaluateAcceptanceCriteria(criteria)
		assert.False(t, valid)
		assert.Equal(t, "Correlation coefficient below threshold for parameter 'temperature'", msg)
	})
}

func TestValidateSubmission(t *testing.T) {
	submission := func() CalibrationData {
		data := validCorrelationData()
		data["standard_used"] = "NIST-123"
		data["uncertainty"] = 0.05
		return data
	}

	t.Run("valid submission passes", func(t *testing.T) {
		require.NoError(t, submission().ValidateSubmission())
	})

	t.Run("missing standard_used is rejected", func(t *testing.T) {
		data := submission()
		delete(data, "standard_used")
		err := data.ValidateSubmission()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Missing required field: standard_used")
	})

	t.Run("temperature length mismatch is rejected", func(t *testing.T) {
		data := submission()
		data["temperature"].(map[string]any)["measured_values"] = []any{20.1}
		err := data.ValidateSubmission()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Measured and reference values must have the same length")
	})

	t.Run("malformed humidity is rejected", func(t *testing.T) {
		data := submission()
		data["humidity"] = map[string]any{"measured_value": 45.0}
		err := data.ValidateSubmission()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Missing required field in humidity data: uncertainty")
	})
}

func TestCalibrationDataClone(t *testing.T) {
	original := validCorrelationData()
	clone := original.Clone()

	clone["temperature"].(map[string]any)["correlation_coefficient"] = 0.5

	coefficient := original["temperature"].(map[string]any)["correlation_coefficient"]
	assert.Equal(t, 0.999, coefficient, "clone must not share nested maps with its source")
}
