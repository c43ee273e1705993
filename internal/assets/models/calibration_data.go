package models

import (
	"encoding/json"
	"fmt"
	"math"

	dErrors "metrolab/pkg/domain-errors"
)

// CalibrationData is the decoded JSON payload attached to a certificate.
// Each key maps a parameter name to its correlation dataset:
//
//	{"temperature": {"measured_values": [...], "reference_values": [...],
//	                 "correlation_coefficient": 0.99, "uncertainty": 0.1}}
//
// The certificate submission path additionally requires the top-level
// "standard_used" and "uncertainty" keys; those are checked by
// ValidateSubmission, not by ValidateCorrelationData.
type CalibrationData map[string]any

var correlationFields = []string{
	"measured_values",
	"reference_values",
	"correlation_coefficient",
	"uncertainty",
}

// reservedKeys are top-level entries of the submission schema that are not
// per-parameter correlation payloads and are skipped by the correlation
// validator: the standard reference, the overall uncertainty scalar, and the
// humidity reading (which has its own shape).
var reservedKeys = map[string]struct{}{
	"standard_used": {},
	"uncertainty":   {},
	"humidity":      {},
}

// ValidateCorrelationData checks the structure and content of every parameter
// payload. It reports the first failing parameter and field rather than
// aggregating failures, so callers get a single actionable message. Reserved
// submission keys are not correlation parameters and are skipped.
func (cd CalibrationData) ValidateCorrelationData() (bool, string) {
	if len(cd) == 0 {
		return false, "Calibration data is required"
	}

	for parameter, raw := range cd {
		if _, reserved := reservedKeys[parameter]; reserved {
			continue
		}
		data, ok := raw.(map[string]any)
		if !ok {
			return false, fmt.Sprintf("Missing required field 'measured_values' for parameter '%s'", parameter)
		}

		for _, field := range correlationFields {
			if _, present := data[field]; !present {
				return false, fmt.Sprintf("Missing required field '%s' for parameter '%s'", field, parameter)
			}
		}

		measured, ok := asNumberSlice(data["measured_values"])
		if !ok {
			return false, fmt.Sprintf("Missing required field 'measured_values' for parameter '%s'", parameter)
		}
		reference, ok := asNumberSlice(data["reference_values"])
		if !ok {
			return false, fmt.Sprintf("Missing required field 'reference_values' for parameter '%s'", parameter)
		}
		if len(measured) != len(reference) {
			return false, fmt.Sprintf("Measured and reference values must have the same length for parameter '%s'", parameter)
		}

		if _, ok := asNumber(data["correlation_coefficient"]); !ok {
			return false, fmt.Sprintf("Correlation coefficient must be a number for parameter '%s'", parameter)
		}
		if _, ok := asNumber(data["uncertainty"]); !ok {
			return false, fmt.Sprintf("Uncertainty must be a number for parameter '%s'", parameter)
		}
	}

	return true, "Validation successful"
}

// Criteria holds the optional acceptance thresholds for one parameter.
type Criteria struct {
	Tolerance            *float64 `json:"tolerance,omitempty"`
	CorrelationThreshold *float64 `json:"correlation_threshold,omitempty"`
}

// AcceptanceCriteria maps a parameter name to its thresholds.
type AcceptanceCriteria map[string]Criteria

// EvaluateAcceptanceCriteria checks already-validated calibration data against
// the given criteria. A nil or empty criteria set passes trivially. Failures
// are reported per parameter, not per data point.
func (cd CalibrationData) EvaluateAcceptanceCriteria(criteria AcceptanceCriteria) (bool, string) {
	if len(criteria) == 0 {
		return true, "No acceptance criteria defined"
	}

	for parameter, c := range criteria {
		raw, present := cd[parameter]
		if !present {
			return false, fmt.Sprintf("Parameter '%s' not found in calibration data", parameter)
		}
		data, ok := raw.(map[string]any)
		if !ok {
			return false, fmt.Sprintf("Parameter '%s' not found in calibration data", parameter)
		}

		if c.Tolerance != nil {
			measured, _ := asNumberSlice(data["measured_values"])
			reference, _ := asNumberSlice(data["reference_values"])
			for i := range measured {
				if i >= len(reference) {
					break
				}
				if math.Abs(measured[i]-reference[i]) > *c.Tolerance {
					return false, fmt.Sprintf("Measurement exceeds tolerance for parameter '%s'", parameter)
				}
			}
		}

		if c.CorrelationThreshold != nil {
			coefficient, _ := asNumber(data["correlation_coefficient"])
			if coefficient < *c.CorrelationThreshold {
				return false, fmt.Sprintf("Correlation coefficient below threshold for parameter '%s'", parameter)
			}
		}
	}

	return true, "All acceptance criteria met"
}

// ValidateSubmission enforces the certificate-creation wire schema on top of
// the correlation checks: required top-level keys, plus the well-known
// temperature and humidity shapes when present.
func (cd CalibrationData) ValidateSubmission() error {
	if len(cd) == 0 {
		return dErrors.New(dErrors.CodeValidation, "calibration_data: Calibration data is required")
	}

	for _, field := range []string{"standard_used", "uncertainty"} {
		if _, present := cd[field]; !present {
			return dErrors.Newf(dErrors.CodeValidation, "calibration_data: Missing required field: %s", field)
		}
	}

	if raw, present := cd["temperature"]; present {
		data, ok := raw.(map[string]any)
		if !ok {
			return dErrors.New(dErrors.CodeValidation, "calibration_data: Temperature data must be a dictionary")
		}
		for _, field := range correlationFields {
			if _, present := data[field]; !present {
				return dErrors.Newf(dErrors.CodeValidation, "calibration_data: Missing required field in temperature data: %s", field)
			}
		}
		measured, _ := asNumberSlice(data["measured_values"])
		reference, _ := asNumberSlice(data["reference_values"])
		if len(measured) != len(reference) {
			return dErrors.New(dErrors.CodeValidation, "calibration_data: Measured and reference values must have the same length")
		}
	}

	if raw, present := cd["humidity"]; present {
		data, ok := raw.(map[string]any)
		if !ok {
			return dErrors.New(dErrors.CodeValidation, "calibration_data: Humidity data must be a dictionary")
		}
		for _, field := range []string{"measured_value", "uncertainty"} {
			if _, present := data[field]; !present {
				return dErrors.Newf(dErrors.CodeValidation, "calibration_data: Missing required field in humidity data: %s", field)
			}
		}
	}

	return nil
}

// Clone deep-copies the payload so a new certificate version does not share
// nested maps with its source.
func (cd CalibrationData) Clone() CalibrationData {
	if cd == nil {
		return nil
	}
	// JSON round-trip is the simplest faithful deep copy for decoded JSON.
	encoded, err := json.Marshal(cd)
	if err != nil {
		out := make(CalibrationData, len(cd))
		for k, v := range cd {
			out[k] = v
		}
		return out
	}
	var out CalibrationData
	if err := json.Unmarshal(encoded, &out); err != nil {
		return cd
	}
	return out
}

// asNumber accepts the numeric shapes JSON decoding and Go construction can
// produce. Booleans are deliberately not numbers here.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asNumberSlice(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return s, true
	case []any:
		out := make([]float64, 0, len(s))
		for _, item := range s {
			n, ok := asNumber(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}
