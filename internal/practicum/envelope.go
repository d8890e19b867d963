package practicum

import (
	"bytes"
	"encoding/json"
)

// Validate enforces the expected envelope shape: a JSON object whose
// "homeworks" field is an array. Element internals are checked later by the
// status mapper, not here; malformed envelopes never reach the mapper.
//
// JSON null needs explicit guards: it unmarshals into both maps and slices
// without error, which would let a null root or a null homeworks field slip
// through as an empty envelope.
//
// "current_date" is optional: when present and numeric it becomes the next
// watermark, otherwise the loop falls back to the current time.
func Validate(raw json.RawMessage) (Envelope, error) {
	if isJSONNull(raw) {
		return Envelope{}, &ShapeError{Reason: ShapeNotObject}
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return Envelope{}, &ShapeError{Reason: ShapeNotObject}
	}

	hwRaw, ok := root["homeworks"]
	if !ok {
		return Envelope{}, &ShapeError{Reason: ShapeMissingField, Field: "homeworks"}
	}
	if isJSONNull(hwRaw) {
		return Envelope{}, &ShapeError{Reason: ShapeWrongType, Field: "homeworks"}
	}

	var homeworks []Homework
	if err := json.Unmarshal(hwRaw, &homeworks); err != nil {
		return Envelope{}, &ShapeError{Reason: ShapeWrongType, Field: "homeworks"}
	}

	env := Envelope{Homeworks: homeworks}
	if cdRaw, ok := root["current_date"]; ok {
		var cd int64
		if err := json.Unmarshal(cdRaw, &cd); err == nil {
			env.CurrentDate = &cd
		}
	}
	return env, nil
}

func isJSONNull(b []byte) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
