package poller

import (
	"errors"
	"strconv"

	"github.com/MattBortsov/homework-bot/internal/practicum"
	"github.com/MattBortsov/homework-bot/internal/review"
)

// errorKey derives a stable deduplication key from a cycle error.
//
// Dedup compares kind plus salient detail (HTTP status, field name) rather
// than message strings, so wording changes never break suppression while two
// genuinely different failures are never conflated.
func errorKey(err error) string {
	var conn *practicum.ConnectivityError
	if errors.As(err, &conn) {
		return "connectivity"
	}
	var up *practicum.UpstreamError
	if errors.As(err, &up) {
		return "upstream:" + strconv.Itoa(up.StatusCode)
	}
	var shape *practicum.ShapeError
	if errors.As(err, &shape) {
		return "shape:" + string(shape.Reason) + ":" + shape.Field
	}
	var missing *review.FieldMissingError
	if errors.As(err, &missing) {
		return "field_missing:" + missing.Field
	}
	var unknown *review.UnknownStatusError
	if errors.As(err, &unknown) {
		return "unknown_status:" + unknown.Status
	}
	return "internal"
}

// errorKind is the coarse category used for logging and metrics labels.
func errorKind(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
