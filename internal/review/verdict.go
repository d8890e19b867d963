// Package review maps homework review status codes to the human-readable
// sentences relayed to the chat.
package review

import (
	"fmt"

	"github.com/MattBortsov/homework-bot/internal/practicum"
)

// Recognized status codes.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

// verdicts is the closed status-to-sentence table. Immutable.
var verdicts = map[string]string{
	StatusApproved:  "The review is done: the reviewer liked everything. Hooray!",
	StatusReviewing: "The work was taken up for review.",
	StatusRejected:  "The review is done: the reviewer left remarks.",
}

// FieldMissingError reports a submission record lacking a required field.
type FieldMissingError struct {
	Field string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("submission record has no %q field", e.Field)
}

// UnknownStatusError reports a status code outside the recognized set.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("undocumented homework status %q", e.Status)
}

// Describe composes the notification sentence for one submission.
// Pure and side-effect-free.
func Describe(hw practicum.Homework) (string, error) {
	if hw.Name == nil {
		return "", &FieldMissingError{Field: "homework_name"}
	}
	if hw.Status == nil {
		return "", &FieldMissingError{Field: "status"}
	}
	verdict, ok := verdicts[*hw.Status]
	if !ok {
		return "", &UnknownStatusError{Status: *hw.Status}
	}
	return fmt.Sprintf("Status of %q changed. %s", *hw.Name, verdict), nil
}
