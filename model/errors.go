package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// IngestionFailure is returned when the touchpoint source could not be read
// or parsed. No journey set is built from a failed ingestion.
type IngestionFailure struct {
	Source string
	Err    error
}

func NewIngestionFailure(source string, err error) *IngestionFailure {
	return &IngestionFailure{Source: source, Err: err}
}

func (e *IngestionFailure) Error() string {
	return fmt.Sprintf("ingestion failed for source %s: %v", e.Source, e.Err)
}

func (e *IngestionFailure) Unwrap() error {
	return e.Err
}

// RecordValidationError describes a single malformed source record.
// Row is 1-based and counts the header row for tabular sources.
type RecordValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *RecordValidationError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// RecordValidationErrors collects every malformed record of a batch.
type RecordValidationErrors []*RecordValidationError

const maxReportedValidationErrors = 5

func (errs RecordValidationErrors) Error() string {
	messages := make([]string, 0, maxReportedValidationErrors)
	for i, err := range errs {
		if i == maxReportedValidationErrors {
			messages = append(messages, fmt.Sprintf("and %d more", len(errs)-i))
			break
		}
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("%d invalid records: %s", len(errs), strings.Join(messages, "; "))
}

// InternalInvariantViolation signals a defect in the pipeline, never bad input.
type InternalInvariantViolation struct {
	Message string
}

func NewInternalInvariantViolation(format string, args ...interface{}) *InternalInvariantViolation {
	return &InternalInvariantViolation{Message: fmt.Sprintf(format, args...)}
}

func (e *InternalInvariantViolation) Error() string {
	return "internal invariant violation: " + e.Message
}

func IsIngestionFailure(err error) bool {
	var target *IngestionFailure
	return errors.As(err, &target)
}

func IsRecordValidationError(err error) bool {
	var single *RecordValidationError
	if errors.As(err, &single) {
		return true
	}
	var batch RecordValidationErrors
	return errors.As(err, &batch)
}

func IsInternalInvariantViolation(err error) bool {
	var target *InternalInvariantViolation
	return errors.As(err, &target)
}
