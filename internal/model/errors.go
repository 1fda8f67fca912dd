package model

import (
	"context"
	"errors"
)

var (
	// ErrEmptyArticle is returned when the article body yields no sentences
	ErrEmptyArticle = errors.New("article body contains no sentences")

	// ErrMissingQuery is returned when no search query was supplied
	ErrMissingQuery = errors.New("search query is required")

	// ErrNoEvidence is returned when no reference document could be fetched
	ErrNoEvidence = errors.New("no reference articles could be fetched")
)

// ErrorCode classifies a terminal failure
type ErrorCode string

const (
	ErrorCodeInput     ErrorCode = "input"
	ErrorCodeGathering ErrorCode = "gathering"
	ErrorCodeJudging   ErrorCode = "judging"
	ErrorCodeInternal  ErrorCode = "internal"
)

// ErrorInfo is the payload of an error event
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error implements error
func (e *ErrorInfo) Error() string {
	return string(e.Code) + ": " + e.Message
}

// IsInputError reports whether err is caused by a bad request
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyArticle) || errors.Is(err, ErrMissingQuery)
}

// IsTimeout reports whether err came from an expired deadline
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
