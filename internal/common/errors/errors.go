// internal/common/errors/errors.go

// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Scheme matching
const (
	ErrCodeInvalidSchemeInput        ErrorCode = "INVALID_SCHEME_INPUT"
	ErrCodeNoPriorSearch             ErrorCode = "NO_PRIOR_SEARCH"
	ErrCodeSessionStateFailed        ErrorCode = "SESSION_STATE_FAILED"
	ErrCodeSessionConflict           ErrorCode = "SESSION_CONFLICT"
	ErrCodeSchemeNotFound            ErrorCode = "SCHEME_NOT_FOUND"
	ErrCodeSchemeReferenceUnresolved ErrorCode = "SCHEME_REFERENCE_UNRESOLVED"
	ErrCodeRulesLoadFailed           ErrorCode = "RULES_LOAD_FAILED"
)

// Infrastructure
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeCacheError        ErrorCode = "CACHE_ERROR"
	ErrCodeBrokerUnavailable ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodeContextCancelled  ErrorCode = "CONTEXT_CANCELLED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the error the StandardError was built from, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns e.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidSchemeInputError reports job variables that fail validation.
func NewInvalidSchemeInputError(details string) *StandardError {
	return newError(ErrCodeInvalidSchemeInput, "Invalid scheme matching input", details, false, nil)
}

// NewNoPriorSearchError is raised when "show more" arrives before any search.
func NewNoPriorSearchError(sessionID string, cause error) *StandardError {
	return newError(ErrCodeNoPriorSearch, "No prior scheme search in this session",
		fmt.Sprintf("sessionId: %s", sessionID), false, cause)
}

// NewSessionStateFailedError wraps a failure to read or write pagination state.
func NewSessionStateFailedError(sessionID string, err error) *StandardError {
	return newError(ErrCodeSessionStateFailed, "Session pagination state unavailable",
		fmt.Sprintf("sessionId: %s, error: %v", sessionID, err), true, err)
}

// NewSessionConflictError reports that concurrent updates kept winning the race.
func NewSessionConflictError(sessionID string, err error) *StandardError {
	return newError(ErrCodeSessionConflict, "Concurrent update of session pagination state",
		fmt.Sprintf("sessionId: %s", sessionID), true, err)
}

func NewSchemeNotFoundError(schemeID string) *StandardError {
	return newError(ErrCodeSchemeNotFound, "Scheme not found in catalog",
		fmt.Sprintf("schemeId: %s", schemeID), false, nil)
}

func NewSchemeReferenceUnresolvedError(reference string) *StandardError {
	return newError(ErrCodeSchemeReferenceUnresolved, "Could not identify the scheme referred to",
		fmt.Sprintf("reference: %q", reference), false, nil)
}

// NewRulesLoadFailedError is fatal at start-up, so it is never retried.
func NewRulesLoadFailedError(path string, err error) *StandardError {
	return newError(ErrCodeRulesLoadFailed, "Matching rule tables could not be loaded",
		fmt.Sprintf("path: %s, error: %v", path, err), false, err)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true, err)
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout",
		fmt.Sprintf("queryType: %s", queryType), true, nil)
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err.Error(), true, err)
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true, err)
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(index string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Elasticsearch query timeout",
		fmt.Sprintf("index: %s", index), true, nil)
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Elasticsearch index not found",
		fmt.Sprintf("indexName: %s", indexName), false, nil)
}

func NewCacheError(op string, err error) *StandardError {
	return newError(ErrCodeCacheError, "Cache operation failed",
		fmt.Sprintf("op: %s, error: %v", op, err), true, err)
}

// NewBrokerUnavailableError wraps a Zeebe gateway failure.
func NewBrokerUnavailableError(op string, err error) *StandardError {
	return newError(ErrCodeBrokerUnavailable, "Workflow broker unavailable",
		fmt.Sprintf("op: %s, error: %v", op, err), true, err)
}

func NewContextCancelledError(err error) *StandardError {
	return newError(ErrCodeContextCancelled, "Operation cancelled", err.Error(), false, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the codes BPMN boundary
// events catch. Infrastructure failures that only differ in cause share a
// code.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidSchemeInput:            "INVALID_SCHEME_INPUT",
	ErrCodeNoPriorSearch:                 "NO_PRIOR_SEARCH",
	ErrCodeSessionStateFailed:            "SESSION_STATE_FAILED",
	ErrCodeSessionConflict:               "SESSION_STATE_FAILED",
	ErrCodeSchemeNotFound:                "SCHEME_NOT_FOUND",
	ErrCodeSchemeReferenceUnresolved:     "SCHEME_REFERENCE_UNRESOLVED",
	ErrCodeRulesLoadFailed:               "RULES_LOAD_FAILED",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_ERROR",
	ErrCodeQueryExecutionFailed:          "DATABASE_ERROR",
	ErrCodeQueryTimeout:                  "TIMEOUT_ERROR",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_ERROR",
	ErrCodeSearchQueryFailed:             "ELASTICSEARCH_ERROR",
	ErrCodeSearchTimeout:                 "TIMEOUT_ERROR",
	ErrCodeIndexNotFound:                 "ELASTICSEARCH_ERROR",
	ErrCodeCacheError:                    "CACHE_ERROR",
	ErrCodeBrokerUnavailable:             "BROKER_ERROR",
	ErrCodeContextCancelled:              "CONTEXT_CANCELLED",
	ErrCodeInternal:                      "INTERNAL_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSessionStateFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeCacheError,
		ErrCodeBrokerUnavailable:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout,
		ErrCodeSessionConflict:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION") || codeStr == string(ErrCodeNoPriorSearch):
		return "SESSION"
	case strings.Contains(codeStr, "SCHEME") || strings.Contains(codeStr, "RULES"):
		return "MATCHING"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	default:
		return "OTHER"
	}
}
