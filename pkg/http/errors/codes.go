package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeForbidden              = "forbidden"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeSubjectNotFound = "subject_not_found"
	ErrCodeQuizNotFound    = "quiz_not_found"

	// Session errors
	ErrCodeSessionNotFound  = "session_not_found"
	ErrCodeInvalidSessionID = "invalid_session_id"
	ErrCodeInvalidState     = "invalid_state"

	// Generation errors
	ErrCodeGenerationFormat     = "generation_format_error"
	ErrCodeGenerationFailed     = "generation_failed"
	ErrCodeGeneratorUnavailable = "generator_unavailable"

	// History errors
	ErrCodeHistorySaveFailed  = "history_save_failed"
	ErrCodeHistoryFetchFailed = "history_fetch_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
