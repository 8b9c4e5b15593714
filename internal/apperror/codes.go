package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Executor admission error codes. These reject a request before any capital
// is committed.
const (
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeCircuitBreakerOpen  Code = "CIRCUIT_BREAKER_OPEN"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodePaused              Code = "PAUSED"
	CodeReentrantCall       Code = "REENTRANT_CALL"
	CodeTokenNotWhitelisted Code = "TOKEN_NOT_WHITELISTED"
	CodeVenueNotApproved    Code = "VENUE_NOT_APPROVED"
	CodeDeadlineExpired     Code = "DEADLINE_EXPIRED"
)

// Execution failure codes. These resolve gracefully inside an attempt: the
// loan is still repaid and the outcome lands in the statistics.
const (
	CodeSwapZeroOutput     Code = "SWAP_ZERO_OUTPUT"
	CodeInsufficientOutput Code = "INSUFFICIENT_OUTPUT"
	CodeLoanRejected       Code = "LOAN_REJECTED"
)

// Fatal execution codes. These unwind the whole atomic attempt.
const (
	CodeRepaymentShortfall Code = "REPAYMENT_SHORTFALL"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
)

// Infrastructure error codes
const (
	CodeEthereumRPCError   Code = "ETHEREUM_RPC_ERROR"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeQuoteFailed        Code = "QUOTE_FAILED"
	CodePoolNotFound       Code = "POOL_NOT_FOUND"

	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeFeedDecodeError          Code = "FEED_DECODE_ERROR"

	CodeCircuitOpen Code = "CIRCUIT_OPEN" // infra breaker, not the executor's
)

// Evaluation error codes
const (
	CodeFeeScheduleMissing Code = "FEE_SCHEDULE_MISSING"
	CodeInvalidPrice       Code = "INVALID_PRICE"
	CodeInvalidNotional    Code = "INVALID_NOTIONAL"
)
