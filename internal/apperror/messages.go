package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeInvalidRequest:      "Arbitrage request failed validation",
	CodeCircuitBreakerOpen:  "Circuit breaker is open, execution refused",
	CodeUnauthorized:        "Caller is not authorized for this operation",
	CodePaused:              "Executor is paused",
	CodeReentrantCall:       "Re-entrant call rejected",
	CodeTokenNotWhitelisted: "Token is not whitelisted",
	CodeVenueNotApproved:    "Venue is not approved",
	CodeDeadlineExpired:     "Request deadline has expired",

	CodeSwapZeroOutput:     "Swap produced zero output",
	CodeInsufficientOutput: "Swap output below slippage-protected minimum",
	CodeLoanRejected:       "Lending facility rejected the loan request",

	CodeRepaymentShortfall: "Balance insufficient to repay the loan",
	CodeInsufficientFunds:  "Insufficient funds",

	CodeEthereumRPCError:   "Ethereum RPC call failed",
	CodeContractCallFailed: "Smart contract call failed",
	CodeQuoteFailed:        "Failed to get venue quote",
	CodePoolNotFound:       "No pool found for token pair",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeFeedDecodeError:          "Failed to decode opportunity feed message",

	CodeCircuitOpen: "Infrastructure circuit breaker is open",

	CodeFeeScheduleMissing: "No fee schedule entry for venue/token",
	CodeInvalidPrice:       "Price must be positive and finite",
	CodeInvalidNotional:    "Notional must be positive",
}
