package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidSignal        ErrorCode = 103
	ErrCodeInvalidBar           ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105
	ErrCodeInvalidType          ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 107

	// Data/ordering errors (200-299)
	ErrCodeDataGap          ErrorCode = 200
	ErrCodeDuplicateBar     ErrorCode = 201
	ErrCodeOutOfOrderBar    ErrorCode = 202
	ErrCodeNoDataFound      ErrorCode = 203
	ErrCodeInsufficientData ErrorCode = 204

	// Portfolio/cash errors (300-399)
	ErrCodeInsufficientCash  ErrorCode = 300
	ErrCodePositionNotFound  ErrorCode = 301
	ErrCodeReservationBroken ErrorCode = 302

	// Execution errors (400-499)
	ErrCodeOrderRejected ErrorCode = 400
	ErrCodeUnknownOrder  ErrorCode = 401
	ErrCodeFillMismatch  ErrorCode = 402

	// Risk errors (500-599)
	ErrCodeRiskRejected ErrorCode = 500

	// Slippage errors (600-699)
	ErrCodeSlippageNumerical ErrorCode = 600

	// Sizer errors (700-799)
	ErrCodeWarmupIncomplete ErrorCode = 700

	// Backtest loop errors (800-899)
	ErrCodeConfigError    ErrorCode = 800
	ErrCodeEngineNotReady ErrorCode = 801
	ErrCodeAlreadyRunning ErrorCode = 802
)
