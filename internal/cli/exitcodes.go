package cli

const (
	ExitSuccess = 0
	// ExitHTTPError is returned with --fail for 4xx and 5xx responses
	ExitHTTPError    = 1
	ExitParseError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 4
	// ExitExtractError means the --extract path matched nothing
	ExitExtractError = 5
	ExitUsageError   = 64
)
