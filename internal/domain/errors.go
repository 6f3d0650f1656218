package domain

import (
	"errors"
	"fmt"
)

// Category sentinels — use with NewSubSystemError for subsystem-specific errors.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrDuplicate        = fmt.Errorf("duplicate")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrLimitReached     = fmt.Errorf("limit reached")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrDisabled         = fmt.Errorf("disabled")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrProviderError    = fmt.Errorf("provider error")
)

// Sentinel errors for the domain layer.
var (
	ErrProviderNotFound  = fmt.Errorf("llm provider not found")
	ErrToolNotFound      = fmt.Errorf("tool not found")
	ErrAgentNotFound     = fmt.Errorf("agent not found")
	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrMessageNotFound   = fmt.Errorf("message not found")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrDecryption        = fmt.Errorf("decryption failed")
	ErrEncryption        = fmt.Errorf("encryption operation failed")
	ErrGenerationFailed  = fmt.Errorf("text generation failed")
	ErrSearchFailed      = fmt.Errorf("web search failed")
	ErrCredentialMissing = fmt.Errorf("required credential missing")
	ErrStoreFailure      = fmt.Errorf("store operation failed")
	ErrPushFailed        = fmt.Errorf("push delivery failed")

	// Gateway / RPC errors.
	ErrGatewayAuthFailed = fmt.Errorf("gateway: %w", ErrAuthInvalid)
	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("rpc payload invalid")

	// Skill matching errors.
	ErrMatchTimeout     = fmt.Errorf("match lookup timed out")
	ErrMatchUnreachable = fmt.Errorf("match service unreachable")

	// Resilience errors.
	ErrContextOverflow = fmt.Errorf("context window exceeded")
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrToolFailure     = fmt.Errorf("tool execution failed")
	ErrCircuitOpen     = fmt.Errorf("circuit breaker open")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Chat.Send")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "chat", "match"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
// Use this with category sentinels (ErrNotFound, ErrTimeout, etc.) so that ErrorCodeOf
// can map the combination of sentinel + subsystem to a specific ErrorCode.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrContextOverflow)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

// Error codes grouped by subsystem. Every sentinel error maps to exactly one code.
const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeProviderNotFound  ErrorCode = "PROVIDER_NOT_FOUND"
	CodeToolNotFound      ErrorCode = "TOOL_NOT_FOUND"
	CodeToolFailure       ErrorCode = "TOOL_FAILURE"
	CodeAgentNotFound     ErrorCode = "AGENT_NOT_FOUND"
	CodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	CodeMessageNotFound   ErrorCode = "MESSAGE_NOT_FOUND"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeEncryption        ErrorCode = "ENCRYPTION"
	CodeDecryption        ErrorCode = "DECRYPTION"
	CodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	CodeSearchFailed      ErrorCode = "SEARCH_FAILED"
	CodeCredentialMissing ErrorCode = "CREDENTIAL_MISSING"
	CodeStoreFailure      ErrorCode = "STORE_FAILURE"
	CodePushFailed        ErrorCode = "PUSH_FAILED"
	CodeGatewayAuth       ErrorCode = "GATEWAY_AUTH"
	CodeRPCMethodNotFound ErrorCode = "RPC_METHOD_NOT_FOUND"
	CodeRPCInvalidPayload ErrorCode = "RPC_INVALID_PAYLOAD"
	CodeMatchTimeout      ErrorCode = "MATCH_TIMEOUT"
	CodeMatchUnreachable  ErrorCode = "MATCH_UNREACHABLE"
	CodeContextOverflow   ErrorCode = "CONTEXT_OVERFLOW"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"

	// Subsystem-specific codes used by subSystemCodeMap for category sentinels.
	CodeConversationEmpty  ErrorCode = "CONVERSATION_EMPTY"
	CodeConnectionNotFound ErrorCode = "CONNECTION_NOT_FOUND"
	CodeConnectionDup      ErrorCode = "CONNECTION_DUPLICATE"
	CodeNotifNotFound      ErrorCode = "NOTIFICATION_NOT_FOUND"
	CodeQueryInvalid       ErrorCode = "QUERY_INVALID"
	CodeSkillsInvalid      ErrorCode = "SKILLS_INVALID"

	// Category error codes — fallback codes when no subsystem-specific code matches.
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeLimitReached     ErrorCode = "LIMIT_REACHED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeDisabled         ErrorCode = "DISABLED"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	// Category sentinels (fallback codes).
	ErrNotFound:         CodeNotFound,
	ErrDuplicate:        CodeDuplicate,
	ErrTimeout:          CodeTimeout,
	ErrLimitReached:     CodeLimitReached,
	ErrPermissionDenied: CodePermissionDenied,
	ErrDisabled:         CodeDisabled,
	ErrInvalidInput:     CodeInvalidInput,
	ErrProviderError:    CodeProviderError,

	// Active sentinels.
	ErrProviderNotFound:  CodeProviderNotFound,
	ErrToolNotFound:      CodeToolNotFound,
	ErrToolFailure:       CodeToolFailure,
	ErrAgentNotFound:     CodeAgentNotFound,
	ErrUserNotFound:      CodeUserNotFound,
	ErrMessageNotFound:   CodeMessageNotFound,
	ErrConfigLoad:        CodeConfigLoad,
	ErrDecryption:        CodeDecryption,
	ErrEncryption:        CodeEncryption,
	ErrGenerationFailed:  CodeGenerationFailed,
	ErrSearchFailed:      CodeSearchFailed,
	ErrCredentialMissing: CodeCredentialMissing,
	ErrStoreFailure:      CodeStoreFailure,
	ErrPushFailed:        CodePushFailed,
	ErrGatewayAuthFailed: CodeGatewayAuth,
	ErrRPCMethodNotFound: CodeRPCMethodNotFound,
	ErrRPCInvalidPayload: CodeRPCInvalidPayload,
	ErrMatchTimeout:      CodeMatchTimeout,
	ErrMatchUnreachable:  CodeMatchUnreachable,
	ErrContextOverflow:   CodeContextOverflow,
	ErrRateLimit:         CodeRateLimit,
	ErrAuthInvalid:       CodeAuthInvalid,
	ErrCircuitOpen:       CodeCircuitOpen,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrNotFound: {
		"chat":       CodeConversationEmpty,
		"connection": CodeConnectionNotFound,
		"notify":     CodeNotifNotFound,
		"agent":      CodeAgentNotFound,
		"user":       CodeUserNotFound,
	},
	ErrDuplicate: {
		"connection": CodeConnectionDup,
	},
	ErrTimeout: {
		"match": CodeMatchTimeout,
	},
	ErrInvalidInput: {
		"routing": CodeQueryInvalid,
		"match":   CodeSkillsInvalid,
	},
	ErrProviderError: {
		"llm":    CodeGenerationFailed,
		"search": CodeSearchFailed,
		"push":   CodePushFailed,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// For DomainErrors with a SubSystem, it also checks the subSystemCodeMap
// to resolve category sentinels to specific codes.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	// Unwrap DomainError to check its inner sentinel and subsystem.
	var de *DomainError
	if errors.As(err, &de) {
		// Check subsystem-specific mapping first (higher specificity).
		if de.SubSystem != "" {
			if subsysMap, ok := subSystemCodeMap[de.Err]; ok {
				if code, ok := subsysMap[de.SubSystem]; ok {
					return code
				}
			}
		}
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
// If SubSystem is set, checks the subSystemCodeMap for a specific code.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
