package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeUnknown            ErrorCode = "COMMON_099"

	CodeOK = ErrorCode("OK")
)

// Sequence error codes.
const (
	ErrCodeSequenceEmpty   ErrorCode = "SEQ_001"
	ErrCodeSequenceInvalid ErrorCode = "SEQ_002"
	ErrCodeSequenceTooLong ErrorCode = "SEQ_003"
)

// Folding / structure-cache error codes.
const (
	ErrCodeStructureNotFound ErrorCode = "FOLD_001"
	ErrCodePredictorFailed   ErrorCode = "FOLD_002"
	ErrCodePredictorShape    ErrorCode = "FOLD_003"
	ErrCodeStructureParse    ErrorCode = "FOLD_004"
	ErrCodeArtifactCorrupt   ErrorCode = "FOLD_005"
)

// Geometric descriptor error codes.
const (
	ErrCodeDegenerateVector   ErrorCode = "GEO_001"
	ErrCodeDegenerateRotation ErrorCode = "GEO_002"
	ErrCodeDimensionMismatch  ErrorCode = "GEO_003"
)

// Infrastructure error codes.
const (
	ErrCodeDatabaseError ErrorCode = "INFRA_001"
	ErrCodeCacheError    ErrorCode = "INFRA_002"
	ErrCodeStorageError  ErrorCode = "INFRA_003"
)

// ErrorCodeMessage maps codes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeUnknown:            "unknown error",

	ErrCodeSequenceEmpty:   "sequence is empty",
	ErrCodeSequenceInvalid: "sequence contains invalid amino-acid symbols",
	ErrCodeSequenceTooLong: "sequence exceeds maximum length",

	ErrCodeStructureNotFound: "no cached structure for sequence",
	ErrCodePredictorFailed:   "structure prediction failed",
	ErrCodePredictorShape:    "predictor returned wrong number of structures",
	ErrCodeStructureParse:    "failed to parse structure",
	ErrCodeArtifactCorrupt:   "cached structure artifact is corrupt",

	ErrCodeDegenerateVector:   "consecutive alpha-carbons coincide, tangent undefined",
	ErrCodeDegenerateRotation: "antiparallel tangent vectors, rotation axis undefined",
	ErrCodeDimensionMismatch:  "descriptor dimension mismatch",

	ErrCodeDatabaseError: "database error",
	ErrCodeCacheError:    "cache error",
	ErrCodeStorageError:  "object storage error",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode
// ("SEQ", "FOLD", "GEO", ...).
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
