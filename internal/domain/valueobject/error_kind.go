package valueobject

// ErrorKind identifies the category of a provider or processing failure.
// The continuation engine inspects only the kind (and an optional status
// code), never payload semantics.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindNotFound
	ErrorKindRateLimited
	ErrorKindNetworkTransient
	ErrorKindValidation
	ErrorKindRemote
	ErrorKindProgrammingDefect
	ErrorKindResourceExhaustion
	ErrorKindUserCancellation
)

const unknownKindStr = "unknown"

// String returns the string representation of the error kind.
func (ek ErrorKind) String() string {
	switch ek {
	case ErrorKindUnknown:
		return unknownKindStr
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindRateLimited:
		return "rate_limited"
	case ErrorKindNetworkTransient:
		return "network_transient"
	case ErrorKindValidation:
		return "validation"
	case ErrorKindRemote:
		return "remote"
	case ErrorKindProgrammingDefect:
		return "programming_defect"
	case ErrorKindResourceExhaustion:
		return "resource_exhaustion"
	case ErrorKindUserCancellation:
		return "user_cancellation"
	default:
		return unknownKindStr
	}
}

// IsFatal returns true for kinds that always force a full stop.
func (ek ErrorKind) IsFatal() bool {
	switch ek {
	case ErrorKindProgrammingDefect, ErrorKindResourceExhaustion, ErrorKindUserCancellation:
		return true
	default:
		return false
	}
}
