package protocol

const (
	// Request validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// World routing.
	ErrWorldNotFound = "E_WORLD_NOT_FOUND"

	// Teleport queue.
	ErrDuplicateRequest = "E_DUPLICATE_REQUEST"
	ErrVetoed           = "E_VETOED"
	ErrCancelled        = "E_CANCELLED"
	ErrNoLocation       = "E_NO_LOCATION"
	ErrRelocateFailed   = "E_RELOCATE_FAILED"

	// Cross-process handoff.
	ErrHandoffUnavailable = "E_HANDOFF_UNAVAILABLE"
	ErrUnknownPeer        = "E_UNKNOWN_PEER"

	ErrShuttingDown = "E_SHUTTING_DOWN"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:         {},
	ErrWorldNotFound:      {},
	ErrDuplicateRequest:   {},
	ErrVetoed:             {},
	ErrCancelled:          {},
	ErrNoLocation:         {},
	ErrRelocateFailed:     {},
	ErrHandoffUnavailable: {},
	ErrUnknownPeer:        {},
	ErrShuttingDown:       {},
	ErrInternal:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Message returns the user-facing text for a code.
func Message(code string) string {
	switch code {
	case "":
		return "ok"
	case ErrDuplicateRequest:
		return "a teleport is already in progress"
	case ErrVetoed:
		return "teleport was cancelled"
	case ErrCancelled:
		return "teleport request removed from the queue"
	case ErrNoLocation:
		return "no location found"
	case ErrRelocateFailed:
		return "could not move you to the destination"
	case ErrWorldNotFound:
		return "unknown world"
	case ErrHandoffUnavailable:
		return "cross-server teleport is unavailable"
	case ErrUnknownPeer:
		return "unknown target server"
	case ErrShuttingDown:
		return "server is shutting down"
	case ErrBadRequest:
		return "bad request"
	default:
		return "internal error"
	}
}
