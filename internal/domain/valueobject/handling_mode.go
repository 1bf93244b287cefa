package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HandlingMode selects the error-handling profile for batch processing.
// The mode is always an explicit configuration tag; thresholds are derived
// from the mode, never the reverse.
type HandlingMode struct {
	mode string
}

const (
	StrictMode   = "strict"   // Stop on minor errors
	TolerantMode = "tolerant" // Continue processing as much as possible
	DebugMode    = "debug"    // Maximum diagnostics, continue processing
)

// NewHandlingMode creates a handling mode from its string tag.
func NewHandlingMode(mode string) (HandlingMode, error) {
	switch strings.ToLower(mode) {
	case StrictMode:
		return HandlingMode{mode: StrictMode}, nil
	case TolerantMode:
		return HandlingMode{mode: TolerantMode}, nil
	case DebugMode:
		return HandlingMode{mode: DebugMode}, nil
	default:
		return HandlingMode{}, fmt.Errorf("invalid handling mode: %q (want strict, tolerant or debug)", mode)
	}
}

// ModeStrict returns the strict handling mode.
func ModeStrict() HandlingMode { return HandlingMode{mode: StrictMode} }

// ModeTolerant returns the tolerant handling mode.
func ModeTolerant() HandlingMode { return HandlingMode{mode: TolerantMode} }

// ModeDebug returns the debug handling mode.
func ModeDebug() HandlingMode { return HandlingMode{mode: DebugMode} }

// String returns the mode tag.
func (hm HandlingMode) String() string {
	return hm.mode
}

// IsStrict returns true for strict mode.
func (hm HandlingMode) IsStrict() bool { return hm.mode == StrictMode }

// IsTolerant returns true for tolerant mode.
func (hm HandlingMode) IsTolerant() bool { return hm.mode == TolerantMode }

// IsDebug returns true for debug mode.
func (hm HandlingMode) IsDebug() bool { return hm.mode == DebugMode }

// IsZero returns true if the mode has not been set.
func (hm HandlingMode) IsZero() bool { return hm.mode == "" }

// MarshalJSON implements json.Marshaler.
func (hm HandlingMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(hm.mode)
}

// UnmarshalJSON implements json.Unmarshaler.
func (hm *HandlingMode) UnmarshalJSON(data []byte) error {
	var mode string
	if err := json.Unmarshal(data, &mode); err != nil {
		return err
	}
	parsed, err := NewHandlingMode(mode)
	if err != nil {
		return err
	}
	*hm = parsed
	return nil
}
