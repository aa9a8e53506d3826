package location

import (
	"errors"
	"fmt"
	"strconv"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MinTier is the lowest tier number a code can carry.
	MinTier = 1

	// MaxTier is the highest tier number that fits the three-digit tier field.
	MaxTier = 999

	// TierWidth is the fixed width of the tier field.
	TierWidth = 3
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrMalformedCode is returned when a string is not a valid location code.
	ErrMalformedCode = errors.New("malformed location code")

	// ErrTierOutOfRange is returned when encoding a tier outside [MinTier, MaxTier].
	ErrTierOutOfRange = errors.New("tier out of encodable range")
)

// CodeError describes why a code could not be encoded or decoded.
type CodeError struct {
	Code   string
	Reason string
	Err    error
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("location code %q: %s", e.Code, e.Reason)
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

func malformed(code, reason string) error {
	return &CodeError{Code: code, Reason: reason, Err: ErrMalformedCode}
}

// =============================================================================
// Slot Reference
// =============================================================================

// Ref identifies a slot by its structured coordinates.
type Ref struct {
	Bay  string `json:"bay"`
	Row  string `json:"row"`
	Tier int    `json:"tier"`
}

// Code returns the location code of the reference.
func (r Ref) Code() (string, error) {
	return Encode(r.Bay, r.Row, r.Tier)
}

// String renders the reference for logs.
func (r Ref) String() string {
	return fmt.Sprintf("bay %s row %s tier %d", r.Bay, r.Row, r.Tier)
}

// =============================================================================
// Codec
// =============================================================================

// Codec describes the fixed-width layout used when decoding codes.
// Encoding does not depend on the layout.
type Codec struct {
	BayWidth int
	RowWidth int
}

// Default is the seven-character BBRRTTT layout.
var Default = Codec{BayWidth: 2, RowWidth: 2}

// Encode builds a location code from its parts.
//
// Example:
//
//	code, _ := Encode("01", "02", 3) // "0102003"
func Encode(bay, row string, tier int) (string, error) {
	if tier < MinTier || tier > MaxTier {
		return "", &CodeError{
			Code:   fmt.Sprintf("%s%s%d", bay, row, tier),
			Reason: fmt.Sprintf("tier %d outside [%d, %d]", tier, MinTier, MaxTier),
			Err:    ErrTierOutOfRange,
		}
	}
	return fmt.Sprintf("%s%s%03d", bay, row, tier), nil
}

// MustEncode is Encode for callers that have already bounded the tier.
// It panics on an out-of-range tier.
func MustEncode(bay, row string, tier int) string {
	code, err := Encode(bay, row, tier)
	if err != nil {
		panic(err)
	}
	return code
}

// Decode splits a code using the Default layout.
func Decode(code string) (Ref, error) {
	return Default.Decode(code)
}

// Decode splits a code into bay, row and tier according to the codec layout.
func (c Codec) Decode(code string) (Ref, error) {
	if c.BayWidth <= 0 || c.RowWidth <= 0 {
		return Ref{}, malformed(code, "codec widths must be positive")
	}
	want := c.BayWidth + c.RowWidth + TierWidth
	if len(code) != want {
		return Ref{}, malformed(code, fmt.Sprintf("expected %d characters, got %d", want, len(code)))
	}

	tierPart := code[c.BayWidth+c.RowWidth:]
	for _, ch := range tierPart {
		if ch < '0' || ch > '9' {
			return Ref{}, malformed(code, "tier field is not numeric")
		}
	}
	tier, err := strconv.Atoi(tierPart)
	if err != nil || tier < MinTier {
		return Ref{}, malformed(code, "tier must be at least 1")
	}

	return Ref{
		Bay:  code[:c.BayWidth],
		Row:  code[c.BayWidth : c.BayWidth+c.RowWidth],
		Tier: tier,
	}, nil
}
