package planfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Scalar
// =============================================================================

// Scalar is a code written either as a JSON/YAML string or as a number.
// Numbers keep their literal text: 1 becomes "1", "01" stays "01".
type Scalar string

// UnmarshalJSON accepts a string or a number.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = Scalar(num.String())
	return nil
}

// UnmarshalYAML accepts any scalar node.
func (s *Scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", n.Line)
	}
	if n.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = Scalar(n.Value)
	return nil
}

// String returns the code text.
func (s Scalar) String() string {
	return string(s)
}

// =============================================================================
// Record
// =============================================================================

// Record is a plan document.
type Record struct {
	VesselID       string             `json:"vesselId" yaml:"vesselId" validate:"required"`
	VesselCapacity *CapacityRecord    `json:"vesselCapacity,omitempty" yaml:"vesselCapacity,omitempty"`
	PortRotation   []Scalar           `json:"portRotation,omitempty" yaml:"portRotation,omitempty" validate:"omitempty,dive,required"`
	BayDetails     []BayRecord        `json:"bayDetails" yaml:"bayDetails" validate:"required,min=1,dive"`
	Assignment     []AssignmentRecord `json:"assignment" yaml:"assignment" validate:"dive"`
	Cost           float64            `json:"cost" yaml:"cost" validate:"gte=0"`
	TotalReStows   int                `json:"totalReStows" yaml:"totalReStows" validate:"gte=0"`
	TotalMoves     int                `json:"totalMoves" yaml:"totalMoves" validate:"gte=0"`
}

// CapacityRecord is the declared vessel capacity.
type CapacityRecord struct {
	TotalSlots            int     `json:"totalSlots" yaml:"totalSlots" validate:"gte=0"`
	TotalWeightCapacityKg float64 `json:"totalWeightCapacityKg" yaml:"totalWeightCapacityKg" validate:"gte=0"`
}

// BayRecord describes one bay.
type BayRecord struct {
	BayNumber     Scalar      `json:"bayNumber" yaml:"bayNumber" validate:"required"`
	IsReeferReady bool        `json:"isReeferReady" yaml:"isReeferReady"`
	Rows          []RowRecord `json:"rows" yaml:"rows" validate:"required,min=1,dive"`
}

// RowRecord describes one row of a bay.
type RowRecord struct {
	RowNumber   Scalar  `json:"rowNumber" yaml:"rowNumber" validate:"required"`
	MaxTiers    int     `json:"maxTiers" yaml:"maxTiers" validate:"min=1,max=999"`
	MaxWeightKg float64 `json:"maxWeightKg" yaml:"maxWeightKg" validate:"gt=0"`
}

// AssignmentRecord places one container.
type AssignmentRecord struct {
	ContainerID  string  `json:"containerId" yaml:"containerId" validate:"required"`
	Bay          Scalar  `json:"bay" yaml:"bay" validate:"required"`
	Row          Scalar  `json:"row" yaml:"row" validate:"required"`
	Tier         int     `json:"tier" yaml:"tier" validate:"min=1"`
	LocationCode string  `json:"locationCode,omitempty" yaml:"locationCode,omitempty"`
	POD          Scalar  `json:"pod" yaml:"pod" validate:"required"`
	WeightKg     float64 `json:"weightKg" yaml:"weightKg" validate:"gte=0"`
	IsHazardous  bool    `json:"isHazardous" yaml:"isHazardous"`
	IsReefer     bool    `json:"isReefer" yaml:"isReefer"`
}

// =============================================================================
// Structural Validation
// =============================================================================

// ErrInvalidRecord is returned when a document is structurally incomplete.
var ErrInvalidRecord = errors.New("invalid plan document")

// ValidationError lists every structural problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidRecord, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRecord
}

// recordValidate is the validator instance for plan documents.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New(validator.WithRequiredStructEnabled())

	// Report document field names rather than Go field names.
	recordValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the document structure. It does not check cross references
// between assignments and bays; Build does that.
func (r *Record) Validate() error {
	err := recordValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Problems: make([]string, 0, len(verrs))}
	for _, fe := range verrs {
		out.Problems = append(out.Problems, describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Record.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
