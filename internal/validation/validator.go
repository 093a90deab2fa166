// Package validation provides validation rules for experiment and event payloads.
package validation

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/TimurManjosov/abconsole/internal/rollout"
)

const (
	// MaxNameLength is the maximum length for experiment names
	MaxNameLength = 128
	// MaxDescriptionLength is the maximum length for experiment descriptions
	MaxDescriptionLength = 500
	// MaxKeyLength is the maximum length for variant keys
	MaxKeyLength = 64
	// MaxVariantNameLength is the maximum length for variant names
	MaxVariantNameLength = 64
	// MaxEventTypeLength is the maximum length for event types
	MaxEventTypeLength = 64
	// MaxMetadataSize is the maximum size of event metadata JSON in bytes
	MaxMetadataSize = 16 * 1024 // 16KB
)

// keyPattern matches alphanumeric characters, underscores, and hyphens
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// ValidateCreateExperiment validates the body of POST /experiments.
func ValidateCreateExperiment(p model.CreateExperimentPayload) *ValidationResult {
	result := NewValidationResult()
	result.Merge(ValidateName(p.Name))
	result.Merge(ValidateDescription(p.Description))

	variants := make([]model.Variant, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = model.Variant{Key: v.Key, Name: v.Name, Weight: v.Weight}
	}
	result.Merge(ValidateVariants(variants))
	result.Merge(ValidateDates(p.StartDate, p.EndDate))
	return result
}

// ValidateUpdateExperiment validates the body of PATCH /experiments/:id.
// Only fields that are present are checked.
func ValidateUpdateExperiment(p model.UpdateExperimentPayload) *ValidationResult {
	result := NewValidationResult()
	if p.Name != nil {
		result.Merge(ValidateName(*p.Name))
	}
	if p.Description != nil {
		result.Merge(ValidateDescription(*p.Description))
	}
	if p.Status != nil {
		if _, err := model.ParseStatus(string(*p.Status)); err != nil {
			result.AddError("status", err.Error())
		}
	}
	if p.Variants != nil {
		result.Merge(ValidateVariants(p.Variants))
	}
	result.Merge(ValidateDates(p.StartDate, p.EndDate))
	return result
}

// ValidateName validates an experiment name
func ValidateName(name string) *ValidationResult {
	result := NewValidationResult()
	name = strings.TrimSpace(name)

	if name == "" {
		result.AddError("name", "Name is required")
		return result
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		result.AddError("name", "Name must not exceed 128 characters")
	}

	return result
}

// ValidateDescription validates an experiment description
func ValidateDescription(description string) *ValidationResult {
	result := NewValidationResult()

	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		result.AddError("description", "Description must not exceed 500 characters")
	}

	return result
}

// ValidateKey validates a variant key
func ValidateKey(key string) *ValidationResult {
	result := NewValidationResult()
	key = strings.TrimSpace(key)

	if key == "" {
		result.AddError("key", "Key is required")
		return result
	}

	if utf8.RuneCountInString(key) > MaxKeyLength {
		result.AddError("key", "Key must not exceed 64 characters")
		return result
	}

	if !keyPattern.MatchString(key) {
		result.AddError("key", "Key must contain only alphanumeric characters, underscores, and hyphens")
		return result
	}

	return result
}

// ValidateVariants validates each variant and then the set as a whole:
// keys unique, weights all omitted or all present and summing to 100.
func ValidateVariants(variants []model.Variant) *ValidationResult {
	result := NewValidationResult()

	for i, v := range variants {
		field := "variants[" + strconv.Itoa(i) + "]"
		if r := ValidateKey(v.Key); !r.Valid {
			result.AddError(field+".key", r.Errors["key"])
		}
		name := strings.TrimSpace(v.Name)
		switch {
		case name == "":
			result.AddError(field+".name", "Variant name is required")
		case utf8.RuneCountInString(name) > MaxVariantNameLength:
			result.AddError(field+".name", "Variant name must not exceed 64 characters")
		}
	}
	if !result.Valid {
		return result
	}

	if err := rollout.ValidateVariants(variants); err != nil {
		result.AddError("variants", err.Error())
	}
	return result
}

// ValidateDates checks that an experiment does not end before it starts.
func ValidateDates(start, end *time.Time) *ValidationResult {
	result := NewValidationResult()

	if start != nil && end != nil && end.Before(*start) {
		result.AddError("endDate", "End date must not be before start date")
	}

	return result
}

// ValidateEvent validates the body of POST /events.
func ValidateEvent(p model.TrackEventPayload) *ValidationResult {
	result := NewValidationResult()

	if strings.TrimSpace(p.ExperimentID) == "" {
		result.AddError("experimentId", "experimentId is required")
	}
	if strings.TrimSpace(p.VariantKey) == "" {
		result.AddError("variantKey", "variantKey is required")
	}

	eventType := strings.TrimSpace(p.EventType)
	switch {
	case eventType == "":
		result.AddError("eventType", "eventType is required")
	case utf8.RuneCountInString(eventType) > MaxEventTypeLength:
		result.AddError("eventType", "eventType must not exceed 64 characters")
	}

	result.Merge(ValidateMetadataSize(p.Metadata))
	return result
}

// ValidateMetadataSize validates the encoded size of event metadata
func ValidateMetadataSize(metadata map[string]any) *ValidationResult {
	result := NewValidationResult()

	if len(metadata) == 0 {
		return result
	}

	b, err := json.Marshal(metadata)
	if err != nil {
		result.AddError("metadata", "Metadata must be valid JSON: "+err.Error())
		return result
	}
	if len(b) > MaxMetadataSize {
		result.AddError("metadata", "Metadata must not exceed 16KB")
	}

	return result
}
