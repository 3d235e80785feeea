package validator

import (
	"fmt"
	"newton/models"
	"newton/pkg/youtube"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	// Register custom tag name function to use JSON tags
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validators
	v.RegisterValidation("notesource", validateNoteSource)
	v.RegisterValidation("tier", validateTier)
	v.RegisterValidation("rating", validateRating)
	v.RegisterValidation("youtubeurl", validateYouTubeURL)
	v.RegisterValidation("roomcode", validateRoomCode)

	return &Validator{validate: v}
}

// Validate validates a struct and returns validation errors
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Convert validation errors to our custom format
	var validationErrs ValidationErrors
	for _, err := range fieldErrs {
		validationErrs = append(validationErrs, ValidationError{
			Field:   err.Field(),
			Message: msgForTag(err),
			Tag:     err.Tag(),
			Value:   fmt.Sprintf("%v", err.Value()),
		})
	}

	return validationErrs
}

// msgForTag returns a human-readable error message for a validation tag
func msgForTag(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "notesource":
		return fmt.Sprintf("%s must be one of: manual, text, pdf, audio, youtube", field)
	case "tier":
		return fmt.Sprintf("%s must be one of: monthly, yearly, lifetime", field)
	case "rating":
		return fmt.Sprintf("%s must be 1 (again), 2 (hard), 3 (good) or 4 (easy)", field)
	case "youtubeurl":
		return fmt.Sprintf("%s must be a YouTube video URL", field)
	case "roomcode":
		return fmt.Sprintf("%s must be 6 upper-case letters or digits", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, snakeCase(fe.Param()))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// snakeCase turns a Go field name referenced by *field tags into its JSON name
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Custom validators

func validateNoteSource(fl validator.FieldLevel) bool {
	switch models.NoteSource(fl.Field().String()) {
	case models.NoteSourceManual, models.NoteSourceText, models.NoteSourcePDF,
		models.NoteSourceAudio, models.NoteSourceYouTube:
		return true
	}
	return false
}

// validateTier accepts purchasable tiers only
func validateTier(fl validator.FieldLevel) bool {
	return models.Tier(fl.Field().String()).Paid()
}

// validateRating accepts review grades 1-4
func validateRating(fl validator.FieldLevel) bool {
	r := fl.Field().Int()
	return r >= 1 && r <= 4
}

func validateYouTubeURL(fl validator.FieldLevel) bool {
	_, err := youtube.ParseVideoID(fl.Field().String())
	return err == nil
}

func validateRoomCode(fl validator.FieldLevel) bool {
	return roomCodePattern.MatchString(fl.Field().String())
}
