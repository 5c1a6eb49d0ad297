package services

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/evlasenko/go-todo-app/internal/models"
)

const (
	minUsernameLength    = 3
	minPasswordLength    = 8
	maxTitleLength       = 100
	maxDescriptionLength = 500
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError enumerates every constraint the input violates.
// It is checked before any persistence mutation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	messages := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		messages[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidateRegistration checks the registration input against the user
// constraints: username at least 3 characters, syntactically valid
// email, password at least 8 characters.
func ValidateRegistration(params RegisterParams) error {
	ve := &ValidationError{}

	// Limits are measured in characters, not bytes,
	// matching the char_length checks in the schema.
	if utf8.RuneCountInString(strings.TrimSpace(params.Username)) < minUsernameLength {
		ve.add("username", fmt.Sprintf("username must be at least %d characters", minUsernameLength))
	}

	if params.Email == "" {
		ve.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(params.Email); err != nil || addr.Address != params.Email {
		// ParseAddress also accepts display-name forms like
		// "Alice <a@b.co>"; only a bare address is a valid email.
		ve.add("email", "invalid email address")
	}

	if len(params.Password) < minPasswordLength {
		ve.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	return ve.orNil()
}

// ValidateTodo checks the todo field constraints: title required and
// at most 100 characters, description at most 500, category one of
// the two known categories.
func ValidateTodo(params TodoParams) error {
	ve := &ValidationError{}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		ve.add("title", "title is required")
	} else if utf8.RuneCountInString(title) > maxTitleLength {
		ve.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	if utf8.RuneCountInString(params.Description) > maxDescriptionLength {
		ve.add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	if !models.IsValidCategory(params.Category) {
		ve.add("category", "category must be either Urgent or Non-Urgent")
	}

	return ve.orNil()
}
