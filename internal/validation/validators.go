package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/taskpilot/api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("task_priority", validateTaskPriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
}

func validateTaskPriority(fl validator.FieldLevel) bool {
	switch models.TaskPriority(fl.Field().String()) {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
		return true
	default:
		return false
	}
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	switch models.TaskStatus(fl.Field().String()) {
	case models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusDone:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskPriority validates a TaskPriority string value
func ValidateTaskPriority(value string) error {
	switch models.TaskPriority(value) {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', or 'high')", value)
	}
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusDone:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'pending', 'in_progress', or 'done')", value)
	}
}
