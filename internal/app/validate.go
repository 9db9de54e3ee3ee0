package app

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameLen    = 255
	maxTagNameLen = 100

	defaultListColor = "#3B82F6"
	defaultTagColor  = "#6B7280"

	defaultPageLimit = 100
	maxPageLimit     = 100
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func requireName(field, value string, max int) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return "", validationError(field, field+" is required")
	}
	if utf8.RuneCountInString(name) > max {
		return "", validationError(field, field+" is too long")
	}
	return name, nil
}

func validColor(field, value string) (string, error) {
	if !hexColor.MatchString(value) {
		return "", validationError(field, field+" must be a #RRGGBB hex color")
	}
	return value, nil
}

func colorOrDefault(field string, value *string, fallback string) (string, error) {
	if value == nil || *value == "" {
		return fallback, nil
	}
	return validColor(field, *value)
}

func parseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, validationError("due_date", "due_date is required")
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, validationError("due_date", "due_date must be YYYY-MM-DD")
	}
	return parsed, nil
}

// optionalText trims v; blank text is stored as NULL.
func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func pageBounds(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return skip, limit
}
