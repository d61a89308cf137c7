package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnectivity marks failures to reach an external service at all.
	// The pipeline aborts a stage outright when it sees this marker, since
	// nothing downstream can proceed.
	ErrConnectivity = errors.New("connectivity error")
	// ErrConfiguration marks failures caused by missing or invalid settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups that came back empty.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
