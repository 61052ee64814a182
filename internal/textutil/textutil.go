// Package textutil provides token sanitization and recording file naming.
package textutil

import (
	"regexp"
	"strings"
	"time"
)

// nonWordPattern matches every character that is unsafe in a file name
// segment. Each occurrence is replaced individually so the output length
// tracks the input.
var nonWordPattern = regexp.MustCompile(`\W`)

const timestampLayout = "20060102T150405"

// SanitizeToken replaces every non-word character with an underscore.
func SanitizeToken(value string) string {
	return nonWordPattern.ReplaceAllString(strings.TrimSpace(value), "_")
}

// RecordingBaseName derives the file name stem for a finished recording from
// the order code, the operator name, and the session start time.
func RecordingBaseName(order, employee string, at time.Time) string {
	orderPart := SanitizeToken(order)
	if orderPart == "" {
		orderPart = "order"
	}
	employeePart := SanitizeToken(employee)
	if employeePart == "" {
		employeePart = "operator"
	}
	return orderPart + "__" + employeePart + "__" + at.Format(timestampLayout)
}

// RecordingFileName appends the container extension to the base name.
func RecordingFileName(order, employee string, at time.Time, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "mp4"
	}
	return RecordingBaseName(order, employee, at) + "." + ext
}
