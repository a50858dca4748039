package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateOutputFormat checks format against the formats a command can render.
// An empty list accepts anything.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// JoinSkills flattens repeated skill flags into the comma separated form the
// scorer accepts. Blank entries and case-insensitive duplicates are dropped.
func JoinSkills(values []string) string {
	var skills []string
	seen := make(map[string]bool)
	for _, value := range values {
		for part := range strings.SplitSeq(value, ",") {
			skill := strings.TrimSpace(part)
			key := strings.ToLower(skill)
			if skill == "" || seen[key] {
				continue
			}
			seen[key] = true
			skills = append(skills, skill)
		}
	}
	return strings.Join(skills, ", ")
}
