package records

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeTag trims and case-folds a tag so uniqueness checks are
// case-insensitive. Returns empty string for whitespace-only input.
func NormalizeTag(tag string) string {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return ""
	}
	return cases.Fold().String(trimmed)
}

// NormalizeTags normalizes every tag, dropping empties and case-insensitive
// duplicates while preserving first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// HasTag reports whether tags contains a case-insensitive match for tag.
func HasTag(tags []string, tag string) bool {
	normalized := NormalizeTag(tag)
	if normalized == "" {
		return false
	}
	for _, existing := range tags {
		if NormalizeTag(existing) == normalized {
			return true
		}
	}
	return false
}

// MergeTags appends incoming tags into existing, normalizing and skipping
// duplicates. The existing slice is not mutated.
func MergeTags(existing []string, incoming ...string) []string {
	merged := append(append([]string(nil), existing...), incoming...)
	return NormalizeTags(merged)
}

// RemoveTag returns tags without the case-insensitive match for tag and
// reports whether anything was removed.
func RemoveTag(tags []string, tag string) ([]string, bool) {
	normalized := NormalizeTag(tag)
	if normalized == "" {
		return tags, false
	}
	out := make([]string, 0, len(tags))
	removed := false
	for _, existing := range tags {
		if NormalizeTag(existing) == normalized {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	return out, removed
}
