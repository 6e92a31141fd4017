package services

import "strings"

// ResolveRecipients computes the operational alert recipient set from the raw
// configured address string. The raw value splits on any run of whitespace,
// commas, or semicolons; entries are trimmed, deduplicated, and compared
// case-insensitively against the exclusion set. When nothing survives the
// filtering (or the raw value was empty) the fallback list is returned
// verbatim. The result is fully determined by the inputs.
func ResolveRecipients(raw string, excluded []string, fallback []string) []string {
	excludedSet := make(map[string]struct{}, len(excluded))
	for _, addr := range excluded {
		if trimmed := strings.ToLower(strings.TrimSpace(addr)); trimmed != "" {
			excludedSet[trimmed] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var resolved []string
	for _, part := range splitAddresses(raw) {
		folded := strings.ToLower(part)
		if _, ok := excludedSet[folded]; ok {
			continue
		}
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		resolved = append(resolved, part)
	}

	if len(resolved) == 0 {
		return fallback
	}
	return resolved
}

func splitAddresses(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
