package catalog

import "strings"

// NormalizeFolderPath canonicalizes a user-supplied folder path into relative
// POSIX segments. Empty, ".", and "/" all collapse to the root ("").
func NormalizeFolderPath(s string) string {
	return normalizeSegments(s)
}

// NormalizeDocPath canonicalizes a document path the same way a folder path
// is normalized, but a document can never resolve to the root.
func NormalizeDocPath(s string) (string, error) {
	normalized := normalizeSegments(s)
	if normalized == "" {
		return "", NewError(KindInvalidInput, "", "document path cannot be root")
	}
	return normalized, nil
}

func normalizeSegments(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "." || trimmed == "/" {
		return ""
	}
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")
	parts := strings.Split(trimmed, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		segments = append(segments, p)
	}
	return strings.Join(segments, "/")
}

// ParentRelPath returns the parent rel_path of p and whether p has a parent
// at all. The root has no parent.
func ParentRelPath(p string) (string, bool) {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "", false
	}
	return p[:idx], true
}

// NameOf returns the last path segment (the file/folder name) of a rel_path.
func NameOf(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// validateSegment rejects names that are empty or contain a path separator.
func validateSegment(name string) error {
	if name == "" {
		return NewError(KindInvalidInput, "", "name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return NewError(KindInvalidInput, name, "name must be a single path segment")
	}
	return nil
}

// escapeLike escapes SQL LIKE metacharacters ('%', '_', and the escape
// character itself) so a rel_path can never be misinterpreted as a pattern.
func escapeLike(s string) string {
	replacer := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return replacer.Replace(s)
}
