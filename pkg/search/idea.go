package search

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// IdeasPrefix is the rel_path prefix that routes a document to the idea
// parser instead of the markdown chunker.
const IdeasPrefix = ".ideas/"

// IsIdeaPath reports whether relPath should be parsed as an idea log.
func IsIdeaPath(relPath string) bool {
	return strings.HasPrefix(relPath, IdeasPrefix)
}

var ideaMarkerRe = regexp.MustCompile(`^\[//\]: # \(idea:id=(\S+) created_at=(\S+)\)\s*$`)
var refRe = regexp.MustCompile(`\[([^\]]+)\]\((oc://[^)]+)\)`)

// DocRef is a known document, indexed both by stable id and by rel_path so
// idea reference links can be resolved against either form.
type DocRef struct {
	StableID string
	RelPath  string
}

// ChunkIdeas parses relPath's content as a sequence of idea entries
// delimited by "[//]: # (idea:id=... created_at=...)" marker lines, each
// becoming one Chunk with DocType "idea".
func ChunkIdeas(relPath, content string, byStableID, byRelPath map[string]DocRef) []Chunk {
	lines := strings.Split(content, "\n")

	type rawEntry struct {
		id        string
		createdAt string
		body      strings.Builder
	}
	var entries []*rawEntry
	var current *rawEntry

	for _, line := range lines {
		if m := ideaMarkerRe.FindStringSubmatch(line); m != nil {
			current = &rawEntry{id: m[1], createdAt: m[2]}
			entries = append(entries, current)
			continue
		}
		if current != nil {
			current.body.WriteString(line)
			current.body.WriteByte('\n')
		}
	}

	chunks := make([]Chunk, 0, len(entries))
	for _, e := range entries {
		body := strings.TrimSpace(e.body.String())
		body = appendReferenceSummary(body, byStableID, byRelPath)

		entryDate := e.createdAt
		if len(entryDate) > 10 {
			entryDate = entryDate[:10]
		}

		chunks = append(chunks, Chunk{
			ID:             relPath + "#" + e.id,
			FilePath:       relPath,
			Content:        body,
			SectionTitle:   firstNonEmptyLine(e.body.String()),
			DocType:        "idea",
			EntryID:        e.id,
			EntryDate:      entryDate,
			EntryCreatedAt: e.createdAt,
		})
	}
	return chunks
}

func firstNonEmptyLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// appendReferenceSummary scans body for "[label](oc://...)" links, resolves
// each against the known-doc maps, and appends a "引用:" trailer listing
// what each reference actually points to.
func appendReferenceSummary(body string, byStableID, byRelPath map[string]DocRef) string {
	matches := refRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return body
	}

	var lines []string
	seen := make(map[string]bool)
	for _, m := range matches {
		label, href := m[1], m[2]
		desc, ok := describeHref(href, byStableID, byRelPath)
		if !ok || seen[href] {
			continue
		}
		seen[href] = true
		lines = append(lines, fmt.Sprintf("- %s: %s", label, desc))
	}
	if len(lines) == 0 {
		return body
	}
	return body + "\n\n引用:\n" + strings.Join(lines, "\n")
}

// describeHref resolves an "oc://doc/{stable_id}[?path=...]" or
// "oc://idea/{entry_id}" href into a human-readable description.
func describeHref(href string, byStableID, byRelPath map[string]DocRef) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "oc" {
		return "", false
	}

	switch u.Host {
	case "doc":
		id := strings.TrimPrefix(u.Path, "/")
		if ref, ok := byStableID[id]; ok {
			return ref.RelPath, true
		}
		if path := u.Query().Get("path"); path != "" {
			if decoded, err := url.QueryUnescape(path); err == nil {
				if ref, ok := byRelPath[decoded]; ok {
					return ref.RelPath, true
				}
				return decoded, true
			}
		}
		return id, true
	case "idea":
		return "idea#" + strings.TrimPrefix(u.Path, "/"), true
	default:
		return "", false
	}
}
