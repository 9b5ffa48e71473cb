package search

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// minChunkChars is the internal post-processing threshold below which any
// chunk after the first is folded into its predecessor rather than kept
// standalone.
const minChunkChars = 50

var sentenceTerminators = []string{"。", "！", "？", ".\n", "!\n", "?\n", ". ", "! ", "? "}
var clauseTerminators = []string{"，", "；", "、", ",", ";"}

// Chunk is one unit of text produced by Chunk or ChunkIdeas, ready to be
// embedded and stored.
type Chunk struct {
	ID              string
	FilePath        string
	Content         string
	HeadingPath     string
	SectionTitle    string
	DocType         string // "" for markdown, "idea" for idea entries
	EntryID         string
	EntryDate       string
	EntryCreatedAt  string
	ChunkIndex      int
	StartLine       int
	EndLine         int
}

type headingFrame struct {
	level int
	text  string
}

// Chunker splits markdown documents into overlapping, heading-aware chunks.
type Chunker struct {
	MaxChunkChars int
	OverlapChars  int
}

// NewChunker returns a chunker configured with the resolved behavior
// defaults (Config.Behavior.ChunkSize/ChunkOverlap).
func NewChunker(maxChunkChars, overlapChars int) *Chunker {
	if maxChunkChars <= 0 {
		maxChunkChars = 1500
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	return &Chunker{MaxChunkChars: maxChunkChars, OverlapChars: overlapChars}
}

// Chunk walks relPath's markdown source with a goldmark AST and emits
// heading-aware, size-bounded chunks.
func (c *Chunker) Chunk(relPath, source string) []Chunk {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var chunks []Chunk
	var stack []headingFrame
	var buf strings.Builder
	startLine := 1
	index := 0

	currentHeadingPath := func() string {
		parts := make([]string, 0, len(stack))
		for _, f := range stack {
			if f.text != "" {
				parts = append(parts, f.text)
			}
		}
		return strings.Join(parts, " > ")
	}

	lineOf := func(n ast.Node) int {
		lines := n.Lines()
		if lines.Len() == 0 {
			return startLine
		}
		seg := lines.At(0)
		return 1 + strings.Count(string(src[:seg.Start]), "\n")
	}

	flush := func(endLine int) {
		content := buf.String()
		buf.Reset()
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return
		}
		chunks = append(chunks, c.split(relPath, trimmed, currentHeadingPath(), startLine, endLine, &index)...)
		startLine = endLine
	}

	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch node := n.(type) {
		case *ast.Heading:
			flush(lineOf(node))
			for len(stack) > 0 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			headingText := string(node.Text(src))
			stack = append(stack, headingFrame{level: node.Level, text: strings.TrimSpace(headingText)})
			startLine = lineOf(node)
			return
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.CodeSpan:
			buf.WriteByte('`')
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if t, ok := child.(*ast.Text); ok {
					buf.Write(t.Segment.Value(src))
				}
			}
			buf.WriteByte('`')
			return
		case *ast.Paragraph:
			defer buf.WriteString("\n\n")
		case *ast.ListItem:
			defer buf.WriteString("\n")
		}

		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			walk(child)
		}
	}
	walk(doc)

	endLine := 1 + strings.Count(source, "\n")
	flush(endLine)

	return mergeSmallChunks(chunks)
}

// split applies the rune-indexed split algorithm whenever text exceeds
// MaxChunkChars, assigning each emitted piece a stable "relPath#index" id.
func (c *Chunker) split(relPath, content, headingPath string, startLine, endLine int, index *int) []Chunk {
	var out []Chunk
	runes := []rune(content)

	for len(runes) > c.MaxChunkChars {
		window := runes[:c.MaxChunkChars]
		splitAt, trim := chooseSplitPoint(window)

		var piece string
		var next int
		if trim {
			piece = strings.TrimSpace(string(window[:splitAt]))
			next = splitAt - c.OverlapChars
			if next < 0 {
				next = 0
			}
		} else {
			piece = string(window[:splitAt])
			next = c.MaxChunkChars - c.OverlapChars
			if next < 0 {
				next = 0
			}
		}

		if piece != "" {
			out = append(out, Chunk{
				ID:          relPath + "#" + strconv.Itoa(*index),
				FilePath:    relPath,
				Content:     piece,
				HeadingPath: headingPath,
				ChunkIndex:  *index,
				StartLine:   startLine,
				EndLine:     endLine,
			})
			*index++
		}
		runes = runes[next:]
	}

	if remainder := strings.TrimSpace(string(runes)); remainder != "" {
		out = append(out, Chunk{
			ID:          relPath + "#" + strconv.Itoa(*index),
			FilePath:    relPath,
			Content:     remainder,
			HeadingPath: headingPath,
			ChunkIndex:  *index,
			StartLine:   startLine,
			EndLine:     endLine,
		})
		*index++
	}
	return out
}

// chooseSplitPoint returns a rune offset into window and whether the emitted
// piece/remainder should be trimmed (false only for the hard-split branch).
func chooseSplitPoint(window []rune) (int, bool) {
	s := string(window)

	if i := strings.LastIndex(s, "\n\n"); i >= 0 {
		return len([]rune(s[:i+2])), true
	}
	if idx, ok := lastIndexOfAny(s, sentenceTerminators); ok {
		return idx, true
	}
	if idx, ok := lastIndexOfAny(s, clauseTerminators); ok {
		return idx, true
	}
	for i := len(window) - 1; i >= 0; i-- {
		if isSpace(window[i]) {
			return i + 1, true
		}
	}
	return len(window), false
}

func lastIndexOfAny(s string, needles []string) (int, bool) {
	best := -1
	for _, needle := range needles {
		if i := strings.LastIndex(s, needle); i >= 0 {
			end := i + len(needle)
			if end > best {
				best = end
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return len([]rune(s[:best])), true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// mergeSmallChunks folds any chunk below minChunkChars into its predecessor,
// keeping a lone leading small chunk (no predecessor to merge into) as-is.
func mergeSmallChunks(chunks []Chunk) []Chunk {
	if len(chunks) < 2 {
		return chunks
	}
	out := make([]Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if len(out) > 0 && len([]rune(ch.Content)) < minChunkChars {
			prev := &out[len(out)-1]
			prev.Content = prev.Content + "\n\n" + ch.Content
			prev.EndLine = ch.EndLine
			continue
		}
		out = append(out, ch)
	}
	return out
}
