package analyzer

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var (
	linkPattern       = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	blankLinesPattern = regexp.MustCompile(`(\n\s*){3,}`)
)

// leading characters that belong to the end of the previous line
const danglingPunctuation = "])>,.;:"

// Renderer turns HTML fragments into the markdown text the chunker works on.
type Renderer struct {
	converter *md.Converter
}

func NewRenderer() *Renderer {
	return &Renderer{converter: md.NewConverter("", true, nil)}
}

// Markdown converts an HTML fragment, drops link targets and tidies line
// breaks. Conversion failures yield the fragment's plain text.
func (r *Renderer) Markdown(fragment string) string {
	out, err := r.converter.ConvertString(fragment)
	if err != nil {
		out = fragment
	}
	out = RemoveLinks(out)
	out = FormatMarkdown(out)
	return CollapseBlankLines(out)
}

// RemoveLinks keeps link and image text and discards their targets.
func RemoveLinks(s string) string {
	return linkPattern.ReplaceAllString(s, "$1")
}

// FormatMarkdown moves punctuation that starts a line back onto the line
// before it.
func FormatMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		moved := false
		for line != "" && strings.IndexByte(danglingPunctuation, line[0]) >= 0 {
			lines[i-1] += " " + line[:1]
			line = strings.TrimSpace(line[1:])
			moved = true
		}
		if moved {
			lines[i] = line
		}
	}
	return strings.Join(lines, "\n")
}

// CollapseBlankLines reduces any run of three or more line breaks to a single
// blank line.
func CollapseBlankLines(s string) string {
	return blankLinesPattern.ReplaceAllString(s, "\n\n")
}
