package processor

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/xhad/webqa/pkg/analyzer"
)

// Divider separates list items packed into the same chunk.
const Divider = "\n______\n"

// ErrNoChunks is returned when a strategy produces nothing to work on.
var ErrNoChunks = errors.New("chunking produced no chunks")

type ProcessorConfig struct {
	WindowSize int
	Stride     int
}

// Source is a decomposed document the hierarchical strategy can walk.
type Source interface {
	Root() analyzer.NodeID
	ElementChildren(id analyzer.NodeID) []analyzer.NodeID
	Render(id analyzer.NodeID) string
	FullText() string
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.WindowSize == 0 {
		config.WindowSize = 2000
	}
	if config.Stride < 0 || config.Stride > config.WindowSize {
		config.Stride = config.WindowSize
	}

	return Processor{
		config: config,
	}
}

func (p *Processor) Config() ProcessorConfig {
	return p.config
}

// Split windows plain text.
func (p *Processor) Split(text string) []string {
	return SplitTextByCharLen(text, p.config.WindowSize, p.config.Stride)
}

// SplitTextByCharLen cuts text into windows of at most window characters.
// Window ends snap back to just after the last newline inside the window, and
// the next window starts stride characters later, snapped back the same way.
// A stride of zero starts the next window where the previous one ended.
func SplitTextByCharLen(text string, window, stride int) []string {
	if window <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	n := len(runes)

	var chunks []string
	start := 0
	for start+window <= n {
		end := start + window
		for end > start && runes[end-1] != '\n' {
			end--
		}
		if end <= start {
			end = start + window
		}
		chunks = append(chunks, string(runes[start:end]))

		if stride == 0 {
			start = end
			continue
		}
		prev := start
		start += stride
		for start > prev && runes[start-1] != '\n' {
			start--
		}
		if start <= prev {
			start = prev + stride
		}
	}
	if start < n {
		chunks = append(chunks, string(runes[start:]))
	}
	return chunks
}

// BuildSplit chunks a document along its structure. Subtrees that render
// within the window are kept whole, larger leaves fall back to flat windowing,
// and the resulting pieces are packed into overlapping windows.
func (p *Processor) BuildSplit(src Source) []string {
	full := src.FullText()
	if charLen(full) < p.config.WindowSize {
		return []string{full}
	}
	return p.pack(p.split(src, src.Root()))
}

func (p *Processor) split(src Source, id analyzer.NodeID) []string {
	children := src.ElementChildren(id)
	if len(children) == 0 {
		text := src.Render(id)
		if charLen(text) > p.config.WindowSize {
			return p.Split(text)
		}
		return []string{text}
	}

	var parts []string
	for _, c := range children {
		parts = append(parts, p.split(src, c)...)
	}
	if text := src.Render(id); charLen(text) <= p.config.WindowSize {
		return []string{text}
	}
	return parts
}

// pack concatenates pieces into windows. A new window opens whenever the
// text accumulated since the last opening would pass the stride; every open
// window keeps taking pieces until one no longer fits, and then stays closed.
func (p *Processor) pack(pieces []string) []string {
	type window struct {
		text   strings.Builder
		size   int
		closed bool
	}
	stride := p.config.Stride
	if stride == 0 {
		stride = p.config.WindowSize
	}
	windows := []*window{{}}
	sinceOpen := 0

	for _, piece := range pieces {
		size := charLen(piece)
		if size == 0 {
			continue
		}
		for _, w := range windows {
			if w.closed {
				continue
			}
			if w.size+size > p.config.WindowSize {
				w.closed = true
				continue
			}
			w.text.WriteString(piece)
			w.size += size
		}

		if sinceOpen+size <= stride {
			sinceOpen += size
			continue
		}
		w := &window{}
		w.text.WriteString(piece)
		w.size = size
		windows = append(windows, w)
		sinceOpen = size
	}

	chunks := make([]string, 0, len(windows))
	for _, w := range windows {
		if w.size > 0 {
			chunks = append(chunks, w.text.String())
		}
	}
	return chunks
}

// BuildListsSplit packs list items into chunks joined by Divider. Items that
// are larger than the window on their own close the running chunk and are
// dropped. Chunks contained in another chunk are removed.
func (p *Processor) BuildListsSplit(lists [][]string) ([]string, error) {
	var chunks []string
	for _, items := range lists {
		var cur string
		for _, item := range items {
			if charLen(item) > p.config.WindowSize {
				if cur != "" {
					chunks = append(chunks, cur)
					cur = ""
				}
				continue
			}
			switch {
			case cur == "":
				cur = item
			case charLen(cur)+charLen(Divider)+charLen(item) > p.config.WindowSize:
				chunks = append(chunks, cur)
				cur = item
			default:
				cur += Divider + item
			}
		}
		if cur != "" {
			chunks = append(chunks, cur)
		}
	}

	chunks = Dedup(chunks)
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	return chunks, nil
}

// Dedup removes every entry that is a substring of another entry. Exact
// duplicates keep their first occurrence.
func Dedup(items []string) []string {
	out := append([]string(nil), items...)
	for i := 0; i < len(out); {
		contained := false
		for j := range out {
			if j == i || !strings.Contains(out[j], out[i]) {
				continue
			}
			if out[j] != out[i] || j < i {
				contained = true
				break
			}
		}
		if contained {
			out = append(out[:i], out[i+1:]...)
			continue
		}
		i++
	}
	return out
}

func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
