// Package oracle turns free-text model replies into typed decisions.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/xhad/webqa/internal/types"
	"go.uber.org/zap"
)

// ErrFormat is wrapped by every FormatError.
var ErrFormat = errors.New("oracle reply has no usable format")

// FormatError carries the reply that could not be parsed.
type FormatError struct {
	Reply string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q", ErrFormat, truncate(e.Reply, 120))
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

type Decision int

const (
	No Decision = iota
	Yes
)

func (d Decision) String() string {
	if d == Yes {
		return "Yes"
	}
	return "No"
}

var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// ParseDecision accepts a reply whose first word is yes or no, ignoring case
// and surrounding punctuation or markup.
func ParseDecision(reply string) (Decision, error) {
	word := strings.TrimLeftFunc(reply, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	end := strings.IndexFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end >= 0 {
		word = word[:end]
	}

	switch strings.ToLower(word) {
	case "yes":
		return Yes, nil
	case "no":
		return No, nil
	}
	return No, &FormatError{Reply: reply}
}

// Oracle asks the language model questions whose answers drive control flow.
type Oracle struct {
	lm     types.LanguageModel
	logger *zap.Logger
}

func New(lm types.LanguageModel, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{lm: lm, logger: logger}
}

// Ask returns the model's free-text reply.
func (o *Oracle) Ask(ctx context.Context, system, user string) string {
	return o.lm.Complete(ctx, system, user)
}

// AskBinary asks a yes/no question. A reply that does not start with yes or
// no is classified once more by the model; if that still cannot be parsed the
// question fails with a FormatError.
func (o *Oracle) AskBinary(ctx context.Context, system, question string) (Decision, error) {
	reply := o.lm.Complete(ctx, system, question+"\nStart your answer with \"Yes\" or \"No\".")
	if d, err := ParseDecision(reply); err == nil {
		return d, nil
	}

	o.logger.Debug("classifying free-text reply", zap.String("reply", truncate(reply, 200)))
	classified := o.lm.Complete(ctx,
		fmt.Sprintf("Question: %s\n\nAnswer: %s", question, reply),
		"Is the answer above a \"Yes\" answer or a \"No\" answer? Reply with exactly one word: Yes or No.")
	d, err := ParseDecision(classified)
	if err != nil {
		return No, fmt.Errorf("ask %q: %w", truncate(question, 80), err)
	}
	return d, nil
}

// FindLinks extracts every URL mentioned in text, in order of appearance.
// Trailing punctuation picked up from the surrounding prose is dropped.
func FindLinks(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimRight(m, ").,;:!?'\""); m != "" {
			links = append(links, m)
		}
	}
	return links
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
