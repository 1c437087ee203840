package critique

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xhad/webqa/internal/types"
	"github.com/xhad/webqa/pkg/llm"
	"github.com/xhad/webqa/pkg/processor"
	"go.uber.org/zap"
)

var bulletPrefix = regexp.MustCompile(`^[-*\d.]+`)

// Mode tells the combiner what shape the question expects.
type Mode struct {
	List  bool
	Count bool
}

type Combiner struct {
	lm     types.LanguageModel
	logger *zap.Logger
}

func NewCombiner(lm types.LanguageModel, logger *zap.Logger) *Combiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Combiner{lm: lm, logger: logger}
}

// Combine merges partial answers. A single answer is returned as is. List and
// count questions get one deduplicated item per line (count returns the
// number of items); other questions are synthesized by the model.
func (c *Combiner) Combine(ctx context.Context, question string, answers []string, mode Mode) string {
	if len(answers) == 1 {
		return answers[0]
	}
	if mode.List || mode.Count {
		items := c.items(ctx, question, answers)
		if mode.Count {
			return strconv.Itoa(len(items))
		}
		lines := make([]string, len(items))
		for i, item := range items {
			lines[i] = "- " + item
		}
		return strings.Join(lines, "\n")
	}

	var b strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&b, "part%d: %s\n\n", i+1, a)
	}
	return c.lm.Complete(ctx,
		"Several partial answers to the same question were written from different sources:\n\n"+b.String(),
		fmt.Sprintf("Combine the parts into a single answer to the question: %s\nKeep every relevant detail and do not mention the parts.", question))
}

// Func binds the combiner to one question for use during critique.
func (c *Combiner) Func(question string, mode Mode) CombineFunc {
	return func(ctx context.Context, responses []string) string {
		return c.Combine(ctx, question, responses, mode)
	}
}

func (c *Combiner) items(ctx context.Context, question string, answers []string) []string {
	var collected []string
	for _, a := range answers {
		if strings.Contains(a, "None") || strings.Contains(a, "NONE") || llm.IsErrorText(a) {
			continue
		}
		reply := c.lm.Complete(ctx,
			"Answer:\n"+a,
			fmt.Sprintf("Rewrite the answer above as a bullet list of the items that answer the question: %s\nOne item per line, no other text.", question))
		if llm.IsErrorText(reply) {
			c.logger.Warn("skipping answer that could not be reformatted")
			continue
		}
		for _, line := range strings.Split(reply, "\n") {
			line = strings.TrimSpace(bulletPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
			if line != "" {
				collected = append(collected, line)
			}
		}
	}
	return processor.Dedup(collected)
}
