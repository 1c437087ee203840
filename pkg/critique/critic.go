package critique

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/webqa/internal/models"
	"github.com/xhad/webqa/internal/types"
	"go.uber.org/zap"
)

const DefaultAttempts = 3

// ErrExhausted means the critic never produced a readable verdict.
var ErrExhausted = errors.New("critique attempts exhausted")

const critiqueSystem = `You review an answer that was assembled from answers to separate chunks of a webpage.
If the answer is correct and complete, reply exactly [YES].
Otherwise reply [NO], then the numbers of the chunk answers that must be redone in square brackets, then your advice.
Example: [NO] [1, 3] the opening hours on the second page are missing`

// Draft is an answer together with the chunk answers it was built from.
type Draft struct {
	Question string
	Text     string
	Chunks   []models.ChunkAnswer
	Verdict  *Verdict
	Revised  bool
}

// Responses returns the chunk answers in order.
func (d Draft) Responses() []string {
	out := make([]string, len(d.Chunks))
	for i, c := range d.Chunks {
		out[i] = c.Response
	}
	return out
}

// CombineFunc merges chunk answers into a single answer.
type CombineFunc func(ctx context.Context, responses []string) string

type Critic struct {
	lm       types.LanguageModel
	attempts int
	logger   *zap.Logger
}

func NewCritic(lm types.LanguageModel, attempts int, logger *zap.Logger) *Critic {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Critic{lm: lm, attempts: attempts, logger: logger}
}

// Judge asks for a verdict, retrying unreadable replies.
func (c *Critic) Judge(ctx context.Context, d Draft) (Verdict, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nAnswer: %s\n\nChunk answers:\n", d.Question, d.Text)
	for i, r := range d.Responses() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	user := b.String()

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Verdict{}, err
		}
		reply := c.lm.Complete(ctx, critiqueSystem, user)
		v, err := ParseVerdict(reply)
		if err == nil {
			err = v.Check(len(d.Chunks))
		}
		if err == nil {
			return v, nil
		}
		lastErr = err
		c.logger.Warn("unreadable verdict", zap.Int("attempt", attempt), zap.Error(err))
	}
	return Verdict{}, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

// Refine runs one critique cycle. On rejection only the flagged chunks are
// answered again, using their cached chunk text, previous answer and the
// critic's advice; the answer is then recombined from the full chunk set.
func (c *Critic) Refine(ctx context.Context, d Draft, combine CombineFunc) (Draft, error) {
	v, err := c.Judge(ctx, d)
	if err != nil {
		return d, err
	}
	d.Verdict = &v
	if v.Accept {
		return d, nil
	}

	c.logger.Info("revising draft", zap.Ints("chunks", v.Flagged), zap.String("advice", v.Advice))
	chunks := append([]models.ChunkAnswer(nil), d.Chunks...)
	for _, i := range v.Flagged {
		system := fmt.Sprintf("Webpage chunk:\n%s\n\nYour previous answer:\n%s\n\nReviewer advice:\n%s\n\nAnswer the question again using only the chunk.",
			chunks[i].Chunk, chunks[i].Response, v.Advice)
		chunks[i].Response = c.lm.Complete(ctx, system, d.Question)
	}

	d.Chunks = chunks
	d.Text = combine(ctx, d.Responses())
	d.Revised = true
	return d, nil
}
