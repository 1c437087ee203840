package research

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/xhad/webqa/internal/models"
	"github.com/xhad/webqa/pkg/critique"
	"github.com/xhad/webqa/pkg/processor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const answerSystem = `Here is part of the webpage titled %q:

%s

Answer the user's question using only this part of the webpage. If it does not contain the answer, reply NONE.`

// answerChunks drafts one answer per chunk, combines them and runs the
// critique cycle unless it is disabled.
func (r *Researcher) answerChunks(ctx context.Context, s *Session, chunks []string, mode critique.Mode, branch string) (string, error) {
	chunks = slices.DeleteFunc(chunks, func(c string) bool {
		return strings.TrimSpace(c) == ""
	})
	if len(chunks) == 0 {
		return "", processor.ErrNoChunks
	}
	p := s.current
	q := s.Profile.Question

	answers := make([]models.ChunkAnswer, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			answers[i] = models.ChunkAnswer{
				Index:    i,
				Chunk:    chunk,
				Response: r.deps.LM.Complete(gctx, fmt.Sprintf(answerSystem, p.doc.Title, chunk), q),
			}
			s.emit(StateAnswering, p.url, fmt.Sprintf("%s: drafted %d/%d", branch, i+1, len(chunks)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	d := critique.Draft{Question: q, Chunks: answers}
	d.Text = r.combiner.Combine(ctx, q, d.Responses(), mode)
	if r.config.DisableCritique {
		return d.Text, nil
	}

	d, err := r.critic.Refine(ctx, d, r.combiner.Func(q, mode))
	if err != nil {
		return "", fmt.Errorf("critique of %s answer for %s: %w", branch, p.url, err)
	}
	if d.Revised {
		r.logger.Info("answer revised", zap.String("url", p.url), zap.String("branch", branch), zap.Ints("chunks", d.Verdict.Flagged))
	}
	return d.Text, nil
}

func newID() string {
	return uuid.NewString()
}
