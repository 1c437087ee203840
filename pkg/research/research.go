// Package research answers a question by walking web pages until the model
// decides it has seen enough.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/webqa/internal/models"
	"github.com/xhad/webqa/internal/types"
	"github.com/xhad/webqa/pkg/analyzer"
	"github.com/xhad/webqa/pkg/critique"
	"github.com/xhad/webqa/pkg/llm"
	"github.com/xhad/webqa/pkg/oracle"
	"github.com/xhad/webqa/pkg/processor"
	"github.com/xhad/webqa/pkg/scraper"
	"go.uber.org/zap"
)

// ErrNoAnswer is returned when no visited page produced an answer.
var ErrNoAnswer = errors.New("no page produced an answer")

var errEmptyPage = errors.New("page has no content")

const contractionsSystem = "Remove all the contractions in the user's input. Reply with the rewritten input only.\n\ne.g.\nWhat's -> What is\nWho's -> Who is"

type ResearchConfig struct {
	MaxPages         int
	SearchResults    int
	LinkBatchSize    int
	Concurrency      int
	DisableCritique  bool
	CritiqueAttempts int
	FailFast         bool

	Narrow        processor.ProcessorConfig
	Broad         processor.ProcessorConfig
	SummaryWindow int
	ListWindow    int
	ListThreshold int

	RemoveSelectors []string
	Filter          scraper.URLFilter
}

// Dependencies are the collaborators a Researcher talks to. Grammar and
// Memory are optional.
type Dependencies struct {
	LM      types.LanguageModel
	Fetcher types.PageFetcher
	Search  types.SearchProvider
	Grammar types.GrammarChecker
	Memory  types.Memory
}

// Researcher runs questions. It is safe for concurrent use; each Ask gets its
// own Session.
type Researcher struct {
	config   ResearchConfig
	deps     Dependencies
	oracle   *oracle.Oracle
	critic   *critique.Critic
	combiner *critique.Combiner
	logger   *zap.Logger
}

// Result is the outcome of one question.
type Result struct {
	SessionID string
	Question  string
	Answer    string
	Pages     []models.PageRecord
	Visited   []string
}

func NewWithConfig(config ResearchConfig, deps Dependencies, logger *zap.Logger) (*Researcher, error) {
	if deps.LM == nil || deps.Fetcher == nil || deps.Search == nil {
		return nil, errors.New("language model, fetcher and search provider are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if config.MaxPages == 0 {
		config.MaxPages = 1
	}
	if config.SearchResults == 0 {
		config.SearchResults = 5
	}
	if config.LinkBatchSize == 0 {
		config.LinkBatchSize = 50
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Narrow.WindowSize == 0 {
		config.Narrow = processor.ProcessorConfig{WindowSize: 2000, Stride: 1800}
	}
	if config.Broad.WindowSize == 0 {
		config.Broad = processor.ProcessorConfig{WindowSize: 10000, Stride: 8000}
	}
	if config.SummaryWindow == 0 {
		config.SummaryWindow = 20000
	}
	if config.ListWindow == 0 {
		config.ListWindow = 2000
	}
	if config.ListThreshold == 0 {
		config.ListThreshold = analyzer.DefaultListThreshold
	}
	if len(config.Filter.AllowedExtensions) == 0 {
		config.Filter = scraper.NewURLFilter(config.Filter.IgnorePatterns, nil)
	}

	return &Researcher{
		config:   config,
		deps:     deps,
		oracle:   oracle.New(deps.LM, logger),
		critic:   critique.NewCritic(deps.LM, config.CritiqueAttempts, logger),
		combiner: critique.NewCombiner(deps.LM, logger),
		logger:   logger,
	}, nil
}

func (r *Researcher) Config() ResearchConfig {
	return r.config
}

// Ask researches question and returns the final answer. progress may be nil.
func (r *Researcher) Ask(ctx context.Context, question string, progress ProgressFunc) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("empty question")
	}

	s := newSession(question, progress)
	logger := r.logger.With(zap.String("session", s.ID))
	logger.Info("research started", zap.String("question", question))

	var answer string
	state := StatePreparing
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.emit(state, s.currentURL(), "")

		var err error
		step := state
		switch step {
		case StatePreparing:
			state, err = r.prepare(ctx, s)
		case StateSearching:
			state, err = r.search(ctx, s)
		case StateEvaluating:
			state, err = r.evaluate(ctx, s)
		case StateExpanding:
			state = r.expand(ctx, s)
		case StateAnswering:
			state, err = r.answer(ctx, s)
		case StateAggregating:
			state = r.aggregate(ctx, s)
		case StateCheckSufficiency:
			state, err = r.checkSufficiency(ctx, s)
		case StateFinalizing:
			answer, err = r.finalize(ctx, s)
			state = StateDone
		}
		if err != nil {
			logger.Error("research failed", zap.Stringer("state", step), zap.Error(err))
			return nil, err
		}
	}
	s.emit(StateDone, "", "")

	logger.Info("research finished", zap.Int("pages", len(s.Pages)), zap.Strings("visited", s.Visited))
	return &Result{
		SessionID: s.ID,
		Question:  s.Profile.Question,
		Answer:    answer,
		Pages:     s.Pages,
		Visited:   s.Visited,
	}, nil
}

func (r *Researcher) prepare(ctx context.Context, s *Session) (State, error) {
	q := s.Question

	if r.deps.Grammar != nil {
		corrected, err := r.deps.Grammar.Correct(ctx, q)
		if err != nil {
			r.logger.Warn("grammar check failed", zap.Error(err))
		} else if corrected != "" {
			q = corrected
		}
	}

	q = r.rewrite(ctx, contractionsSystem, q, q)

	needCount, err := r.oracle.AskBinary(ctx, "", fmt.Sprintf(
		`Does this question start with a phrase like "Find the number of", "Count the number of", "How many" or "What is the number of"? Question: %s`, q))
	if err != nil {
		return StateDone, fmt.Errorf("count check: %w", err)
	}
	if needCount == oracle.Yes {
		q = r.rewrite(ctx, "", fmt.Sprintf(
			`In this sentence, replace a phrase like "Find the number of", "Count the number of", "How many" or "What is the number of" with a single "Find". Reply with the sentence only. Sentence: %s`, q), q)
	}

	isList, err := r.oracle.AskBinary(ctx, "", fmt.Sprintf(`Would the answer to the question "%s" be a list?`, q))
	if err != nil {
		return StateDone, fmt.Errorf("list check: %w", err)
	}

	narrow, err := r.oracle.AskBinary(ctx, "The user's question would be related to a webpage.",
		fmt.Sprintf("Question: %s\nIs this question about one or some specific thing on the webpage?", q))
	if err != nil {
		return StateDone, fmt.Errorf("size check: %w", err)
	}

	s.Profile = Profile{
		Question:  q,
		NeedCount: needCount == oracle.Yes,
		IsList:    isList == oracle.Yes,
		Narrow:    narrow == oracle.Yes,
	}
	r.logger.Debug("question profile",
		zap.String("question", q),
		zap.Bool("need_count", s.Profile.NeedCount),
		zap.Bool("is_list", s.Profile.IsList),
		zap.Bool("narrow", s.Profile.Narrow))
	return StateSearching, nil
}

// rewrite returns the model's rewrite of a question, or fallback when the
// model failed or replied with nothing.
func (r *Researcher) rewrite(ctx context.Context, system, user, fallback string) string {
	out := strings.TrimSpace(r.deps.LM.Complete(ctx, system, user))
	if out == "" || llm.IsErrorText(out) {
		return fallback
	}
	return out
}

func (r *Researcher) search(ctx context.Context, s *Session) (State, error) {
	q := s.Profile.Question
	query := r.rewrite(ctx, "", fmt.Sprintf(`Provide the best query to search the web for the answer to the question "%s". Reply with the query only.`, q), q)
	s.Query = strings.Trim(query, `"`)

	urls, err := r.deps.Search.Search(ctx, s.Query, r.config.SearchResults)
	if err != nil {
		return StateDone, fmt.Errorf("search %q: %w", s.Query, err)
	}
	s.seed(urls)
	s.emit(StateSearching, "", fmt.Sprintf("%d results for %q", len(urls), s.Query))
	return StateEvaluating, nil
}

func (r *Researcher) evaluate(ctx context.Context, s *Session) (State, error) {
	s.current = nil
	for {
		if s.processed >= r.config.MaxPages {
			return StateFinalizing, nil
		}
		entry, ok := s.pop()
		if !ok {
			return StateFinalizing, nil
		}
		if entry.Visited || s.visited[entry.URL] {
			continue
		}
		s.markVisited(entry.URL)
		s.processed++
		s.emit(StateEvaluating, entry.URL, "fetching")

		p, err := r.load(ctx, entry.URL)
		if err != nil {
			if ctx.Err() != nil || r.config.FailFast {
				return StateDone, err
			}
			r.logger.Warn("skipping page", zap.String("url", entry.URL), zap.Error(err))
			continue
		}

		relevant, err := r.oracle.AskBinary(ctx,
			fmt.Sprintf("Here is some information about one webpage:\n\nTitle: %s\n\nSummary: %s", p.doc.Title, p.summary),
			fmt.Sprintf("Do you think the content on this webpage may contain information to answer the question: %s", s.Profile.Question))
		if err != nil {
			return StateDone, fmt.Errorf("relevance check for %s: %w", entry.URL, err)
		}
		if relevant == oracle.No {
			r.logger.Info("page not relevant", zap.String("url", entry.URL))
			continue
		}

		s.current = p
		return StateExpanding, nil
	}
}

// load fetches, analyzes and summarizes a page.
func (r *Researcher) load(ctx context.Context, url string) (*page, error) {
	raw, err := r.deps.Fetcher.Fetch(ctx, url, types.FetchOptions{
		RemoveSelectors:   r.config.RemoveSelectors,
		ContinueOnFailure: !r.config.FailFast,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &scraper.FetchError{URL: url, Err: errEmptyPage}
	}

	doc, err := analyzer.Analyze(raw, url, analyzer.Options{ListThreshold: r.config.ListThreshold})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", url, err)
	}

	return &page{url: url, doc: doc, summary: r.summarize(ctx, doc)}, nil
}

// summarize condenses each large chunk, then condenses the summaries.
func (r *Researcher) summarize(ctx context.Context, doc *analyzer.Document) string {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		WindowSize: r.config.SummaryWindow,
		Stride:     r.config.SummaryWindow,
	})
	chunks := p.BuildSplit(doc)

	const user = "Summarize the content of this webpage in one short paragraph."
	switch len(chunks) {
	case 0:
		return ""
	case 1:
		return r.deps.LM.Complete(ctx, summarySystem(doc.Title, chunks[0]), user)
	}

	summaries := make([]string, len(chunks))
	for i, chunk := range chunks {
		summaries[i] = r.deps.LM.Complete(ctx, summarySystem(doc.Title, chunk), user)
	}
	return r.deps.LM.Complete(ctx, summarySystem(doc.Title, strings.Join(summaries, processor.Divider)), user)
}

func summarySystem(title, content string) string {
	return fmt.Sprintf("Title of the webpage: %s\n\nContent of the webpage:\n%s", title, content)
}

func (r *Researcher) expand(ctx context.Context, s *Session) State {
	p := s.current

	var lines []string
	for _, link := range p.doc.Links {
		if r.config.Filter.Allow(link.URL) {
			lines = append(lines, link.String())
		}
	}

	for start := 0; start < len(lines); start += r.config.LinkBatchSize {
		end := min(start+r.config.LinkBatchSize, len(lines))
		system := fmt.Sprintf("Here is some information about a webpage:\n\nURL of the webpage: %s\n\nTitle of the webpage: %s\n\nSummary of the webpage: %s\n\nHere are some hyperlinks found on this webpage:\n%s",
			p.url, p.doc.Title, p.summary, strings.Join(lines[start:end], "\n"))
		user := fmt.Sprintf(`I am trying to find the answer to the question "%s". Is reading this webpage enough to answer it, or are any of these hyperlinks necessary to answer the question?`, s.Profile.Question)

		found := oracle.FindLinks(r.oracle.Ask(ctx, system, user))
		if len(found) > 0 {
			r.logger.Debug("following links", zap.String("url", p.url), zap.Strings("links", found))
			s.pushFront(found)
		}
	}
	s.emit(StateExpanding, p.url, fmt.Sprintf("%d pages waiting", len(s.Frontier)))
	return StateAnswering
}

func (r *Researcher) answer(ctx context.Context, s *Session) (State, error) {
	p := s.current
	mode := critique.Mode{List: s.Profile.IsList}

	window := r.config.Broad
	if s.Profile.Narrow {
		window = r.config.Narrow
	}
	proc := processor.NewWithConfig(window)

	text, err := r.answerChunks(ctx, s, proc.BuildSplit(p.doc), mode, "page")
	if errors.Is(err, processor.ErrNoChunks) {
		r.logger.Warn("page has nothing to answer from", zap.String("url", p.url))
		return StateEvaluating, nil
	}
	if err != nil {
		return StateDone, err
	}

	if s.Profile.Narrow {
		listText, err := r.answerLists(ctx, s, mode)
		switch {
		case err == nil:
			text = r.combiner.Combine(ctx, s.Profile.Question, []string{text, listText}, mode)
		case ctx.Err() != nil:
			return StateDone, ctx.Err()
		default:
			r.logger.Warn("skipping list regions", zap.String("url", p.url), zap.Error(err))
		}
	}

	p.answer = text
	return StateAggregating, nil
}

func (r *Researcher) answerLists(ctx context.Context, s *Session, mode critique.Mode) (string, error) {
	proc := processor.NewWithConfig(processor.ProcessorConfig{WindowSize: r.config.ListWindow})
	chunks, err := proc.BuildListsSplit(s.current.doc.ListItems())
	if err != nil {
		return "", err
	}
	return r.answerChunks(ctx, s, chunks, mode, "lists")
}

func (r *Researcher) aggregate(ctx context.Context, s *Session) State {
	p := s.current
	record := models.PageRecord{
		ID:      newID(),
		URL:     p.url,
		Title:   p.doc.Title,
		Summary: p.summary,
		Answers: []string{p.answer},
	}
	s.Pages = append(s.Pages, record)

	if r.deps.Memory != nil {
		if err := r.deps.Memory.Remember(ctx, s.ID, record); err != nil {
			r.logger.Warn("failed to remember page", zap.String("url", p.url), zap.Error(err))
		}
	}
	return StateCheckSufficiency
}

func (r *Researcher) checkSufficiency(ctx context.Context, s *Session) (State, error) {
	var b strings.Builder
	b.WriteString("Here is some information about one or some webpages:\n")
	for i, pr := range s.Pages {
		fmt.Fprintf(&b, "%s%d.\nTitle: %s\n\nSummary: %s", processor.Divider, i, pr.Title, pr.Summary)
	}

	enough, err := r.oracle.AskBinary(ctx, b.String(),
		fmt.Sprintf("Do you think the content on these webpages provides enough information to answer the question: %s", s.Profile.Question))
	if err != nil {
		return StateDone, fmt.Errorf("sufficiency check: %w", err)
	}
	if enough == oracle.Yes || len(s.Frontier) == 0 {
		return StateFinalizing, nil
	}
	return StateEvaluating, nil
}

func (r *Researcher) finalize(ctx context.Context, s *Session) (string, error) {
	if len(s.Pages) == 0 {
		return "", ErrNoAnswer
	}

	answers := make([]string, len(s.Pages))
	for i, pr := range s.Pages {
		answers[i] = pr.Answers[len(pr.Answers)-1]
	}

	if s.Profile.IsList {
		parts := make([]string, len(s.Pages))
		for i, pr := range s.Pages {
			parts[i] = fmt.Sprintf("Answer according to webpage %s\n%s", pr.URL, answers[i])
		}
		return strings.Join(parts, "\n\n"), nil
	}
	return r.combiner.Combine(ctx, s.Profile.Question, answers, critique.Mode{Count: s.Profile.NeedCount}), nil
}
