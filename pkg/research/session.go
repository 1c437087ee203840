package research

import (
	"sync"

	"github.com/google/uuid"
	"github.com/xhad/webqa/internal/models"
	"github.com/xhad/webqa/pkg/analyzer"
)

// Profile is what the model decided about the question before searching.
type Profile struct {
	Question  string
	NeedCount bool
	IsList    bool
	Narrow    bool
}

// Session holds the state of one question. It is owned by a single Ask call.
type Session struct {
	ID       string
	Question string
	Profile  Profile
	Query    string
	Frontier []models.FrontierEntry
	Visited  []string
	Pages    []models.PageRecord

	visited   map[string]bool
	processed int
	current   *page

	mu       sync.Mutex
	progress ProgressFunc
}

// page is the page currently moving through the pipeline.
type page struct {
	url     string
	doc     *analyzer.Document
	summary string
	answer  string
}

func newSession(question string, progress ProgressFunc) *Session {
	if progress == nil {
		progress = func(Event) {}
	}
	return &Session{
		ID:       uuid.NewString(),
		Question: question,
		Profile:  Profile{Question: question},
		visited:  make(map[string]bool),
		progress: progress,
	}
}

func (s *Session) emit(state State, url, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress(Event{State: state, URL: url, Message: message})
}

// seed appends search results in rank order.
func (s *Session) seed(urls []string) {
	for _, u := range urls {
		s.Frontier = append(s.Frontier, models.FrontierEntry{URL: u, Visited: s.visited[u]})
	}
}

// pushFront puts urls ahead of everything already waiting, keeping their order.
func (s *Session) pushFront(urls []string) {
	entries := make([]models.FrontierEntry, 0, len(urls)+len(s.Frontier))
	for _, u := range urls {
		entries = append(entries, models.FrontierEntry{URL: u, Visited: s.visited[u]})
	}
	s.Frontier = append(entries, s.Frontier...)
}

func (s *Session) pop() (models.FrontierEntry, bool) {
	if len(s.Frontier) == 0 {
		return models.FrontierEntry{}, false
	}
	entry := s.Frontier[0]
	s.Frontier = s.Frontier[1:]
	return entry, true
}

func (s *Session) markVisited(url string) {
	s.visited[url] = true
	s.Visited = append(s.Visited, url)
}

func (s *Session) currentURL() string {
	if s.current == nil {
		return ""
	}
	return s.current.url
}
