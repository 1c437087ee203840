package models

// Hyperlink is an anchor found on a page, resolved to an absolute URL.
type Hyperlink struct {
	Text string
	URL  string
}

func (h Hyperlink) String() string {
	return h.Text + " (" + h.URL + ")"
}

// FrontierEntry is a URL waiting to be researched.
type FrontierEntry struct {
	URL     string
	Visited bool
}

// PageRecord is what a session keeps about a page once it has been answered.
type PageRecord struct {
	ID      string   `json:"id"`
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Answers []string `json:"answers,omitempty"`
}

// ChunkAnswer is a partial answer drafted from a single chunk.
type ChunkAnswer struct {
	Index    int
	Chunk    string
	Response string
}
