package analyzer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/webqa/internal/models"
)

var ErrNoBody = errors.New("document has no body")

type Options struct {
	ListThreshold int
	Renderer      *Renderer
}

// Document is a cleaned, decomposed web page.
type Document struct {
	URL      string
	Title    string
	Tree     *Tree
	Body     NodeID
	Header   *Region
	Footer   *Region
	Sidebars []Region
	Lists    []Region
	Links    []models.Hyperlink
	Markdown string

	renderer *Renderer
	frozen   bool
	cache    map[NodeID]string
}

// Analyze parses raw HTML and runs the cleaning pipeline: scripts and styles,
// hidden elements, header, footer, sidebars, then repeated-structure
// detection. Hyperlinks are collected before anything is removed.
func Analyze(raw, baseURL string, opts Options) (*Document, error) {
	if opts.Renderer == nil {
		opts.Renderer = NewRenderer()
	}

	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.Join(lines, " ")))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style").Remove()

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return nil, ErrNoBody
	}

	d := &Document{
		URL:      baseURL,
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		Tree:     NewTree(),
		Links:    extractLinks(doc, baseURL),
		renderer: opts.Renderer,
		cache:    make(map[NodeID]string),
	}
	d.Body = d.Tree.FromHTML(body.Nodes[0])

	d.stripHidden()
	d.Header = d.extractLandmark(RegionHeader)
	d.Footer = d.extractLandmark(RegionFooter)
	d.extractSidebars()

	// the tree is no longer mutated past this point
	d.frozen = true
	d.GetLists(opts.ListThreshold)
	d.Markdown = d.Render(d.Body)

	return d, nil
}

// Render returns the markdown of the subtree rooted at id.
func (d *Document) Render(id NodeID) string {
	if !d.frozen {
		return d.renderer.Markdown(d.Tree.HTML(id))
	}
	if s, ok := d.cache[id]; ok {
		return s
	}
	s := d.renderer.Markdown(d.Tree.HTML(id))
	d.cache[id] = s
	return s
}

func (d *Document) Root() NodeID {
	return d.Body
}

func (d *Document) ElementChildren(id NodeID) []NodeID {
	return d.Tree.ElementChildren(id)
}

func (d *Document) FullText() string {
	return d.Markdown
}

// LinkLines formats hyperlinks as "text (url)".
func (d *Document) LinkLines() []string {
	out := make([]string, len(d.Links))
	for i, l := range d.Links {
		out[i] = l.String()
	}
	return out
}

func extractLinks(doc *goquery.Document, baseURL string) []models.Hyperlink {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var links []models.Hyperlink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if !u.IsAbs() {
			if base == nil {
				return
			}
			u = base.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}

		links = append(links, models.Hyperlink{
			Text: strings.Join(strings.Fields(s.Text()), " "),
			URL:  u.String(),
		})
	})
	return links
}
