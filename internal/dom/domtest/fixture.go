package domtest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domloop/internal/dom"
)

var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true,
}

// FixtureBridge derives chunk descriptors from a static HTML fixture,
// mirroring the page-side script's own chunking and XPath-assignment
// behavior closely enough to exercise the control loop against
// multi-chunk pages deterministically.
type FixtureBridge struct {
	elements  []*html.Node
	selectors []string
	chunkSize int
	seen      map[int]bool
}

// NewFixtureBridge parses fixtureHTML and groups its interactive
// elements, in document order, into chunks of chunkSize.
func NewFixtureBridge(fixtureHTML string, chunkSize int) (*FixtureBridge, error) {
	if chunkSize <= 0 {
		chunkSize = 40
	}
	doc, err := html.Parse(strings.NewReader(fixtureHTML))
	if err != nil {
		return nil, fmt.Errorf("domtest: parse fixture: %w", err)
	}

	fb := &FixtureBridge{chunkSize: chunkSize, seen: make(map[int]bool)}
	fb.walk(doc, "")
	return fb, nil
}

func (fb *FixtureBridge) walk(n *html.Node, parentPath string) {
	if n.Type == html.ElementNode {
		index := siblingIndex(n)
		path := fmt.Sprintf("%s/%s[%d]", parentPath, n.Data, index)
		if interactiveTags[n.Data] {
			fb.elements = append(fb.elements, n)
			fb.selectors = append(fb.selectors, path)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			fb.walk(c, path)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		fb.walk(c, parentPath)
	}
}

func siblingIndex(n *html.Node) int {
	index := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			index++
		}
	}
	return index
}

func describe(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	text := strings.TrimSpace(sb.String())
	if text == "" {
		for _, a := range n.Attr {
			if a.Key == "value" || a.Key == "aria-label" {
				text = a.Val
				break
			}
		}
	}
	if text == "" {
		return n.Data
	}
	return n.Data + ": " + text
}

func (fb *FixtureBridge) chunkIndices() []int {
	n := (len(fb.elements) + fb.chunkSize - 1) / fb.chunkSize
	if n == 0 {
		n = 1
	}
	chunks := make([]int, n)
	for i := range chunks {
		chunks[i] = i
	}
	return chunks
}

func (fb *FixtureBridge) Install(ctx context.Context) error { return nil }

// ProcessDom returns exactly one chunk not present in chunksSeen, per
// the DOM Bridge contract.
func (fb *FixtureBridge) ProcessDom(ctx context.Context, chunksSeen []int) (dom.ChunkDescriptor, error) {
	chunks := fb.chunkIndices()

	seen := make(map[int]bool, len(chunksSeen))
	for _, c := range chunksSeen {
		seen[c] = true
	}

	next := chunks[len(chunks)-1]
	for _, c := range chunks {
		if !seen[c] {
			next = c
			break
		}
	}

	start := next * fb.chunkSize
	end := start + fb.chunkSize
	if end > len(fb.elements) {
		end = len(fb.elements)
	}

	var lines []string
	selectorMap := make(map[int]string)
	for i := start; i < end; i++ {
		id := i - start
		lines = append(lines, strconv.Itoa(id)+":"+describe(fb.elements[i]))
		selectorMap[id] = fb.selectors[i]
	}

	return dom.ChunkDescriptor{
		OutputString: strings.Join(lines, "\n"),
		SelectorMap:  selectorMap,
		Chunk:        next,
		Chunks:       chunks,
	}, nil
}

// ProcessAllOfDom returns every interactive element, unchunked.
func (fb *FixtureBridge) ProcessAllOfDom(ctx context.Context) (dom.FullDOM, error) {
	var lines []string
	selectorMap := make(map[int]string)
	for i, el := range fb.elements {
		lines = append(lines, strconv.Itoa(i)+":"+describe(el))
		selectorMap[i] = fb.selectors[i]
	}
	return dom.FullDOM{OutputString: strings.Join(lines, "\n"), SelectorMap: selectorMap}, nil
}

func (fb *FixtureBridge) DebugStart(ctx context.Context)   {}
func (fb *FixtureBridge) DebugCleanup(ctx context.Context) {}

func (fb *FixtureBridge) ScrollToTop(ctx context.Context) error { return nil }

func (fb *FixtureBridge) FullPageMarkdown(ctx context.Context) (string, error) {
	return "", nil
}
