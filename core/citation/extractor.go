package citation

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/siherrmann/kgraph/model"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Extractor finds citations in the content of one resource.
// On failure it returns the citations found so far together with the error.
type Extractor interface {
	Extract(ctx context.Context, resource *model.Resource, content []byte) ([]model.CitationCandidate, error)
}

// ExtractorFor returns the extractor of a content format, html for unknown formats.
func ExtractorFor(format string, maxCitations int) Extractor {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case model.FormatPDF:
		return &PDFExtractor{MaxCitations: maxCitations, Command: "pdftotext"}
	case model.FormatMarkdown, "md":
		return &MarkdownExtractor{MaxCitations: maxCitations}
	default:
		return &HTMLExtractor{MaxCitations: maxCitations}
	}
}

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)
	doiPattern = regexp.MustCompile(`(?i)\bdoi:\s*(10\.\d{4,9}/[^\s<>"'\)\]]+)`)
)

// textMatch is a citation target found in plain text at [start, end).
type textMatch struct {
	start, end int
	target     string
}

// findTextMatches returns bare URLs and doi: references of content in document order.
func findTextMatches(content string) []textMatch {
	matches := []textMatch{}

	for _, m := range urlPattern.FindAllStringIndex(content, -1) {
		target := strings.TrimRight(content[m[0]:m[1]], ".,;:")
		matches = append(matches, textMatch{start: m[0], end: m[0] + len(target), target: target})
	}
	for _, m := range doiPattern.FindAllStringSubmatchIndex(content, -1) {
		id := strings.TrimRight(content[m[2]:m[3]], ".,;:")
		matches = append(matches, textMatch{start: m[0], end: m[2] + len(id), target: "https://doi.org/" + id})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].start < matches[j].start
	})
	return matches
}

// scanText collects bare URLs and doi: references from plain text.
func scanText(c *collector, content string) {
	for _, m := range findTextMatches(content) {
		if c.full() {
			return
		}
		c.add(m.target, ContextSnippet(content, m.start, m.end))
	}
}

// HTMLExtractor reads <a href> links and bare URLs in text nodes.
type HTMLExtractor struct {
	MaxCitations int
}

func (e *HTMLExtractor) Extract(ctx context.Context, resource *model.Resource, content []byte) ([]model.CitationCandidate, error) {
	c := newCollector(e.MaxCitations, resource.SourceURL)

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return c.candidates, fmt.Errorf("error parsing html: %w", err)
	}

	// Flatten the visible text first so snippets can reach across element borders.
	var sb strings.Builder
	type link struct {
		href       string
		start, end int
	}
	links := []link{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
			return
		}

		isLink := false
		href := ""
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
					isLink = true
				}
			}
		}

		start := sb.Len()
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if isLink {
			links = append(links, link{href: href, start: start, end: sb.Len()})
		}
	}
	walk(doc)
	flat := sb.String()

	// Bare URLs outside of anchors, anchor text is blanked so it is not found twice.
	plain := []byte(flat)
	for _, l := range links {
		for i := l.start; i < l.end; i++ {
			plain[i] = ' '
		}
	}

	// Anchors and bare URLs share one position sequence in document order.
	found := make([]textMatch, 0, len(links))
	for _, l := range links {
		found = append(found, textMatch{start: l.start, end: l.end, target: l.href})
	}
	found = append(found, findTextMatches(string(plain))...)
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].start < found[j].start
	})

	for _, m := range found {
		if err := ctx.Err(); err != nil {
			return c.candidates, err
		}
		if c.full() {
			break
		}
		c.add(m.target, ContextSnippet(flat, m.start, m.end))
	}

	return c.candidates, nil
}

// MarkdownExtractor walks the markdown AST for links and autolinks.
// Bare URLs become autolinks through the linkify extension.
type MarkdownExtractor struct {
	MaxCitations int
}

func (e *MarkdownExtractor) Extract(ctx context.Context, resource *model.Resource, content []byte) ([]model.CitationCandidate, error) {
	c := newCollector(e.MaxCitations, resource.SourceURL)

	md := goldmark.New(goldmark.WithExtensions(extension.Linkify))
	doc := md.Parser().Parse(text.NewReader(content))
	source := string(content)
	cursor := 0

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if err := ctx.Err(); err != nil {
			return ast.WalkStop, err
		}
		if c.full() {
			return ast.WalkStop, nil
		}

		var target, literal string
		switch node := n.(type) {
		case *ast.Link:
			target = string(node.Destination)
			literal = target
		case *ast.AutoLink:
			if node.AutoLinkType != ast.AutoLinkURL {
				return ast.WalkContinue, nil
			}
			target = string(node.URL(content))
			literal = string(node.Label(content))
		default:
			return ast.WalkContinue, nil
		}

		var snippet *string
		if i := strings.Index(source[cursor:], literal); literal != "" && i >= 0 {
			start := cursor + i
			snippet = ContextSnippet(source, start, start+len(literal))
			cursor = start + len(literal)
		}
		c.add(target, snippet)

		return ast.WalkSkipChildren, nil
	})

	return c.candidates, err
}

// PDFExtractor converts the pdf to text with pdftotext and scans the text for URLs.
type PDFExtractor struct {
	MaxCitations int
	Command      string
}

func (e *PDFExtractor) Extract(ctx context.Context, resource *model.Resource, content []byte) ([]model.CitationCandidate, error) {
	c := newCollector(e.MaxCitations, "")

	tmp, err := os.CreateTemp("", "kgraph-*.pdf")
	if err != nil {
		return c.candidates, fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return c.candidates, fmt.Errorf("error writing temp file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	// #nosec G204 -- the command is configured by the caller, the only argument is our temp file
	cmd := exec.CommandContext(ctx, e.Command, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return c.candidates, fmt.Errorf("error running %s: %w: %s", e.Command, err, strings.TrimSpace(stderr.String()))
	}

	scanText(c, stdout.String())

	return c.candidates, nil
}
