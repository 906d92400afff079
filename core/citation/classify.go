// Package citation extracts citations from resource content, resolves them to
// known resources and ranks them by PageRank importance.
package citation

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/kgraph/model"
)

// SnippetRadius is the number of characters kept on each side of a citation.
const SnippetRadius = 50

var datasetExtensions = map[string]bool{
	".csv": true, ".tsv": true, ".json": true, ".jsonl": true, ".xml": true,
	".xls": true, ".xlsx": true, ".parquet": true, ".zip": true, ".gz": true,
	".tar": true, ".h5": true, ".hdf5": true, ".nc": true, ".npy": true,
	".mat": true, ".sav": true, ".dta": true, ".rdata": true, ".feather": true,
}

var codeDomains = []string{
	"github.com", "gitlab.com", "bitbucket.org", "sourceforge.net", "codeberg.org",
	"huggingface.co",
}

var referenceDomains = []string{
	"doi.org", "arxiv.org", "pubmed.ncbi.nlm.nih.gov", "ncbi.nlm.nih.gov",
	"scholar.google.com", "semanticscholar.org", "jstor.org", "researchgate.net",
	"springer.com", "sciencedirect.com", "ieeexplore.ieee.org", "acm.org",
	"nature.com", "wiley.com", "biorxiv.org", "ssrn.com", "zenodo.org",
}

// ClassifyCitation guesses the citation type from the target URL.
// Data file extensions win over code forges, which win over academic domains.
func ClassifyCitation(rawURL string) model.CitationType {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return model.CitationTypeGeneral
	}

	if datasetExtensions[strings.ToLower(path.Ext(u.Path))] {
		return model.CitationTypeDataset
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if matchesDomain(host, codeDomains) {
		return model.CitationTypeCode
	}
	if matchesDomain(host, referenceDomains) {
		return model.CitationTypeReference
	}
	return model.CitationTypeGeneral
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// NormalizeURL lower-cases scheme and host, drops the fragment and a trailing slash of the path.
// Unparseable input is only trimmed and cut at the first '#'.
func NormalizeURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if i := strings.Index(raw, "#"); i >= 0 {
			raw = raw[:i]
		}
		return strings.TrimSuffix(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/")

	return u.String()
}

// ContextSnippet returns up to SnippetRadius characters around text[start:end]
// with whitespace collapsed, nil if nothing but whitespace is left.
func ContextSnippet(text string, start, end int) *string {
	if start < 0 || end > len(text) || start > end {
		return nil
	}

	from := start
	for i := 0; i < SnippetRadius && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < SnippetRadius && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	snippet := strings.Join(strings.Fields(text[from:to]), " ")
	if snippet == "" {
		return nil
	}
	return &snippet
}

// collector gathers unique absolute http(s) citations up to a maximum.
type collector struct {
	max        int
	base       *url.URL
	seen       map[string]bool
	candidates []model.CitationCandidate
}

func newCollector(max int, baseURL string) *collector {
	c := &collector{max: max, seen: map[string]bool{}, candidates: []model.CitationCandidate{}}
	if base, err := url.Parse(baseURL); err == nil && base.IsAbs() {
		c.base = base
	}
	return c
}

func (c *collector) full() bool {
	return c.max > 0 && len(c.candidates) >= c.max
}

// add records a citation. Relative links are resolved against the base URL if there is one.
func (c *collector) add(href string, snippet *string) {
	if c.full() {
		return
	}

	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}
	u, err := url.Parse(href)
	if err != nil {
		return
	}
	if !u.IsAbs() {
		if c.base == nil {
			return
		}
		u = c.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return
	}

	target := u.String()
	if c.seen[target] {
		return
	}
	c.seen[target] = true

	c.candidates = append(c.candidates, model.CitationCandidate{
		TargetURL:      target,
		CitationType:   ClassifyCitation(target),
		ContextSnippet: snippet,
		Position:       len(c.candidates),
	})
}
