// Package discovery generates ABC hypotheses: a bridging concept B links the
// resources mentioning concept A to the resources mentioning concept C.
package discovery

import (
	"strings"

	"github.com/siherrmann/kgraph/model"
)

// ExtractConcepts returns the lower-cased subjects of a resource followed by its
// classification code, without duplicates and in order.
func ExtractConcepts(resource *model.Resource) []string {
	concepts := []string{}
	seen := map[string]bool{}
	add := func(concept string) {
		concept = strings.TrimSpace(concept)
		if concept == "" || seen[strings.ToLower(concept)] {
			return
		}
		seen[strings.ToLower(concept)] = true
		concepts = append(concepts, concept)
	}

	for _, subject := range resource.Subjects {
		add(strings.ToLower(subject))
	}
	if resource.ClassificationCode != nil {
		add(*resource.ClassificationCode)
	}
	return concepts
}

// mentions reports whether the search text of a resource contains the concept, ignoring case.
func mentions(resource *model.Resource, concept string) bool {
	return strings.Contains(strings.ToLower(resource.SearchText()), strings.ToLower(concept))
}

// filterMentioning returns the resources that mention the concept, in order.
func filterMentioning(resources []*model.Resource, concept string) []*model.Resource {
	out := []*model.Resource{}
	for _, r := range resources {
		if mentions(r, concept) {
			out = append(out, r)
		}
	}
	return out
}

// conceptSet collects the concepts of all resources in first-seen order, keyed case-insensitively.
func conceptSet(resources []*model.Resource) ([]string, map[string]bool) {
	order := []string{}
	seen := map[string]bool{}
	for _, r := range resources {
		for _, c := range ExtractConcepts(r) {
			key := strings.ToLower(c)
			if !seen[key] {
				seen[key] = true
				order = append(order, c)
			}
		}
	}
	return order, seen
}

func evidence(resources []*model.Resource, evidenceType string, max int) []model.EvidenceItem {
	items := []model.EvidenceItem{}
	for _, r := range resources {
		if len(items) >= max {
			break
		}
		items = append(items, model.EvidenceItem{
			Type:       evidenceType,
			ResourceID: r.ID,
			Title:      r.Title,
			Year:       r.Year(),
		})
	}
	return items
}
