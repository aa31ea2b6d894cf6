package resource

import (
	"sort"
)

// Span is one page of a paginated list. Start and End index the item slice.
type Span struct {
	Page     int
	PageMax  int
	Start    int
	End      int
	Previous int
	Next     int
}

// PageCount is ceil(n/perPage). perPage must be at least 1.
func PageCount(n, perPage int) int {
	if n <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage
}

// Paginate splits n items into pages of perPage.
func Paginate(n, perPage int) []Span {
	pageMax := PageCount(n, perPage)
	spans := make([]Span, 0, pageMax)
	for p := 1; p <= pageMax; p++ {
		s := Span{
			Page:    p,
			PageMax: pageMax,
			Start:   (p - 1) * perPage,
			End:     min(p*perPage, n),
		}
		if p > 1 {
			s.Previous = p - 1
		}
		if p < pageMax {
			s.Next = p + 1
		}
		spans = append(spans, s)
	}
	return spans
}

// TagCount is a tag and how many items carry it.
type TagCount struct {
	Tag   string
	Count int
}

// GroupByTag maps each tag to its items, keeping the order of items. An
// item with N tags lands in N groups.
func GroupByTag(items []*Item) map[string][]*Item {
	groups := make(map[string][]*Item)
	for _, it := range items {
		for _, tag := range it.Tags {
			groups[tag] = append(groups[tag], it)
		}
	}
	return groups
}

// SortedTags orders tags by descending count, then by name.
func SortedTags(groups map[string][]*Item) []TagCount {
	out := make([]TagCount, 0, len(groups))
	for tag, items := range groups {
		out = append(out, TagCount{Tag: tag, Count: len(items)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
