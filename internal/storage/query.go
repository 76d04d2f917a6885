package storage

import (
	"sort"

	"github.com/mcoot/quill/internal/model"
)

// ApplyFilter filters, sorts and limits posts in memory for backends
// that cannot express the query natively
func ApplyFilter(posts []*model.Post, filter model.PostFilter) []*model.Post {
	result := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		if filter.Matches(p) {
			result = append(result, p)
		}
	}
	SortPosts(result, filter.Order)
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result
}

// SortPosts orders posts newest first by the requested timestamp.
// Ties break on id so results are stable across backends.
func SortPosts(posts []*model.Post, order model.PostOrder) {
	key := func(p *model.Post) int64 {
		if order == model.OrderPublishedDesc && p.PublishedAt != nil {
			return p.PublishedAt.UnixMilli()
		}
		return p.CreatedAt.UnixMilli()
	}
	sort.SliceStable(posts, func(i, j int) bool {
		ki, kj := key(posts[i]), key(posts[j])
		if ki != kj {
			return ki > kj
		}
		return posts[i].ID > posts[j].ID
	})
}
