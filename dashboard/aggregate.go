// Package dashboard turns the signed-in user's posts into the numbers shown on
// the dashboard. Compute is a pure reduction over a snapshot; Loader fetches
// the snapshot and recomputes the aggregate every time.
package dashboard

import (
	"sort"

	"github.com/user/blogdesk-go/blogs"
)

// DefaultWindow is how many posts the recent and popular lists hold.
const DefaultWindow = 5

// CategoryStat is one row of the category breakdown.
type CategoryStat struct {
	Category   string `json:"category"`
	Count      int    `json:"count"`
	TotalViews int    `json:"totalViews"`
	TotalLikes int    `json:"totalLikes"`
}

// Aggregate is the derived dashboard summary. It is never patched in place;
// a new post list means a new Aggregate.
type Aggregate struct {
	TotalPosts    int `json:"totalPosts"`
	TotalViews    int `json:"totalViews"`
	TotalLikes    int `json:"totalLikes"`
	TotalComments int `json:"totalComments"`

	PublishedPosts int `json:"publishedPosts"`
	DraftPosts     int `json:"draftPosts"`

	CategoryBreakdown []CategoryStat `json:"categoryBreakdown"`
	RecentPosts       []blogs.Post   `json:"recentPosts"`
	PopularPosts      []blogs.Post   `json:"popularPosts"`
}

// AverageViews is TotalViews per post, or zero without posts.
func (a Aggregate) AverageViews() float64 {
	if a.TotalPosts == 0 {
		return 0
	}
	return float64(a.TotalViews) / float64(a.TotalPosts)
}

// Compute reduces posts with the default window.
func Compute(posts []blogs.Post) Aggregate {
	return ComputeWindow(posts, DefaultWindow)
}

// ComputeWindow reduces posts into an Aggregate whose recent and popular lists
// hold at most window posts. A window below one uses DefaultWindow.
//
// Categories are ordered by post count, descending; equal counts keep the
// order in which the category was first seen. Posts without a category count
// towards blogs.DefaultCategory. posts is not modified.
func ComputeWindow(posts []blogs.Post, window int) Aggregate {
	if window < 1 {
		window = DefaultWindow
	}
	agg := Aggregate{
		TotalPosts:        len(posts),
		CategoryBreakdown: []CategoryStat{},
	}

	index := make(map[string]int)
	for i := range posts {
		p := &posts[i]
		agg.TotalViews += p.Views
		agg.TotalLikes += p.LikesCount
		agg.TotalComments += p.CommentsCount
		switch p.Status {
		case blogs.StatusPublished:
			agg.PublishedPosts++
		case blogs.StatusDraft:
			agg.DraftPosts++
		}

		category := blogs.CategoryOrDefault(p.Category)
		at, seen := index[category]
		if !seen {
			at = len(agg.CategoryBreakdown)
			index[category] = at
			agg.CategoryBreakdown = append(agg.CategoryBreakdown, CategoryStat{Category: category})
		}
		row := &agg.CategoryBreakdown[at]
		row.Count++
		row.TotalViews += p.Views
		row.TotalLikes += p.LikesCount
	}
	sort.SliceStable(agg.CategoryBreakdown, func(i, j int) bool {
		return agg.CategoryBreakdown[i].Count > agg.CategoryBreakdown[j].Count
	})

	recent := append([]blogs.Post{}, posts...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	agg.RecentPosts = truncate(recent, window)

	popular := []blogs.Post{}
	for _, p := range posts {
		if p.Published() {
			popular = append(popular, p)
		}
	}
	sort.SliceStable(popular, func(i, j int) bool {
		return popular[i].Views > popular[j].Views
	})
	agg.PopularPosts = truncate(popular, window)

	return agg
}

func truncate(posts []blogs.Post, n int) []blogs.Post {
	if len(posts) > n {
		return posts[:n:n]
	}
	return posts
}
