package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/user/blogdesk-go/blogs"
	"github.com/user/blogdesk-go/dashboard"
)

const dateLayout = "Jan 2, 2006"

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading post content: %w", err)
	}
	return string(b), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func statusMark(p *blogs.Post) string {
	if p.Published() {
		return "✅"
	}
	return "📝"
}

// table renders rows through a tabwriter and prints the result in one call so
// notifications cannot interleave with it.
func table(c *console, header string, rows func(w io.Writer)) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	w.Flush()
	c.printf("%s", buf.String())
}

func renderPostTable(c *console, posts []blogs.Post) {
	if len(posts) == 0 {
		c.printf("No posts found.\n")
		return
	}
	table(c, "ID\tTITLE\tCATEGORY\tAUTHOR\tVIEWS\tLIKES\tCOMMENTS\tDATE", func(w io.Writer) {
		for i := range posts {
			p := &posts[i]
			fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%d\t%d\t%d\t%s\n",
				p.ID, p.Title, blogs.CategoryEmoji(p.Category), blogs.CategoryOrDefault(p.Category),
				p.Author.DisplayName(), p.Views, p.LikesCount, p.CommentsCount, formatDate(p.CreatedAt))
		}
	})
}

func renderPost(c *console, p *blogs.Post) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", statusMark(p), p.Title)
	fmt.Fprintf(&b, "by %s · %s · %s %s", p.Author.DisplayName(), formatDate(p.CreatedAt), blogs.CategoryEmoji(p.Category), blogs.CategoryOrDefault(p.Category))
	if p.ReadingTime > 0 {
		fmt.Fprintf(&b, " · %d min read", p.ReadingTime)
	}
	b.WriteString("\n")
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "#%s\n", strings.Join(p.Tags, " #"))
	}
	liked := ""
	if p.IsLiked {
		liked = " (you)"
	}
	fmt.Fprintf(&b, "👁 %d  ❤️ %d%s  💬 %d\n\n%s\n", p.Views, p.LikesCount, liked, p.CommentsCount, p.Content)

	if len(p.Comments) > 0 {
		b.WriteString("\nComments\n")
		for _, cm := range p.Comments {
			fmt.Fprintf(&b, "- [%s] %s, %s: %s\n", cm.ID, cm.Author.DisplayName(), formatDate(cm.CreatedAt), cm.Content)
		}
	}
	c.printf("%s", b.String())
}

func renderDashboard(c *console, snap *dashboard.Snapshot) {
	agg := snap.Aggregate
	c.printf("Posts: %d (%d published, %d drafts)  Views: %d  Likes: %d  Comments: %d  Avg views: %.1f\n",
		agg.TotalPosts, agg.PublishedPosts, agg.DraftPosts, agg.TotalViews, agg.TotalLikes, agg.TotalComments, agg.AverageViews())
	if s := snap.Server; s != nil && (s.TotalBlogs != agg.TotalPosts || s.TotalViews != agg.TotalViews) {
		c.printf("Server reports %d posts and %d views.\n", s.TotalBlogs, s.TotalViews)
	}

	if len(agg.CategoryBreakdown) > 0 {
		c.printf("\n")
		table(c, "CATEGORY\tPOSTS\tVIEWS\tLIKES", func(w io.Writer) {
			for _, row := range agg.CategoryBreakdown {
				fmt.Fprintf(w, "%s %s\t%d\t%d\t%d\n", blogs.CategoryEmoji(row.Category), row.Category, row.Count, row.TotalViews, row.TotalLikes)
			}
		})
	}
	if len(agg.RecentPosts) > 0 {
		c.printf("\nRecent\n")
		renderPostTable(c, agg.RecentPosts)
	}
	if len(agg.PopularPosts) > 0 {
		c.printf("\nPopular\n")
		renderPostTable(c, agg.PopularPosts)
	}
	c.printf("\nUpdated %s\n", snap.LoadedAt.Local().Format(time.Kitchen))
}
