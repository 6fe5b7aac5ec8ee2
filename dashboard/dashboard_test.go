package dashboard

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/user/blogdesk-go/apitest"
	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/auth"
	"github.com/user/blogdesk-go/blogs"
	"github.com/user/blogdesk-go/comments"
	"github.com/user/blogdesk-go/engagement"
	"github.com/user/blogdesk-go/notify"
	"github.com/user/blogdesk-go/storage"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestComputeEmpty(t *testing.T) {
	for _, posts := range [][]blogs.Post{nil, {}} {
		agg := Compute(posts)
		if agg.TotalPosts != 0 || agg.TotalViews != 0 || agg.TotalLikes != 0 || agg.TotalComments != 0 {
			t.Errorf("totals = %+v", agg)
		}
		if agg.CategoryBreakdown == nil || agg.RecentPosts == nil || agg.PopularPosts == nil {
			t.Error("empty input must give empty, non-nil lists")
		}
		if len(agg.CategoryBreakdown)+len(agg.RecentPosts)+len(agg.PopularPosts) != 0 {
			t.Errorf("lists not empty: %+v", agg)
		}
		if agg.AverageViews() != 0 {
			t.Error("average of nothing")
		}
	}
}

func TestComputeSumsMatchInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	categories := append([]string{""}, blogs.Categories...)

	for round := 0; round < 200; round++ {
		n := rng.Intn(40)
		posts := make([]blogs.Post, n)
		var views, likes, comments int
		for i := range posts {
			posts[i] = blogs.Post{
				ID:            string(rune('a' + i%26)),
				Category:      categories[rng.Intn(len(categories))],
				Views:         rng.Intn(1000),
				LikesCount:    rng.Intn(50),
				CommentsCount: rng.Intn(20),
				Status:        []blogs.Status{blogs.StatusDraft, blogs.StatusPublished}[rng.Intn(2)],
				CreatedAt:     epoch.Add(time.Duration(rng.Intn(10000)) * time.Minute),
			}
			views += posts[i].Views
			likes += posts[i].LikesCount
			comments += posts[i].CommentsCount
		}

		agg := Compute(posts)
		if agg.TotalPosts != n || agg.TotalViews != views || agg.TotalLikes != likes || agg.TotalComments != comments {
			t.Fatalf("round %d: totals %+v, want %d/%d/%d/%d", round, agg, n, views, likes, comments)
		}
		if agg.PublishedPosts+agg.DraftPosts != n {
			t.Fatalf("round %d: published %d + drafts %d != %d", round, agg.PublishedPosts, agg.DraftPosts, n)
		}

		var count, catViews, catLikes int
		for i, row := range agg.CategoryBreakdown {
			count += row.Count
			catViews += row.TotalViews
			catLikes += row.TotalLikes
			if row.Category == "" {
				t.Fatalf("round %d: empty category in breakdown", round)
			}
			if i > 0 && agg.CategoryBreakdown[i-1].Count < row.Count {
				t.Fatalf("round %d: breakdown not sorted by count", round)
			}
		}
		if count != n || catViews != views || catLikes != likes {
			t.Fatalf("round %d: breakdown sums %d/%d/%d", round, count, catViews, catLikes)
		}

		if len(agg.RecentPosts) != min(n, DefaultWindow) {
			t.Fatalf("round %d: %d recent posts", round, len(agg.RecentPosts))
		}
		for i := 1; i < len(agg.RecentPosts); i++ {
			if agg.RecentPosts[i].CreatedAt.After(agg.RecentPosts[i-1].CreatedAt) {
				t.Fatalf("round %d: recent posts out of order", round)
			}
		}
		if len(agg.PopularPosts) != min(agg.PublishedPosts, DefaultWindow) {
			t.Fatalf("round %d: %d popular posts for %d published", round, len(agg.PopularPosts), agg.PublishedPosts)
		}
		for i, p := range agg.PopularPosts {
			if !p.Published() {
				t.Fatalf("round %d: draft in popular posts", round)
			}
			if i > 0 && p.Views > agg.PopularPosts[i-1].Views {
				t.Fatalf("round %d: popular posts out of order", round)
			}
		}
	}
}

func TestComputeCategoryOrder(t *testing.T) {
	posts := []blogs.Post{
		{Category: "Food", Views: 1},
		{Category: "Travel", Views: 2, LikesCount: 3},
		{Category: "", Views: 4},
		{Category: "Travel", Views: 8, LikesCount: 1},
		{Category: "Other", Views: 16},
		{Category: "Tech"},
	}
	agg := Compute(posts)
	want := []CategoryStat{
		{Category: "Travel", Count: 2, TotalViews: 10, TotalLikes: 4},
		{Category: "Other", Count: 2, TotalViews: 20},
		{Category: "Food", Count: 1, TotalViews: 1},
		{Category: "Tech", Count: 1},
	}
	if len(agg.CategoryBreakdown) != len(want) {
		t.Fatalf("breakdown = %+v", agg.CategoryBreakdown)
	}
	for i := range want {
		if agg.CategoryBreakdown[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, agg.CategoryBreakdown[i], want[i])
		}
	}
	if got := agg.AverageViews(); got != 31.0/6 {
		t.Errorf("AverageViews = %v", got)
	}
}

func TestComputeWindowAndInputUntouched(t *testing.T) {
	var posts []blogs.Post
	for i := 0; i < 8; i++ {
		posts = append(posts, blogs.Post{
			ID:        string(rune('a' + i)),
			Status:    blogs.StatusPublished,
			Views:     i * 10,
			CreatedAt: epoch.Add(time.Duration(i) * time.Hour),
		})
	}
	agg := ComputeWindow(posts, 3)
	if len(agg.RecentPosts) != 3 || agg.RecentPosts[0].ID != "h" || agg.RecentPosts[2].ID != "f" {
		t.Errorf("recent = %v", ids(agg.RecentPosts))
	}
	if len(agg.PopularPosts) != 3 || agg.PopularPosts[0].ID != "h" {
		t.Errorf("popular = %v", ids(agg.PopularPosts))
	}
	if posts[0].ID != "a" || posts[7].ID != "h" {
		t.Error("input reordered")
	}
	if got := ComputeWindow(posts, 0); len(got.RecentPosts) != DefaultWindow {
		t.Errorf("window 0 gave %d recent posts", len(got.RecentPosts))
	}
}

func ids(posts []blogs.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

type loaderFixture struct {
	srv    *apitest.Server
	store  *auth.Store
	loader *Loader
	ctrl   *engagement.Controller
	userID string
}

func newLoaderFixture(t *testing.T) *loaderFixture {
	t.Helper()
	srv := apitest.New(t)
	userID := srv.AddUser("Ada", "ada@example.com", "Secr3t!")
	api := srv.Client()
	rec := &notify.Recorder{}
	store := auth.NewStore(storage.NewMemoryStore(), api, rec)
	if _, err := store.Login(context.Background(), auth.LoginRequest{Email: "ada@example.com", Password: "Secr3t!"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	posts := blogs.NewService(api)
	ctrl := engagement.New(engagement.Deps{
		Sessions:  store,
		Posts:     posts,
		Comments:  comments.NewService(api),
		Notifier:  rec,
		Confirmer: engagement.AlwaysConfirm,
	})
	return &loaderFixture{srv: srv, store: store, loader: NewLoader(api, posts, store, DefaultWindow), ctrl: ctrl, userID: userID}
}

func (f *loaderFixture) seed(title, category, status string, views int) string {
	return f.srv.AddPost(f.userID, apitest.PostSeed{
		Title: title, Content: strings.Repeat("body ", 20), Category: category, Status: status, Views: views,
	})
}

func TestLoaderLoad(t *testing.T) {
	f := newLoaderFixture(t)
	liked := f.seed("First", "Food", "published", 10)
	f.seed("Second", "Food", "draft", 3)
	f.seed("Third", "Travel", "published", 7)
	f.srv.SetExtraLikes(liked, 4)
	f.srv.AddComment(liked, f.userID, "hello")

	snap, err := f.loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	agg := snap.Aggregate
	if agg.TotalPosts != 3 || agg.TotalViews != 20 || agg.TotalLikes != 4 || agg.TotalComments != 1 {
		t.Errorf("aggregate = %+v", agg)
	}
	if agg.DraftPosts != 1 || len(agg.PopularPosts) != 2 {
		t.Errorf("drafts %d, popular %d", agg.DraftPosts, len(agg.PopularPosts))
	}
	if agg.CategoryBreakdown[0].Category != "Food" {
		t.Errorf("breakdown = %+v", agg.CategoryBreakdown)
	}
	if snap.Server == nil || snap.Server.TotalViews != 20 {
		t.Errorf("server totals = %+v", snap.Server)
	}
}

func TestLoaderIgnoresAnalyticsFailure(t *testing.T) {
	f := newLoaderFixture(t)
	f.seed("Only", "Food", "published", 1)
	f.srv.Fail(apitest.RouteAnalytics, http.StatusNotFound, "Route not found")

	snap, err := f.loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Server != nil {
		t.Error("failed analytics should leave Server nil")
	}
	if snap.Aggregate.TotalPosts != 1 {
		t.Errorf("aggregate = %+v", snap.Aggregate)
	}
	if !f.store.IsAuthenticated() {
		t.Error("analytics failure ended the session")
	}
}

func TestLoaderUnauthorized(t *testing.T) {
	f := newLoaderFixture(t)
	f.srv.Fail(apitest.RouteMyPosts, http.StatusUnauthorized, "Token is not valid")

	if _, err := f.loader.Load(context.Background()); !apperror.IsUnauthorizedError(err) {
		t.Fatalf("error = %v", err)
	}
	if f.store.IsAuthenticated() {
		t.Fatal("session survived Unauthorized")
	}
	if _, err := f.loader.Load(context.Background()); !apperror.IsAuthRequired(err) {
		t.Fatalf("anonymous load: %v", err)
	}
}

func TestLoaderDeletePostRecomputes(t *testing.T) {
	f := newLoaderFixture(t)
	keep := f.seed("Keep", "Food", "published", 5)
	drop := f.seed("Drop", "Travel", "published", 9)

	snap, err := f.loader.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	list := engagement.NewPostList(snap.Posts)

	after, res, err := f.loader.DeletePost(context.Background(), f.ctrl, list, drop)
	if err != nil || res.Declined || after == nil {
		t.Fatalf("DeletePost = %+v, %+v, %v", after, res, err)
	}
	if after.Aggregate.TotalPosts != 1 || after.Aggregate.TotalViews != 5 {
		t.Errorf("aggregate after delete = %+v", after.Aggregate)
	}
	if got := list.Posts(); len(got) != 1 || got[0].ID != keep {
		t.Errorf("list after delete = %v", ids(got))
	}
	if f.srv.Count(apitest.RouteMyPosts) != 2 {
		t.Errorf("my-blogs fetched %d times, want 2", f.srv.Count(apitest.RouteMyPosts))
	}
}

func TestLoaderDeletePostReloadFailure(t *testing.T) {
	f := newLoaderFixture(t)
	keep := f.seed("Keep", "Food", "published", 5)
	drop := f.seed("Drop", "Travel", "published", 9)

	snap, err := f.loader.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	list := engagement.NewPostList(snap.Posts)
	f.srv.Fail(apitest.RouteMyPosts, http.StatusInternalServerError, "database unavailable")

	after, res, err := f.loader.DeletePost(context.Background(), f.ctrl, list, drop)
	if !errors.Is(err, ErrRefreshAfterDelete) || !apperror.IsServerError(err) {
		t.Fatalf("error = %v, want the refresh failure wrapping a ServerError", err)
	}
	if after != nil || res.Declined || res.Ignored || res.Stale {
		t.Fatalf("DeletePost = %+v, %+v", after, res)
	}
	if f.srv.HasPost(drop) {
		t.Fatal("post still on the server")
	}
	if got := list.Posts(); len(got) != 1 || got[0].ID != keep {
		t.Errorf("list after delete = %v", ids(got))
	}
}
