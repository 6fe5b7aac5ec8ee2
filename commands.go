package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/auth"
	"github.com/user/blogdesk-go/background"
	"github.com/user/blogdesk-go/blogs"
	"github.com/user/blogdesk-go/dashboard"
	"github.com/user/blogdesk-go/engagement"
	"github.com/user/blogdesk-go/users"
)

func (a *application) cliApp() *cli.App {
	return &cli.App{
		Name:  "blogdesk",
		Usage: "read, write and manage posts on a blog server",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "answer yes to every confirmation prompt"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every API request"},
		},
		Before: a.setup,
		After:  a.teardown,
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "sign in and remember the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Usage: "read from stdin when omitted"},
				},
				Action: a.login,
			},
			{
				Name:  "register",
				Usage: "create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Usage: "read from stdin when omitted"},
					&cli.StringFlag{Name: "bio"},
				},
				Action: a.register,
			},
			{
				Name:   "logout",
				Usage:  "forget the session",
				Action: a.logout,
			},
			{
				Name:   "whoami",
				Usage:  "show the signed-in user",
				Action: a.whoami,
			},
			{
				Name:  "profile",
				Usage: "manage your account",
				Subcommands: []*cli.Command{
					{
						Name:  "update",
						Usage: "change profile fields",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name"},
							&cli.StringFlag{Name: "email"},
							&cli.StringFlag{Name: "bio"},
							&cli.StringFlag{Name: "avatar"},
						},
						Action: a.profileUpdate,
					},
					{
						Name:   "stats",
						Usage:  "show account totals",
						Action: a.profileStats,
					},
				},
			},
			{
				Name:  "posts",
				Usage: "list published posts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}},
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Value: "all"},
				},
				Action: a.listPosts,
			},
			{
				Name:  "post",
				Usage: "work with a single post",
				Subcommands: []*cli.Command{
					{Name: "show", ArgsUsage: "<post-id>", Usage: "show a post with its comments", Action: a.showPost},
					{Name: "create", Usage: "write a new post", Flags: postFlags(true), Action: a.createPost},
					{Name: "edit", ArgsUsage: "<post-id>", Usage: "change one of your posts", Flags: postFlags(false), Action: a.editPost},
					{Name: "delete", ArgsUsage: "<post-id>", Usage: "delete one of your posts", Action: a.deletePost},
				},
			},
			{
				Name:      "like",
				ArgsUsage: "<post-id>",
				Usage:     "like a post, or remove your like",
				Action:    a.like,
			},
			{
				Name:  "comment",
				Usage: "add or delete comments",
				Subcommands: []*cli.Command{
					{Name: "add", ArgsUsage: "<post-id> <text...>", Usage: "comment on a post", Action: a.addComment},
					{Name: "delete", ArgsUsage: "<post-id> <comment-id>", Usage: "delete one of your comments", Action: a.deleteComment},
				},
			},
			{
				Name:  "dashboard",
				Usage: "summarize your posts",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "refresh until interrupted"},
				},
				Action: a.dashboard,
			},
			{
				Name:   "categories",
				Usage:  "list the post categories",
				Action: a.categories,
			},
		},
	}
}

func postFlags(creating bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Required: creating},
		&cli.StringFlag{Name: "content", Usage: "post body; use - to read it from stdin"},
		&cli.StringFlag{Name: "excerpt"},
		&cli.StringFlag{Name: "category", Value: blogs.DefaultCategory},
		&cli.StringFlag{Name: "tags", Usage: "comma separated"},
		&cli.StringFlag{Name: "status", Value: string(blogs.StatusDraft), Usage: "draft or published"},
	}
}

func arg(c *cli.Context, i int, name string) (string, error) {
	v := strings.TrimSpace(c.Args().Get(i))
	if v == "" {
		return "", cli.Exit(fmt.Sprintf("missing %s", name), 2)
	}
	return v, nil
}

func (a *application) password(c *cli.Context) (string, error) {
	if pw := c.String("password"); pw != "" {
		return pw, nil
	}
	return a.console.ask(c.Context, "Password: ")
}

func (a *application) login(c *cli.Context) error {
	pw, err := a.password(c)
	if err != nil {
		return err
	}
	session, err := a.sessions.Login(c.Context, auth.LoginRequest{Email: c.String("email"), Password: pw})
	if err != nil {
		return err
	}
	a.console.printf("Welcome back, %s!\n", session.User.Name)
	return nil
}

func (a *application) register(c *cli.Context) error {
	pw, err := a.password(c)
	if err != nil {
		return err
	}
	session, err := a.sessions.Register(c.Context, auth.RegisterRequest{
		Name:     c.String("name"),
		Email:    c.String("email"),
		Password: pw,
		Bio:      c.String("bio"),
	})
	if err != nil {
		return err
	}
	a.console.printf("Welcome, %s!\n", session.User.Name)
	return nil
}

func (a *application) logout(*cli.Context) error {
	a.sessions.Logout()
	return nil
}

func (a *application) whoami(*cli.Context) error {
	session, ok := a.sessions.Current()
	if !ok {
		return apperror.NewAuthRequiredError("Not logged in")
	}
	u := session.User
	a.console.printf("%s <%s>\nid: %s\n", u.Name, u.Email, u.ID)
	if u.Bio != "" {
		a.console.printf("bio: %s\n", u.Bio)
	}
	return nil
}

func (a *application) profileUpdate(c *cli.Context) error {
	var req users.UpdateProfileRequest
	for name, field := range map[string]**string{"name": &req.Name, "email": &req.Email, "bio": &req.Bio, "avatar": &req.Avatar} {
		if c.IsSet(name) {
			v := c.String(name)
			*field = &v
		}
	}
	updated, err := a.users.UpdateProfile(c.Context, req)
	if err != nil {
		return err
	}
	a.console.printf("Profile updated: %s <%s>\n", updated.Name, updated.Email)
	return nil
}

func (a *application) profileStats(c *cli.Context) error {
	stats, err := a.users.Stats(c.Context)
	if err != nil {
		return err
	}
	a.console.printf("Posts: %d  Views: %d  Likes: %d  Comments: %d\n", stats.TotalBlogs, stats.TotalViews, stats.TotalLikes, stats.TotalComments)
	return nil
}

func (a *application) listPosts(c *cli.Context) error {
	posts, err := a.posts.List(c.Context, blogs.ListQuery{Search: c.String("search"), Category: c.String("category")})
	if err != nil {
		return err
	}
	renderPostTable(a.console, posts)
	return nil
}

func (a *application) showPost(c *cli.Context) error {
	id, err := arg(c, 0, "post id")
	if err != nil {
		return err
	}
	post, err := a.fetchPost(c.Context, id)
	if err != nil {
		return err
	}
	renderPost(a.console, post)
	return nil
}

// fetchPost loads a post with the current session's token. An Unauthorized
// answer ends the session like any other authenticated request.
func (a *application) fetchPost(ctx context.Context, id string) (*blogs.Post, error) {
	post, err := a.posts.Get(ctx, a.sessions.Token(), id)
	if err != nil {
		if a.sessions.HandleUnauthorized(err) {
			a.console.ToLogin()
		}
		return nil, err
	}
	return post, nil
}

// postInput builds an editor input from the command's flags, starting from base.
func (a *application) postInput(c *cli.Context, base blogs.PostInput) (blogs.PostInput, error) {
	in := base
	if c.IsSet("title") {
		in.Title = c.String("title")
	}
	if c.IsSet("content") || base.Content == "" {
		content := c.String("content")
		if content == "-" {
			b, err := readAll(os.Stdin)
			if err != nil {
				return in, err
			}
			content = b
		}
		in.Content = content
	}
	if c.IsSet("excerpt") {
		in.Excerpt = c.String("excerpt")
	}
	if c.IsSet("category") || base.Category == "" {
		in.Category = c.String("category")
	}
	if c.IsSet("tags") {
		in.Tags = blogs.ParseTags(c.String("tags"))
	}
	if c.IsSet("status") || base.Status == "" {
		in.Status = blogs.Status(c.String("status"))
	}
	return in, nil
}

func (a *application) createPost(c *cli.Context) error {
	token := a.sessions.Token()
	if token == "" {
		return apperror.NewAuthRequiredError("Please login to write posts")
	}
	in, err := a.postInput(c, blogs.PostInput{})
	if err != nil {
		return err
	}
	post, err := a.posts.Create(c.Context, token, in)
	if err != nil {
		a.sessions.HandleUnauthorized(err)
		return err
	}
	a.bus.Success("Blog created successfully")
	a.console.printf("%s\n", post.ID)
	return nil
}

func (a *application) editPost(c *cli.Context) error {
	id, err := arg(c, 0, "post id")
	if err != nil {
		return err
	}
	token := a.sessions.Token()
	if token == "" {
		return apperror.NewAuthRequiredError("Please login to edit posts")
	}
	current, err := a.fetchPost(c.Context, id)
	if err != nil {
		return err
	}
	if !current.IsAuthor && !current.OwnedBy(a.sessions.UserID()) {
		return apperror.NewValidationError("You can only edit your own posts", nil)
	}
	in, err := a.postInput(c, blogs.FromPost(current))
	if err != nil {
		return err
	}
	if _, err := a.posts.Update(c.Context, token, id, in); err != nil {
		a.sessions.HandleUnauthorized(err)
		return err
	}
	a.bus.Success("Blog updated successfully")
	return nil
}

func (a *application) deletePost(c *cli.Context) error {
	id, err := arg(c, 0, "post id")
	if err != nil {
		return err
	}
	snap, err := a.loader.Load(c.Context)
	if err != nil {
		return err
	}
	list := engagement.NewPostList(snap.Posts)
	after, res, err := a.loader.DeletePost(c.Context, a.ctrl, list, id)
	if err != nil {
		if errors.Is(err, dashboard.ErrRefreshAfterDelete) {
			a.console.printf("%d posts left.\n", list.Len())
		}
		return err
	}
	if res.Declined {
		a.console.printf("Nothing deleted.\n")
		return nil
	}
	if after != nil {
		a.console.printf("%d posts left.\n", after.Aggregate.TotalPosts)
	}
	return nil
}

func (a *application) like(c *cli.Context) error {
	id, err := arg(c, 0, "post id")
	if err != nil {
		return err
	}
	post, err := a.fetchPost(c.Context, id)
	if err != nil {
		return err
	}
	view := engagement.NewPostView(*post)
	defer view.Close()
	res, err := a.ctrl.ToggleLike(c.Context, view)
	if err != nil {
		return err
	}
	state := "not liked"
	if res.Like.IsLiked {
		state = "liked"
	}
	a.console.printf("%s: %s, %d likes\n", post.Title, state, res.Like.LikesCount)
	return nil
}

func (a *application) addComment(c *cli.Context) error {
	id, err := arg(c, 0, "post id")
	if err != nil {
		return err
	}
	post, err := a.fetchPost(c.Context, id)
	if err != nil {
		return err
	}
	view := engagement.NewPostView(*post)
	defer view.Close()
	draft := engagement.NewDraft(strings.Join(c.Args().Tail(), " "))
	if _, err := a.ctrl.SubmitComment(c.Context, view, draft); err != nil {
		return err
	}
	a.console.printf("%d comments\n", view.Snapshot().CommentsCount)
	return nil
}

func (a *application) deleteComment(c *cli.Context) error {
	postID, err := arg(c, 0, "post id")
	if err != nil {
		return err
	}
	commentID, err := arg(c, 1, "comment id")
	if err != nil {
		return err
	}
	post, err := a.fetchPost(c.Context, postID)
	if err != nil {
		return err
	}
	view := engagement.NewPostView(*post)
	defer view.Close()
	res, err := a.ctrl.DeleteComment(c.Context, view, commentID)
	if err != nil {
		return err
	}
	if res.Declined {
		a.console.printf("Nothing deleted.\n")
	}
	return nil
}

func (a *application) dashboard(c *cli.Context) error {
	if !c.Bool("watch") {
		snap, err := a.loader.Load(c.Context)
		if err != nil {
			return err
		}
		renderDashboard(a.console, snap)
		return nil
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stop := make(chan struct{})
	done := background.StartDashboardRefresher(a.loader, a.cfg.Dashboard.RefreshInterval, stop, func(snap *dashboard.Snapshot, err error) {
		if err != nil {
			a.bus.Error(apperror.UserMessage(err, "Failed to load dashboard"))
			if apperror.IsUnauthorizedError(err) || apperror.IsAuthRequired(err) {
				cancel()
			}
			return
		}
		a.console.printf("\033[H\033[2J")
		renderDashboard(a.console, snap)
	})

	<-ctx.Done()
	close(stop)
	<-done
	return nil
}

func (a *application) categories(*cli.Context) error {
	for _, c := range blogs.Categories {
		a.console.printf("%s %s\n", blogs.CategoryEmoji(c), c)
	}
	return nil
}
