// blogctl is a command-line client for the blog API: account registration,
// login/logout with a locally persisted session, and CRUD on posts.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"blogclient/internal/api"
	"blogclient/internal/auth"
	"blogclient/internal/blog"
	"blogclient/internal/guard"
	"blogclient/internal/session"
	"blogclient/internal/tokenstore"
)

type app struct {
	sessions *session.Manager
	guard    *guard.Guard
	auth     *auth.Service
	blogs    *blog.Service
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store := tokenstore.New(cfg.credentialPath)
	sessions := session.NewManager(store)
	sessions.Restore()

	client := api.NewClient(cfg.baseURL,
		func() (string, bool) {
			tokens, _, ok, err := store.Load()
			if err != nil || !ok {
				return "", false
			}
			return tokens.AccessToken, true
		},
		api.WithTimeout(cfg.timeout),
		api.WithUnauthorizedHook(func() {
			sessions.Terminate()
			log.Println("session expired or rejected; logged out")
		}),
	)

	a := &app{
		sessions: sessions,
		guard:    guard.New(sessions, "blogctl login"),
		auth:     auth.NewService(client),
		blogs:    blog.NewService(client, sessions),
	}

	if err := a.cli().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:  "blogctl",
		Usage: "read and write posts on the blog API",
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: a.register,
			},
			{
				Name:  "login",
				Usage: "log in and persist the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: a.login,
			},
			{
				Name:   "logout",
				Usage:  "discard the persisted session",
				Action: a.logout,
			},
			{
				Name:   "whoami",
				Usage:  "show the logged-in identity",
				Action: a.whoami,
			},
			{
				Name:  "list",
				Usage: "list posts, one page at a time",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "size", Value: 10},
				},
				Action: a.list,
			},
			{
				Name:      "get",
				Usage:     "show one post",
				ArgsUsage: "<id>",
				Action:    a.get,
			},
			{
				Name:  "create",
				Usage: "publish a new post",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
				},
				Action: a.create,
			},
			{
				Name:      "update",
				Usage:     "rewrite a post you authored",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
				},
				Action: a.update,
			},
			{
				Name:      "delete",
				Usage:     "delete a post you authored",
				ArgsUsage: "<id>",
				Action:    a.remove,
			},
		},
	}
}

// requireLogin is the CLI's route guard: protected commands run only behind
// an authenticated session.
func (a *app) requireLogin() error {
	switch a.guard.Check() {
	case guard.Allow:
		return nil
	case guard.Pending:
		return cli.Exit("session state is still settling; try again", 1)
	default:
		return cli.Exit(fmt.Sprintf("not logged in — run `%s` first", a.guard.LoginTarget()), 1)
	}
}

func (a *app) register(c *cli.Context) error {
	msg, err := a.auth.Register(c.Context, c.String("email"), c.String("password"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Println(msg)
	return nil
}

func (a *app) login(c *cli.Context) error {
	result, err := a.auth.Login(c.Context, c.String("email"), c.String("password"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := a.sessions.Establish(result.User, result.Tokens); err != nil {
		return cli.Exit(fmt.Sprintf("persist session: %v", err), 1)
	}
	fmt.Printf("logged in as %s\n", result.User.Email)
	return nil
}

func (a *app) logout(c *cli.Context) error {
	a.sessions.Terminate()
	fmt.Println("logged out")
	return nil
}

func (a *app) whoami(c *cli.Context) error {
	sess, ok := a.sessions.Current()
	if !ok {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s (user %d), session valid until %s\n",
		sess.Email, sess.UserID, sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (a *app) list(c *cli.Context) error {
	page, err := a.blogs.List(c.Context, c.Int("page"), c.Int("size"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCREATED")
	for _, post := range page.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			post.ID, post.Title, post.AuthorUsername, post.CreatedAt.Local().Format("2006-01-02"))
	}
	w.Flush()
	fmt.Printf("page %d/%d (%d posts)\n", page.PageNumber, page.TotalPages, page.TotalCount)
	return nil
}

func (a *app) get(c *cli.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	post, err := a.blogs.Get(c.Context, id)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("#%d %s\nby %s on %s\n\n%s\n",
		post.ID, post.Title, post.AuthorUsername,
		post.CreatedAt.Local().Format("2006-01-02"), post.Content)
	return nil
}

func (a *app) create(c *cli.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	post, err := a.blogs.Create(c.Context, c.String("title"), c.String("content"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("created post %d\n", post.ID)
	return nil
}

func (a *app) update(c *cli.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}
	post, err := a.blogs.Update(c.Context, id, c.String("title"), c.String("content"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("updated post %d\n", post.ID)
	return nil
}

func (a *app) remove(c *cli.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}
	if err := a.blogs.Delete(c.Context, id); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("deleted post %d\n", id)
	return nil
}

func postID(c *cli.Context) (int64, error) {
	raw := c.Args().First()
	if raw == "" {
		return 0, cli.Exit("a post id is required", 1)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, cli.Exit(fmt.Sprintf("invalid post id %q", raw), 1)
	}
	return id, nil
}
