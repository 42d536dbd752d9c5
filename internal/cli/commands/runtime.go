package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/config"
	"github.com/transitly/transitly/internal/cli/credstore"
	"github.com/transitly/transitly/internal/cli/serverselect"
	"github.com/transitly/transitly/internal/cli/session"
)

// GlobalOptions holds the persistent flags shared by every command
type GlobalOptions struct {
	Server          string
	Credentials     string
	CredentialsFile string

	Logger zerolog.Logger
	Out    io.Writer
	Err    io.Writer
	// In feeds interactive prompts line by line; nil means the terminal
	In io.Reader

	lines *bufio.Reader
}

func (o *GlobalOptions) stdout() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o *GlobalOptions) stderr() io.Writer {
	if o.Err == nil {
		return os.Stderr
	}
	return o.Err
}

// runtime is everything a command needs to talk to the selected server
type runtime struct {
	server  *config.Server
	project *config.Config
	store   credstore.Store
	client  *client.Client
	session *session.Manager
	notify  session.Notifier
	out     io.Writer
}

// loadProject returns the project config, or nil when there is none
func loadProject() (*config.Config, error) {
	cfg, err := config.LoadFromCurrentDir()
	if errors.Is(err, config.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// open resolves the server, wires store, client and session together and
// restores the stored session.
func (o *GlobalOptions) open(ctx context.Context) (*runtime, error) {
	project, err := loadProject()
	if err != nil {
		return nil, err
	}

	target := o.Server
	if target == "" {
		target = os.Getenv("TRANSITLY_SERVER")
	}
	server, err := serverselect.ResolveServer(project, target)
	if err != nil {
		return nil, err
	}
	serverURL, err := config.NormalizeURL(server.URL)
	if err != nil {
		return nil, err
	}

	backend := o.Credentials
	if backend == "" && project != nil {
		backend = project.Credentials
	}
	store, err := credstore.Open(backend, serverURL, o.CredentialsFile)
	if err != nil {
		return nil, err
	}

	c := client.New(serverURL, store, client.WithLogger(o.Logger))

	notify := &cliNotifier{out: o.stdout(), logger: o.Logger}
	manager := session.NewManager(store, c,
		session.WithNotifier(notify),
		session.WithLogger(o.Logger),
	)
	c.SetRefresher(manager)
	manager.Bootstrap(ctx)

	o.Logger.Debug().
		Str("server", serverURL).
		Str("state", manager.State().String()).
		Msg("Session bootstrapped")

	return &runtime{
		server:  server,
		project: project,
		store:   store,
		client:  c,
		session: manager,
		notify:  notify,
		out:     o.stdout(),
	}, nil
}

// requireLogin fails fast when there is no stored session
func (r *runtime) requireLogin() error {
	if !r.session.IsAuthenticated() {
		return fmt.Errorf("not logged in to %s. Run 'transitly login' first", r.server.Alias)
	}
	return nil
}

// success shows a success notice for a user-initiated change
func (r *runtime) success(title, format string, args ...any) {
	r.notify.Notify(session.Notice{Kind: session.NoticeSuccess, Title: title, Message: fmt.Sprintf(format, args...)})
}

// friendly turns an API failure into the message the user should see. A
// session expiry is returned unchanged so its cause stays inspectable.
func friendly(err error, fallback string) error {
	if err == nil || errors.Is(err, session.ErrSessionExpired) {
		return err
	}
	var userErr *session.UserError
	if errors.As(err, &userErr) {
		return err
	}
	msg, network := session.FriendlyMessage(err, fallback)
	return &session.UserError{Title: fallback, Message: msg, Network: network, Err: err}
}

// cliNotifier prints success and info notices. Errors reach the user
// through the returned error, so they are only logged here.
type cliNotifier struct {
	out    io.Writer
	logger zerolog.Logger
}

func (n *cliNotifier) Notify(notice session.Notice) {
	switch notice.Kind {
	case session.NoticeSuccess:
		fmt.Fprintf(n.out, "✓ %s: %s\n", notice.Title, notice.Message)
	case session.NoticeInfo:
		fmt.Fprintf(n.out, "%s: %s\n", notice.Title, notice.Message)
	default:
		n.logger.Debug().Str("title", notice.Title).Msg(notice.Message)
	}
}
