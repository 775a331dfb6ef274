// mxsync logs in to a homeserver and streams sync batches until
// interrupted. The session and the last cursor are kept in a state file so
// that the next run resumes where this one stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/adamwoolhether/mxclient/api/r0/sync/syncevents"
	"github.com/adamwoolhether/mxclient/client"
	"github.com/adamwoolhether/mxclient/endpoint"
)

const banner = `
    ╭───────────────────────────╮
    │   ┏┳┓╻ ╻┏━┓╻ ╻┏┓╻┏━╸      │
    │   ┃┃┃┏╋┛┗━┓┗┳┛┃┗┫┃        │
    │   ╹ ╹╹ ╹┗━┛ ╹ ╹ ╹┗━╸      │
    ╰───────────────────────────╯
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var (
		configPath string
		statePath  string
		homeserver string
		username   string
		since      string
		logLevel   string
		guest      bool
		suppress   bool
		once       bool
		noColor    bool
	)

	flagSet := pflag.NewFlagSet("mxsync", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the TOML config file")
	flagSet.StringVar(&statePath, "state", "", "path to the state file (default: XDG data dir)")
	flagSet.StringVar(&homeserver, "homeserver", "", "homeserver URL, overrides matrix.homeserver")
	flagSet.StringVarP(&username, "user", "u", "", "user to log in as, overrides matrix.username")
	flagSet.StringVar(&since, "since", "", "cursor to resume from, overrides the saved one")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.BoolVar(&guest, "guest", false, "register a guest account instead of logging in")
	flagSet.BoolVar(&suppress, "suppress-presence", false, "do not mark the user online while syncing")
	flagSet.BoolVar(&once, "once", false, "stop after the first batch")
	flagSet.BoolVar(&noColor, "no-color", false, "disable colored output")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := Load(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && flagSet.Changed("homeserver"):
		cfg, err = Parse("")
		if err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	if flagSet.Changed("homeserver") {
		cfg.Matrix.Homeserver = homeserver
	}
	if flagSet.Changed("user") {
		cfg.Matrix.Username = username
	}
	if guest {
		cfg.Matrix.Username, cfg.Matrix.Password = "", ""
	}
	if flagSet.Changed("since") {
		cfg.Sync.Since = since
	}
	if flagSet.Changed("suppress-presence") {
		cfg.Sync.SuppressPresence = suppress
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if statePath != "" {
		cfg.State.Path = statePath
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaultStatePath()
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if noColor {
		color.NoColor = true
	}
	color.New(color.FgCyan).Fprint(out, banner)

	r := runner{
		cfg:    cfg,
		logger: setupLogger(cfg.Logging.Level),
		out:    out,
		once:   once,
	}

	return r.run(ctx)
}

type runner struct {
	cfg    *Config
	logger *slog.Logger
	out    io.Writer
	once   bool
}

func (r *runner) run(ctx context.Context) error {
	st, err := LoadState(r.cfg.State.Path)
	if err != nil {
		return err
	}

	opts := []client.Option{
		client.WithLogger(r.logger),
		client.WithTimeout(r.cfg.HTTP.Timeout.Duration),
		client.WithUserAgent(r.cfg.HTTP.UserAgent),
	}
	restored := st.Session != nil && st.Homeserver == r.cfg.Matrix.Homeserver
	if restored {
		opts = append(opts, client.WithSession(*st.Session))
	}

	c, err := client.Build(r.cfg.Matrix.Homeserver, opts...)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}
	defer c.CloseIdleConnections()

	if !restored {
		if err := r.authenticate(ctx, c, &st); err != nil {
			return err
		}
	}

	session, _ := c.Session()
	r.info("Homeserver", r.cfg.Matrix.Homeserver)
	r.info("User", session.UserID)
	r.info("Device", session.DeviceID)
	r.info("State", r.cfg.State.Path)
	fmt.Fprintln(r.out)

	syncOpts := client.SyncOptions{
		Filter:           r.filter(),
		Since:            st.NextBatch,
		SuppressPresence: r.cfg.Sync.SuppressPresence,
	}
	if r.cfg.Sync.Since != "" {
		syncOpts.Since = r.cfg.Sync.Since
	}

	for resp, err := range c.Sync(ctx, syncOpts) {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if restored && endpoint.IsAPIError(err, endpoint.ErrCodeUnknownToken) {
				return fmt.Errorf("saved session was rejected, remove %s to log in again: %w", r.cfg.State.Path, err)
			}
			return fmt.Errorf("syncing: %w", err)
		}

		sum := summarize(resp)
		sum.print(r.out)

		st.NextBatch = resp.NextBatch
		if err := st.Save(r.cfg.State.Path); err != nil {
			return err
		}

		if r.once {
			return nil
		}

		if sum.empty() && r.cfg.Sync.PollInterval.Duration > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.cfg.Sync.PollInterval.Duration):
			}
		}
	}

	return nil
}

// authenticate obtains a new session and saves it, dropping any cursor
// that belonged to a previous account.
func (r *runner) authenticate(ctx context.Context, c *client.Client, st *State) error {
	var (
		session client.Session
		err     error
	)

	if r.cfg.Guest() {
		session, err = c.RegisterGuest(ctx)
	} else {
		session, err = c.LogIn(ctx, r.cfg.Matrix.Username, r.cfg.Matrix.Password, r.cfg.Matrix.DeviceID)
	}
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	*st = State{
		Homeserver: r.cfg.Matrix.Homeserver,
		Session:    &session,
	}

	return st.Save(r.cfg.State.Path)
}

func (r *runner) filter() *syncevents.Filter {
	switch {
	case r.cfg.Sync.FilterID != "":
		return &syncevents.Filter{ID: r.cfg.Sync.FilterID}
	case r.cfg.Sync.TimelineLimit > 0:
		return &syncevents.Filter{Definition: &syncevents.FilterDefinition{
			Room: &syncevents.RoomFilter{
				Timeline: &syncevents.EventFilter{Limit: r.cfg.Sync.TimelineLimit},
			},
		}}
	}
	return nil
}

func (r *runner) info(label, value string) {
	color.New(color.FgGreen).Fprint(r.out, "    ▶ ")
	fmt.Fprintf(r.out, "%-11s %s\n", label+":", value)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
