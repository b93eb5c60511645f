package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/borgmon/meetalert/pkg/agenda"
	"github.com/borgmon/meetalert/pkg/calendar"
	"github.com/borgmon/meetalert/pkg/engine"
	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
	"github.com/borgmon/meetalert/pkg/store"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

type sourceFactory func(cfg *models.Config, log logging.Logger) (engine.Source, error)

type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool

	newSource sourceFactory
	secrets   calendar.Secrets
	now       func() time.Time
}

func defaultOptions() *rootOptions {
	return &rootOptions{
		newSource: func(cfg *models.Config, log logging.Logger) (engine.Source, error) {
			return calendar.FromConfig(cfg, calendar.Deps{Log: log})
		},
		secrets: calendar.KeyringSecrets{},
		now:     time.Now,
	}
}

func (o *rootOptions) resolvedConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return store.DefaultConfigPath()
}

func (o *rootOptions) loadConfig() (*models.Config, error) {
	path, err := o.resolvedConfigPath()
	if err != nil {
		return nil, err
	}
	return store.LoadFile(path)
}

// logger builds the logger from the config, letting flags win.
func (o *rootOptions) logger(cfg *models.Config, out io.Writer) logging.Logger {
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	return logging.New(logging.Config{
		Level:      logging.Level(level),
		JSONFormat: cfg.LogJSON || o.logJSON,
		Output:     out,
	})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "meetalert",
		Short:         "Full-screen alerts seconds before your next meeting",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesktop(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/meetalert/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "write logs as JSON")

	cmd.AddCommand(
		newAgendaCmd(opts),
		newCheckCmd(opts),
		newAuthCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newAgendaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agenda",
		Short: "Fetch the calendars once and print the rest of today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := fetchAgenda(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			writeAgenda(cmd.OutOrStdout(), a, opts.now())
			return nil
		},
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Print what the alert clock would do right now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := fetchAgenda(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), describeCheck(a, opts.now(), cfg.AlertThreshold))
			return nil
		},
	}
}

func newAuthCmd(opts *rootOptions) *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Authorize calendar sources",
	}
	auth.AddCommand(&cobra.Command{
		Use:   "google <source-id>",
		Short: "Run the Google OAuth flow and store the token in the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			src, err := findSource(cfg, args[0], models.SourceGoogle)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			prompt := func(authURL string) (string, error) {
				fmt.Fprintf(out, "Open this link in your browser and authorize meetalert:\n\n  %s\n\nPaste the authorization code: ", authURL)
				code, err := in.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return "", err
				}
				return strings.TrimSpace(code), nil
			}

			if err := calendar.Authorize(cmd.Context(), src, opts.secrets, prompt); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token stored for %q.\n", src.Name)
			return nil
		},
	})
	return auth
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "meetalert %s\n", version)
		},
	}
}

func findSource(cfg *models.Config, id string, typ models.SourceType) (models.SourceConfig, error) {
	for _, s := range cfg.Sources {
		if s.ID == id {
			if s.Type != typ {
				return models.SourceConfig{}, fmt.Errorf("source %q is %s, not %s", id, s.Type, typ)
			}
			return s, nil
		}
	}
	return models.SourceConfig{}, fmt.Errorf("no source with id %q", id)
}

// fetchAgenda runs one refresh outside the engine and builds today's agenda.
func fetchAgenda(ctx context.Context, opts *rootOptions, logOut io.Writer) (agenda.Agenda, *models.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return agenda.Agenda{}, nil, err
	}
	log := opts.logger(cfg, logOut)

	if cfg.NeedsConfiguration() {
		path, _ := opts.resolvedConfigPath()
		log.Warn("no calendar sources configured", logging.F("config", path))
	}

	src, err := opts.newSource(cfg, log)
	if err != nil {
		return agenda.Agenda{}, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	raws, err := src.Fetch(ctx)
	if err != nil {
		if engine.IsAccessDenied(err) {
			return agenda.Agenda{}, nil, fmt.Errorf("calendar access denied, check source credentials: %w", err)
		}
		return agenda.Agenda{}, nil, fmt.Errorf("fetch calendars: %w", err)
	}
	return agenda.Build(calendar.NormalizeAll(raws), opts.now()), cfg, nil
}

func execute() int {
	if err := newRootCmd(defaultOptions()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
