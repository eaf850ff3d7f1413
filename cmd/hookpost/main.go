/*
Hookpost is a CLI tool for posting messages to Discord webhooks.

Usage:

	hookpost [global options] command [command options]

Commands are:

	send          send a message to webhooks
	preview       show the JSON payload of a message without sending it
	ping          send a test message to a configured webhook
	feed          posts the latest feed item to configured webhooks
	stats         show delivery statistics
	check-config  checks wether the config is valid
	help, h       Shows a list of commands or help for one command

Global flags are:

	--config value  path to configuration file (default: "config.toml")
	--db value      directory of the database file
	--help, -h      show help
	--version, -v   print the version
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/ErikKalkoken/hookpost/internal/config"
	"github.com/ErikKalkoken/hookpost/internal/dhook"
	"github.com/ErikKalkoken/hookpost/internal/msgfile"
	"github.com/ErikKalkoken/hookpost/internal/service"
	"github.com/ErikKalkoken/hookpost/internal/storage"
)

const (
	configFilename = "config.toml"
	dbFileName     = "hookpost.db"
	dbOpenTimeout  = 5 * time.Second
)

// Overwritten with current tag when released
var Version = "0.0.0"

func main() {
	var cfg config.Config
	messageFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "read message from a TOML file"},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "text content of the message"},
			&cli.StringFlag{Name: "username", Usage: "override the username of the webhook"},
			&cli.StringFlag{Name: "avatar-url", Usage: "override the avatar of the webhook"},
			&cli.StringFlag{Name: "thread-name", Usage: "create a new thread with this name in a forum channel"},
			&cli.BoolFlag{Name: "silent", Usage: "suppress push and desktop notifications"},
		}
	}
	app := &cli.App{
		Name:    "hookpost",
		Usage:   "Post messages to Discord webhooks",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to configuration file",
				Value: configFilename,
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "directory of the database file",
			},
		},
		Before: func(cCtx *cli.Context) error {
			var err error
			cfg, err = readConfig(cCtx.String("config"))
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if p := cCtx.String("db"); p != "" {
				cfg.App.DBPath = p
			}
			slog.SetLogLoggerLevel(cfg.App.LoggerLevel())
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "send a message to webhooks",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "webhook", Aliases: []string{"w"}, Usage: "name of a configured webhook"},
					&cli.StringSliceFlag{Name: "url", Usage: "URL of a webhook"},
				}, messageFlags()...),
				Action: func(cCtx *cli.Context) error {
					m, err := messageFromFlags(cCtx)
					if err != nil {
						return err
					}
					return withService(cfg, func(s *service.Service) error {
						targets, err := s.Targets(cCtx.StringSlice("webhook"), cCtx.StringSlice("url"))
						if err != nil {
							return err
						}
						if err := s.Send(cCtx.Context, m, targets); err != nil {
							return err
						}
						fmt.Printf("Message sent to %d webhook(s)\n", len(targets))
						return nil
					})
				},
			},
			{
				Name:  "preview",
				Usage: "show the JSON payload of a message without sending it",
				Flags: messageFlags(),
				Action: func(cCtx *cli.Context) error {
					m, err := messageFromFlags(cCtx)
					if err != nil {
						return err
					}
					s := service.New(cfg, nil, http.DefaultClient)
					text, err := s.Preview(m)
					if err != nil {
						return err
					}
					fmt.Println(text)
					if err := m.Validate(); err != nil {
						fmt.Printf("WARNING: %s\n", err)
					}
					return nil
				},
			},
			{
				Name:      "ping",
				Usage:     "send a test message to a configured webhook",
				ArgsUsage: "webhook-name",
				Action: func(cCtx *cli.Context) error {
					name := cCtx.Args().First()
					if name == "" {
						return errors.New("no webhook specified")
					}
					return withService(cfg, func(s *service.Service) error {
						if err := s.Ping(cCtx.Context, name); err != nil {
							return err
						}
						fmt.Printf("Ping sent to \"%s\"\n", name)
						return nil
					})
				},
			},
			{
				Name:      "feed",
				Usage:     "posts the latest feed item to configured webhooks",
				ArgsUsage: "feed-name",
				Action: func(cCtx *cli.Context) error {
					name := cCtx.Args().First()
					if name == "" {
						return errors.New("no feed specified")
					}
					return withService(cfg, func(s *service.Service) error {
						if err := s.PostLatestFeedItem(cCtx.Context, name); err != nil {
							return err
						}
						fmt.Printf("Posted latest item from \"%s\"\n", name)
						return nil
					})
				},
			},
			{
				Name:  "stats",
				Usage: "show delivery statistics",
				Action: func(cCtx *cli.Context) error {
					return withService(cfg, func(s *service.Service) error {
						text, err := s.Statistics()
						if err != nil {
							return err
						}
						fmt.Print(text)
						return nil
					})
				},
			},
			{
				Name:  "check-config",
				Usage: "checks wether the config is valid",
				Action: func(cCtx *cli.Context) error {
					if _, err := config.FromFile(cCtx.String("config")); err != nil {
						return err
					}
					fmt.Println("Config is valid")
					return nil
				},
			},
		},
	}
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

// readConfig returns the configuration from a file.
// A missing file results in the default configuration.
func readConfig(path string) (config.Config, error) {
	cfg, err := config.FromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No config file found. Using defaults.", "path", path)
		return config.Default(), nil
	}
	return cfg, err
}

// withService runs f with a service connected to the database.
func withService(cfg config.Config, f func(s *service.Service) error) error {
	p := filepath.Join(cfg.App.DBPath, dbFileName)
	db, err := bolt.Open(p, 0600, &bolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return fmt.Errorf("open DB: %w", err)
	}
	defer db.Close()
	st := storage.New(db)
	if err := st.Init(); err != nil {
		return fmt.Errorf("init DB: %w", err)
	}
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.App.Timeout) * time.Second,
	}
	return f(service.New(cfg, st, httpClient))
}

// messageFromFlags returns the message described by the message flags.
// Flags override values from a message file.
func messageFromFlags(cCtx *cli.Context) (dhook.Message, error) {
	var m dhook.Message
	if p := cCtx.String("file"); p != "" {
		var err error
		m, err = msgfile.Load(p)
		if err != nil {
			return m, err
		}
	}
	if cCtx.IsSet("content") {
		m.Content = cCtx.String("content")
	}
	if cCtx.IsSet("username") {
		m.Username = cCtx.String("username")
	}
	if cCtx.IsSet("avatar-url") {
		m.AvatarURL = cCtx.String("avatar-url")
	}
	if cCtx.IsSet("thread-name") {
		m.ThreadName = cCtx.String("thread-name")
	}
	if cCtx.Bool("silent") {
		m.SuppressNotifications = true
	}
	return m, nil
}
