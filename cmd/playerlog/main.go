// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command playerlog inspects, edits, compacts and serves a player log.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/bpowers/playerlog"
	"github.com/bpowers/playerlog/player"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "playerlog: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "playerlog",
		Usage: "inspect and maintain an append-only player log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML configuration file",
			},
			&cli.StringFlag{
				Name:  "path",
				Usage: "path to the player log (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "one of debug, info, warn, error (overrides the config file)",
			},
		},
		Commands: []*cli.Command{
			inspectCommand,
			getCommand,
			setCommand,
			compactCommand,
			shellCommand,
			serveCommand,
		},
	}
}

// loadSettings merges the config file with global flag overrides.
func loadSettings(c *cli.Context) (*settings, error) {
	cfg, err := LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("path") {
		cfg.Path = c.String("path")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg.validate()
}

func openStore(c *cli.Context, opts ...playerlog.Option) (*playerlog.Store, *settings, error) {
	s, err := loadSettings(c)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]playerlog.Option{playerlog.WithLogger(s.logger(c.App.ErrWriter))}, opts...)
	store, err := playerlog.Open(s.path, opts...)
	if err != nil {
		return nil, nil, err
	}
	return store, s, nil
}

var inspectCommand = &cli.Command{
	Name:  "inspect",
	Usage: "summarize the log without modifying it",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "players",
			Usage: "also print every player's latest snapshot",
		},
	},
	Action: func(c *cli.Context) error {
		s, err := loadSettings(c)
		if err != nil {
			return err
		}
		report, err := playerlog.Scan(s.path, playerlog.WithLogger(s.logger(c.App.ErrWriter)))
		if err != nil {
			return err
		}
		w := c.App.Writer
		fmt.Fprintf(w, "path:        %s\n", s.path)
		fmt.Fprintf(w, "version:     %d\n", report.Version)
		fmt.Fprintf(w, "players:     %d\n", len(report.Players))
		fmt.Fprintf(w, "snapshots:   %d\n", report.Envelopes)
		fmt.Fprintf(w, "skipped:     %d\n", report.Skipped)
		fmt.Fprintf(w, "bytes:       %d (%d valid)\n", report.FileBytes, report.ValidBytes)
		fmt.Fprintf(w, "scan ended:  %s\n", report.StopReason)
		if c.Bool("players") {
			for _, r := range report.Players {
				fmt.Fprintln(w, formatRecord(r))
			}
		}
		return nil
	},
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "print a player's latest snapshot",
	ArgsUsage: "<name|uuid>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("get takes exactly one player")
		}
		s, err := loadSettings(c)
		if err != nil {
			return err
		}
		report, err := playerlog.Scan(s.path, playerlog.WithLogger(s.logger(c.App.ErrWriter)))
		if err != nil {
			return err
		}
		want := c.Args().First()
		for _, r := range report.Players {
			if strings.EqualFold(r.Name, want) || r.ID.String() == strings.ToLower(want) {
				fmt.Fprintln(c.App.Writer, formatRecord(r))
				return nil
			}
		}
		return fmt.Errorf("no player %q", want)
	},
}

var setCommand = &cli.Command{
	Name:      "set",
	Usage:     "set one of a player's skills and save it",
	ArgsUsage: "<name|uuid> <skill> <value>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "also set the player's display name",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 3 {
			return fmt.Errorf("set takes a player, a skill and a value")
		}
		store, _, err := openStore(c)
		if err != nil {
			return err
		}
		err = setSkill(store, c.Args().Get(0), c.Args().Get(1), c.Args().Get(2), c.String("name"))
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
		return err
	},
}

func setSkill(store *playerlog.Store, who, skillName, value, name string) error {
	id, err := resolvePlayer(store, who)
	if err != nil {
		return err
	}
	skill, err := player.ParseSkill(skillName)
	if err != nil {
		return err
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	if err := store.SetSkill(id, skill, v); err != nil {
		return err
	}
	if name != "" {
		store.Update(id, func(r *player.Record) {
			r.Name = name
		})
	}
	return store.Save(id)
}

var compactCommand = &cli.Command{
	Name:  "compact",
	Usage: "rewrite the log keeping only each player's latest snapshot",
	Action: func(c *cli.Context) error {
		store, _, err := openStore(c)
		if err != nil {
			return err
		}
		stats, err := store.Compact()
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "compacted %d players: %d -> %d bytes\n", stats.Records, stats.BytesBefore, stats.BytesAfter)
		return nil
	},
}

// resolvePlayer maps a display name or UUID to an id.  A UUID the store
// has never seen is accepted and becomes a new player.
func resolvePlayer(store *playerlog.Store, who string) (uuid.UUID, error) {
	if r, ok := store.Lookup(who); ok {
		return r.ID, nil
	}
	id, err := uuid.Parse(who)
	if err != nil {
		return uuid.Nil, fmt.Errorf("no player named %q", who)
	}
	return id, nil
}

func formatRecord(r player.Record) string {
	var sb strings.Builder
	sb.WriteString(r.ID.String())
	if r.Name != "" {
		fmt.Fprintf(&sb, " (%s)", r.Name)
	}
	for _, s := range r.SortedSkills() {
		fmt.Fprintf(&sb, " %s=%d", strings.ToLower(s.String()), r.Skills[s])
	}
	if !r.SavedAt.IsZero() {
		fmt.Fprintf(&sb, " saved=%s", r.SavedAt.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	return sb.String()
}
