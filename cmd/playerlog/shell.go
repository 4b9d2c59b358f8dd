// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/urfave/cli/v2"

	"github.com/bpowers/playerlog"
	"github.com/bpowers/playerlog/player"
)

var shellCommand = &cli.Command{
	Name:  "shell",
	Usage: "edit players interactively; 'help' lists commands",
	Action: func(c *cli.Context) error {
		store, _, err := openStore(c)
		if err != nil {
			return err
		}
		err = runShell(store, c.App.Reader, c.App.Writer)
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
		return err
	},
}

const shellHelp = `commands:
  get <player>                    print a player
  set <player> <skill> <value>    set a skill
  add <player> <skill> <delta>    add to a skill
  name <player> <name>            set a display name
  save [player]                   save one player, or everyone
  find <prefix>                   list players by name prefix
  list                            list every player
  compact                         compact the log
  stats                           show log size and player count
  exit                            save everyone and quit
players are display names or UUIDs; quote names with spaces.`

// runShell executes one command per line of in until EOF or exit.
// Errors from individual commands are printed and don't end the shell.
func runShell(store *playerlog.Store, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if line != "" {
			if err := execLine(store, line, out); err != nil {
				fmt.Fprintf(out, "error: %s\n", err)
			}
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func execLine(store *playerlog.Store, line string, out io.Writer) error {
	args, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]

	wantArgs := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "help":
		fmt.Fprintln(out, shellHelp)
	case "get":
		if err := wantArgs(1); err != nil {
			return err
		}
		id, err := resolvePlayer(store, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, formatRecord(store.Get(id)))
	case "set", "add":
		if err := wantArgs(3); err != nil {
			return err
		}
		id, err := resolvePlayer(store, args[0])
		if err != nil {
			return err
		}
		skill, err := player.ParseSkill(args[1])
		if err != nil {
			return err
		}
		v, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		if cmd == "set" {
			err = store.SetSkill(id, skill, v)
		} else {
			v, err = store.AddSkill(id, skill, v)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s=%d\n", id, strings.ToLower(skill.String()), v)
	case "name":
		if err := wantArgs(2); err != nil {
			return err
		}
		id, err := resolvePlayer(store, args[0])
		if err != nil {
			return err
		}
		store.Update(id, func(r *player.Record) {
			r.Name = args[1]
		})
		fmt.Fprintln(out, formatRecord(store.Get(id)))
	case "save":
		if len(args) == 0 {
			return store.SaveAll()
		}
		if err := wantArgs(1); err != nil {
			return err
		}
		id, err := resolvePlayer(store, args[0])
		if err != nil {
			return err
		}
		return store.Save(id)
	case "find":
		if err := wantArgs(1); err != nil {
			return err
		}
		for _, r := range store.WithNamePrefix(args[0]) {
			fmt.Fprintln(out, formatRecord(r))
		}
	case "list":
		for _, r := range store.All() {
			fmt.Fprintln(out, formatRecord(r))
		}
	case "compact":
		stats, err := store.Compact()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "compacted %d players: %d -> %d bytes\n", stats.Records, stats.BytesBefore, stats.BytesAfter)
	case "stats":
		fmt.Fprintf(out, "%s: %d players, %d bytes\n", store.Path(), store.Len(), store.Size())
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}
