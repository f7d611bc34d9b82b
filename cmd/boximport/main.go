// Command boximport creates a playlist from a directory of music files and
// optionally binds it to an NFC tag.
//
//	boximport --name "Bedtime" --tag 04:a1:b2:c3 ~/Music/bedtime
//	boximport --list
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/llehouerou/musicbox/internal/config"
	"github.com/llehouerou/musicbox/internal/errmsg"
	"github.com/llehouerou/musicbox/internal/store"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("boximport", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.StringP("config", "c", "", "path to an extra config file")
	dbPath := flags.String("db", "", "SQLite database path")
	name := flags.StringP("name", "n", "", "playlist name (default: directory name)")
	tagID := flags.StringP("tag", "t", "", "NFC tag id to bind to the playlist")
	list := flags.Bool("list", false, "list playlists and tag bindings")
	verbose := flags.BoolP("verbose", "v", false, "log skipped files")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: boximport [flags] <dir>\n       boximport --list")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	overrides := map[string]any{}
	if flags.Changed("db") {
		overrides["database.path"] = *dbPath
	}
	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		return errmsg.Wrap(errmsg.OpConfigLoad, err)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return errmsg.Wrap(errmsg.OpDatabaseOpen, err)
	}
	defer st.Close()

	if *list {
		if err := listPlaylists(st, stdout); err != nil {
			return errmsg.Wrap(errmsg.OpPlaylistList, err)
		}
		return nil
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return errors.New("expected exactly one directory")
	}
	dir := flags.Arg(0)

	res, err := importDir(ctx, st, dir, *name, *tagID, log)
	if err != nil {
		return errmsg.WrapWith(errmsg.OpPlaylistImport, dir, err)
	}
	printResult(stdout, res)
	return nil
}
