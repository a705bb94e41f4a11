// Package main is the filebox command, a thin shell front end over the
// filebox library for inspecting and editing box files.
//
// Usage:
//
//	filebox [flags] init <path> [value]
//	filebox [flags] get <path>
//	filebox [flags] set <path> <value>
//	filebox [flags] rm <path>
//	filebox [flags] log <path>
//	filebox [flags] watch <path>
//
// Values are literals in the selected codec, so `filebox set c.box 10` with
// the default JSON codec stores the number ten. Configuration comes from
// flags first and FILEBOX_* environment variables second.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/ftxqxd/filebox"
	"github.com/ftxqxd/filebox/history"
	"github.com/ftxqxd/filebox/watch"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "filebox: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	codecName := flag.String("codec", "json", "Box file codec (json, yaml)")
	passphrase := flag.String("passphrase", "", "Seal box files with this passphrase")
	historyDir := flag.String("history", "", "Record changed flushes as git commits in this directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	// Environment variables fill in flags not explicitly set.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["codec"] {
		if v := os.Getenv("FILEBOX_CODEC"); v != "" {
			*codecName = v
		}
	}
	if !set["passphrase"] {
		if v := os.Getenv("FILEBOX_PASSPHRASE"); v != "" {
			*passphrase = v
		}
	}
	if !set["history"] {
		if v := os.Getenv("FILEBOX_HISTORY"); v != "" {
			*historyDir = v
		}
	}
	if !set["log-level"] {
		if v := os.Getenv("FILEBOX_LOG_LEVEL"); v != "" {
			*logLevel = v
		}
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	plain, err := codecFor(*codecName)
	if err != nil {
		return err
	}
	codec := plain
	if *passphrase != "" {
		codec = filebox.Sealed(plain, *passphrase)
	}
	a := &app{codec: codec, plain: plain, out: os.Stdout}
	if *historyDir != "" {
		rec, err := history.NewRecorder(*historyDir, "", "")
		if err != nil {
			return err
		}
		a.rec = rec
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "init":
		if len(args) != 1 && len(args) != 2 {
			return errors.New("usage: filebox init <path> [value]")
		}
		literal := ""
		if len(args) == 2 {
			literal = args[1]
		}
		return a.init(args[0], literal)
	case "get":
		if len(args) != 1 {
			return errors.New("usage: filebox get <path>")
		}
		return a.get(args[0])
	case "set":
		if len(args) != 2 {
			return errors.New("usage: filebox set <path> <value>")
		}
		return a.set(args[0], args[1])
	case "rm":
		if len(args) != 1 {
			return errors.New("usage: filebox rm <path>")
		}
		return a.rm(args[0])
	case "log":
		if len(args) != 1 {
			return errors.New("usage: filebox log <path>")
		}
		return a.log(args[0])
	case "watch":
		if len(args) != 1 {
			return errors.New("usage: filebox watch <path>")
		}
		return a.watch(ctx, args[0])
	default:
		usage()
		return fmt.Errorf("unknown command: %q", cmd)
	}
}

// app holds the resolved configuration shared by the subcommands. codec is
// what box files are read and written with, possibly sealed; plain handles
// command line literals and printed output, which stay cleartext.
type app struct {
	codec filebox.Codec[any]
	plain filebox.Codec[any]
	rec   *history.Recorder
	out   io.Writer
}

// opts returns the box options implied by the configuration.
func (a *app) opts() []filebox.Option {
	if a.rec == nil {
		return nil
	}
	return []filebox.Option{filebox.WithObserver(a.rec)}
}

// init creates a box file holding the given literal, or the codec's null
// value when none is given.
func (a *app) init(path, literal string) error {
	var b *filebox.Box[any]
	var err error
	if literal == "" {
		b, err = filebox.CreateDefault(path, a.codec, a.opts()...)
	} else {
		var value any
		if value, err = a.plain.Decode([]byte(literal)); err != nil {
			return fmt.Errorf("invalid value: %w", err)
		}
		b, err = filebox.Create(path, a.codec, value, a.opts()...)
	}
	if err != nil {
		return err
	}
	return b.Close()
}

// get prints the current value without disturbing the file.
func (a *app) get(path string) error {
	value, err := filebox.Peek(path, a.codec)
	if err != nil {
		return err
	}
	data, err := a.plain.Encode(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%s\n", data)
	return err
}

// set stores the literal, creating the box file when missing.
func (a *app) set(path, literal string) error {
	value, err := a.plain.Decode([]byte(literal))
	if err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	b, err := filebox.OpenOrCreate(path, a.codec, a.opts()...)
	if err != nil {
		return err
	}
	b.Value = value
	return b.Close()
}

// rm removes a box file without opening it, so corrupt files are removable
// and a failed removal leaves the contents intact.
func (a *app) rm(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// log prints the recorded flushes of a box file, newest first.
func (a *app) log(path string) error {
	if a.rec == nil {
		return errors.New("log requires -history")
	}
	commits, err := a.rec.Log(path, 20)
	if err != nil {
		return err
	}
	for _, c := range commits {
		if _, err := fmt.Fprintf(a.out, "%.8s  %s  %s\n", c.Hash, c.When.Format(time.DateTime), c.Subject); err != nil {
			return err
		}
	}
	return nil
}

// watch prints each settled revision of a box file until interrupted.
func (a *app) watch(ctx context.Context, path string) error {
	return watch.Watch(ctx, path, a.codec, func(value any, err error) {
		if err != nil {
			slog.Warn("Box file revision did not decode", "path", path, "err", err)
			return
		}
		data, err := a.plain.Encode(value)
		if err != nil {
			slog.Warn("Failed to re-encode revision", "path", path, "err", err)
			return
		}
		_, _ = fmt.Fprintf(a.out, "%s\n", data)
	})
}

func codecFor(name string) (filebox.Codec[any], error) {
	switch name {
	case "json":
		return filebox.JSON[any](), nil
	case "yaml":
		return filebox.YAML[any](), nil
	default:
		return nil, fmt.Errorf("unknown codec: %q", name)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: filebox [flags] <command> [args]\n\n")
	fmt.Fprintf(out, "Commands:\n")
	fmt.Fprintf(out, "  init <path> [value]  Create a box file\n")
	fmt.Fprintf(out, "  get <path>           Print the current value\n")
	fmt.Fprintf(out, "  set <path> <value>   Store a value, creating the file when missing\n")
	fmt.Fprintf(out, "  rm <path>            Remove a box file\n")
	fmt.Fprintf(out, "  log <path>           Print recorded flushes (requires -history)\n")
	fmt.Fprintf(out, "  watch <path>         Print each revision as it settles\n\n")
	fmt.Fprintf(out, "Flags:\n")
	flag.PrintDefaults()
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("filebox %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
