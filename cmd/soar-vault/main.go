// Command soar-vault drives a throwaway mock vault from the shell: add files,
// attach stdin, or print the vault id a file would be stored under.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/soarmock/soarmock"
	"github.com/soarmock/soarmock/telemetry"
	"github.com/soarmock/soarmock/vault"
)

var version = "dev"

// CLI is the command line definition.
type CLI struct {
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info" enum:"debug,info,warn,error" env:"SOARMOCK_LOG_LEVEL"`
	LogFormat string `help:"Log format (tint, text, json)." default:"tint" enum:"tint,text,json" env:"SOARMOCK_LOG_FORMAT"`
	KeepRoot  bool   `help:"Leave the vault root on disk and print its path."`
	Metrics   bool   `help:"Print Prometheus metrics for the run to stderr on exit."`

	Version kong.VersionFlag `help:"Print version and exit."`

	Add    AddCmd    `cmd:"" help:"Add files to the vault and print their records."`
	Attach AttachCmd `cmd:"" help:"Store stdin as an attachment and print its record."`
	Hash   HashCmd   `cmd:"" help:"Print the vault id each file would be stored under."`
}

// Globals is passed to every command's Run method.
type Globals struct {
	Ctx    context.Context
	Store  *vault.Store
	Logger *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
}

// AddCmd adds files under one container.
type AddCmd struct {
	Container string            `help:"Container id." required:""`
	Name      string            `help:"File name to record (defaults to each file's base name)."`
	Meta      map[string]string `help:"Metadata as key=value." mapsep:","`
	Files     []string          `arg:"" type:"existingfile" help:"Files to add."`
}

func (c *AddCmd) Run(g *Globals) error {
	records := make([]*vault.Record, 0, len(c.Files))
	for _, file := range c.Files {
		rec, err := g.Store.Add(g.Ctx, c.Container, file, c.Name, metadata(c.Meta))
		if err != nil {
			return fmt.Errorf("adding %s: %w", file, err)
		}
		g.Logger.Info("added", "vault_id", rec.VaultID, "file", file, "container", rec.Container)
		records = append(records, rec)
	}
	return writeJSON(g.Stdout, records)
}

// AttachCmd stores stdin through the attachment API.
type AttachCmd struct {
	Container string            `help:"Container id." required:""`
	Name      string            `help:"Attachment file name." required:""`
	Meta      map[string]string `help:"Metadata as key=value." mapsep:","`
}

func (c *AttachCmd) Run(g *Globals) error {
	contents, err := io.ReadAll(g.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	rec, err := vault.NewAttachments(g.Store).CreateAttachment(g.Ctx, contents, c.Container, c.Name, metadata(c.Meta))
	if err != nil {
		return fmt.Errorf("creating attachment: %w", err)
	}
	g.Logger.Info("attached", "vault_id", rec.VaultID, "file_name", rec.FileName, "size", rec.Size)
	return writeJSON(g.Stdout, rec)
}

// HashCmd prints vault ids without storing anything.
type HashCmd struct {
	Files []string `arg:"" type:"existingfile" help:"Files to hash."`
}

func (c *HashCmd) Run(g *Globals) error {
	for _, file := range c.Files {
		h, _, err := soarmock.HashFile(file)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", file, err)
		}
		if _, err := fmt.Fprintf(g.Stdout, "%s  %s\n", h, file); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("soar-vault"),
		kong.Description("Exercise the mock SOAR vault outside a test run."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := run(kctx, &cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(kctx *kong.Context, cli *CLI) (retErr error) {
	logger, err := newLogger(cli.LogLevel, cli.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if cli.Metrics {
		shutdown, err := telemetry.InitMetrics(ctx, telemetry.MetricsConfig{
			ServiceName:      "soar-vault",
			ServiceVersion:   version,
			EnablePrometheus: true,
		})
		if err != nil {
			return fmt.Errorf("initialising metrics: %w", err)
		}
		defer func() {
			if err := dumpMetrics(os.Stderr, prometheus.DefaultGatherer); err != nil && retErr == nil {
				retErr = err
			}
			_ = shutdown(ctx)
		}()
	}

	store, err := vault.New(vault.WithLogger(logger), vault.WithInstrumentation("filesystem"))
	if err != nil {
		return err
	}
	defer func() {
		if cli.KeepRoot {
			logger.Info("keeping vault root", "root", store.Root())
			return
		}
		if err := store.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()

	return kctx.Run(&Globals{
		Ctx:    ctx,
		Store:  store,
		Logger: logger,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	})
}

func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "tint":
		handler = tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.Kitchen})
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}

func metadata(meta map[string]string) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}
