package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"

	"github.com/ptrkhr/duckpane/pkg/config"
	"github.com/ptrkhr/duckpane/pkg/executor"
	"github.com/ptrkhr/duckpane/pkg/session"
)

type options struct {
	PositionalArgs struct {
		Query string `positional-arg-name:"query" description:"run ad-hoc query, print the result and exit"`
	} `positional-args:"yes" positional-optional:"yes"`

	Config   string `short:"c" long:"config" env:"DUCKPANE_CONFIG" description:"config file" default:"duckpane.yml"`
	Database string `short:"d" long:"db" env:"DUCKPANE_DB" description:"database file or connection string"`
	Binary   string `long:"binary" env:"DUCKPANE_BINARY" description:"duckdb binary"`
	Format   string `short:"f" long:"format" description:"default display format" choice:"table" choice:"csv" choice:"jsonl"`
	PageSize int    `long:"page-size" description:"default page size for paginated queries"`

	Version bool `long:"version" description:"show version"`
	Dbg     bool `long:"dbg" description:"debug mode"`
}

var revision = "latest"

func main() {
	fmt.Printf("duckpane %s\n", revision)

	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		os.Exit(1)
	}
	if opts.Version {
		os.Exit(0) // already printed
	}
	setupLog(opts.Dbg)

	if err := run(opts); err != nil {
		if opts.Dbg {
			log.Panicf("[ERROR] %v", err)
		}
		fmt.Printf("failed, %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf, err := config.New(opts.Config, &config.Overrides{
		Format:   opts.Format,
		PageSize: opts.PageSize,
		Binary:   opts.Binary,
		Database: opts.Database,
	})
	if err != nil {
		return fmt.Errorf("can't load config %q: %w", opts.Config, err)
	}

	ex, err := makeExecutor(conf)
	if err != nil {
		return fmt.Errorf("can't make executor: %w", err)
	}

	sources := newSourceStore()
	mgr := session.New(ex, sources, session.Opts{
		DefaultFormat: conf.DisplayFormat(),
		PageSize:      conf.PageSize,
		HistoryLimit:  conf.HistoryLimit,
	})
	schema := &executor.Schema{Exec: ex, TTL: conf.SchemaStaleness()}

	if opts.PositionalArgs.Query != "" { // ad-hoc one-shot mode
		surface := uuid.New().String()
		if _, err := mgr.Execute(ctx, opts.PositionalArgs.Query, surface, ""); err != nil {
			return err
		}
		lines, err := mgr.Render(surface)
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Println(l)
		}
		return nil
	}

	r := &repl{mgr: mgr, schema: schema, sources: sources, in: os.Stdin, out: os.Stdout}
	return r.loop(ctx)
}

// makeExecutor picks the executor from the database value: anything looking
// like a database/sql connection string gets the embedded executor, the rest
// goes to the duckdb cli.
func makeExecutor(conf *config.Config) (executor.Interface, error) {
	db := conf.Database
	if strings.HasPrefix(db, "postgres://") || strings.Contains(db, "@tcp(") ||
		strings.HasSuffix(db, ".sqlite") || strings.Contains(db, ":memory:") {
		return executor.NewSQLDB(db)
	}
	return &executor.DuckDB{Binary: conf.Binary, Database: db}, nil
}

// sourceStore is the host side of source links: named, editable query texts
// the repl manages with the src command. Implements session.SourceReader.
type sourceStore struct {
	texts map[string]string
}

func newSourceStore() *sourceStore { return &sourceStore{texts: map[string]string{}} }

func (s *sourceStore) Set(id, text string) { s.texts[id] = text }

func (s *sourceStore) Drop(id string) { delete(s.texts, id) }

func (s *sourceStore) ReadSource(id string) (string, bool) {
	text, ok := s.texts[id]
	return text, ok
}

// repl is the interactive host driving the session manager. It owns the
// notion of a "current" display surface; every result-facing command applies
// to it.
type repl struct {
	mgr     *session.Manager
	schema  *executor.Schema
	sources *sourceStore
	surface string
	in      io.Reader
	out     io.Writer
}

func (r *repl) loop(ctx context.Context) error {
	errColor := color.New(color.FgHiRed).SprintFunc()
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintf(r.out, "type help for commands\n")
	for {
		fmt.Fprintf(r.out, "duckpane> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg := splitCommand(line)
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		if err := r.dispatch(ctx, cmd, arg); err != nil {
			fmt.Fprintf(r.out, "%s\n", errColor(err.Error()))
		}
	}
}

func (r *repl) dispatch(ctx context.Context, cmd, arg string) error {
	switch cmd {
	case "help":
		r.printHelp()
		return nil
	case "open":
		r.surface = uuid.New().String()[:8]
		fmt.Fprintf(r.out, "surface %s\n", r.surface)
		return nil
	case "close":
		if r.surface == "" {
			return fmt.Errorf("no open surface")
		}
		r.mgr.Teardown(r.surface)
		fmt.Fprintf(r.out, "closed %s\n", r.surface)
		r.surface = ""
		return nil
	case "src":
		parts := strings.SplitN(arg, " ", 2) // ids keep their case, no splitCommand here
		if len(parts) != 2 || parts[0] == "" || strings.TrimSpace(parts[1]) == "" {
			return fmt.Errorf("usage: src <id> <sql>")
		}
		r.sources.Set(parts[0], strings.TrimSpace(parts[1]))
		return nil
	case "sessions":
		for _, s := range r.mgr.List() {
			marker := " "
			if s.ID == r.surface {
				marker = "*"
			}
			pg := ""
			if s.Pagination != nil {
				pg = fmt.Sprintf(" page %d/%d", s.Pagination.CurrentPage, s.Pagination.TotalPages())
			}
			fmt.Fprintf(r.out, "%s %s [%s]%s %s\n", marker, s.ID, s.Format, pg, s.Query)
		}
		return nil
	case "history":
		for i, q := range r.mgr.History() {
			fmt.Fprintf(r.out, "%3d  %s\n", i+1, q)
		}
		return nil
	case "clearhist":
		r.mgr.ClearHistory()
		return nil
	case "schema":
		tables, err := r.schema.Tables(ctx)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Fprintf(r.out, "%s (%s)\n", t.Name, strings.Join(t.Columns, ", "))
		}
		return nil
	}

	// everything below needs a current surface
	if r.surface == "" {
		r.surface = uuid.New().String()[:8]
		fmt.Fprintf(r.out, "surface %s\n", r.surface)
	}

	switch cmd {
	case "run":
		if _, err := r.mgr.Execute(ctx, arg, r.surface, ""); err != nil {
			return err
		}
	case "runsrc":
		text, ok := r.sources.ReadSource(arg)
		if !ok {
			return fmt.Errorf("no source %q", arg)
		}
		if _, err := r.mgr.Execute(ctx, text, r.surface, arg); err != nil {
			return err
		}
	case "runp":
		sizeArg, query := splitCommand(arg)
		size, err := strconv.Atoi(sizeArg)
		if err != nil {
			return fmt.Errorf("usage: runp <page-size> <sql>")
		}
		if _, err := r.mgr.ExecutePaginated(ctx, query, r.surface, size); err != nil {
			return err
		}
	case "next":
		if _, err := r.mgr.NavigatePage(ctx, r.surface, 1); err != nil {
			return err
		}
	case "prev":
		if _, err := r.mgr.NavigatePage(ctx, r.surface, -1); err != nil {
			return err
		}
	case "goto":
		page, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("usage: goto <page>")
		}
		if _, err := r.mgr.GotoPage(ctx, r.surface, page); err != nil {
			return err
		}
	case "refresh":
		if _, err := r.mgr.Refresh(ctx, r.surface); err != nil {
			return err
		}
	case "format":
		if _, err := r.mgr.SetFormat(r.surface, arg); err != nil {
			return err
		}
	case "toggle":
		if _, err := r.mgr.ToggleFormat(r.surface); err != nil {
			return err
		}
	case "edit":
		if _, err := r.mgr.EditQuery(ctx, r.surface, arg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}

	return r.show()
}

// show renders the current surface and prints it with the pagination footer.
func (r *repl) show() error {
	lines, err := r.mgr.Render(r.surface)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(r.out, l)
	}
	if s, ok := r.mgr.Get(r.surface); ok && s.Pagination != nil {
		footer := color.New(color.FgCyan).SprintfFunc()("page %d of %d, %d rows total",
			s.Pagination.CurrentPage, s.Pagination.TotalPages(), s.Pagination.TotalCount)
		fmt.Fprintln(r.out, footer)
	}
	return nil
}

func (r *repl) printHelp() {
	help := `commands:
  open                      new display surface (made current)
  close                     tear the current surface down
  run <sql>                 execute query on the current surface
  runsrc <id>               execute a named source, linked for refresh
  runp <page-size> <sql>    execute paginated
  next | prev | goto <n>    page navigation
  refresh                   re-run the current query (re-reads linked source)
  format <table|csv|jsonl>  set display format
  toggle                    cycle display format
  edit <sql>                replace the query, keeping the page position
  src <id> <sql>            define or update a named source
  sessions                  list live sessions
  history | clearhist       show or clear query history
  schema                    list tables (cached)
  quit`
	fmt.Fprintln(r.out, help)
}

// splitCommand splits a line into the first word and the rest.
func splitCommand(line string) (cmd, arg string) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	return cmd, arg
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)} // default to discard
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
