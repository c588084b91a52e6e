package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/remote"
	"dtmoney/internal/store"
	"dtmoney/internal/view"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

const usage = `usage: dtmoney <command> [flags]

commands:
  list     [-q query] [-markdown]          show transactions
  summary  [-markdown]                     show income, outcome and total
  create   -description -price -category -type income|outcome
  delete   -id N
  watch    [-q query] [-interval 5s]       refresh the list periodically
`

// App is one client instance: a store bound to one remote collection and
// rendered through the view layer.
type App struct {
	store  *store.Store
	out    io.Writer
	errOut io.Writer
	logger *log.Logger
}

// AppConfig holds what NewApp needs from the environment.
type AppConfig struct {
	APIURL  string
	Timeout time.Duration
	Clock   func() time.Time
}

func NewApp(cfg AppConfig, out, errOut io.Writer, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	client, err := remote.New(cfg.APIURL, remote.WithTimeout(cfg.Timeout), remote.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	opts := []store.Option{store.WithLogger(logger)}
	if cfg.Clock != nil {
		opts = append(opts, store.WithClock(cfg.Clock))
	}
	return &App{
		store:  store.New(client, opts...),
		out:    out,
		errOut: errOut,
		logger: logger,
	}, nil
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "list":
		err = a.runList(ctx, rest)
	case "summary":
		err = a.runSummary(ctx, rest)
	case "create":
		err = a.runCreate(ctx, rest)
	case "delete":
		err = a.runDelete(ctx, rest)
	case "watch":
		err = a.runWatch(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return ExitOK
	default:
		fmt.Fprintf(a.errOut, "unknown command %q\n\n%s", cmd, usage)
		return ExitUsage
	}

	var ue usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.As(err, &ue):
		fmt.Fprintf(a.errOut, "dtmoney %s: %v\n", cmd, err)
		return ExitUsage
	default:
		fmt.Fprintf(a.errOut, "dtmoney %s: %s\n", cmd, describe(err))
		return ExitError
	}
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// describe turns store errors into a message for the terminal.
func describe(err error) string {
	var se *core.StatusError
	switch {
	case core.IsNetworkError(err):
		return "cannot reach the transactions API: " + err.Error()
	case errors.Is(err, core.ErrNotFound):
		return "transaction not found"
	case errors.As(err, &se):
		return fmt.Sprintf("the transactions API answered %d: %s", se.StatusCode, err.Error())
	default:
		return err.Error()
	}
}

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *App) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return usagef("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

func (a *App) runList(ctx context.Context, args []string) error {
	fs := a.newFlagSet("list")
	query := fs.String("q", "", "full text search")
	markdown := fs.Bool("markdown", false, "render Markdown tables")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := a.store.FetchTransactions(ctx, *query); err != nil {
		return err
	}
	view.New(view.WithMarkdown(*markdown)).RenderTransactions(a.out, a.store.Transactions())
	return nil
}

func (a *App) runSummary(ctx context.Context, args []string) error {
	fs := a.newFlagSet("summary")
	markdown := fs.Bool("markdown", false, "render Markdown tables")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := a.store.Init(ctx); err != nil {
		return err
	}
	view.New(view.WithMarkdown(*markdown)).RenderSummary(a.out, a.store.Summary())
	return nil
}

func (a *App) runCreate(ctx context.Context, args []string) error {
	fs := a.newFlagSet("create")
	description := fs.String("description", "", "what the transaction was")
	price := fs.String("price", "", "amount, e.g. 25 or 1.234,56")
	category := fs.String("category", "", "category")
	txType := fs.String("type", "", "income or outcome")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	t, err := core.ParseTransactionType(*txType)
	if err != nil {
		return usagef("-type: %v", err)
	}
	amount, err := core.ParsePrice(*price)
	if err != nil {
		return usagef("-price: %v", err)
	}

	in := core.CreateTransactionInput{
		Description: *description,
		Price:       amount,
		Category:    *category,
		Type:        t,
	}
	if err := a.store.CreateTransaction(ctx, in); err != nil {
		return err
	}

	txs := a.store.Transactions()
	created := txs[len(txs)-1]
	fmt.Fprintf(a.out, "created transaction %d\n", created.ID)
	return nil
}

func (a *App) runDelete(ctx context.Context, args []string) error {
	fs := a.newFlagSet("delete")
	id := fs.Int64("id", 0, "transaction id")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *id <= 0 {
		return usagef("-id is required")
	}

	if err := a.store.DeleteTransaction(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted transaction %d\n", *id)
	return nil
}

// runWatch renders on every store change and refetches each interval until
// ctx is done. Failed refreshes are reported and retried on the next tick.
func (a *App) runWatch(ctx context.Context, args []string) error {
	fs := a.newFlagSet("watch")
	query := fs.String("q", "", "full text search")
	interval := fs.Duration("interval", 5*time.Second, "refresh interval")
	markdown := fs.Bool("markdown", false, "render Markdown tables")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *interval <= 0 {
		return usagef("-interval must be positive")
	}

	r := view.New(view.WithMarkdown(*markdown))
	unsubscribe := a.store.Subscribe(func(txs []core.Transaction) {
		r.RenderTransactions(a.out, txs)
		r.RenderSummary(a.out, core.Summarize(txs))
	})
	defer unsubscribe()

	if err := a.store.FetchTransactions(ctx, *query); err != nil {
		return err
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.store.FetchTransactions(ctx, *query); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(a.errOut, "refresh failed: %s\n", describe(err))
			}
		}
	}
}
