package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
	"github.com/Svanik-yan/trading-backtest/internal/config"
	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/report"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/strategy/builtins"
	"github.com/Svanik-yan/trading-backtest/internal/util"
	"github.com/Svanik-yan/trading-backtest/pkg/client"
)

// paramsFlag collects repeated -param name=value flags.
type paramsFlag map[string]float64

func (p paramsFlag) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(p[k], 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (p paramsFlag) Set(v string) error {
	name, val, ok := strings.Cut(v, "=")
	if !ok || name == "" {
		return fmt.Errorf("want name=value, got %q", v)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("param %s: %w", name, err)
	}
	p[name] = f
	return nil
}

// runFlags are the flags shared by run and compare. Each one, when given,
// overrides the matching field of the config file's backtest section.
type runFlags struct {
	fs         *flag.FlagSet
	configPath string
	strategy   string
	symbol     string
	market     string
	start      string
	end        string
	source     string
	capital    float64
	commission float64
	slippage   float64
	params     paramsFlag
}

func newRunFlags(name string) *runFlags {
	f := &runFlags{fs: flag.NewFlagSet(name, flag.ExitOnError), params: paramsFlag{}}
	f.fs.StringVar(&f.configPath, "config", config.Path(), "config file")
	f.fs.StringVar(&f.strategy, "strategy", "", "strategy name")
	f.fs.StringVar(&f.symbol, "symbol", "", "symbol, e.g. 600000.SH or AAPL")
	f.fs.StringVar(&f.market, "market", "", "market: cn or us")
	f.fs.StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	f.fs.StringVar(&f.end, "end", "", "end date (YYYY-MM-DD)")
	f.fs.StringVar(&f.source, "source", "", "bar source: parquet or quotes")
	f.fs.Float64Var(&f.capital, "capital", 0, "initial capital")
	f.fs.Float64Var(&f.commission, "commission", 0, "commission rate per notional")
	f.fs.Float64Var(&f.slippage, "slippage", 0, "slippage rate per notional")
	f.fs.Var(f.params, "param", "strategy parameter name=value (repeatable)")
	return f
}

// load reads the config file and applies the flags that were set.
func (f *runFlags) load() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, err
	}
	f.apply(&cfg.Backtest)
	return cfg, nil
}

func (f *runFlags) apply(b *config.BacktestConfig) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "strategy":
			b.Strategy = f.strategy
		case "symbol":
			b.Symbol = f.symbol
		case "market":
			b.Market = f.market
		case "start":
			b.StartDate = f.start
		case "end":
			b.EndDate = f.end
		case "source":
			b.Source = f.source
		case "capital":
			b.InitialCapital = f.capital
		case "commission":
			b.CommissionRate = f.commission
		case "slippage":
			b.SlippageRate = f.slippage
		case "param":
			b.Params = map[string]float64(f.params)
		}
	})
}

// session is the per-invocation state of run and compare.
type session struct {
	cfg    *config.Config
	log    *slog.Logger
	stores *store.Set
	runner *backtest.Runner
}

func openSession(cfg *config.Config) (*session, error) {
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format).With("run", uuid.NewString())
	util.SetDefault(logger)

	stores, err := store.OpenSet(cfg.Backtest.Source, cfg.Storage.DataDir, cfg.Storage.QuoteDir, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		log:    logger,
		stores: stores,
		runner: backtest.NewRunner(stores.Bars, stores.Indicators, builtins.NewRegistry(), logger),
	}, nil
}

func (s *session) Close() error { return s.stores.Close() }

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func runCmd(args []string) error {
	f := newRunFlags("run")
	jsonOut := f.fs.Bool("json", false, "write the full result as JSON instead of the report")
	maxTrades := f.fs.Int("max-trades", 20, "trades shown in the report (0 for all)")
	tradesCSV := f.fs.String("trades-csv", "", "write the trade log to this CSV file")
	equityCSV := f.fs.String("equity-csv", "", "write the equity curve to this CSV file")
	tripsCSV := f.fs.String("round-trips-csv", "", "write matched round trips to this CSV file")
	f.fs.Parse(args)

	cfg, err := f.load()
	if err != nil {
		return err
	}
	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	req, err := cfg.Backtest.Request()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	sess.log.Info("running backtest", "strategy", req.Strategy, "symbol", req.Symbol, "market", req.Market)
	res, err := sess.runner.Run(ctx, req)
	if err != nil {
		return err
	}

	if err := writeFile(*tradesCSV, func(w io.Writer) error { return report.WriteTradesCSV(w, res.Trades) }); err != nil {
		return err
	}
	if err := writeFile(*equityCSV, func(w io.Writer) error { return report.WriteEquityCSV(w, res.Equity) }); err != nil {
		return err
	}
	if err := writeFile(*tripsCSV, func(w io.Writer) error { return report.WriteRoundTripsCSV(w, res.RoundTrips) }); err != nil {
		return err
	}

	if *jsonOut {
		return report.WriteJSON(os.Stdout, res)
	}
	return report.Render(os.Stdout, res, report.Options{MaxTrades: *maxTrades})
}

func compareCmd(args []string) error {
	f := newRunFlags("compare")
	names := f.fs.String("strategies", "", "comma-separated strategies to compare (default all)")
	jsonOut := f.fs.Bool("json", false, "write the results as JSON instead of the table")
	f.fs.Parse(args)

	cfg, err := f.load()
	if err != nil {
		return err
	}
	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	list := splitList(*names)
	if len(list) == 0 {
		list = sess.runner.Registry().List()
	}
	req, err := cfg.Backtest.Request()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	sess.log.Info("comparing strategies", "strategies", list, "symbol", req.Symbol, "market", req.Market)
	results, err := sess.runner.Compare(ctx, req, list)
	if err != nil {
		return err
	}
	if *jsonOut {
		return report.WriteJSON(os.Stdout, results)
	}
	return report.RenderComparison(os.Stdout, results)
}

func strategiesCmd(args []string) error {
	fs := flag.NewFlagSet("strategies", flag.ExitOnError)
	fs.Parse(args)
	for _, name := range builtins.NewRegistry().List() {
		fmt.Println(name)
	}
	return nil
}

func symbolsCmd(args []string) error {
	fs := flag.NewFlagSet("symbols", flag.ExitOnError)
	configPath := fs.String("config", config.Path(), "config file")
	market := fs.String("market", "", "market: cn or us (default from config)")
	source := fs.String("source", "", "bar source: parquet or quotes (default from config)")
	fs.Parse(args)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return err
	}
	if *market == "" {
		*market = cfg.Backtest.Market
	}
	if *source == "" {
		*source = cfg.Backtest.Source
	}
	stores, err := store.OpenSet(*source, cfg.Storage.DataDir, cfg.Storage.QuoteDir, cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer stores.Close()

	ctx, cancel := signalContext()
	defer cancel()

	symbols, err := stores.Bars.ListSymbols(ctx, *market)
	if err != nil {
		return err
	}
	names := map[string]string{}
	if stores.Instruments != nil {
		list, err := stores.Instruments.ListInstruments(ctx, domain.Market(*market))
		if err != nil {
			return err
		}
		for _, in := range list {
			names[in.Symbol] = in.Name
			names[in.Code] = in.Name
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, sym := range symbols {
		fmt.Fprintf(tw, "%s\t%s\n", sym, names[sym])
	}
	return tw.Flush()
}

func statusCmd(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "backtest-server base URL")
	fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	c := client.NewClient(*server)
	if err := c.Health(ctx); err != nil {
		return err
	}
	strategies, err := c.ListStrategies(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("server:     %s (ok)\n", *server)
	fmt.Printf("strategies: %s\n", strings.Join(strategies, ", "))
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeFile creates path and fills it with fn. An empty path is a no-op.
func writeFile(path string, fn func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
