package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/contactkeval/option-impvol/internal/api"
	"github.com/contactkeval/option-impvol/internal/config"
	"github.com/contactkeval/option-impvol/internal/impliedvol"
	"github.com/contactkeval/option-impvol/internal/logger"
	"github.com/contactkeval/option-impvol/internal/pricing"
	"github.com/contactkeval/option-impvol/internal/quote"
	"github.com/contactkeval/option-impvol/internal/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	mode       string
	format     string
	outDir     string

	spot, strike, vol, rate, maturity, dividend float64
	put                                         bool
	price, guess, xtol                          float64

	underlying, expiry, at, strikes string

	set map[string]bool
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("impvol", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to YAML config (default config.yaml if present)")
	fs.StringVar(&o.mode, "mode", "iv", "price, iv, quote or serve")
	fs.StringVar(&o.format, "format", "json", "output format for quote mode: json or csv")
	fs.StringVar(&o.outDir, "out", "", "write quotes.json and quotes.csv into this directory instead of stdout")

	fs.Float64Var(&o.spot, "spot", 100, "spot price of the underlying")
	fs.Float64Var(&o.strike, "strike", 100, "strike price")
	fs.Float64Var(&o.vol, "vol", 0.25, "volatility used to price, or to build the demo price in iv mode")
	fs.Float64Var(&o.rate, "rate", 0.05, "continuously compounded risk-free rate")
	fs.Float64Var(&o.maturity, "t", 0.1, "time to expiry in years")
	fs.Float64Var(&o.dividend, "q", 0.02, "continuous dividend yield")
	fs.BoolVar(&o.put, "put", true, "price a put instead of a call")
	fs.Float64Var(&o.price, "price", 0, "observed option price (iv mode); unset prices the contract at -vol")
	fs.Float64Var(&o.guess, "guess", 0.5, "initial volatility guess (default from config)")
	fs.Float64Var(&o.xtol, "xtol", 1e-5, "volatility step tolerance (default from config)")

	fs.StringVar(&o.underlying, "underlying", "", "underlying ticker (quote mode)")
	fs.StringVar(&o.expiry, "expiry", "", "option expiry as YYYY-MM-DD (quote mode)")
	fs.StringVar(&o.at, "at", "", "quote time as RFC3339 (quote mode, default now)")
	fs.StringVar(&o.strikes, "strikes", "", "comma separated strikes; solves a call and a put at each (quote mode)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	solver, err := cfg.SolverFromConfig()
	if err != nil {
		return err
	}
	if !o.set["guess"] {
		o.guess = cfg.Solver.InitialGuess
	}
	if !o.set["xtol"] {
		o.xtol = cfg.Solver.Tolerance
	}

	switch o.mode {
	case "price":
		return runPrice(o, stdout)
	case "iv":
		return runImpliedVol(o, solver, stdout)
	case "quote":
		return runQuote(o, cfg, solver, stdout)
	case "serve":
		return runServe(ctx, cfg, solver)
	}
	return fmt.Errorf("unknown mode %q", o.mode)
}

func (o *options) contract() pricing.OptionContract {
	return pricing.OptionContract{Spot: o.spot, Strike: o.strike, Maturity: o.maturity, Dividend: o.dividend, IsCall: !o.put}
}

func runPrice(o *options, stdout io.Writer) error {
	c := o.contract()
	m := pricing.MarketParameters{Rate: o.rate, Volatility: o.vol}
	price, err := pricing.DefaultPricer.Price(c, m)
	if err != nil {
		return err
	}
	vega, err := pricing.DefaultPricer.Vega(c, m)
	if err != nil {
		return err
	}
	return report.WriteJSON(stdout, map[string]any{"contract": c, "rate": o.rate, "volatility": o.vol, "price": price, "vega": vega})
}

func runImpliedVol(o *options, solver impliedvol.Solver, stdout io.Writer) error {
	c := o.contract()
	price := o.price
	if !o.set["price"] {
		var err error
		price, err = pricing.DefaultPricer.Price(c, pricing.MarketParameters{Rate: o.rate, Volatility: o.vol})
		if err != nil {
			return err
		}
		logger.Infof("no -price given, using model price %.6f at vol %g", price, o.vol)
	}

	vol, err := solver.Solve(price, c, o.rate, o.guess, o.xtol)
	if err != nil {
		return err
	}
	return report.WriteJSON(stdout, map[string]any{"contract": c, "rate": o.rate, "price": price, "implied_vol": vol})
}

func runQuote(o *options, cfg *config.Config, solver impliedvol.Solver, stdout io.Writer) error {
	if o.underlying == "" || o.expiry == "" {
		return errors.New("quote mode needs -underlying and -expiry")
	}
	expiry, err := time.Parse(time.DateOnly, o.expiry)
	if err != nil {
		return fmt.Errorf("expiry: %w", err)
	}
	at := time.Now()
	if o.at != "" {
		if at, err = time.Parse(time.RFC3339, o.at); err != nil {
			return fmt.Errorf("at: %w", err)
		}
	}

	svc := &quote.Service{
		Provider:     cfg.Provider(),
		Solver:       solver,
		Rate:         cfg.Market.RiskFreeRate,
		Dividend:     cfg.Market.DividendYield,
		InitialGuess: o.guess,
		Tolerance:    o.xtol,
	}
	if o.set["rate"] {
		svc.Rate = o.rate
	}
	if o.set["q"] {
		svc.Dividend = o.dividend
	}

	var results []quote.Result
	if o.strikes != "" {
		strikes, err := parseStrikes(o.strikes)
		if err != nil {
			return err
		}
		results = svc.Strip(o.underlying, strikes, expiry, at)
		if len(results) == 0 {
			return errors.New("no quote in the strip could be solved")
		}
	} else {
		res, err := svc.ImpliedVol(quote.Request{Underlying: o.underlying, Strike: o.strike, Expiry: expiry, IsCall: !o.put, At: at})
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	if o.outDir != "" {
		if err := report.WriteFiles(results, o.outDir); err != nil {
			return err
		}
		logger.Infof("wrote %d quotes to %s", len(results), o.outDir)
		return nil
	}
	switch o.format {
	case "csv":
		return report.WriteCSV(stdout, results...)
	case "json":
		return report.WriteJSON(stdout, results)
	}
	return fmt.Errorf("unknown format %q", o.format)
}

func parseStrikes(s string) ([]float64, error) {
	var strikes []float64
	for _, part := range strings.Split(s, ",") {
		k, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("strike %q: %w", part, err)
		}
		strikes = append(strikes, k)
	}
	return strikes, nil
}

func runServe(ctx context.Context, cfg *config.Config, solver impliedvol.Solver) error {
	quotes := &quote.Service{
		Provider:     cfg.Provider(),
		Solver:       solver,
		Rate:         cfg.Market.RiskFreeRate,
		Dividend:     cfg.Market.DividendYield,
		InitialGuess: cfg.Solver.InitialGuess,
		Tolerance:    cfg.Solver.Tolerance,
	}
	server := api.NewServer(solver, quotes, api.Defaults{
		Rate:         cfg.Market.RiskFreeRate,
		Dividend:     cfg.Market.DividendYield,
		InitialGuess: cfg.Solver.InitialGuess,
		Tolerance:    cfg.Solver.Tolerance,
	})

	addr := cfg.Server.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting REST server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Infof("shutting down REST server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
