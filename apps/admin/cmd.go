package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/dashboard"
	"github.com/trezcool/nutridash/core/timeframe"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) } // mockable
	nowFunc        = time.Now                                                    // mockable

	errHelp     = errors.New("help provided")
	errNoSQL    = errors.New("migrate requires the postgres database engine")
	errBadRange = errors.New("-from and -to must be YYYY-MM-DD dates, -to not before -from")
)

type commandLine struct {
	conf     *core.Config
	db       *sql.DB // nil with the memory engine
	cal      *calendar.Calendar
	resolver *timeframe.Resolver
	store    dashboard.Store
	dashSvc  *dashboard.Service
	mailer   core.EmailService
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  servingdays -from DATE -to DATE [-list] - count the serving days of a period")
	fmt.Fprintln(cli.out, "  resolve -timeframe TIMEFRAME [-at DATE] [-from DATE -to DATE] - resolve a timeframe to a window")
	fmt.Fprintln(cli.out, "  digest -district ID -to EMAILS [-timeframe TIMEFRAME] [-from DATE -until DATE] [-schools IDS] - email a KPI digest")
	fmt.Fprintln(cli.out, "  seed -district ID [-from DATE -to DATE] [-seed N] - write a demo district")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	servingDaysCmd := flag.NewFlagSet("servingdays", flag.ContinueOnError)
	servingDaysFrom := servingDaysCmd.String("from", "", "First day of the period (YYYY-MM-DD).")
	servingDaysTo := servingDaysCmd.String("to", "", "Last day of the period (YYYY-MM-DD).")
	servingDaysList := servingDaysCmd.Bool("list", false, "List every serving day.")

	resolveCmd := flag.NewFlagSet("resolve", flag.ContinueOnError)
	resolveTimeframe := resolveCmd.String("timeframe", "", "The timeframe to resolve.")
	resolveAt := resolveCmd.String("at", "", "Resolve as of this day (YYYY-MM-DD). Defaults to now.")
	resolveFrom := resolveCmd.String("from", "", "Start of a custom timeframe (YYYY-MM-DD).")
	resolveTo := resolveCmd.String("to", "", "End of a custom timeframe (YYYY-MM-DD).")

	digestCmd := flag.NewFlagSet("digest", flag.ContinueOnError)
	digestDistrict := digestCmd.String("district", "", "The district ID.")
	digestTo := digestCmd.String("to", "", "Comma separated recipient addresses.")
	digestTimeframe := digestCmd.String("timeframe", string(timeframe.Month), "The timeframe of the digest.")
	digestFrom := digestCmd.String("from", "", "Start of a custom timeframe (YYYY-MM-DD).")
	digestUntil := digestCmd.String("until", "", "End of a custom timeframe (YYYY-MM-DD).")
	digestSchools := digestCmd.String("schools", "", "Comma separated school IDs. Defaults to the whole district.")

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedDistrict := seedCmd.String("district", "", "The district ID.")
	seedFrom := seedCmd.String("from", "", "First day of generated metrics (YYYY-MM-DD). Defaults to 90 days ago.")
	seedTo := seedCmd.String("to", "", "Last day of generated metrics (YYYY-MM-DD). Defaults to today.")
	seedN := seedCmd.Int64("seed", 1, "Random seed of the generated numbers.")

	for _, fs := range []*flag.FlagSet{servingDaysCmd, resolveCmd, digestCmd, seedCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "servingdays":
		if err := servingDaysCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *servingDaysFrom == "" || *servingDaysTo == "" {
			servingDaysCmd.Usage()
			return errHelp
		}
		r, err := cli.parseRange(*servingDaysFrom, *servingDaysTo)
		if err != nil {
			return err
		}
		return cli.servingDays(r, *servingDaysList)

	case "resolve":
		if err := resolveCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resolveTimeframe == "" {
			resolveCmd.Usage()
			return errHelp
		}
		return cli.resolve(*resolveTimeframe, *resolveAt, *resolveFrom, *resolveTo)

	case "digest":
		if err := digestCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *digestDistrict == "" || *digestTo == "" {
			digestCmd.Usage()
			return errHelp
		}
		tf, ok := timeframe.Parse(*digestTimeframe)
		if !ok {
			return fmt.Errorf("%q: unknown timeframe", *digestTimeframe)
		}
		sel := dashboard.Selection{
			Timeframe:   tf,
			CustomStart: *digestFrom,
			CustomEnd:   *digestUntil,
			Schools:     core.SplitClean(*digestSchools, ","),
		}
		return cli.digest(*digestDistrict, *digestTo, sel)

	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *seedDistrict == "" {
			seedCmd.Usage()
			return errHelp
		}
		now := nowFunc().In(cli.conf.Calendar.Location())
		from, to := now.AddDate(0, 0, -90).Format(calendar.DateLayout), now.Format(calendar.DateLayout)
		if *seedFrom != "" {
			from = *seedFrom
		}
		if *seedTo != "" {
			to = *seedTo
		}
		r, err := cli.parseRange(from, to)
		if err != nil {
			return err
		}
		return cli.seed(*seedDistrict, r, *seedN)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) parseRange(from, to string) (timeframe.Range, error) {
	loc := cli.conf.Calendar.Location()
	start, err := time.ParseInLocation(calendar.DateLayout, from, loc)
	if err != nil {
		return timeframe.Range{}, errBadRange
	}
	end, err := time.ParseInLocation(calendar.DateLayout, to, loc)
	if err != nil || end.Before(start) {
		return timeframe.Range{}, errBadRange
	}
	return timeframe.Range{Start: start, End: calendar.EndOfDay(end)}, nil
}

func (cli *commandLine) servingDays(r timeframe.Range, list bool) error {
	days := cli.cal.ServingDays(r.Start, r.End)
	fmt.Fprintf(cli.out, "%d serving days\n", len(days))
	if list {
		for _, d := range days {
			fmt.Fprintln(cli.out, d.Format(calendar.DateLayout))
		}
	}
	return nil
}

func (cli *commandLine) resolve(tfName, at, from, to string) error {
	tf, ok := timeframe.Parse(tfName)
	if !ok {
		return fmt.Errorf("%q: unknown timeframe", tfName)
	}

	now := nowFunc().In(cli.conf.Calendar.Location())
	if at != "" {
		d, err := time.ParseInLocation(calendar.DateLayout, at, now.Location())
		if err != nil {
			return fmt.Errorf("-at must be a YYYY-MM-DD date (got '%s')", at)
		}
		now = calendar.EndOfDay(d)
	}

	var custom *timeframe.Range
	if tf == timeframe.Custom {
		if from == "" || to == "" {
			return errors.New("custom timeframe requires -from and -to")
		}
		r, err := cli.parseRange(from, to)
		if err != nil {
			return err
		}
		custom = &r
	}

	w := cli.resolver.Resolve(tf, now, custom)
	if !isTerminalFunc() {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(w)
	}

	tw := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "timeframe\t%s\n", w.Timeframe)
	fmt.Fprintf(tw, "start\t%s\n", w.Range.Start.Format(calendar.DateLayout))
	fmt.Fprintf(tw, "end\t%s\n", w.Range.End.Format(calendar.DateLayout))
	fmt.Fprintf(tw, "serving days\t%d\n", w.ServingDays)
	if w.NonServingPeriod {
		fmt.Fprintf(tw, "non-serving period\t%s\n", w.Reason)
	}
	return tw.Flush()
}

func (cli *commandLine) digest(districtID, to string, sel dashboard.Selection) error {
	var recipients []mail.Address
	for _, addr := range core.SplitClean(to, ",") {
		a, err := mail.ParseAddress(addr)
		if err != nil {
			return fmt.Errorf("%q: invalid email address", addr)
		}
		recipients = append(recipients, *a)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cli.conf.Dashboard.FetchTimeout)
	defer cancel()
	if err := cli.dashSvc.SendDigest(ctx, cli.mailer, districtID, sel, recipients...); err != nil {
		return err
	}
	if w, ok := cli.mailer.(interface{ Wait() }); ok {
		w.Wait()
	}
	fmt.Fprintf(cli.out, "digest of %s sent to %d recipient(s)\n", districtID, len(recipients))
	return nil
}

func (cli *commandLine) seed(districtID string, r timeframe.Range, n int64) error {
	summary, err := dashboard.Seed(context.Background(), cli.store, cli.cal, districtID, r.Start, r.End, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "seeded %s: %d schools, %d KPIs, %d metrics, %d values\n",
		districtID, summary.Schools, summary.KPIs, summary.Metrics, summary.Values)
	return nil
}
