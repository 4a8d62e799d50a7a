package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"maze.io/x/duration"

	"github.com/ts4z/faablab/board"
	"github.com/ts4z/faablab/config"
	"github.com/ts4z/faablab/convert"
	"github.com/ts4z/faablab/dbutil"
	"github.com/ts4z/faablab/faabapi"
	"github.com/ts4z/faablab/fakes"
	"github.com/ts4z/faablab/logging"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/prefs"
	"github.com/ts4z/faablab/state"
	"github.com/ts4z/faablab/winprob"
)

var (
	clock clockwork.Clock = clockwork.NewRealClock()

	league    leagueFlags
	position  string
	search    string
	output    string
	useDemo   bool
	buckets   []string
	maxBid    int
	olderThan time.Duration
)

type leagueFlags struct {
	teams     int
	scoring   string
	budget    int
	superflex bool
}

func (lf leagueFlags) settings() (model.LeagueSettings, error) {
	sc, err := model.ParseScoring(lf.scoring)
	if err != nil {
		return model.LeagueSettings{}, err
	}
	ls := model.LeagueSettings{
		TeamCount:   lf.teams,
		Scoring:     sc,
		Budget:      lf.budget,
		IsSuperflex: lf.superflex,
	}
	return ls, ls.Validate()
}

func addLeagueFlags(cmd *cobra.Command) {
	b := model.BaselineLeague
	cmd.Flags().IntVar(&league.teams, "teams", b.TeamCount, "Teams in the league")
	cmd.Flags().StringVar(&league.scoring, "scoring", string(b.Scoring), "standard, half-ppr or full-ppr")
	cmd.Flags().IntVar(&league.budget, "budget", b.Budget, "Auction budget")
	cmd.Flags().BoolVar(&league.superflex, "superflex", b.IsSuperflex, "Superflex league")
}

func setup(cmd *cobra.Command, args []string) error {
	config.Init()
	return logging.Setup(config.LogLevel(), config.LogFormat())
}

func parseWeek(s string) (model.Week, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("week must be a positive number, got %q", s)
	}
	return model.Week(n), nil
}

func newWeekStorage() (state.WeekStorage, error) {
	if useDemo || config.Demo() {
		return fakes.NewDemoWeekStorage(), nil
	}
	return faabapi.New(&faabapi.Config{
		BaseURL:         config.DataURL(),
		Timeout:         config.RequestTimeout(),
		BreakerFailures: config.BreakerFailures(),
		BreakerTimeout:  config.BreakerTimeout(),
	})
}

func fetchBoard(ctx context.Context, weekArg string) (*board.Board, error) {
	week, err := parseWeek(weekArg)
	if err != nil {
		return nil, err
	}
	ls, err := league.settings()
	if err != nil {
		return nil, err
	}
	storage, err := newWeekStorage()
	if err != nil {
		return nil, err
	}
	defer storage.Close()

	wd, err := storage.FetchWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("fetching week %d: %w", week, err)
	}
	return board.Build(wd, board.Options{Settings: ls, RevealAll: true}), nil
}

func convertBid(cmd *cobra.Command, args []string) error {
	direction := args[0]
	bid, err := strconv.ParseFloat(args[1], 64)
	if err != nil || bid < 0 {
		return fmt.Errorf("bid must be a non-negative number, got %q", args[1])
	}
	ls, err := league.settings()
	if err != nil {
		return err
	}
	pos := model.ParsePosition(position)

	var converted float64
	switch direction {
	case "to":
		converted = convert.ToBaseline(bid, ls, pos)
	case "from":
		converted = convert.FromBaseline(bid, ls, pos)
	default:
		return fmt.Errorf("direction must be to or from, got %q", direction)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "League:    %s\n", convert.DisplayFormat(ls))
	fmt.Fprintf(out, "Position:  %s (factor %.4f)\n", pos, convert.Factor(ls, pos))
	if direction == "to" {
		fmt.Fprintf(out, "$%v in this league is $%.2f at baseline\n", bid, converted)
	} else {
		fmt.Fprintf(out, "$%v at baseline is $%.2f in this league\n", bid, converted)
	}
	return nil
}

func showBoard(cmd *cobra.Command, args []string) error {
	b, err := fetchBoard(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	b = b.Filtered(board.Query{Search: search, Position: positionFilter()})
	return render(cmd.OutOrStdout(), output, viewBoard(b), func() error {
		return writeBoardTable(cmd.OutOrStdout(), b, terminalWidth())
	})
}

func positionFilter() model.Position {
	if strings.TrimSpace(position) == "" {
		return ""
	}
	return model.ParsePosition(position)
}

func showTop(cmd *cobra.Command, args []string) error {
	b, err := fetchBoard(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	top := board.TopByPosition(b.Cards)
	return render(cmd.OutOrStdout(), output, viewTop(top), func() error {
		return writeTopTable(cmd.OutOrStdout(), b, top)
	})
}

// parseBucket reads "LO - HI:BIDS".
func parseBucket(s string) (model.BidBucket, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return model.BidBucket{}, fmt.Errorf("bucket %q: want LO - HI:BIDS", s)
	}
	lo, hi, err := model.ParseRangeLabel(s[:i])
	if err != nil {
		return model.BidBucket{}, err
	}
	bids, err := strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if err != nil || bids < 0 {
		return model.BidBucket{}, fmt.Errorf("bucket %q: bad bid count", s)
	}
	return model.BidBucket{Min: lo, Max: hi, Bids: bids}, nil
}

func runWinprob(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("amount must be a number, got %q", args[0])
	}
	if maxBid < 1 || maxBid > model.MaxBudget {
		return fmt.Errorf("--max-bid must be between 1 and %d, got %d", model.MaxBudget, maxBid)
	}
	raw := make([]model.BidBucket, 0, len(buckets))
	for _, s := range buckets {
		b, err := parseBucket(s)
		if err != nil {
			return err
		}
		raw = append(raw, b)
	}

	processed := winprob.Wrap(raw)
	winprob.Process(processed)
	r := winprob.SliderRange(processed, maxBid)

	out := cmd.OutOrStdout()
	if err := writeBucketTable(out, processed); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nA bid of %v wins %d%% of the time.\n", amount, winprob.CalculateWinProbability(amount, processed))
	fmt.Fprintf(out, "Slider %d-%d, starting at %d.\n", r.Min, r.Max, winprob.DefaultSliderValue(processed, r))
	if rec, ok := winprob.RecommendedBid(processed); ok {
		fmt.Fprintf(out, "Recommended: %s (%d%% to win)\n", rec.Label(), rec.WinProbability)
	}
	return nil
}

func generateKeys(cmd *cobra.Command, args []string) error {
	k := prefs.GenerateKeys()
	fmt.Fprintf(cmd.OutOrStdout(), "cookie_hash_key: %s\ncookie_block_key: %s\n", k.HashKey64, k.BlockKey64)
	return nil
}

func openDB(ctx context.Context) (*state.DBStorage, error) {
	db, err := dbutil.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return state.NewDBStorage(db), nil
}

func initDB(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	storage, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer storage.Close()
	if err := storage.EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}

func purgeDB(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	storage, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer storage.Close()

	before := clock.Now().Add(-olderThan)
	n, err := storage.PurgeStalePreferences(ctx, before)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"before": before, "purged": n}).Info("purged stale preferences")
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d visitors not seen since %v\n", n, before.Format(time.RFC3339))
	return nil
}

// parseAge accepts Go durations plus days and weeks ("90d", "2w").
func parseAge(s string) (time.Duration, error) {
	d, err := duration.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("age must be positive, got %q", s)
	}
	return time.Duration(d), nil
}
