package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Short:             "faablab command line",
		Use:               "faabctl",
		PersistentPreRunE: setup,
		SilenceUsage:      true,
	}

	convertCmd := &cobra.Command{
		Use:   "convert to|from [bid]",
		Short: "Convert a bid between a league format and the baseline",
		Long: `Convert a bid between a league format and the 12 team, $200,
half-PPR, non-superflex baseline.  "to" converts a bid in your league's
dollars to baseline dollars; "from" goes the other way.`,
		Args: cobra.ExactArgs(2),
		RunE: convertBid,
	}
	convertCmd.Flags().StringVar(&position, "position", "RB", "Player position")
	addLeagueFlags(convertCmd)

	boardCmd := &cobra.Command{
		Use:   "board [week]",
		Short: "Show every target for a week with bid stats",
		Args:  cobra.ExactArgs(1),
		RunE:  showBoard,
	}
	boardCmd.Flags().StringVar(&position, "position", "", "Only show this position")
	boardCmd.Flags().StringVar(&search, "search", "", "Only show players whose name contains this")

	topCmd := &cobra.Command{
		Use:   "top [week]",
		Short: "Show the most-bid target at each position",
		Args:  cobra.ExactArgs(1),
		RunE:  showTop,
	}

	for _, cmd := range []*cobra.Command{boardCmd, topCmd} {
		cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
		cmd.Flags().BoolVar(&useDemo, "demo", false, "Use generated demo data instead of the data service")
		addLeagueFlags(cmd)
	}

	winprobCmd := &cobra.Command{
		Use:   "winprob [amount]",
		Short: "Win probability for a bid against a histogram",
		Example: `  faabctl winprob 15 --bucket "0 - 10:40" --bucket "10 - 20:35" \
    --bucket "20 - 30:15" --bucket "30 - 50:10"`,
		Args: cobra.ExactArgs(1),
		RunE: runWinprob,
	}
	winprobCmd.Flags().StringArrayVar(&buckets, "bucket", nil, "Histogram bucket as LO - HI:BIDS; repeat in order")
	winprobCmd.Flags().IntVar(&maxBid, "max-bid", 100, "Slider ceiling")

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Print fresh cookie keys for the config file",
		Args:  cobra.NoArgs,
		RunE:  generateKeys,
	}

	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the preferences database",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the preferences schema if it is missing",
		Args:  cobra.NoArgs,
		RunE:  initDB,
	}
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Forget visitors who haven't been seen in a while",
		Args:  cobra.NoArgs,
		RunE:  purgeDB,
	}
	olderThan = 180 * 24 * time.Hour
	purgeCmd.Flags().Func("older-than", "Purge visitors idle this long (e.g. 90d, 26w; default 180d)", func(s string) error {
		d, err := parseAge(s)
		if err != nil {
			return err
		}
		olderThan = d
		return nil
	})
	dbCmd.AddCommand(initCmd, purgeCmd)

	rootCmd.AddCommand(convertCmd, boardCmd, topCmd, winprobCmd, keysCmd, dbCmd)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		cancel()
		os.Exit(1)
	}
}
