package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/sightline/internal/models"
	"github.com/zulandar/sightline/internal/store"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Inspect logged requests",
	}

	cmd.AddCommand(newRequestListCmd())
	cmd.AddCommand(newRequestShowCmd())
	cmd.AddCommand(newRequestReplaysCmd())
	return cmd
}

func newRequestListCmd() *cobra.Command {
	var (
		configPath string
		filters    store.ListFilters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged requests in an environment",
		Long: `Lists logged requests newest first. Use --exclude-replays to see only
traffic that reached the gateway, leaving out rows produced by replays.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			recs, err := store.New(gormDB).List(cmd.Context(), filters)
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), recs, "No requests.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sightline config file")
	cmd.Flags().StringVar(&filters.EnvironmentID, "env", "", "environment to list (required)")
	cmd.Flags().StringVar(&filters.Model, "model", "", "only requests served by this model")
	cmd.Flags().StringVar(&filters.Status, "status", "", "only requests with this status (success, error)")
	cmd.Flags().BoolVar(&filters.ExcludeReplays, "exclude-replays", false, "leave out replay records")
	cmd.Flags().IntVar(&filters.Limit, "limit", 20, "maximum number of requests to show")
	cmd.MarkFlagRequired("env")
	return cmd
}

func newRequestShowCmd() *cobra.Command {
	var (
		configPath string
		env        string
	)

	cmd := &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show a logged request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			rec, err := store.New(gormDB).Get(cmd.Context(), id, env)
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sightline config file")
	cmd.Flags().StringVar(&env, "env", "", "environment the request belongs to (required)")
	cmd.MarkFlagRequired("env")
	return cmd
}

func newRequestReplaysCmd() *cobra.Command {
	var (
		configPath string
		env        string
	)

	cmd := &cobra.Command{
		Use:   "replays <request-id>",
		Short: "List replays of a logged request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			requests := store.New(gormDB)
			if _, err := requests.Get(cmd.Context(), id, env); err != nil {
				return err
			}
			replays, err := requests.ListReplays(cmd.Context(), id, env)
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), replays, "No replays.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sightline config file")
	cmd.Flags().StringVar(&env, "env", "", "environment the request belongs to (required)")
	cmd.MarkFlagRequired("env")
	return cmd
}

func printRequest(out io.Writer, rec *models.RequestRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", rec.ID)
	fmt.Fprintf(w, "Request ID:\t%s\n", rec.RequestID)
	fmt.Fprintf(w, "Environment:\t%s\n", rec.EnvironmentID)
	if rec.RouteID != nil {
		fmt.Fprintf(w, "Route:\t%s\n", *rec.RouteID)
	}
	fmt.Fprintf(w, "Model:\t%s (%s)\n", rec.Model, rec.ProviderID)
	fmt.Fprintf(w, "Status:\t%s\n", rec.Status)
	if rec.ErrorCode != "" {
		fmt.Fprintf(w, "Error:\t%s: %s\n", rec.ErrorCode, rec.ErrorMessage)
	}
	fmt.Fprintf(w, "Tokens:\t%s in / %s out\n", formatTokenCount(int64(rec.InputTokens)), formatTokenCount(int64(rec.OutputTokens)))
	fmt.Fprintf(w, "Cost:\t%s\n", formatUSD(rec.TotalCostUSD))
	fmt.Fprintf(w, "Duration:\t%d ms\n", rec.DurationMs)
	if rec.IsReplay() {
		fmt.Fprintf(w, "Replay of:\t%d\n", *rec.ReplayOfID)
	}
	w.Flush()
}

func printRecords(out io.Writer, recs []models.RequestRecord, empty string) {
	if len(recs) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREPLAY OF\tMODEL\tSTATUS\tTOKENS IN\tTOKENS OUT\tCOST\tDURATION (ms)\tCREATED")
	for _, r := range recs {
		status := r.Status
		if r.ErrorCode != "" {
			status = r.ErrorCode
		}
		replayOf := "-"
		if r.IsReplay() {
			replayOf = fmt.Sprintf("%d", *r.ReplayOfID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, replayOf, r.Model, status,
			formatTokenCount(int64(r.InputTokens)), formatTokenCount(int64(r.OutputTokens)),
			formatUSD(r.TotalCostUSD), r.DurationMs, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}
