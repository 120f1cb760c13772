package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/sightline/internal/config"
	"github.com/zulandar/sightline/internal/registry"
	"github.com/zulandar/sightline/internal/replay"
	"github.com/zulandar/sightline/internal/store"
)

func newReplayCmd() *cobra.Command {
	var (
		configPath string
		env        string
		model      string
		route      string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "replay <request-id>",
		Short: "Replay a logged request and compare it with the original",
		Long: `Re-executes a logged request against the model registry, records the
attempt as a new request, and prints a side-by-side comparison.

Use --model to replay against a different model.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			return runReplay(cmd, configPath, replay.Request{
				OriginalID:      id,
				EnvironmentID:   env,
				ModelOverride:   model,
				RouteIDOverride: route,
			}, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sightline config file")
	cmd.Flags().StringVar(&env, "env", "", "environment the request belongs to (required)")
	cmd.Flags().StringVar(&model, "model", "", "replay against this model instead of the original")
	cmd.Flags().StringVar(&route, "route", "", "route id to record on the replay")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.MarkFlagRequired("env")
	return cmd
}

func newDispatcher(cfg *config.Config) *replay.HTTPDispatcher {
	d := replay.NewHTTPDispatcher(cfg.Replay.Timeout)
	d.SetRetryDelay(cfg.Replay.RetryDelay)
	return d
}

func runReplay(cmd *cobra.Command, configPath string, req replay.Request, asJSON bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	orch := replay.NewOrchestrator(store.New(gormDB), registry.New(gormDB), newDispatcher(cfg))
	res, err := orch.Replay(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printComparison(out, res)
	return nil
}

func printComparison(out io.Writer, res *replay.Result) {
	c := res.Comparison
	fmt.Fprintf(out, "Replay %d of request %d (request_id %s)\n\n", res.Record.ID, derefUint(res.Record.ReplayOfID), res.Record.RequestID)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tORIGINAL\tREPLAY\tDELTA")
	fmt.Fprintf(w, "Model\t%s\t%s\t\n", c.Original.Model, c.Replay.Model)
	fmt.Fprintf(w, "Status\t%s\t%s\t\n", statusLabel(c.Original), statusLabel(c.Replay))
	fmt.Fprintf(w, "Input tokens\t%s\t%s\t%s\n",
		formatTokenCount(int64(c.Original.InputTokens)), formatTokenCount(int64(c.Replay.InputTokens)), formatSignedCount(int64(c.Deltas.InputTokens)))
	fmt.Fprintf(w, "Output tokens\t%s\t%s\t%s\n",
		formatTokenCount(int64(c.Original.OutputTokens)), formatTokenCount(int64(c.Replay.OutputTokens)), formatSignedCount(int64(c.Deltas.OutputTokens)))
	fmt.Fprintf(w, "Cost\t%s\t%s\t%s\n",
		formatUSD(c.Original.TotalCostUSD), formatUSD(c.Replay.TotalCostUSD), formatSignedUSD(c.Deltas.CostUSD))
	fmt.Fprintf(w, "Duration (ms)\t%s\t%s\t%s\n",
		formatTokenCount(c.Original.DurationMs), formatTokenCount(c.Replay.DurationMs), formatSignedCount(c.Deltas.DurationMs))
	w.Flush()

	match := "no"
	if c.ResponseMatch {
		match = "yes"
	}
	fmt.Fprintf(out, "\nResponse match: %s\n", match)
	if c.Replay.ErrorMessage != "" {
		fmt.Fprintf(out, "Replay error: %s\n", c.Replay.ErrorMessage)
	}
}

func statusLabel(s replay.Side) string {
	if s.ErrorCode != "" {
		return s.Status + " (" + s.ErrorCode + ")"
	}
	return s.Status
}

func parseRequestID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid request id %q: must be a positive integer", arg)
	}
	return uint(id), nil
}

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}
