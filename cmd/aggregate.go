package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/config"
	"github.com/sells-group/rentmap/internal/heatmap"
)

var (
	aggBedrooms string
	aggScale    string
	aggOut      string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Compute the heat map once and write it as GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return writeSnapshot(ctx, cfg, aggBedrooms, aggScale, aggOut, func(s *heatmap.Snapshot) any {
			return s.Collection()
		})
	},
}

var legendCmd = &cobra.Command{
	Use:   "legend",
	Short: "Compute the heat map once and write its legend as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return writeSnapshot(ctx, cfg, aggBedrooms, aggScale, aggOut, func(s *heatmap.Snapshot) any {
			return s.Legend()
		})
	},
}

func writeSnapshot(ctx context.Context, c *config.Config, bedrooms, scale, out string, render func(*heatmap.Snapshot) any) error {
	if err := c.Validate("aggregate"); err != nil {
		return err
	}
	req, err := snapshotRequest(bedrooms, scale, c.Server.DefaultBedrooms)
	if err != nil {
		return err
	}

	svc, closer, err := newService(ctx, c)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	snap, err := svc.Build(ctx, req)
	if err != nil {
		return err
	}

	return writeOutput(out, func(w io.Writer) error {
		return encode(w, render(snap))
	})
}

func snapshotRequest(bedrooms, scale string, defaultBeds int) (heatmap.Request, error) {
	filter, err := bedroomsFilter(bedrooms, defaultBeds)
	if err != nil {
		return heatmap.Request{}, err
	}
	req := heatmap.Request{Filter: filter}
	if scale != "" {
		if req.Mode, err = colorscale.ParseMode(scale); err != nil {
			return heatmap.Request{}, err
		}
	}
	return req, nil
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "write output")
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{aggregateCmd, legendCmd} {
		c.Flags().StringVar(&aggBedrooms, "bedrooms", "", `bedroom count or "all" (default from config)`)
		c.Flags().StringVar(&aggScale, "scale", "", "discrete or continuous (default from config)")
		c.Flags().StringVarP(&aggOut, "out", "o", "", "output file (default stdout)")
		rootCmd.AddCommand(c)
	}
}
