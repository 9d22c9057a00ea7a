package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rentmap/internal/grid"
	"github.com/sells-group/rentmap/internal/heatmap"
)

var gridOut string

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Write the city grid as GeoJSON",
	Long:  "Generates the cell lattice for the configured city profile and writes every cell as a GeoJSON polygon.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("grid"); err != nil {
			return err
		}
		p, err := loadProfile(cfg)
		if err != nil {
			return err
		}
		cells, err := grid.Generate(heatmap.GridSpec(p))
		if err != nil {
			return eris.Wrap(err, "generate grid")
		}

		err = writeOutput(gridOut, func(w io.Writer) error {
			return encode(w, heatmap.GridCollection(cells))
		})
		if err != nil {
			return err
		}

		zap.L().Info("grid written",
			zap.String("city", p.Name),
			zap.Int("cells", len(cells)),
			zap.String("out", gridOut),
		)
		return nil
	},
}

func init() {
	gridCmd.Flags().StringVarP(&gridOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(gridCmd)
}
