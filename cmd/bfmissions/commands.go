package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	httpadapter "github.com/couchcryptid/bf-mission-map/internal/adapter/http"
	"github.com/couchcryptid/bf-mission-map/internal/adapter/xlsx"
	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/couchcryptid/bf-mission-map/internal/render"
	"github.com/spf13/cobra"
)

const serveCommand = "serve"

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bfmissions",
		Short: "Berlin fire-department missions per district area",
		Long: "Fetches the yearly mission counts of the Berliner Feuerwehr, merges them per district,\n" +
			"geocodes the districts and renders a map and a chart. Configuration comes from the environment.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Name() == serveCommand)
		},
	}

	root.AddCommand(
		newRunCmd(a),
		newGeocodeCmd(a),
		newRenderCmd(a),
		newExportCmd(a),
		newServeCmd(a),
	)
	return root
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load the persisted table or build it, then print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := a.pipeline.LoadOrBuild(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), table)
		},
	}
}

func newGeocodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "geocode",
		Short: "Retry the lookup of districts without coordinates in the persisted table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, stats, err := a.pipeline.Regeocode(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "resolved %d, still unresolved %d, failed %d, skipped %d\n",
				stats.Resolved, stats.Unresolved, stats.Failed, stats.Skipped)
			for _, name := range table.Unresolved() {
				fmt.Fprintf(out, "  %s NOT FOUND\n", name)
			}
			return nil
		},
	}
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		dir  string
		year int
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the map (per year) and the bar chart as PNG files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := a.pipeline.LoadOrBuild(cmd.Context())
			if err != nil {
				return err
			}
			years := table.Years()
			if year != 0 {
				years = []int{year}
			}
			files, err := renderFiles(dir, table, years)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Output directory")
	cmd.Flags().IntVar(&year, "year", 0, "Render the map for this year only (default: every year)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the table as an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := a.pipeline.LoadOrBuild(cmd.Context())
			if err != nil {
				return err
			}
			if err := xlsx.ExportFile(out, table); err != nil {
				return err
			}
			a.logger.Info("workbook written", "path", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "merged_mission_count_years.xlsx", "Workbook path")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   serveCommand,
		Short: "Serve the year slider page, images and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a)
		},
	}
}

// serve starts the HTTP server right away and loads the table in the
// background; /readyz reports 503 until the table is available.
func serve(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.pipeline, a.pipeline, a.logger)

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if _, err := a.pipeline.LoadOrBuild(ctx); err != nil && ctx.Err() == nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	a.logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return runErr
}

func printSummary(w io.Writer, table *domain.MergedTable) error {
	totals := table.YearTotals()
	if _, err := fmt.Fprintf(w, "%d districts, %d years, %d without coordinates\n",
		table.Len(), len(totals), len(table.Unresolved())); err != nil {
		return err
	}
	for _, t := range totals {
		if _, err := fmt.Fprintf(w, "  %d  %8d\n", t.Year, t.Missions); err != nil {
			return err
		}
	}
	return nil
}

// renderFiles writes map_<year>.png for every year and chart.png into dir and
// returns the written paths.
func renderFiles(dir string, table *domain.MergedTable, years []int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, y := range years {
		path := filepath.Join(dir, "map_"+strconv.Itoa(y)+".png")
		if err := writeFile(path, func(w io.Writer) error { return render.MapPNG(w, table, y) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, "chart.png")
	if err := writeFile(path, func(w io.Writer) error { return render.BarChartPNG(w, table) }); err != nil {
		return written, err
	}
	return append(written, path), nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
