package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/models"
	"cablesizer/internal/services"
	"cablesizer/internal/sizing"
	"cablesizer/internal/topology"
)

// SizeCommand creates the size subcommand.
func SizeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "size",
		Short: "Size every segment of a schedule and resolve its supply paths",
		Long: `Reads a JSON array of cable segments, sizes each one against the conductor
catalogue and traces every equipment bus back to its source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSize(cmd, v)
		},
	}

	cmd.Flags().StringP("segments", "s", "", "Path to a JSON array of cable segments")
	cmd.Flags().StringP("catalogue", "c", "", "Path to a YAML or JSON conductor catalogue (default: built-in table)")
	cmd.Flags().Float64("margin", 0, "Ampacity safety margin, 1.0 to 1.25 (default 1.25)")
	cmd.Flags().Bool("blocking-short-circuit", false, "Make short-circuit withstand part of the selection")
	cmd.Flags().Int("max-runs", 0, "Largest number of parallel runs to try (default 10)")
	cmd.Flags().Int("workers", 4, "Segments sized in parallel")
	cmd.Flags().StringP("format", "f", "table", "Output format: table, json")

	return cmd
}

func runSize(cmd *cobra.Command, v *viper.Viper) error {
	path := v.GetString("segments")
	if path == "" {
		return fmt.Errorf("--segments is required")
	}
	format := strings.ToLower(v.GetString("format"))
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q, expected table or json", format)
	}

	segments, err := readSegments(path)
	if err != nil {
		return err
	}
	cat, err := readCatalogue(v.GetString("catalogue"))
	if err != nil {
		return err
	}

	logr := newLogger(v.GetBool("verbose"))
	defer func() { _ = logr.Sync() }()

	opts := sizing.DefaultOptions().Overlay(sizing.Options{
		SafetyMargin:         v.GetFloat64("margin"),
		BlockingShortCircuit: v.GetBool("blocking-short-circuit"),
		MaxRuns:              v.GetInt("max-runs"),
	})
	rc := services.NewRecomputer(
		sizing.New(opts, logr.Named("sizing")),
		topology.New(topology.Config{}, logr.Named("topology")),
		v.GetInt("workers"),
		nil,
		logr.Named("recompute"),
	)
	report := rc.Recompute(segments, cat)

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(out, segments, report)
}

func readSegments(path string) ([]models.CableSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	var segments []models.CableSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("parse segments %s: %w", path, err)
	}
	return segments, nil
}

func readCatalogue(path string) (*catalogue.Catalogue, error) {
	if path == "" {
		return catalogue.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	spec, err := catalogue.ParseSpec(data)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return catalogue.FromSpec(name, spec)
}
