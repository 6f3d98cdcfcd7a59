package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"cablesizer/internal/models"
)

func printReport(w io.Writer, segments []models.CableSegment, report models.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Catalogue: %s\n\n", report.Catalogue)
	fmt.Fprintln(tw, "#\tCABLE\tFROM\tTO\tFLC (A)\tSIZE (mm²)\tRUNS\tDRIVING\tVD %\tSTATUS")
	for i, r := range report.Results {
		seg := segments[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%g\t%d\t%s\t%.2f\t%s\n",
			i, dash(r.CableNumber), dash(strings.TrimSpace(seg.FromBus)), dash(strings.TrimSpace(seg.ToBus)),
			r.FullLoadCurrent, r.SelectedConductorArea, r.NumberOfRuns, r.DrivingConstraint,
			r.VoltageDropPercent, r.Status)
	}

	if len(report.Paths) > 0 {
		fmt.Fprintln(tw, "\nLEAF\tSOURCE\tLENGTH (m)\tVD (V)\tVD %\tBAND")
		for _, p := range report.Paths {
			fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.2f\t%.2f\t%s\n",
				p.StartEquipment, p.EndSource, p.TotalDistance, p.VoltageDrop, p.VoltageDropPercent, p.DropBand)
		}
	}
	if len(report.Unresolved) > 0 {
		fmt.Fprintln(tw, "\nUNRESOLVED\tREASON\tAT BUS")
		for _, u := range report.Unresolved {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Leaf, u.Reason, dash(u.Bus))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range report.Results {
		for _, a := range r.Anomalies {
			fmt.Fprintf(w, "segment %d (%s): %s\n", r.Index, dash(r.CableNumber), a)
		}
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintf(w, "%s: %s\n", d.Level, d.Message)
	}

	s := report.Summary
	_, err := fmt.Fprintf(w, "\n%d segments: %d approved, %d warning, %d failed. %d of %d paths valid, %d unresolved.\n",
		s.Segments, s.Approved, s.Warning, s.Failed, s.ValidPaths, s.Paths, s.Unresolved)
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
