package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Inspect a schema document",
	Long: `Load a schema document, validate it, and print its version, table
sizes, declared sources (with parser paths and module verbosity) and enums.

Examples:
  fwloom schema HKRParser.xml
  fwloom schema defs.xml -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

var styleHeading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

// schemaReport is the inspected summary of one document.
type schemaReport struct {
	Path    string                        `json:"path"`
	Version string                        `json:"version,omitempty"`
	Counts  map[string]int                `json:"counts"`
	Sources []schema.Source               `json:"sources,omitempty"`
	Enums   map[string][]schema.EnumValue `json:"enums,omitempty"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	repo, err := schema.LoadFile(args[0])
	if err != nil {
		return err
	}

	report := schemaReport{Path: args[0], Counts: repo.Counts(), Enums: map[string][]schema.EnumValue{}}
	report.Version, _ = repo.Version()
	for _, id := range repo.SourceIDs() {
		src, _ := repo.Source(id)
		report.Sources = append(report.Sources, src)
	}
	for _, name := range repo.EnumNames() {
		report.Enums[name], _ = repo.Enum(name)
	}

	out := cmd.OutOrStdout()
	if cfg.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	writeSchemaReport(out, report)
	return nil
}

func writeSchemaReport(w io.Writer, r schemaReport) {
	version := r.Version
	if version == "" {
		version = "(none)"
	}
	fmt.Fprintf(w, "%s %s\n", styleHeading.Render("Schema"), r.Path)
	fmt.Fprintf(w, "  version: %s\n", version)

	kinds := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-7s %d\n", k+":", r.Counts[k])
	}

	if len(r.Sources) > 0 {
		fmt.Fprintln(w, styleHeading.Render("Sources"))
		for _, s := range r.Sources {
			fmt.Fprintf(w, "  %d %s parser=%s\n", s.ID, s.Name, s.ParserPath)
			modules := make([]int, 0, len(s.ModuleVerbosity))
			for m := range s.ModuleVerbosity {
				modules = append(modules, m)
			}
			sort.Ints(modules)
			for _, m := range modules {
				fmt.Fprintf(w, "    module %d verbosity %s\n", m, verbosityNames(s.ModuleVerbosity[m]))
			}
		}
	}

	if len(r.Enums) > 0 {
		fmt.Fprintln(w, styleHeading.Render("Enums"))
		names := make([]string, 0, len(r.Enums))
		for n := range r.Enums {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			labels := make([]string, 0, len(r.Enums[n]))
			for _, v := range r.Enums[n] {
				labels = append(labels, fmt.Sprintf("%d=%s", v.Key, v.Label))
			}
			fmt.Fprintf(w, "  %s: %s\n", n, strings.Join(labels, ", "))
		}
	}
}

// verbosityNames renders a mask as "INFO|ERROR".
func verbosityNames(mask int) string {
	var set []string
	for sev := uint8(1); sev <= 6; sev++ {
		if mask&fwlogs.SeverityBit(sev) != 0 {
			set = append(set, fwlogs.LevelName(sev))
		}
	}
	if len(set) == 0 {
		return "NONE"
	}
	return strings.Join(set, "|")
}
