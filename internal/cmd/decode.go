package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/fwloom/internal/capture"
	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/output"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <capture>...",
	Short: "Decode captured raw log buffers",
	Long: `Decode one or more captured raw log buffers and print the lines.
Captures may be zstd compressed. Each capture is its own timestamp session.

Examples:
  fwloom decode fw.bin --schema HKRParser.xml
  fwloom decode fw.bin.zst --schema defs.xml --source 0 --header-size 4
  fwloom decode fw.bin -s HKRParser.xml -o json --level warn,error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	repo, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	parser := newParser(cfg, repo)

	filter, err := newFilter(cfg, repo)
	if err != nil {
		return err
	}
	renderer, err := output.New(cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	redisSink, closeSink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	for _, path := range args {
		data, err := capture.ReadFile(path, cfg.HeaderSize)
		if err != nil {
			return fmt.Errorf("failed to read capture: %w", err)
		}
		if rest := len(data) % fwlogs.RecordSize; rest != 0 {
			logger.Warn("ignoring trailing partial record", zap.String("path", path), zap.Int("bytes", rest))
		}

		var ts fwlogs.TimestampExtender
		for _, line := range parser.Parse(data, &ts) {
			line.Source = path
			if redisSink != nil {
				if err := redisSink.Write(ctx, line); err != nil {
					return err
				}
			}
			if !filter.Show(line) {
				continue
			}
			if err := renderer.Render(line); err != nil {
				return fmt.Errorf("render: %w", err)
			}
		}
	}
	return nil
}
