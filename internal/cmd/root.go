package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atikulmunna/fwloom/internal/config"
	"github.com/atikulmunna/fwloom/internal/fwlogs"
)

var (
	cfgFile string
	cfg     config.Config
	logger  = zap.NewNop()
)

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"schema":       "schema",
	"source":       "source",
	"delta_scale":  "delta-scale",
	"header_size":  "header-size",
	"output":       "output",
	"level":        "level",
	"verbose":      "verbose",
	"redis.addr":   "redis",
	"redis.stream": "redis-stream",
	"port":         "port",
	"checkpoint":   "checkpoint",
	"from_start":   "from-start",
}

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "fwloom",
	Short: "fwloom, a firmware log decoder",
	Long: `fwloom decodes the bit-packed binary log stream emitted by camera
firmware into readable, ordered log lines, using an XML schema that
describes event formats, file/thread/module names and enumerations.

It decodes captured buffers once, tails dumps a device poller keeps
appending to, and serves a live dashboard.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.fwloom.yaml)")
	pf.StringP("output", "o", "text", "output format: text, json")
	pf.StringP("level", "l", "", "filter by severity (comma-separated: info,warn,error)")
	pf.StringP("schema", "s", "", "schema document (parser or definitions XML)")
	pf.Int("source", -1, "load the parser document of this source id from a definitions schema")
	pf.Float64("delta-scale", fwlogs.DefaultDeltaScale, "multiplier from timer ticks to displayed delta")
	pf.Int("header-size", 0, "bytes to strip from the start of each buffer (e.g. 4 for the command header)")
	pf.String("redis", "", "publish decoded lines to the Redis stream at this address")
	pf.String("redis-stream", "", "Redis stream key (default fwloom:lines)")
	pf.BoolP("verbose", "v", false, "debug logging")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}

	var err error
	if cfg, err = config.Load(v); err != nil {
		return err
	}
	logger, err = newLogger(cfg.Verbose)
	return err
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}
