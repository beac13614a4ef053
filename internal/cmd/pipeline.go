package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/atikulmunna/fwloom/internal/config"
	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/output"
	"github.com/atikulmunna/fwloom/internal/schema"
	"github.com/atikulmunna/fwloom/internal/sink"
)

// loadRepository loads the configured schema. Without one every event
// decodes as unrecognized. With a source id the schema is a definitions
// document and the source's parser document is loaded from beside it.
func loadRepository(c config.Config) (*schema.Repository, error) {
	if c.Schema == "" {
		logger.Warn("no schema given; every event will decode as unrecognized")
		return nil, nil
	}

	defs, err := schema.LoadFile(c.Schema)
	if err != nil {
		return nil, err
	}
	if c.Source < 0 {
		return defs, nil
	}

	dir := filepath.Dir(c.Schema)
	repo, err := schema.LoadSource(defs, c.Source, func(path string) ([]byte, error) {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return os.ReadFile(path)
	})
	if err != nil {
		return nil, err
	}

	src, _ := repo.LoadedSource()
	logger.Info("loaded source schema",
		zap.Int("source", src.ID), zap.String("name", src.Name), zap.String("parser", src.ParserPath))
	return repo, nil
}

func newParser(c config.Config, repo *schema.Repository) *fwlogs.Parser {
	return fwlogs.NewParser(repo, fwlogs.WithDeltaScale(c.DeltaScale))
}

// newFilter combines the --level list with the loaded source's module
// verbosity masks.
func newFilter(c config.Config, repo *schema.Repository) (*output.Filter, error) {
	var verbosity *fwlogs.VerbosityFilter
	if repo != nil {
		if src, ok := repo.LoadedSource(); ok && len(src.ModuleVerbosity) > 0 {
			vf := fwlogs.NewVerbosityFilter(src.ModuleVerbosity)
			verbosity = &vf
		}
	}
	return output.NewFilter(c.Levels(), verbosity)
}

// newSink connects the Redis sink, or returns nil when none is configured.
func newSink(ctx context.Context, c config.Config) (*sink.RedisSink, func(), error) {
	if c.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	client, err := sink.Dial(ctx, c.Redis.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect redis sink: %w", err)
	}
	s := sink.NewRedisSink(client, c.Redis.Stream, c.Redis.MaxLen, logger.Named("sink"))
	return s, func() { _ = client.Close() }, nil
}
