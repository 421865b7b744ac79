package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/mcuscope/internal/cache"
	"github.com/panbanda/mcuscope/internal/output"
	"github.com/panbanda/mcuscope/pkg/config"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the analysis result cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache location, entry count and size",
				Action: runCacheStatsCmd,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached results",
				Action: runCacheClearCmd,
			},
		},
	}
}

func openCache(cfg *config.Config) (*cache.Cache, error) {
	return cache.Open(cfg.Cache.Dir, time.Duration(cfg.Cache.TTL)*time.Hour)
}

func runCacheStatsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cc, err := openCache(cfg)
	if err != nil {
		return err
	}
	st, err := cc.Stats()
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	age := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return time.Since(t).Round(time.Second).String()
	}
	return formatter.Output(&output.Table{
		Title:   "Cache",
		Headers: []string{"Setting", "Value"},
		Rows: [][]string{
			{"Directory", st.Dir},
			{"Entries", fmt.Sprint(st.Entries)},
			{"Size", fmt.Sprintf("%d bytes", st.Bytes)},
			{"Oldest", age(st.Oldest)},
			{"Newest", age(st.Newest)},
		},
		Data: st,
	})
}

func runCacheClearCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cc, err := openCache(cfg)
	if err != nil {
		return err
	}
	n, err := cc.Purge()
	if err != nil {
		return err
	}
	success("Removed %d cached result(s) from %s", n, cc.Dir())
	return nil
}
