package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/genricoloni/nowink/internal/artcache"
	"github.com/genricoloni/nowink/internal/config"
	"github.com/jonboulle/clockwork"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const digestWidth = 16

func newCacheCmd(c *cli) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the album art cache",
		Long: `Inspect or empty the on-disk album art cache.

Processed artwork is stored as 1-bit PNG files named after the SHA-256
digest of the image URL.

Subcommands:
  status - List cached entries and their total size
  clear  - Remove every cached file`,
	}

	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List cached album art",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cache, err := c.openCache()
				if err != nil {
					return err
				}
				entries, err := cache.Stats()
				if err != nil {
					return err
				}
				return printCacheStatus(cmd.OutOrStdout(), cache.Dir(), entries)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove all cached album art",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cache, err := c.openCache()
				if err != nil {
					return err
				}
				n, err := cache.Purge()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s removed %d cached files from %s\n",
					color.GreenString("Cache cleared:"), n, cache.Dir())
				return nil
			},
		},
	)
	return cacheCmd
}

// openCache opens the disk tier only; no fetcher or processor is needed
func (c *cli) openCache() (*artcache.Cache, error) {
	cfg, err := config.NewAppConfig(zap.NewNop(), c.v)
	if err != nil {
		return nil, err
	}
	return artcache.New(zap.NewNop(), nil, nil, clockwork.NewRealClock(), artcache.Options{
		Dir:    cfg.GetCacheDir(),
		Policy: artcache.PolicyPersist,
	})
}

func printCacheStatus(w io.Writer, dir string, entries []artcache.DiskEntry) error {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "Cache directory: %s\n", bold(dir))

	if len(entries) == 0 {
		fmt.Fprintln(w, color.YellowString("Cache is empty."))
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Digest", "Size", "Created"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var total int64
	data := make([][]string, 0, len(entries))
	for _, e := range entries {
		total += e.Bytes
		digest := e.Digest
		if len(digest) > digestWidth {
			digest = digest[:digestWidth]
		}
		data = append(data, []string{
			digest,
			strconv.FormatInt(e.Bytes, 10) + " B",
			e.CreatedAt.Local().Format(time.DateTime),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %d entries, %d bytes\n", color.CyanString("Total:"), len(entries), total)
	return nil
}
