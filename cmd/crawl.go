package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"news-crawler/api"
	"news-crawler/collect"
	"news-crawler/config"
	"news-crawler/storage/memstorage"
)

type crawlFlags struct {
	source   string
	category string
	quota    int
	dryRun   bool
}

func newCrawlCmd() *cobra.Command {
	var f crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl one category until the quota is met",
		Long: `Crawl fetches listing pages of one source and category, following pagination
until --quota articles are saved.

Examples:
  news-crawler crawl --source daum --category economy --quota 5
  news-crawler crawl --source naver --category world --quota 10 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.source, "source", "s", string(collect.SourceDaum), "news source: daum or naver")
	cmd.Flags().StringVarP(&f.category, "category", "c", "economy", "category: politics, economy, society, world, digital")
	cmd.Flags().IntVarP(&f.quota, "quota", "n", 5, "number of articles to save, limited to server.max_quota")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "keep articles in memory and print them instead of writing to the database")
	return cmd
}

func runCrawl(cmd *cobra.Command, f crawlFlags) error {
	source, ok := collect.ParseSource(f.source)
	if !ok {
		return fmt.Errorf("unknown source %q", f.source)
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	quota := api.ClampLimit(f.quota, cfg.Server.MaxQuota)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, debug, f.dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, crawlErr := a.crawler.Crawl(ctx, collect.CrawlRequest{
		Source:   source,
		Category: f.category,
		Quota:    quota,
	})

	out := cmd.OutOrStdout()
	if mem, ok := a.storage.(*memstorage.MemStorage); ok && f.dryRun {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(mem.All()); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "saved %d/%d articles: %v\n", len(ids), quota, ids)
	return crawlErr
}
