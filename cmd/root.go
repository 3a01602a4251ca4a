// Package cmd 命令行入口：crawl 单次抓取，serve 启动 HTTP 服务
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version 编译时通过 -ldflags "-X news-crawler/cmd.Version=..." 注入
var Version = "dev"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           "news-crawler",
		Short:         "Crawl news articles from Korean portals",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "news-crawler version %s\n", Version)
		},
	})
	rootCmd.AddCommand(newCrawlCmd())
	rootCmd.AddCommand(newServeCmd())
}
