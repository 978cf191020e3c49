package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hotboard",
		Short:         "Collect daily hot lists from Chinese platforms into a queryable history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(initDBCmd())
	root.AddCommand(collectCmd())
	root.AddCommand(runCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(platformsCmd())
	root.AddCommand(serveCmd())

	return root
}

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the history table and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB()
		},
	}
}

func collectCmd() *cobra.Command {
	var platforms []string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one collection cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(platforms)
		},
	}

	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "specific platforms to collect (e.g., weibo,zhihu)")
	return cmd
}

func runCmd() *cobra.Command {
	var (
		port     int
		interval string
		noServe  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the collection scheduler, with the HTTP API alongside",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port, interval, noServe)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	cmd.Flags().StringVar(&interval, "interval", "", "collection interval, e.g. 12h (default: from config)")
	cmd.Flags().BoolVar(&noServe, "no-serve", false, "run the scheduler only")
	return cmd
}

func historyCmd() *cobra.Command {
	var opts historyOpts

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query collected history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts)
		},
	}

	cmd.Flags().StringVar(&opts.keyword, "keyword", "", "substring of title, excerpt or url")
	cmd.Flags().StringSliceVar(&opts.platforms, "platform", nil, "platforms to include")
	cmd.Flags().StringVar(&opts.from, "from", "", "first scraped date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last scraped date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.order, "order", "scraped_at DESC", orderUsage())
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 50, "rows per page (20, 50, 100 or 200)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")
	return cmd
}

func platformsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "platforms",
		Short: "List platforms with stored history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlatforms(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
