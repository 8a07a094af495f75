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
		Use:   "tradingboard",
		Short: "Watchlist persistence and synchronization service",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(listCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(symbolCmd())

	return root
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the watchlist HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the API server with the background sync flusher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func listCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show watchlists from the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local cache with the remote store and flush pending writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync()
		},
	}
	return cmd
}

func symbolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbol",
		Short: "Edit watchlist symbols through the sync client",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add WATCHLIST SYMBOL",
		Short: "Add a symbol to a watchlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbol("add", args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove WATCHLIST SYMBOL",
		Short: "Remove a symbol from a watchlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbol("remove", args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "pin WATCHLIST SYMBOL",
		Short: "Pin a symbol in a watchlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbol("pin", args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unpin WATCHLIST SYMBOL",
		Short: "Unpin a symbol in a watchlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbol("unpin", args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "move FROM TO SYMBOL",
		Short: "Copy a symbol into another watchlist",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbol("move", args)
		},
	})

	return cmd
}
