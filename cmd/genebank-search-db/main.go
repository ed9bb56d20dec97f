// Command genebank-search-db looks up DNA sequences against the
// SQLite-backed gene_sequence table, the alternate storage engine to the
// disk B-tree searched by genebank-search.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wrightcameron/genebank-btree/internal/kmer"
	"github.com/wrightcameron/genebank-btree/internal/logging"
	"github.com/wrightcameron/genebank-btree/internal/sqliteindex"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type searchDBFlags struct {
	database  string
	queryfile string
	debug     uint8
}

func newRootCmd() *cobra.Command {
	flags := &searchDBFlags{}
	cmd := &cobra.Command{
		Use:   "genebank-search-db",
		Short: "Search the SQLite gene_sequence table for DNA sequences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchDB(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.database, "database", "d", "", "SQLite database file (required)")
	cmd.Flags().StringVarP(&flags.queryfile, "queryfile", "q", "", "file of query sequences, one per line (required)")
	cmd.Flags().Uint8VarP(&flags.debug, "debug", "v", 0, "1 to enable debug logging")
	cmd.MarkFlagRequired("database")
	cmd.MarkFlagRequired("queryfile")

	return cmd
}

func runSearchDB(flags *searchDBFlags) error {
	logger, err := logging.New(flags.debug == 1)
	if err != nil {
		return fmt.Errorf("genebank-search-db: %w", err)
	}
	defer logger.Sync()

	if _, err := os.Stat(flags.database); err != nil {
		return fmt.Errorf("genebank-search-db: %s not found", flags.database)
	}
	logger.Debugw("database file found", "path", flags.database)

	if _, err := os.Stat(flags.queryfile); err != nil {
		return fmt.Errorf("genebank-search-db: %s not found", flags.queryfile)
	}
	logger.Debugw("query file found", "path", flags.queryfile)

	store, err := sqliteindex.OpenReadOnly(flags.database)
	if err != nil {
		return fmt.Errorf("genebank-search-db: %w", err)
	}
	defer store.Close()

	f, err := os.Open(flags.queryfile)
	if err != nil {
		return fmt.Errorf("genebank-search-db: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		sequence := strings.TrimSpace(scanner.Text())
		if sequence == "" {
			continue
		}
		reverseComplement, err := kmer.ReverseComplement(sequence)
		if err != nil {
			return fmt.Errorf("genebank-search-db: %w", err)
		}
		frequency, err := store.CombinedFrequency(sequence, reverseComplement)
		if err != nil {
			return fmt.Errorf("genebank-search-db: %w", err)
		}
		fmt.Printf("%s %d\n", sequence, frequency)
	}
	return scanner.Err()
}
