// Command genebank-search looks up DNA sequences in a disk B-tree index
// built by genebank-build, reporting the combined frequency of each
// query sequence and its reverse complement.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wrightcameron/genebank-btree/internal/btree"
	"github.com/wrightcameron/genebank-btree/internal/kmer"
	"github.com/wrightcameron/genebank-btree/internal/logging"
	"github.com/wrightcameron/genebank-btree/internal/node"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type searchFlags struct {
	cache     uint32
	degree    uint32
	btreefile string
	length    uint32
	queryfile string
	cacheSize uint32
	debug     uint8
}

func newRootCmd() *cobra.Command {
	flags := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "genebank-search",
		Short: "Search a disk B-tree index of DNA k-mers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(flags)
		},
	}

	cmd.Flags().Uint32VarP(&flags.cache, "cache", "c", 0, "1 to enable the node cache, 0 to disable it")
	cmd.Flags().Uint32VarP(&flags.degree, "degree", "d", 0, "B-tree degree the index was built with, or 0 to auto-size to a 4096-byte page")
	cmd.Flags().StringVarP(&flags.btreefile, "btreefile", "b", "", "B-tree index file to search (required)")
	cmd.Flags().Uint32VarP(&flags.length, "length", "l", 10, "k-mer length, between 1 and 31 inclusive")
	cmd.Flags().StringVarP(&flags.queryfile, "queryfile", "q", "", "file of query sequences, one per line (required)")
	cmd.Flags().Uint32VarP(&flags.cacheSize, "cachesize", "s", 100, "maximum node cache size, between 100 and 10000")
	cmd.Flags().Uint8VarP(&flags.debug, "debug", "v", 0, "1 to enable debug logging")
	cmd.MarkFlagRequired("btreefile")
	cmd.MarkFlagRequired("queryfile")

	return cmd
}

func runSearch(flags *searchFlags) error {
	if err := kmer.ValidateLength(int(flags.length)); err != nil {
		return err
	}

	logger, err := logging.New(flags.debug == 1)
	if err != nil {
		return fmt.Errorf("genebank-search: %w", err)
	}
	defer logger.Sync()

	if _, err := os.Stat(flags.btreefile); err != nil {
		return fmt.Errorf("genebank-search: %s not found", flags.btreefile)
	}
	if _, err := os.Stat(flags.queryfile); err != nil {
		return fmt.Errorf("genebank-search: %s not found", flags.queryfile)
	}

	useCache := flags.cache == 1
	tree, err := btree.Open(flags.degree, flags.btreefile, useCache, int(flags.cacheSize), false)
	if err != nil {
		return fmt.Errorf("genebank-search: %w", err)
	}
	defer tree.Close()
	tree.SetLogger(logger)

	f, err := os.Open(flags.queryfile)
	if err != nil {
		return fmt.Errorf("genebank-search: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		sequence := strings.TrimSpace(scanner.Text())
		if sequence == "" {
			continue
		}
		frequency, err := lookupFrequency(tree, sequence, logger)
		if err != nil {
			return fmt.Errorf("genebank-search: %w", err)
		}
		fmt.Printf("%s %d\n", sequence, frequency)
	}
	return scanner.Err()
}

// lookupFrequency sums the stored frequency of sequence and its reverse
// complement, since a k-mer and its reverse complement represent the
// same double-stranded fragment.
func lookupFrequency(tree *btree.BTree, sequence string, logger *zap.SugaredLogger) (uint64, error) {
	total, err := frequencyOf(tree, sequence, logger)
	if err != nil {
		return 0, err
	}

	reverseComplement, err := kmer.ReverseComplement(sequence)
	if err != nil {
		return 0, err
	}
	if reverseComplement != sequence {
		other, err := frequencyOf(tree, reverseComplement, logger)
		if err != nil {
			return 0, err
		}
		total += other
	}
	return total, nil
}

func frequencyOf(tree *btree.BTree, sequence string, logger *zap.SugaredLogger) (uint64, error) {
	packed, err := kmer.Encode(sequence)
	if err != nil {
		return 0, err
	}
	found, ok, err := tree.Search(node.TreeObject{Sequence: packed})
	if err != nil {
		return 0, err
	}
	if !ok {
		logger.Infow("sequence not found in btree", "sequence", sequence)
		return 0, nil
	}
	return found.Frequency, nil
}
