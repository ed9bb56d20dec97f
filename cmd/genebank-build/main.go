// Command genebank-build reads DNA sequences out of a GenBank flat-file
// and indexes its non-overlapping fixed-length chunks into a disk B-tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wrightcameron/genebank-btree/internal/btree"
	"github.com/wrightcameron/genebank-btree/internal/genbank"
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

type buildFlags struct {
	cache     uint32
	degree    uint32
	gbkfile   string
	length    uint32
	cacheSize uint32
	debug     uint8
}

func newRootCmd() *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "genebank-build",
		Short: "Build a disk B-tree index of DNA k-mers from a GenBank file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(flags)
		},
	}

	cmd.Flags().Uint32VarP(&flags.cache, "cache", "c", 0, "1 to enable the node cache, 0 to disable it")
	cmd.Flags().Uint32VarP(&flags.degree, "degree", "d", 3, "B-tree degree, or 0 to auto-size to a 4096-byte page")
	cmd.Flags().StringVarP(&flags.gbkfile, "gbkfile", "g", "", "input .gbk file containing DNA sequences (required)")
	cmd.Flags().Uint32VarP(&flags.length, "length", "l", 10, "k-mer length, between 1 and 31 inclusive")
	cmd.Flags().Uint32VarP(&flags.cacheSize, "cachesize", "s", 100, "maximum node cache size, between 100 and 10000")
	cmd.Flags().Uint8VarP(&flags.debug, "debug", "v", 0, "1 to enable debug logging")
	cmd.MarkFlagRequired("gbkfile")

	return cmd
}

func runBuild(flags *buildFlags) error {
	if err := kmer.ValidateLength(int(flags.length)); err != nil {
		return err
	}

	logger, err := logging.New(flags.debug == 1)
	if err != nil {
		return fmt.Errorf("genebank-build: %w", err)
	}
	defer logger.Sync()

	if _, err := os.Stat(flags.gbkfile); err != nil {
		return fmt.Errorf("genebank-build: %s not found", flags.gbkfile)
	}

	sequences, err := genbank.ParseFile(flags.gbkfile)
	if err != nil {
		return fmt.Errorf("genebank-build: %w", err)
	}
	logger.Debugw("parsed gbk sequences", "count", len(sequences))

	chunks := chunkSequences(sequences, int(flags.length))
	logger.Debugw("chunked into k-mers", "count", len(chunks))

	useCache := flags.cache == 1
	outputPath := fmt.Sprintf("%s.btree.data.%d.%d", flags.gbkfile, flags.length, flags.degree)

	tree, err := btree.Open(flags.degree, outputPath, useCache, int(flags.cacheSize), true)
	if err != nil {
		return fmt.Errorf("genebank-build: %w", err)
	}
	defer tree.Close()
	tree.SetLogger(logger)

	for _, chunk := range chunks {
		packed, err := kmer.Encode(chunk)
		if err != nil {
			return fmt.Errorf("genebank-build: %w", err)
		}
		if err := tree.Insert(node.TreeObject{Sequence: packed, Frequency: 1}); err != nil {
			return fmt.Errorf("genebank-build: %w", err)
		}
	}

	if flags.debug == 1 {
		if err := writeDumpFile(outputPath+".dump", tree, int(flags.length)); err != nil {
			return fmt.Errorf("genebank-build: %w", err)
		}
	}

	fmt.Println("Finished")
	return nil
}

// chunkSequences splits every sequence into non-overlapping windows of
// length bases, dropping a final window shorter than length — a k-mer
// index has no use for a key shorter than its declared length.
func chunkSequences(sequences []string, length int) []string {
	var chunks []string
	for _, sequence := range sequences {
		for i := 0; i+length <= len(sequence); i += length {
			chunks = append(chunks, sequence[i:i+length])
		}
	}
	return chunks
}

// writeDumpFile writes a plain-text in-order dump of the tree's stored
// k-mers and frequencies, for debugging a build without a separate
// search pass.
func writeDumpFile(path string, tree *btree.BTree, length int) error {
	sorted, err := tree.InOrderTraversal()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, obj := range sorted {
		sequence, err := kmer.Decode(obj.Sequence, length)
		if err != nil {
			return err
		}
		fmt.Fprintf(f, "%s %d\n", sequence, obj.Frequency)
	}
	return nil
}
