// Package genbank extracts raw DNA sequence data from the ORIGIN block of
// a GenBank flat-file (.gbk) record.
package genbank

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	originBlock  = regexp.MustCompile(`(?s)ORIGIN.*?//`)
	digitRun     = regexp.MustCompile(`[0-9]`)
	sequenceGaps = regexp.MustCompile(`n+`)
)

// ParseFile reads path and returns every contiguous DNA sequence found in
// its ORIGIN...// blocks, with line numbers and whitespace stripped and
// any run of ambiguous 'n' bases treated as a break between sequences.
func ParseFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genbank: read %s: %w", path, err)
	}
	sequences := ParseContents(string(raw))
	if len(sequences) == 0 {
		return nil, fmt.Errorf("genbank: no ORIGIN sequences found in %s", path)
	}
	return sequences, nil
}

// ParseContents extracts DNA sequences from raw GenBank flat-file text,
// without touching the filesystem.
func ParseContents(contents string) []string {
	var sequences []string
	for _, block := range originBlock.FindAllString(contents, -1) {
		cleaned := strings.NewReplacer("\n", "", " ", "", "/", "").Replace(block)
		cleaned = digitRun.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimPrefix(cleaned, "ORIGIN")
		cleaned = sequenceGaps.ReplaceAllString(cleaned, "x")

		if strings.Contains(cleaned, "x") {
			sequences = append(sequences, strings.Split(cleaned, "x")...)
		} else {
			sequences = append(sequences, cleaned)
		}
	}
	return sequences
}
