// Package kmer packs and unpacks fixed-width DNA k-mers into the 2-bit
// encoding the B-tree stores as its uint64 key: each base (A, C, G, T)
// takes 2 bits, most-significant base first, so lexical order on the
// encoded integer matches lexical order on the base string.
package kmer

import (
	"fmt"
	"strings"
)

// MinLength and MaxLength bound the k-mer lengths the codec accepts. 31
// bases pack into 62 of a uint64's 64 bits, leaving the encoding
// unambiguous without needing the full width.
const (
	MinLength = 1
	MaxLength = 31
)

// ValidateLength reports whether length is a usable k-mer length.
func ValidateLength(length int) error {
	if length < MinLength || length > MaxLength {
		return fmt.Errorf("kmer: length %d out of range [%d, %d]", length, MinLength, MaxLength)
	}
	return nil
}

// baseToBin returns the 2-bit code for a single base, case-insensitive.
func baseToBin(base byte) (uint64, error) {
	switch base | 0x20 { // lowercase ASCII letters
	case 'a':
		return 0b00, nil
	case 'c':
		return 0b01, nil
	case 'g':
		return 0b10, nil
	case 't':
		return 0b11, nil
	default:
		return 0, fmt.Errorf("kmer: invalid base %q, expected one of A, C, G, T", base)
	}
}

// binToBase returns the uppercase base for a 2-bit code.
func binToBase(code uint64) (byte, error) {
	switch code {
	case 0b00:
		return 'A', nil
	case 0b01:
		return 'C', nil
	case 0b10:
		return 'G', nil
	case 0b11:
		return 'T', nil
	default:
		return 0, fmt.Errorf("kmer: invalid 2-bit code %d", code)
	}
}

// Encode packs sequence (length bases, A/C/G/T, case-insensitive) into a
// uint64 with the first base in the most significant pair of bits.
func Encode(sequence string) (uint64, error) {
	if err := ValidateLength(len(sequence)); err != nil {
		return 0, err
	}
	var packed uint64
	for i := 0; i < len(sequence); i++ {
		code, err := baseToBin(sequence[i])
		if err != nil {
			return 0, err
		}
		packed = (packed << 2) | code
	}
	return packed, nil
}

// Decode unpacks a uint64 produced by Encode back into an uppercase,
// length-base string.
func Decode(packed uint64, length int) (string, error) {
	if err := ValidateLength(length); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(length)
	bases := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		code := (packed >> (2 * uint(length-1-i))) & 0b11
		base, err := binToBase(code)
		if err != nil {
			return "", err
		}
		bases[i] = base
	}
	sb.Write(bases)
	return sb.String(), nil
}

// complementBase returns the Watson-Crick complement of a single base.
func complementBase(base byte) (byte, error) {
	switch base | 0x20 {
	case 'a':
		return 'T', nil
	case 't':
		return 'A', nil
	case 'c':
		return 'G', nil
	case 'g':
		return 'C', nil
	default:
		return 0, fmt.Errorf("kmer: invalid base %q, expected one of A, C, G, T", base)
	}
}

// ReverseComplement returns the reverse complement of sequence: the
// bases complemented, then the result reversed, matching the strand read
// 3' to 5'. Search queries check both a k-mer and its reverse
// complement, since a sequence and its reverse complement represent the
// same double-stranded DNA fragment.
func ReverseComplement(sequence string) (string, error) {
	out := make([]byte, len(sequence))
	for i := 0; i < len(sequence); i++ {
		c, err := complementBase(sequence[i])
		if err != nil {
			return "", err
		}
		out[len(sequence)-1-i] = c
	}
	return string(out), nil
}
