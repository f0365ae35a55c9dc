// Package hmmdash holds the I/O helpers shared by the table loader and the
// source fetchers: delimiter sniffing, compression sniffing and path
// expansion.
package hmmdash

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// sniffBytes bounds how much of a table is inspected when guessing its
// delimiter. Result tables carry long bracketed cells, so a few lines is not
// enough.
const sniffBytes = 64 * 1024

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	for _, candidate := range delimiters {
		if len(candidate) == 0 {
			continue
		}
		switch c := rune(candidate[0]); c {
		case ',', '\t', ';', '|':
			return c
		}
	}

	return ','
}

// DetermineDelimiterBytes is DetermineDelimiter over an in-memory table. Only
// the header line and the first rows are inspected.
func DetermineDelimiterBytes(raw []byte) rune {
	head := raw
	if len(head) > sniffBytes {
		head = head[:sniffBytes]
	}

	// The header has no bracketed cells, so when exactly one candidate
	// appears in it that candidate is decisive. Commas inside quoted list
	// cells can otherwise outvote the real delimiter.
	firstLine := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		firstLine = head[:i]
	}
	var found []rune
	for _, c := range []rune{',', '\t', ';', '|'} {
		if bytes.ContainsRune(firstLine, c) {
			found = append(found, c)
		}
	}
	if len(found) == 1 {
		return found[0]
	}

	return DetermineDelimiter(bytes.NewReader(head))
}
