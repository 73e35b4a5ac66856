package capture

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ReadUniverse loads the ticker universe from a plain text file: one
// symbol per line, blank lines and #-comments ignored. Symbols are
// upper-cased, deduplicated and sorted. Listings-style share-class dots
// are rewritten to the dashes the market-data API expects (BRK.B →
// BRK-B).
func ReadUniverse(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening universe file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sym := strings.ReplaceAll(strings.ToUpper(line), ".", "-")
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading universe file: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
