// Package dataset loads labeled review samples from CSV.
package dataset

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

//go:embed testdata/*.csv
var embeddedDatasets embed.FS

// Candidate header names, in preference order.
var (
	ratingColumns = []string{"stars", "rating"}
	textColumns   = []string{"text", "review"}
)

// SampleItem is one labeled review.
type SampleItem struct {
	ActualRating int    `json:"actual_rating"`
	ReviewText   string `json:"review_text"`
}

// MissingColumnError is returned when no accepted header is found for a column.
type MissingColumnError struct {
	Column   string
	Accepted []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing %s column (accepted: %s)", e.Column, strings.Join(e.Accepted, ", "))
}

// Load loads a dataset by name. name may be a path to a CSV file; otherwise it
// is looked up as <name>.csv in externalDir (if provided), then among the
// embedded datasets.
func Load(name string, externalDir string) ([]SampleItem, error) {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return loadFile(name)
	}

	if externalDir != "" {
		p := filepath.Join(externalDir, name+".csv")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return loadFile(p)
		}
	}

	// embed.FS always uses forward slashes.
	f, err := embeddedDatasets.Open(path.Join("testdata", name+".csv"))
	if err != nil {
		return nil, fmt.Errorf("dataset %q not found: %w", name, err)
	}
	defer f.Close()

	items, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %q: %w", name, err)
	}
	return items, nil
}

// List returns the names of all available datasets.
func List(externalDir string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	entries, err := fs.ReadDir(embeddedDatasets, "testdata")
	if err == nil {
		for _, e := range entries {
			if name, ok := strings.CutSuffix(e.Name(), ".csv"); ok && !e.IsDir() {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	if externalDir != "" {
		entries, err := os.ReadDir(externalDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read datasets directory: %w", err)
		}
		for _, e := range entries {
			if name, ok := strings.CutSuffix(e.Name(), ".csv"); ok && !e.IsDir() && !seen[name] {
				names = append(names, name)
			}
		}
	}

	return names, nil
}

func loadFile(p string) ([]SampleItem, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer f.Close()

	items, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", p, err)
	}
	return items, nil
}

// Parse reads review rows from CSV. The rating column is "stars" or "rating"
// and the text column is "text" or "review". Rows with empty text or a rating
// outside 1-5 are skipped.
func Parse(r io.Reader) ([]SampleItem, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	ratingIdx, ok := pickColumn(colIndex, ratingColumns)
	if !ok {
		return nil, &MissingColumnError{Column: "rating", Accepted: ratingColumns}
	}
	textIdx, ok := pickColumn(colIndex, textColumns)
	if !ok {
		return nil, &MissingColumnError{Column: "text", Accepted: textColumns}
	}

	var items []SampleItem
	skipped := 0
	for lineNum := 2; ; lineNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", lineNum, err)
		}
		if ratingIdx >= len(record) || textIdx >= len(record) {
			skipped++
			continue
		}

		rating, ok := parseRating(record[ratingIdx])
		text := strings.TrimSpace(record[textIdx])
		if !ok || text == "" {
			skipped++
			continue
		}

		items = append(items, SampleItem{ActualRating: rating, ReviewText: text})
	}

	if skipped > 0 {
		slog.Debug("skipped incomplete dataset rows", "skipped", skipped, "kept", len(items))
	}
	return items, nil
}

func pickColumn(colIndex map[string]int, candidates []string) (int, bool) {
	for _, c := range candidates {
		if idx, ok := colIndex[c]; ok {
			return idx, true
		}
	}
	return 0, false
}

func parseRating(s string) (int, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	rating := int(math.Round(v))
	if rating < 1 || rating > 5 {
		return 0, false
	}
	return rating, true
}

// Sample returns up to n items chosen without replacement. The same seed over
// the same input always yields the same sample.
func Sample(items []SampleItem, n int, seed uint64) []SampleItem {
	if n <= 0 {
		return nil
	}
	if n > len(items) {
		n = len(items)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	idx := rng.Perm(len(items))[:n]

	out := make([]SampleItem, n)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

// Distribution counts items per rating.
func Distribution(items []SampleItem) map[int]int {
	dist := make(map[int]int)
	for _, it := range items {
		dist[it.ActualRating]++
	}
	return dist
}

// Ratings returns the ground-truth ratings in item order.
func Ratings(items []SampleItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ActualRating
	}
	return out
}

// SortedRatings returns the ratings present in dist in ascending order.
func SortedRatings(dist map[int]int) []int {
	keys := make([]int, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
