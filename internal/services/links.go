package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadLinks reads a MovieLens links.csv and returns the set of TMDB ids it
// maps. Rows without a tmdbId are skipped.
func LoadLinks(path string) (map[int64]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open links file: %w", err)
	}
	defer f.Close()

	return ParseLinks(f)
}

func ParseLinks(r io.Reader) (map[int64]struct{}, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read links header: %w", err)
	}
	column := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "tmdbId") {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, errors.New("links file has no tmdbId column")
	}

	ids := make(map[int64]struct{})
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read links row: %w", err)
		}
		if column >= len(record) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(record[column]), 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}
