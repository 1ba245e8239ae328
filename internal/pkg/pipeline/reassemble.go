package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type segmentResult struct {
	index     int
	text      string
	succeeded bool
}

func failedSegment(index int) segmentResult {
	return segmentResult{index: index, text: placeholder(index)}
}

func placeholder(index int) string {
	return fmt.Sprintf("[segment %d not transcribed]", index+1)
}

var (
	spaceRegexp = regexp.MustCompile(`\s+`)
	punctRegexp = regexp.MustCompile(`([.!?])(?:\s+[.!?])+`)
)

func succeeded(results []segmentResult) int {
	res := 0
	for _, r := range results {
		if r.succeeded {
			res++
		}
	}
	return res
}

// reassemble joins segment texts in index order
func reassemble(results []segmentResult) (string, error) {
	if succeeded(results) == 0 {
		return "", &ReassemblyError{Segments: len(results)}
	}
	sorted := make([]segmentResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].index < sorted[j].index })
	parts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		parts = append(parts, r.text)
	}
	return normalize(strings.Join(parts, " ")), nil
}

func normalize(s string) string {
	s = spaceRegexp.ReplaceAllString(s, " ")
	s = punctRegexp.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
