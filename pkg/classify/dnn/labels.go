package dnn

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// synsetPrefix matches the WordNet id some ImageNet label files carry
// ("n01440764 tench, Tinca tinca").
var synsetPrefix = regexp.MustCompile(`^n\d{8}\s+`)

// LoadLabels reads a label file, one entry per line.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dnn: open labels: %w", err)
	}
	defer f.Close()
	return ParseLabels(f)
}

// ParseLabels reads labels from r. Blank lines are skipped and WordNet ids
// are stripped; synonym lists are kept intact.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		labels = append(labels, synsetPrefix.ReplaceAllString(line, ""))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dnn: read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("dnn: label file is empty")
	}
	return labels, nil
}
