// Package textformat reads and writes the subset of the Prometheus text
// exposition format used by fixture files: # HELP, # TYPE and sample lines.
// Escaping rules and histogram/summary structure are not supported.
package textformat

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/szibis/mock-exporter/internal/catalog"
	"github.com/szibis/mock-exporter/internal/intern"
)

// LineKind classifies a single line of input.
type LineKind int

const (
	LineBlank LineKind = iota
	LineComment
	LineHelp
	LineType
	LineSample
	LineMalformed
)

// String returns the string representation of the line kind.
func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineHelp:
		return "help"
	case LineType:
		return "type"
	case LineSample:
		return "sample"
	default:
		return "malformed"
	}
}

// Line is the parse result of one input line. Name is set for help, type and
// sample lines; Text holds the help text or declared type.
type Line struct {
	Kind   LineKind
	Name   string
	Text   string
	Sample catalog.Sample
}

const (
	helpPrefix = "# HELP "
	typePrefix = "# TYPE "
)

var (
	sampleRe = regexp.MustCompile(
		`^([a-zA-Z_:][a-zA-Z0-9_:]*)` + // metric name
			`(?:\{(.*?)\})?` + // optional label block
			`\s+([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?)` + // value
			`(?:\s+(\d+))?$`) // optional timestamp, discarded
	labelRe = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)="(.*?)"`)
)

// ParseLine classifies and parses one line. It never fails; lines outside
// the grammar come back as LineMalformed.
func ParseLine(raw string) Line {
	line := strings.TrimSpace(raw)
	switch {
	case line == "":
		return Line{Kind: LineBlank}
	case strings.HasPrefix(line, helpPrefix):
		return parseMeta(LineHelp, line[len(helpPrefix):])
	case strings.HasPrefix(line, typePrefix):
		return parseMeta(LineType, line[len(typePrefix):])
	case strings.HasPrefix(line, "#"):
		return Line{Kind: LineComment}
	}

	m := sampleRe.FindStringSubmatch(line)
	if m == nil {
		return Line{Kind: LineMalformed}
	}
	value, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Line{Kind: LineMalformed}
	}

	var labels catalog.Labels
	if m[2] != "" {
		matches := labelRe.FindAllStringSubmatch(m[2], -1)
		labels = make(catalog.Labels, len(matches))
		for _, lm := range matches {
			labels[intern.LabelNames.Intern(lm[1])] = intern.LabelValues.Intern(lm[2])
		}
	}

	name := intern.MetricNames.Intern(m[1])
	return Line{
		Kind:   LineSample,
		Name:   name,
		Sample: catalog.Sample{Value: value, Labels: labels},
	}
}

// parseMeta handles the remainder of a HELP or TYPE line: "<name> <text>".
// A line with no text after the name carries no metadata and is treated as
// a plain comment.
func parseMeta(kind LineKind, rest string) Line {
	name, text, ok := strings.Cut(rest, " ")
	if !ok || name == "" {
		return Line{Kind: LineComment}
	}
	return Line{Kind: kind, Name: intern.MetricNames.Intern(name), Text: text}
}

// Result is the outcome of parsing one file's content.
type Result struct {
	Metrics   catalog.Catalog
	Samples   int
	Malformed int
}

// Parse builds the metric definitions found in content. Malformed lines are
// skipped and only counted. Statistics are recomputed before returning.
func Parse(content string) Result {
	res := Result{Metrics: make(catalog.Catalog)}

	get := func(name string) *catalog.MetricDefinition {
		m, ok := res.Metrics[name]
		if !ok {
			m = catalog.NewMetricDefinition(name)
			res.Metrics[name] = m
		}
		return m
	}

	for _, raw := range strings.Split(content, "\n") {
		line := ParseLine(raw)
		switch line.Kind {
		case LineHelp:
			get(line.Name).Help = line.Text
		case LineType:
			get(line.Name).SetType(line.Text)
		case LineSample:
			m := get(line.Name)
			m.Samples = append(m.Samples, line.Sample)
			res.Samples++
		case LineMalformed:
			res.Malformed++
		}
	}

	for _, m := range res.Metrics {
		m.RecomputeStatistics()
	}
	return res
}

// ParseFile reads path and parses its content.
func ParseFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(string(data)), nil
}
