package textformat

import (
	"strconv"
	"strings"

	"github.com/szibis/mock-exporter/internal/catalog"
)

// FormatValue renders v in the shortest form that parses back to the same
// float64. The output does not depend on locale.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatSample renders one sample line without a trailing newline. Labels
// are written in sorted name order; the brace block is omitted when empty.
func FormatSample(name string, labels catalog.Labels, value float64) string {
	var sb strings.Builder
	WriteSample(&sb, name, labels, value)
	return sb.String()
}

// WriteSample appends a sample line (without newline) to sb.
func WriteSample(sb *strings.Builder, name string, labels catalog.Labels, value float64) {
	sb.WriteString(name)
	if len(labels) > 0 {
		sb.WriteByte('{')
		for i, ln := range labels.Names() {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(ln)
			sb.WriteString(`="`)
			sb.WriteString(labels[ln])
			sb.WriteByte('"')
		}
		sb.WriteByte('}')
	}
	sb.WriteByte(' ')
	sb.WriteString(FormatValue(value))
}

// WriteHelp appends a "# HELP" line including the newline.
func WriteHelp(sb *strings.Builder, name, help string) {
	sb.WriteString(helpPrefix)
	sb.WriteString(name)
	sb.WriteByte(' ')
	sb.WriteString(help)
	sb.WriteByte('\n')
}

// WriteType appends a "# TYPE" line including the newline.
func WriteType(sb *strings.Builder, name, declared string) {
	sb.WriteString(typePrefix)
	sb.WriteString(name)
	sb.WriteByte(' ')
	sb.WriteString(declared)
	sb.WriteByte('\n')
}
