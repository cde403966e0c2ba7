package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/orneryd/redisgraph/pkg/resultset"
)

// Styles degrade to plain text when w is not a terminal.
type outputStyles struct {
	count  lipgloss.Style
	stat   lipgloss.Style
	timing lipgloss.Style
}

func newOutputStyles(w io.Writer) outputStyles {
	r := lipgloss.NewRenderer(w)
	return outputStyles{
		count:  r.NewStyle().Bold(true),
		stat:   r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		timing: r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
	}
}

// printResultSet writes records as an aligned table followed by the
// non-zero statistics.
func printResultSet(w io.Writer, rs *resultset.ResultSet, elapsed time.Duration) {
	styles := newOutputStyles(w)
	if len(rs.Header.Names) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(rs.Header.Names, "\t"))
		for _, rec := range rs.Records {
			cells := make([]string, rec.Size())
			for i, v := range rec.Values() {
				cells[i] = formatValue(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		tw.Flush()
		fmt.Fprintf(w, "\n%s\n", styles.count.Render(fmt.Sprintf("%d row(s)", rs.Size())))
	}

	for _, label := range []resultset.StatisticsLabel{
		resultset.LabelsAdded,
		resultset.NodesCreated,
		resultset.NodesDeleted,
		resultset.PropertiesSet,
		resultset.RelationshipsCreated,
		resultset.RelationshipsDeleted,
		resultset.IndicesCreated,
		resultset.IndicesDeleted,
	} {
		if n := rs.Statistics.Int(label); n != 0 {
			fmt.Fprintln(w, styles.stat.Render(fmt.Sprintf("%s: %d", label, n)))
		}
	}
	if rs.Statistics.CachedExecution() {
		fmt.Fprintln(w, styles.stat.Render("Cached execution: yes"))
	}
	fmt.Fprintln(w, styles.timing.Render(fmt.Sprintf("Query internal execution time: %.3f ms (round trip %s)",
		rs.Statistics.InternalExecutionTime(), elapsed.Round(time.Microsecond))))
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case *resultset.Node:
		return fmt.Sprintf("(:%s %s)", strings.Join(x.Labels, ":"), formatProps(x.Properties))
	case *resultset.Edge:
		return fmt.Sprintf("[:%s %s]", x.Relation, formatProps(x.Properties))
	case *resultset.Path:
		parts := make([]string, 0, len(x.Nodes)+len(x.Edges))
		for i, n := range x.Nodes {
			parts = append(parts, formatValue(n))
			if i < len(x.Edges) {
				parts = append(parts, formatValue(x.Edges[i]))
			}
		}
		return strings.Join(parts, "-")
	case resultset.Point:
		return fmt.Sprintf("point({latitude: %g, longitude: %g})", x.Latitude, x.Longitude)
	case []any:
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = formatValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		return formatProps(x)
	default:
		return fmt.Sprint(v)
	}
}

func formatProps(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + formatValue(props[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
