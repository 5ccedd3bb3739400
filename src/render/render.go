// Package render prints transcript blocks for the CLI. It is a consumer of
// the session engine, not part of it.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/kwang-arcfusion/askchat/src/transcript"
)

var (
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	aiStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Blocks writes a whole transcript.
func Blocks(w io.Writer, blocks []transcript.Block) {
	for _, b := range blocks {
		Block(w, b)
	}
}

// Block writes one transcript block.
func Block(w io.Writer, b transcript.Block) {
	switch blk := b.(type) {
	case *transcript.TextBlock:
		label := aiStyle.Render("ai")
		if blk.Sender == transcript.SenderUser {
			label = userStyle.Render("you")
		}
		fmt.Fprintf(w, "%s %s\n\n", label, blk.Content)

	case *transcript.AssetsBlock:
		for _, sql := range blk.Group.SQLs {
			fmt.Fprintln(w, titleStyle.Render(sql.Title))
			if err := quick.Highlight(w, sql.Query, "sql", "terminal256", "monokai"); err != nil {
				fmt.Fprint(w, sql.Query)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w)
		}
		for _, df := range blk.Group.Dataframes {
			fmt.Fprintln(w, titleStyle.Render(df.Title))
			writeTable(w, df)
			fmt.Fprintln(w)
		}
		for _, chart := range blk.Group.Charts {
			fmt.Fprintln(w, titleStyle.Render(chart.Title))
			fmt.Fprintln(w, mutedStyle.Render("(chart configuration omitted in terminal output)"))
			fmt.Fprintln(w)
		}
	}
}

// writeTable prints a dataframe with columns padded to their widest cell.
func writeTable(w io.Writer, df transcript.DataframeAsset) {
	widths := make([]int, len(df.Columns))
	for i, c := range df.Columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(df.Rows))
	for r, row := range df.Rows {
		cells[r] = make([]string, len(df.Columns))
		for i := range df.Columns {
			if i < len(row) && row[i] != nil {
				cells[r][i] = fmt.Sprint(row[i])
			}
			if len(cells[r][i]) > widths[i] {
				widths[i] = len(cells[r][i])
			}
		}
	}

	writeRow := func(row []string) {
		parts := make([]string, len(row))
		for i, cell := range row {
			parts[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		fmt.Fprintln(w, strings.Join(parts, "  "))
	}

	writeRow(df.Columns)
	for _, row := range cells {
		writeRow(row)
	}
}
