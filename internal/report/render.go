package report

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bndr/gotabulate"
	"github.com/jabl/fancyquota/internal/format"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	MinConsoleWidth = 80
	MaxConsoleWidth = 132
	// fixedColumnsWidth is what the columns other than Directory take.
	fixedColumnsWidth = 60
	// minDirectoryWidth is the narrowest Directory column wrapping still shrinks.
	minDirectoryWidth = 10

	tableFormat = "fancyquota"
)

var headers = []string{"User/Group", "Directory", "Usage", "Used%", "Quota", "Limit", "Grace"}

func init() {
	// "simple" without the cell padding, the column separator is spacing enough
	f := gotabulate.TableFormats["simple"]
	f.Padding = 0
	gotabulate.TableFormats[tableFormat] = f
}

// Render writes rows as an aligned table no wider than width columns where
// possible. Only the Directory column wraps, onto continuation lines.
// Nothing is written when there are no rows.
func Render(w io.Writer, rows []Row, width int) error {
	if len(rows) == 0 {
		return nil
	}
	dirWidth := DirectoryWidth(width)
	for {
		out := renderTable(rows, dirWidth)
		over := tableWidth(out) - width
		if over <= 0 || dirWidth <= minDirectoryWidth {
			_, err := io.WriteString(w, out)
			return err
		}
		dirWidth = max(dirWidth-over, minDirectoryWidth)
	}
}

func renderTable(rows []Row, dirWidth int) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		dirs := wrapCell(r.Mountpoint, dirWidth)
		data = append(data, []string{r.Label, dirs[0], r.Usage, format.Percent(r.PctUsed), r.Quota, r.Limit, r.Grace})
		for _, d := range dirs[1:] {
			data = append(data, []string{"", d, "", "", "", "", ""})
		}
	}
	tab := gotabulate.Create(data)
	tab.SetHeaders(headers)
	tab.SetAlign("left")

	var b strings.Builder
	for _, line := range strings.Split(tab.Render(tableFormat), "\n") {
		line = strings.TrimRight(line, " ")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// wrapCell splits s into pieces at most width display columns wide.
func wrapCell(s string, width int) []string {
	if runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	var parts []string
	var cur strings.Builder
	cw := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if cw+rw > width && cw > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			cw = 0
		}
		cur.WriteRune(r)
		cw += rw
	}
	return append(parts, cur.String())
}

func tableWidth(out string) int {
	widest := 0
	for _, line := range strings.Split(out, "\n") {
		widest = max(widest, runewidth.StringWidth(line))
	}
	return widest
}

// DirectoryWidth is the room left for the Directory column.
func DirectoryWidth(width int) int {
	return clampWidth(width) - fixedColumnsWidth
}

// ConsoleWidth returns the width of the terminal on stdout, or $COLUMNS, or
// 80, clamped to [80, 132].
func ConsoleWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return clampWidth(w)
	}
	if w, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil {
		return clampWidth(w)
	}
	return MinConsoleWidth
}

func clampWidth(w int) int {
	return min(max(w, MinConsoleWidth), MaxConsoleWidth)
}
