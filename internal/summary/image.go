// Package summary renders the complaint list as a PNG table.
//
// The image is served by the HTTP API and posted to Telegram alongside the
// handoff text.
package summary

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fogleman/gg"

	"nagarbot/internal/complaint"
)

// Sizes are in pixels at 2x scale.
const (
	margin       = 40.0
	padX         = 20.0
	padY         = 16.0
	lineGap      = 4.0
	cornerRadius = 16.0

	headRowH  = 88.0
	bodyRowH  = 76.0
	titleBand = 110.0
	footBand  = 80.0
	narrowest = 110.0

	bodyPt  = 26.0
	headPt  = 26.0
	titlePt = 40.0
	footPt  = 24.0

	// Free-text cells are cut at this many runes before wrapping.
	cellRunes = 160
)

type palette struct {
	page, title, head, headText, zebraA, zebraB, text, rule, foot color.Color
}

var light = palette{
	page:     color.RGBA{R: 245, G: 247, B: 250, A: 255},
	title:    color.RGBA{R: 30, G: 41, B: 59, A: 255},
	head:     color.RGBA{R: 37, G: 99, B: 235, A: 255},
	headText: color.White,
	zebraA:   color.White,
	zebraB:   color.RGBA{R: 241, G: 245, B: 249, A: 255},
	text:     color.RGBA{R: 30, G: 41, B: 59, A: 255},
	rule:     color.RGBA{R: 203, G: 213, B: 225, A: 255},
	foot:     color.RGBA{R: 100, G: 116, B: 139, A: 255},
}

var statusTint = map[complaint.Status]color.Color{
	complaint.StatusPending:    color.RGBA{R: 217, G: 119, B: 6, A: 255},
	complaint.StatusInProgress: color.RGBA{R: 37, G: 99, B: 235, A: 255},
	complaint.StatusResolved:   color.RGBA{R: 22, G: 163, B: 74, A: 255},
	complaint.StatusUnresolved: color.RGBA{R: 220, G: 38, B: 38, A: 255},
}

// field is one column of the complaint table.
type field struct {
	title string
	value func(c *complaint.Complaint) string
	cap   float64 // widest the column may grow; 0 is unbounded
}

var fields = []field{
	{title: "Complaint ID", value: func(c *complaint.Complaint) string { return c.ID }},
	{title: "Category", value: func(c *complaint.Complaint) string { return c.Category }},
	{title: "Location", value: func(c *complaint.Complaint) string { return truncate(c.Location, cellRunes) }, cap: 360},
	{title: "Description", value: func(c *complaint.Complaint) string { return truncate(c.Description, cellRunes) }, cap: 440},
	{title: "Images", value: func(c *complaint.Complaint) string { return strconv.Itoa(len(c.Images)) }},
	{title: "Status", value: func(c *complaint.Complaint) string { return c.Status.Label() }},
	{title: "Filed", value: func(c *complaint.Complaint) string { return c.Timestamp.Format("02 Jan 2006") }},
}

const statusField = 5

var fontPaths = map[string]map[bool][]string{
	"linux": {
		false: {"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf", "/usr/share/fonts/TTF/DejaVuSans.ttf"},
		true:  {"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf", "/usr/share/fonts/TTF/DejaVuSans-Bold.ttf"},
	},
	"windows": {
		false: {`\Fonts\arial.ttf`, `\Fonts\Arial.ttf`},
		true:  {`\Fonts\arialbd.ttf`, `\Fonts\Arial Bold.ttf`},
	},
}

// findFont returns the first installed candidate, or the first candidate
// so the load error names a real path.
func findFont(bold bool) string {
	candidates := fontPaths["linux"][bold]
	if runtime.GOOS == "windows" {
		root := os.Getenv("WINDIR")
		if root == "" {
			root = `C:\Windows`
		}
		candidates = nil
		for _, p := range fontPaths["windows"][bold] {
			candidates = append(candidates, root+p)
		}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return candidates[0]
}

// cellLines wraps a cell value to the column's inner width.
func cellLines(dc *gg.Context, text string, width float64) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if width <= 0 {
		return []string{text}
	}
	if lines := dc.WordWrap(text, width); len(lines) > 0 {
		return lines
	}
	return []string{""}
}

// layout holds the measured geometry of one table.
type layout struct {
	rows    []complaint.Complaint
	widths  []float64
	heights []float64
	lineH   float64
	bold    string
	regular string
}

func (l *layout) tableWidth() float64 {
	var w float64
	for _, cw := range l.widths {
		w += cw
	}
	return w
}

func (l *layout) bodyHeight() float64 {
	var h float64
	for _, rh := range l.heights {
		h += rh
	}
	return h
}

// measure sizes every column to its widest header or value, capped, and
// every row to its tallest wrapped cell.
func (l *layout) measure() error {
	dc := gg.NewContext(1, 1)
	l.widths = make([]float64, len(fields))

	if err := dc.LoadFontFace(l.bold, headPt); err != nil {
		return fmt.Errorf("failed to load bold font: %w", err)
	}
	for i, f := range fields {
		w, _ := dc.MeasureString(f.title)
		l.widths[i] = max(w+2*padX+4, narrowest)
	}

	if err := dc.LoadFontFace(l.regular, bodyPt); err != nil {
		return fmt.Errorf("failed to load regular font: %w", err)
	}
	for i := range l.rows {
		for j, f := range fields {
			w, _ := dc.MeasureString(f.value(&l.rows[i]))
			l.widths[j] = max(l.widths[j], w+2*padX+4)
		}
	}
	for i, f := range fields {
		if f.cap > 0 {
			l.widths[i] = min(l.widths[i], f.cap)
		}
	}

	_, textH := dc.MeasureString("Ay")
	l.lineH = textH
	l.heights = make([]float64, len(l.rows))
	for i := range l.rows {
		tallest := 1
		for j, f := range fields {
			n := len(cellLines(dc, f.value(&l.rows[i]), l.widths[j]-2*padX))
			tallest = max(tallest, n)
		}
		l.heights[i] = max(float64(tallest)*(textH+lineGap)+2*padY, bodyRowH)
	}
	return nil
}

func (l *layout) drawHead(dc *gg.Context, x, y float64) {
	dc.SetColor(light.head)
	dc.DrawRoundedRectangle(x, y, l.tableWidth(), headRowH, cornerRadius)
	dc.Fill()

	_ = dc.LoadFontFace(l.bold, headPt)
	dc.SetColor(light.headText)
	for i, f := range fields {
		dc.DrawStringAnchored(f.title, x+l.widths[i]/2, y+headRowH/2, 0.5, 0.5)
		x += l.widths[i]
	}
}

func (l *layout) drawBody(dc *gg.Context, left, y float64) {
	_ = dc.LoadFontFace(l.regular, bodyPt)
	width := l.tableWidth()
	step := l.lineH + lineGap

	for r := range l.rows {
		c := &l.rows[r]
		h := l.heights[r]

		if r%2 == 0 {
			dc.SetColor(light.zebraA)
		} else {
			dc.SetColor(light.zebraB)
		}
		dc.DrawRectangle(left, y, width, h)
		dc.Fill()

		dc.SetColor(light.rule)
		dc.SetLineWidth(0.5)
		dc.DrawLine(left, y+h, left+width, y+h)
		dc.Stroke()

		x := left
		for j, f := range fields {
			dc.SetColor(light.text)
			if tint, ok := statusTint[c.Status]; ok && j == statusField {
				dc.SetColor(tint)
			}
			lines := cellLines(dc, f.value(c), l.widths[j]-2*padX)
			top := y + (h-float64(len(lines))*step)/2 + l.lineH
			for k, line := range lines {
				dc.DrawString(line, x+padX, top+float64(k)*step)
			}
			x += l.widths[j]
		}
		y += h
	}
}

func (l *layout) drawGrid(dc *gg.Context, x, y float64) {
	height := headRowH + l.bodyHeight()

	dc.SetColor(light.rule)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, l.tableWidth(), height, cornerRadius)
	dc.Stroke()

	dc.SetLineWidth(0.5)
	for _, w := range l.widths[:len(l.widths)-1] {
		x += w
		dc.DrawLine(x, y+headRowH, x, y+height)
		dc.Stroke()
	}
}

// RenderTable renders complaints as a table image and returns PNG bytes.
//
// Rows are ordered by filing time, oldest first. The caller's slice is not
// modified.
func RenderTable(title string, list []complaint.Complaint, now time.Time) ([]byte, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("no complaints to render")
	}

	rows := append([]complaint.Complaint(nil), list...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	l := &layout{rows: rows, bold: findFont(true), regular: findFont(false)}
	if err := l.measure(); err != nil {
		return nil, err
	}

	w := l.tableWidth() + 2*margin
	h := titleBand + headRowH + l.bodyHeight() + footBand
	dc := gg.NewContext(int(w), int(h))
	dc.SetColor(light.page)
	dc.Clear()

	_ = dc.LoadFontFace(l.bold, titlePt)
	dc.SetColor(light.title)
	heading := fmt.Sprintf("%s  |  %s", title, now.Format("02 Jan 2006, 03:04 PM"))
	dc.DrawStringAnchored(heading, w/2, titleBand/2+2, 0.5, 0.5)

	l.drawHead(dc, margin, titleBand)
	l.drawBody(dc, margin, titleBand+headRowH)
	l.drawGrid(dc, margin, titleBand)

	_ = dc.LoadFontFace(l.regular, footPt)
	dc.SetColor(light.foot)
	dc.DrawStringAnchored(footerText(rows), w/2, h-30, 0.5, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// footerText summarises the rows, e.g. "Total: 5 complaints (3 pending, 2 resolved)".
func footerText(rows []complaint.Complaint) string {
	counts := make(map[complaint.Status]int)
	for _, c := range rows {
		counts[c.Status]++
	}

	var parts []string
	for _, st := range []complaint.Status{
		complaint.StatusPending, complaint.StatusInProgress,
		complaint.StatusResolved, complaint.StatusUnresolved,
	} {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}

	noun := "complaints"
	if len(rows) == 1 {
		noun = "complaint"
	}
	return fmt.Sprintf("Total: %d %s (%s)", len(rows), noun, strings.Join(parts, ", "))
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
