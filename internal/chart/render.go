package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"log"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/andreaadelfio/ISIN-Monitor/internal/format"
	"github.com/andreaadelfio/ISIN-Monitor/internal/model"
)

var (
	seriesBlue  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	markerRed   = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	markerGreen = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	refGrey     = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// Request carries everything the renderer needs for one notification
// image: the instrument context, its full point series in time order,
// the live price and the pre-computed summary table.
type Request struct {
	Ticker        string
	CompanyName   string
	ISIN          string
	Points        []Point
	CurrentPrice  float64
	PreviousPrice float64
	TableRows     []model.TableRow
}

// Renderer assembles the four-quadrant notification chart: two multi-day
// panels (segmented per trading day when the planner says so), one
// intraday panel and one summary table, and encodes it as PNG.
type Renderer struct {
	planner *Planner

	// LongDays and ShortDays are the lookbacks of the two multi-day
	// quadrants.
	LongDays  int
	ShortDays int

	Width  vg.Length
	Height vg.Length
	DPI    int

	Now func() time.Time
}

// NewRenderer builds a renderer over the given planner with the
// original's 10x8 inch figure.
func NewRenderer(planner *Planner, longDays, shortDays int) *Renderer {
	return &Renderer{
		planner:   planner,
		LongDays:  longDays,
		ShortDays: shortDays,
		Width:     10 * vg.Inch,
		Height:    8 * vg.Inch,
		DPI:       150,
		Now:       time.Now,
	}
}

// Render draws the comprehensive chart and returns the PNG bytes.
func (r *Renderer) Render(req Request) ([]byte, error) {
	img := vgimg.NewWith(vgimg.UseWH(r.Width, r.Height), vgimg.UseDPI(r.DPI))

	w, h := r.Width, r.Height
	gridTop := h * 91 / 100
	rowH := gridTop / 2

	if err := r.drawTitle(img, rect(0, gridTop, w, h), req); err != nil {
		return nil, fmt.Errorf("draw title: %w", err)
	}
	r.drawTimeframe(img, rect(0, rowH, w/2, gridTop), req, r.LongDays)
	r.drawTimeframe(img, rect(w/2, rowH, w, gridTop), req, r.ShortDays)
	r.drawIntraday(img, rect(0, 0, w/2, rowH), req)
	if err := r.drawTable(img, rect(w/2, 0, w, rowH), req.TableRows); err != nil {
		return nil, fmt.Errorf("draw table: %w", err)
	}

	var buf bytes.Buffer
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func rect(x0, y0, x1, y1 vg.Length) vg.Rectangle {
	return vg.Rectangle{Min: vg.Point{X: x0, Y: y0}, Max: vg.Point{X: x1, Y: y1}}
}

func (r *Renderer) drawTitle(img *vgimg.Canvas, area vg.Rectangle, req Request) error {
	name := req.CompanyName
	if name == "" {
		name = req.Ticker
	}
	title := fmt.Sprintf("%s - €%s - %s",
		name, format.Number(req.CurrentPrice, 4), r.Now().Format("15:04:05"))

	titleColor := color.Color(color.Black)
	if req.PreviousPrice > 0 {
		switch {
		case req.CurrentPrice > req.PreviousPrice:
			titleColor = markerGreen
		case req.CurrentPrice < req.PreviousPrice:
			titleColor = markerRed
		}
	}

	p := plot.New()
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.4}},
		Labels: []string{title},
	})
	if err != nil {
		return err
	}
	labels.TextStyle[0].Font.Size = vg.Points(16)
	labels.TextStyle[0].Color = titleColor
	labels.TextStyle[0].XAlign = text.XCenter
	p.Add(labels)
	p.Draw(draw.Canvas{Canvas: img, Rectangle: area})
	return nil
}

// drawTimeframe renders one multi-day quadrant. A failed segmented
// render falls back to the single unsplit panel; degraded output beats
// no output.
func (r *Renderer) drawTimeframe(img *vgimg.Canvas, area vg.Rectangle, req Request, days int) {
	title := fmt.Sprintf("Ultimi %d giorni", days)
	plan := r.planner.Plan(req.Points, days, req.CurrentPrice)

	switch plan.Kind {
	case NoData:
		r.drawPlaceholder(img, area, title)
	case SinglePanel:
		if err := r.drawSegmentPlot(img, area, plan.Segments[0], req.CurrentPrice, title, days, 0, 0, yAxisBoth); err != nil {
			log.Printf("[WARN] render %s for %s: %v", title, req.Ticker, err)
			r.drawPlaceholder(img, area, title)
		}
	case MultiPanel:
		if err := r.drawSegmented(img, area, plan.Segments, req.CurrentPrice); err != nil {
			log.Printf("[WARN] segmented render for %s failed: %v, falling back to single panel", req.Ticker, err)
			merged := mergeSegments(plan.Segments)
			if err := r.drawSegmentPlot(img, area, merged, req.CurrentPrice, title, days, 0, 0, yAxisBoth); err != nil {
				log.Printf("[WARN] fallback render for %s: %v", req.Ticker, err)
				r.drawPlaceholder(img, area, title)
			}
		}
	}
}

func (r *Renderer) drawIntraday(img *vgimg.Canvas, area vg.Rectangle, req Request) {
	plan := r.planner.Plan(req.Points, 1, req.CurrentPrice)
	if plan.Kind == NoData {
		r.drawPlaceholder(img, area, "Oggi")
		return
	}
	if err := r.drawSegmentPlot(img, area, plan.Segments[0], req.CurrentPrice, "Oggi", 1, 0, 0, yAxisBoth); err != nil {
		log.Printf("[WARN] intraday render for %s: %v", req.Ticker, err)
		r.drawPlaceholder(img, area, "Oggi")
	}
}

// drawSegmented lays the per-day segments out proportionally to session
// duration and draws one panel each, sharing a single value axis range.
func (r *Renderer) drawSegmented(img *vgimg.Canvas, area vg.Rectangle, segments []Segment, currentPrice float64) error {
	layout := ComputeLayout(segments, currentPrice, float64(area.Min.X), float64(area.Max.X-area.Min.X))
	for i, seg := range segments {
		panel := layout.Panels[i]
		sub := rect(vg.Length(panel.Left), area.Min.Y, vg.Length(panel.Left+panel.Width), area.Max.Y)
		side := yAxisNone
		if seg.First {
			side = yAxisLeft
		}
		if err := r.drawSegmentPlot(img, sub, seg, currentPrice, seg.Date.Format("02/01"), 5, layout.YMin, layout.YMax, side); err != nil {
			return err
		}
	}
	return nil
}

type yAxisMode int

const (
	yAxisBoth yAxisMode = iota
	yAxisLeft
	yAxisNone
)

// drawSegmentPlot draws one panel: the price line with point markers, a
// dashed reference line at the live price and the last point highlighted
// on the closing segment. yMin == yMax == 0 means derive the range from
// the segment itself.
func (r *Renderer) drawSegmentPlot(img *vgimg.Canvas, area vg.Rectangle, seg Segment, currentPrice float64, title string, days int, yMin, yMax float64, side yAxisMode) error {
	if len(seg.Points) == 0 {
		return fmt.Errorf("empty segment")
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(9)

	xys := make(plotter.XYs, len(seg.Points))
	for i, pt := range seg.Points {
		xys[i] = plotter.XY{X: float64(pt.Time.Unix()), Y: pt.Price}
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.LineStyle.Color = seriesBlue
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	dots, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	dots.GlyphStyle = draw.GlyphStyle{Color: seriesBlue, Radius: vg.Points(1.5), Shape: draw.CircleGlyph{}}
	p.Add(dots)

	if seg.Last {
		lastXY := plotter.XYs{xys[len(xys)-1]}
		last, err := plotter.NewScatter(lastXY)
		if err != nil {
			return err
		}
		last.GlyphStyle = draw.GlyphStyle{Color: markerRed, Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
		p.Add(last)
	}
	if seg.First && days <= 1 {
		first, err := plotter.NewScatter(plotter.XYs{xys[0]})
		if err != nil {
			return err
		}
		first.GlyphStyle = draw.GlyphStyle{Color: markerGreen, Radius: vg.Points(3), Shape: draw.TriangleGlyph{}}
		p.Add(first)
	}

	minT, maxT := seg.TimeBounds()
	if currentPrice > 0 {
		ref, err := plotter.NewLine(plotter.XYs{
			{X: float64(minT.Unix()), Y: currentPrice},
			{X: float64(maxT.Unix()), Y: currentPrice},
		})
		if err != nil {
			return err
		}
		ref.LineStyle.Color = refGrey
		ref.LineStyle.Width = vg.Points(1)
		ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(ref)
	}

	tickFormat := "02/01"
	if days <= 1 {
		tickFormat = "15:04"
	}
	p.X.Tick.Marker = plot.TimeTicks{Format: tickFormat}
	p.X.Tick.Label.Font.Size = vg.Points(7)
	p.Y.Tick.Label.Font.Size = vg.Points(7)
	p.X.Min, p.X.Max = float64(minT.Unix()), float64(maxT.Unix())
	if p.X.Max <= p.X.Min {
		p.X.Max = p.X.Min + 60
	}
	if yMin != 0 || yMax != 0 {
		p.Y.Min, p.Y.Max = yMin, yMax
	}
	if side == yAxisNone {
		p.HideY()
	}

	p.Draw(draw.Canvas{Canvas: img, Rectangle: area})
	return nil
}

func (r *Renderer) drawPlaceholder(img *vgimg.Canvas, area vg.Rectangle, title string) {
	p := plot.New()
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
		Labels: []string{fmt.Sprintf("Dati non disponibili per %s", title)},
	})
	if err != nil {
		log.Printf("[WARN] placeholder label: %v", err)
		return
	}
	labels.TextStyle[0].Font.Size = vg.Points(11)
	labels.TextStyle[0].XAlign = text.XCenter
	p.Add(labels)
	p.Draw(draw.Canvas{Canvas: img, Rectangle: area})
}

// drawTable renders the summary rows as an axis-less text grid.
func (r *Renderer) drawTable(img *vgimg.Canvas, area vg.Rectangle, rows []model.TableRow) error {
	p := plot.New()
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	if len(rows) == 0 {
		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
			Labels: []string{"Dati tabella non forniti"},
		})
		if err != nil {
			return err
		}
		labels.TextStyle[0].XAlign = text.XCenter
		p.Add(labels)
		p.Draw(draw.Canvas{Canvas: img, Rectangle: area})
		return nil
	}

	cols := []float64{0.04, 0.30, 0.56, 0.80}
	var xys []plotter.XY
	var texts []string
	var colors []color.Color

	for i, h := range []string{"", "Price", "Var.", "Diff."} {
		xys = append(xys, plotter.XY{X: cols[i], Y: 0.94})
		texts = append(texts, h)
		colors = append(colors, color.Black)
	}
	step := 0.85 / float64(len(rows)+1)
	for i, row := range rows {
		y := 0.94 - float64(i+1)*step
		varColor := color.Color(color.Black)
		if row.Variation > 0 {
			varColor = markerGreen
		} else if row.Variation < 0 {
			varColor = markerRed
		}
		cells := []struct {
			text  string
			color color.Color
		}{
			{row.Label, color.Black},
			{"€" + format.Number(row.Price, 4), color.Black},
			{fmt.Sprintf("%+.3f%%", row.Variation), varColor},
			{fmt.Sprintf("%+.3f", row.Difference), color.Black},
		}
		for j, cell := range cells {
			xys = append(xys, plotter.XY{X: cols[j], Y: y})
			texts = append(texts, cell.text)
			colors = append(colors, cell.color)
		}
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = vg.Points(10)
		labels.TextStyle[i].Color = colors[i]
	}
	p.Add(labels)
	p.Draw(draw.Canvas{Canvas: img, Rectangle: area})
	return nil
}

// mergeSegments flattens planned segments back into one fallback segment.
func mergeSegments(segments []Segment) Segment {
	var pts []Point
	for _, seg := range segments {
		pts = append(pts, seg.Points...)
	}
	date := time.Time{}
	if len(segments) > 0 {
		date = segments[len(segments)-1].Date
	}
	return Segment{Date: date, Points: pts, First: true, Last: true}
}
