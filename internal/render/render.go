package render

import (
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"unicode/utf8"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Geometry of the chrome, in pixels
const (
	TitleBarHeight = 24
	TaskbarHeight  = 40
	IconCell       = 96
	IconSize       = 48
	IconMargin     = 16
	ControlSize    = 14
	StartButton    = 64
	EntryWidth     = 140
	MenuWidth      = 220
	MenuRowHeight  = 28
)

// Theme holds the colors used by the renderer
type Theme struct {
	Background    color.RGBA
	IconLabel     color.RGBA
	WindowBorder  color.RGBA
	TitleBar      color.RGBA
	TitleDragging color.RGBA
	TitleText     color.RGBA
	WindowBody    color.RGBA
	Control       color.RGBA
	ControlClose  color.RGBA
	Taskbar       color.RGBA
	TaskbarEntry  color.RGBA
	TaskbarText   color.RGBA
	NowPlaying    color.RGBA
	StartMenu     color.RGBA
}

// DefaultTheme is a teal desktop with grey chrome
var DefaultTheme = Theme{
	Background:    color.RGBA{0, 128, 128, 255},
	IconLabel:     color.RGBA{255, 255, 255, 255},
	WindowBorder:  color.RGBA{32, 32, 32, 255},
	TitleBar:      color.RGBA{0, 0, 128, 255},
	TitleDragging: color.RGBA{64, 64, 160, 255},
	TitleText:     color.RGBA{255, 255, 255, 255},
	WindowBody:    color.RGBA{240, 240, 240, 255},
	Control:       color.RGBA{192, 192, 192, 255},
	ControlClose:  color.RGBA{200, 60, 60, 255},
	Taskbar:       color.RGBA{192, 192, 192, 255},
	TaskbarEntry:  color.RGBA{224, 224, 224, 255},
	TaskbarText:   color.RGBA{0, 0, 0, 255},
	NowPlaying:    color.RGBA{40, 180, 60, 255},
	StartMenu:     color.RGBA{208, 208, 208, 255},
}

// Renderer rasterises scenes into a fixed viewport
type Renderer struct {
	Width  int
	Height int
	Theme  Theme
	face   font.Face
}

// New returns a renderer for a width x height viewport
func New(width, height int) *Renderer {
	return &Renderer{
		Width:  width,
		Height: height,
		Theme:  DefaultTheme,
		face:   basicfont.Face7x13,
	}
}

// Render draws the scene. Windows are painted bottom to top so the highest
// stacking value ends up visible.
func (r *Renderer) Render(scene desktop.Scene) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	fill(img, img.Bounds(), r.Theme.Background)

	for _, icon := range scene.Icons {
		r.drawIcon(img, icon)
	}
	for _, frame := range scene.Windows {
		if !overlaps(frame, img.Bounds()) {
			continue
		}
		r.drawFrame(img, frame)
	}
	r.drawTaskbar(img, scene.Taskbar)
	if scene.StartMenu != nil {
		r.drawStartMenu(img, *scene.StartMenu)
	}
	return img
}

// EncodePNG renders the scene and writes it as PNG
func (r *Renderer) EncodePNG(w io.Writer, scene desktop.Scene) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, r.Render(scene))
}

// IconOrigin returns the top-left pixel of a 1-based grid cell
func IconOrigin(column, row int) image.Point {
	return image.Pt(IconMargin+(column-1)*IconCell, IconMargin+(row-1)*IconCell)
}

func (r *Renderer) drawIcon(img *image.RGBA, icon desktop.Icon) {
	o := IconOrigin(icon.Column, icon.Row)
	tile := image.Rect(0, 0, IconSize, IconSize).Add(o.Add(image.Pt((IconCell-IconSize)/2-IconMargin/2, 0)))
	fill(img, tile, AppColor(icon.App))
	r.text(img, icon.Name, o.X, tile.Max.Y+4, IconCell-IconMargin, r.Theme.IconLabel)
}

// FrameRect returns the pixel bounds of a window frame
func FrameRect(f desktop.Frame) image.Rectangle {
	x := int(math.Round(f.X))
	y := int(math.Round(f.Y))
	return image.Rect(x, y, x+int(f.Width), y+int(f.Height))
}

// overlaps reports whether f intersects b. Positions are unclamped, so the
// check runs in float space before FrameRect converts to int.
func overlaps(f desktop.Frame, b image.Rectangle) bool {
	return f.X < float64(b.Max.X) && f.X+f.Width > float64(b.Min.X) &&
		f.Y < float64(b.Max.Y) && f.Y+f.Height > float64(b.Min.Y)
}

func (r *Renderer) drawFrame(img *image.RGBA, f desktop.Frame) {
	rect := FrameRect(f)
	fill(img, rect, r.Theme.WindowBorder)

	inner := rect.Inset(1)
	title := image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+TitleBarHeight)
	titleColor := r.Theme.TitleBar
	if f.Dragging {
		titleColor = r.Theme.TitleDragging
	}
	fill(img, title, titleColor)
	fill(img, image.Rect(inner.Min.X, title.Max.Y, inner.Max.X, inner.Max.Y), r.Theme.WindowBody)

	// Controls are laid out right to left, close last
	x := title.Max.X - 4
	for i := len(f.Controls) - 1; i >= 0; i-- {
		c := f.Controls[i]
		x -= ControlSize
		btn := image.Rect(x, title.Min.Y+(TitleBarHeight-ControlSize)/2, x+ControlSize, title.Min.Y+(TitleBarHeight+ControlSize)/2)
		col := r.Theme.Control
		if c.Kind == desktop.ControlClose {
			col = r.Theme.ControlClose
		}
		fill(img, btn, col)
		x -= 4
	}

	r.text(img, f.Name, title.Min.X+8, title.Min.Y+(TitleBarHeight-13)/2, x-title.Min.X-12, r.Theme.TitleText)
}

func (r *Renderer) drawTaskbar(img *image.RGBA, tb desktop.Taskbar) {
	bar := image.Rect(0, r.Height-TaskbarHeight, r.Width, r.Height)
	fill(img, bar, r.Theme.Taskbar)

	start := image.Rect(4, bar.Min.Y+4, 4+StartButton, bar.Max.Y-4)
	startColor := r.Theme.TaskbarEntry
	if tb.StartMenuOpen {
		startColor = r.Theme.StartMenu
	}
	fill(img, start, startColor)
	r.text(img, "Start", start.Min.X+6, start.Min.Y+8, StartButton-12, r.Theme.TaskbarText)

	x := start.Max.X + 8
	for _, e := range tb.Entries {
		entry := image.Rect(x, bar.Min.Y+4, x+EntryWidth, bar.Max.Y-4)
		fill(img, entry, r.Theme.TaskbarEntry)
		fill(img, image.Rect(entry.Min.X+4, entry.Min.Y+6, entry.Min.X+24, entry.Min.Y+26), AppColor(e.App))
		r.text(img, e.Name, entry.Min.X+28, entry.Min.Y+8, EntryWidth-32, r.Theme.TaskbarText)
		x += EntryWidth + 4
	}

	right := bar.Max.X - 8
	if tb.NowPlaying {
		fill(img, image.Rect(right-16, bar.Min.Y+12, right, bar.Min.Y+28), r.Theme.NowPlaying)
		right -= 24
	}
	for i := len(tb.Links) - 1; i >= 0; i-- {
		label := tb.Links[i].Name
		w := font.MeasureString(r.face, label).Ceil()
		right -= w
		r.text(img, label, right, bar.Min.Y+14, w, r.Theme.TaskbarText)
		right -= 12
	}
}

func (r *Renderer) drawStartMenu(img *image.RGBA, menu desktop.StartMenu) {
	h := len(menu.Entries)*MenuRowHeight + 8
	top := r.Height - TaskbarHeight - h
	panel := image.Rect(0, top, MenuWidth, r.Height-TaskbarHeight)
	blend(img, panel, r.Theme.StartMenu, 0.95)

	for i, e := range menu.Entries {
		y := top + 4 + i*MenuRowHeight
		fill(img, image.Rect(8, y+4, 28, y+24), AppColor(e.App))
		r.text(img, e.Name, 36, y+8, MenuWidth-44, r.Theme.TaskbarText)
	}
}

// text draws s with its top-left corner at (x, y), truncated to maxWidth
func (r *Renderer) text(img *image.RGBA, s string, x, y, maxWidth int, c color.RGBA) {
	if s == "" || maxWidth <= 0 {
		return
	}
	s = truncate(r.face, s, maxWidth)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + r.face.Metrics().Ascent.Ceil())},
	}
	d.DrawString(s)
}

// truncate drops trailing runes from s until it fits in maxWidth pixels
func truncate(face font.Face, s string, maxWidth int) string {
	for len(s) > 0 && font.MeasureString(face, s).Ceil() > maxWidth {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}

// AppColor derives a stable tile color for an application
func AppColor(id desktop.AppID) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)})
	v := h.Sum32()
	return color.RGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 255}
}

func fill(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// blend paints c over r with the given opacity
func blend(dst *image.RGBA, r image.Rectangle, c color.RGBA, opacity float64) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	a := uint8(math.Round(opacity * 255))
	src := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: a})
	draw.Draw(dst, r, src, image.Point{}, draw.Over)
}
