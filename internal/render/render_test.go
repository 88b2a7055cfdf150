package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"
	"unicode/utf8"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func frame(app desktop.AppID, x, y float64, z int64) desktop.Frame {
	return desktop.Frame{
		App:    app,
		Name:   "W",
		X:      x,
		Y:      y,
		Width:  300,
		Height: 200,
		Z:      z,
		Controls: []desktop.Control{
			{Kind: desktop.ControlMinimize},
			{Kind: desktop.ControlMaximize},
			{Kind: desktop.ControlClose, Active: true},
		},
	}
}

func TestRenderEmptyScene(t *testing.T) {
	r := New(640, 480)
	img := r.Render(desktop.Scene{})

	assert.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())
	assert.Equal(t, r.Theme.Background, img.RGBAAt(320, 200))
	assert.Equal(t, r.Theme.Taskbar, img.RGBAAt(320, 480-TaskbarHeight/2))
}

func TestRenderWindowBody(t *testing.T) {
	r := New(800, 600)
	img := r.Render(desktop.Scene{Windows: []desktop.Frame{frame(1, 50, 60, 1000)}})

	assert.Equal(t, r.Theme.WindowBody, img.RGBAAt(50+150, 60+TitleBarHeight+50))
	assert.Equal(t, r.Theme.TitleBar, img.RGBAAt(50+150, 60+5))
	assert.Equal(t, r.Theme.WindowBorder, img.RGBAAt(50, 60+100))
}

func TestRenderStackingOrder(t *testing.T) {
	r := New(800, 600)
	lower := frame(1, 0, 0, 1000)
	upper := frame(2, 0, 100, 1001)

	img := r.Render(desktop.Scene{Windows: []desktop.Frame{lower, upper}})
	// the upper title bar covers the lower body
	assert.Equal(t, r.Theme.TitleBar, img.RGBAAt(150, 110))

	upper.Dragging = true
	img = r.Render(desktop.Scene{Windows: []desktop.Frame{lower, upper}})
	assert.Equal(t, r.Theme.TitleDragging, img.RGBAAt(150, 110))
}

func TestRenderRoundsFractionalPositions(t *testing.T) {
	rect := FrameRect(desktop.Frame{X: 10.6, Y: -3.2, Width: 500, Height: 550})
	assert.Equal(t, image.Rect(11, -3, 511, 547), rect)
}

func TestRenderIcons(t *testing.T) {
	r := New(800, 600)
	icon := desktop.Icon{App: 4, Name: "Memories", Column: 1, Row: 2}
	img := r.Render(desktop.Scene{Icons: []desktop.Icon{icon}})

	o := IconOrigin(1, 2)
	assert.Equal(t, image.Pt(IconMargin, IconMargin+IconCell), o)
	assert.Equal(t, AppColor(4), img.RGBAAt(o.X+16+IconSize/2, o.Y+IconSize/2))
}

func TestRenderNowPlayingAndStartMenu(t *testing.T) {
	r := New(800, 600)
	scene := desktop.Scene{
		Taskbar: desktop.Taskbar{NowPlaying: true, StartMenuOpen: true},
		StartMenu: &desktop.StartMenu{Entries: []desktop.TaskbarEntry{
			{App: 1, Name: "My Diary"},
			{App: 2, Name: "Family"},
		}},
	}
	img := r.Render(scene)

	assert.Equal(t, r.Theme.NowPlaying, img.RGBAAt(800-8-8, 600-TaskbarHeight+20))
	menuTop := 600 - TaskbarHeight - (2*MenuRowHeight + 8)
	assert.Equal(t, AppColor(1), img.RGBAAt(18, menuTop+4+14))
	assert.NotEqual(t, r.Theme.Background, img.RGBAAt(MenuWidth-2, menuTop+2))
}

func TestAppColorStable(t *testing.T) {
	assert.Equal(t, AppColor(3), AppColor(3))
	assert.NotEqual(t, AppColor(3), AppColor(4))
	assert.Equal(t, uint8(255), AppColor(7).A)
}

func TestEncodePNG(t *testing.T) {
	r := New(320, 240)
	var buf bytes.Buffer
	require.NoError(t, r.EncodePNG(&buf, desktop.Scene{Windows: []desktop.Frame{frame(1, 10, 10, 1000)}}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())
}

func TestTruncateKeepsWholeRunes(t *testing.T) {
	face := basicfont.Face7x13

	got := truncate(face, "héllo", 2*face.Advance)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "hé", got)

	assert.Equal(t, "日本", truncate(face, "日本語", 2*face.Advance+3))
	assert.Equal(t, "", truncate(face, "é", 1))
	assert.Equal(t, "ok", truncate(face, "ok", 100))
}

func TestRenderSkipsFramesOutsideViewport(t *testing.T) {
	r := New(800, 600)
	visible := frame(1, 50, 60, 1000)
	scene := desktop.Scene{Windows: []desktop.Frame{
		visible,
		frame(2, 9.2e18, 10, 1001),
		frame(3, -9.2e18, -9.2e18, 1002),
		frame(4, 10, 1e300, 1003),
	}}

	img := r.Render(scene)
	assert.Equal(t, r.Theme.Background, img.RGBAAt(700, 400))
	assert.Equal(t, r.Theme.WindowBody, img.RGBAAt(50+150, 60+TitleBarHeight+50))
}

func TestRenderPartiallyOffscreenFrame(t *testing.T) {
	r := New(800, 600)
	img := r.Render(desktop.Scene{Windows: []desktop.Frame{frame(1, -250, 100, 1000)}})

	assert.Equal(t, r.Theme.WindowBody, img.RGBAAt(20, 100+TitleBarHeight+50))
	assert.Equal(t, r.Theme.Background, img.RGBAAt(100, 100+TitleBarHeight+50))
}
