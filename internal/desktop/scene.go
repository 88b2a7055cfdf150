package desktop

import "sort"

// Control kinds rendered in a window title bar. Only close has behavior.
const (
	ControlMinimize = "minimize"
	ControlMaximize = "maximize"
	ControlClose    = "close"
)

// Link is a static taskbar link passed through to the client
type Link struct {
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon" yaml:"icon"`
	URL  string `json:"url" yaml:"url"`
}

// Scene is an immutable snapshot of everything the shell draws
type Scene struct {
	Version   uint64     `json:"version"`
	Icons     []Icon     `json:"icons"`
	Windows   []Frame    `json:"windows"`
	Taskbar   Taskbar    `json:"taskbar"`
	StartMenu *StartMenu `json:"start_menu,omitempty"`
}

// Icon is a desktop shortcut placed in a 1-based grid cell
type Icon struct {
	App    AppID  `json:"app"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Column int    `json:"column"`
	Row    int    `json:"row"`
}

// Frame is one open window; Windows are ordered bottom to top
type Frame struct {
	App      AppID     `json:"app"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	Surface  string    `json:"surface"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Z        int64     `json:"z"`
	Dragging bool      `json:"dragging"`
	Controls []Control `json:"controls"`
}

// Control is a title bar button. Inactive controls are drawn but do nothing.
type Control struct {
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

// Taskbar lists open windows in the order they were first opened
type Taskbar struct {
	StartMenuOpen bool           `json:"start_menu_open"`
	Entries       []TaskbarEntry `json:"entries"`
	NowPlaying    bool           `json:"now_playing"`
	Links         []Link         `json:"links"`
}

// TaskbarEntry re-raises its window when clicked
type TaskbarEntry struct {
	App  AppID  `json:"app"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// StartMenu lists every application
type StartMenu struct {
	Entries []TaskbarEntry `json:"entries"`
}

var frameControls = []Control{
	{Kind: ControlMinimize},
	{Kind: ControlMaximize},
	{Kind: ControlClose, Active: true},
}

// IconCell maps a catalog position to a 1-based grid cell
func IconCell(position, columns int) (column, row int) {
	if columns <= 0 {
		columns = DefaultIconColumns
	}
	return position%columns + 1, position/columns + 1
}

// Top returns the frontmost window, if any
func (s Scene) Top() (Frame, bool) {
	if len(s.Windows) == 0 {
		return Frame{}, false
	}
	return s.Windows[len(s.Windows)-1], true
}

func (d *Desktop) sceneLocked() Scene {
	apps := d.catalog.All()

	scene := Scene{
		Version: d.version,
		Icons:   make([]Icon, 0, len(apps)),
		Taskbar: Taskbar{
			StartMenuOpen: d.startMenuOpen,
			NowPlaying:    d.nowPlaying,
			Links:         append([]Link{}, d.links...),
		},
	}

	for i, app := range apps {
		col, row := IconCell(i, d.layout.IconColumns)
		scene.Icons = append(scene.Icons, Icon{
			App:    app.ID,
			Name:   app.Name,
			Icon:   app.Icon,
			Column: col,
			Row:    row,
		})
	}

	open := d.registry.ListOpen()
	scene.Windows = make([]Frame, 0, len(open))
	scene.Taskbar.Entries = make([]TaskbarEntry, 0, len(open))
	for _, w := range open {
		app, _ := d.catalog.Lookup(w.App)
		scene.Taskbar.Entries = append(scene.Taskbar.Entries, TaskbarEntry{
			App:  app.ID,
			Name: app.Name,
			Icon: app.Icon,
		})
		scene.Windows = append(scene.Windows, Frame{
			App:      app.ID,
			Name:     app.Name,
			Icon:     app.Icon,
			Surface:  app.Surface,
			X:        w.Position.X,
			Y:        w.Position.Y,
			Width:    d.layout.WindowWidth,
			Height:   d.layout.WindowHeight,
			Z:        w.Z,
			Dragging: w.IsDragging(),
			Controls: append([]Control(nil), frameControls...),
		})
	}
	sort.Slice(scene.Windows, func(i, j int) bool { return scene.Windows[i].Z < scene.Windows[j].Z })

	if d.startMenuOpen {
		menu := &StartMenu{Entries: make([]TaskbarEntry, 0, len(apps))}
		for _, app := range apps {
			menu.Entries = append(menu.Entries, TaskbarEntry{App: app.ID, Name: app.Name, Icon: app.Icon})
		}
		scene.StartMenu = menu
	}

	return scene
}
