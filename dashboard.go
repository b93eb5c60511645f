package main

import (
	"slices"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/meetalert/pkg/engine"
)

// Dashboard is the main window: today's remaining meetings and the refresh
// status.
type Dashboard struct {
	window fyne.Window
	engine *engine.Engine
	view   dashboardView

	banner       *widget.Label
	bannerBox    *fyne.Container
	status       *widget.Label
	progress     *widget.ProgressBarInfinite
	upNext       *canvas.Text
	upNextDetail *widget.Label
	countdown    *widget.Label
	nextBox      *fyne.Container
	empty        *widget.Label
	later        *widget.List
}

// NewDashboard builds the window. It must run on the main thread.
func NewDashboard(app fyne.App, eng *engine.Engine) *Dashboard {
	d := &Dashboard{
		window: app.NewWindow("MeetAlert"),
		engine: eng,
	}
	d.buildUI()
	d.window.Resize(fyne.NewSize(420, 520))
	// Closing the dashboard only hides it; the app keeps running in the tray.
	d.window.SetCloseIntercept(func() {
		d.window.Hide()
	})
	d.Update(eng.Snapshot())
	return d
}

func (d *Dashboard) buildUI() {
	d.banner = widget.NewLabel("")
	d.banner.Wrapping = fyne.TextWrapWord
	d.banner.Importance = widget.DangerImportance
	d.bannerBox = container.NewBorder(nil, nil, widget.NewIcon(theme.WarningIcon()), nil, d.banner)

	d.status = widget.NewLabel("")
	d.progress = widget.NewProgressBarInfinite()

	d.upNext = canvas.NewText("", theme.Color(theme.ColorNameForeground))
	d.upNext.TextSize = 24
	d.upNext.TextStyle = fyne.TextStyle{Bold: true}
	d.upNextDetail = widget.NewLabel("")
	d.countdown = widget.NewLabel("")
	d.countdown.Importance = widget.HighImportance
	d.nextBox = container.NewVBox(
		widget.NewLabelWithStyle("Up next", fyne.TextAlignLeading, fyne.TextStyle{Italic: true}),
		d.upNext,
		d.upNextDetail,
		d.countdown,
	)

	d.empty = widget.NewLabel("No meetings for the rest of today.")
	d.empty.Alignment = fyne.TextAlignCenter

	d.later = widget.NewList(
		func() int { return len(d.view.Later) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(d.view.Later) {
				obj.(*widget.Label).SetText(d.view.Later[id])
			}
		},
	)

	buttons := container.NewHBox(
		widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), func() {
			d.engine.Refresh("manual")
		}),
		widget.NewButtonWithIcon("Check alert now", theme.MediaPlayIcon(), func() {
			d.engine.CheckNow()
		}),
	)

	top := container.NewVBox(d.bannerBox, d.nextBox, d.empty, widget.NewSeparator(),
		widget.NewLabelWithStyle("Later", fyne.TextAlignLeading, fyne.TextStyle{Italic: true}))
	bottom := container.NewVBox(widget.NewSeparator(), container.NewBorder(nil, nil, nil, buttons, d.status), d.progress)

	d.window.SetContent(container.NewPadded(container.NewBorder(top, bottom, nil, nil, d.later)))
}

// Update redraws from snap. Main thread only.
func (d *Dashboard) Update(snap engine.Snapshot) {
	v := buildDashboardView(snap)
	laterChanged := !slices.Equal(d.view.Later, v.Later)
	d.view = v

	d.banner.SetText(v.Banner)
	showIf(d.bannerBox, v.Banner != "")
	d.status.SetText(v.Status)
	showIf(d.progress, v.Loading)

	showIf(d.nextBox, !v.Empty)
	showIf(d.empty, v.Empty)
	if d.upNext.Text != v.UpNext {
		d.upNext.Text = v.UpNext
		d.upNext.Refresh()
	}
	d.upNextDetail.SetText(v.UpNextDetail)
	d.countdown.SetText(v.Countdown)

	if laterChanged {
		d.later.Refresh()
	}
}

// Show brings the dashboard up.
func (d *Dashboard) Show() {
	d.window.Show()
	d.window.RequestFocus()
}

func showIf(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}

