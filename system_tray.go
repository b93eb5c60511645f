package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"github.com/borgmon/meetalert/pkg/engine"
)

const trayUpcomingLimit = 5

func (ma *MeetAlert) setupSystemTray() {
	ma.updateSystemTrayMenu(ma.engine.Snapshot())
}

func (ma *MeetAlert) updateSystemTrayMenu(snap engine.Snapshot) {
	desk, ok := ma.app.(desktop.App)
	if !ok {
		return
	}

	menuItems := []*fyne.MenuItem{}

	// Upcoming meetings at the top
	if entries := trayEntries(snap.Agenda, trayUpcomingLimit); len(entries) > 0 {
		header := fyne.NewMenuItem("Upcoming Today:", nil)
		header.Disabled = true
		menuItems = append(menuItems, header)
		for _, text := range entries {
			item := fyne.NewMenuItem(text, nil)
			item.Disabled = true
			menuItems = append(menuItems, item)
		}
		menuItems = append(menuItems, fyne.NewMenuItemSeparator())
	}

	menuItems = append(menuItems,
		fyne.NewMenuItem("Show Dashboard", func() {
			ma.dashboard.Show()
		}),
		fyne.NewMenuItem("Check Alert Now", func() {
			ma.engine.CheckNow()
		}),
		fyne.NewMenuItem("Refresh Now", func() {
			ma.engine.Refresh("manual")
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() {
			ma.quit()
		}),
	)

	desk.SetSystemTrayMenu(fyne.NewMenu("MeetAlert", menuItems...))
	desk.SetSystemTrayIcon(theme.InfoIcon())
}
