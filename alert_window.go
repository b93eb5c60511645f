package main

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"golang.design/x/hotkey"

	"github.com/borgmon/meetalert/pkg/audio"
	"github.com/borgmon/meetalert/pkg/engine"
	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
	"github.com/borgmon/meetalert/pkg/platform"
)

const focusCheckInterval = 500 * time.Millisecond

// AlertActions are the user intents the alert window forwards to the engine.
type AlertActions struct {
	Join    func()
	Dismiss func()
}

// AlertWindow is the full-screen alert for one session. The engine decides
// when it opens and closes; the window only forwards Join and Dismiss.
type AlertWindow struct {
	window    fyne.Window
	meeting   models.Meeting
	actions   AlertActions
	log       logging.Logger
	countdown *widget.Label

	audioPlayer    *audio.Player
	hotkeyMu       sync.Mutex
	quitHotkey     *hotkey.Hotkey
	stopMonitoring chan struct{}
	closedByEngine bool
	closed         bool
}

// NewAlertWindow builds and wires the window. It must run on the main thread.
func NewAlertWindow(app fyne.App, m models.Meeting, actions AlertActions, playSound bool, log logging.Logger) *AlertWindow {
	aw := &AlertWindow{
		meeting:        m,
		actions:        actions,
		log:            log.With(logging.F("meeting", m.ID)),
		stopMonitoring: make(chan struct{}),
	}

	if playSound {
		aw.audioPlayer = audio.PlayChime(aw.log)
	}

	aw.window = app.NewWindow("Meeting Alert")
	aw.window.SetFullScreen(true)
	aw.buildUI()

	aw.registerQuitPrevention()
	aw.setupFocusMonitoring()

	aw.window.SetOnClosed(func() {
		aw.closed = true
		close(aw.stopMonitoring)
		aw.audioPlayer.Stop()
		aw.unregisterQuitPrevention()

		// Closed by the window manager rather than the engine: treat as a
		// dismissal so the session still ends.
		if !aw.closedByEngine && aw.actions.Dismiss != nil {
			aw.actions.Dismiss()
		}
	})
	return aw
}

func (aw *AlertWindow) buildUI() {
	title := canvas.NewText(meetingTitle(aw.meeting), theme.Color(theme.ColorNameForeground))
	title.TextSize = 32
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Alignment = fyne.TextAlignCenter

	timeLabel := widget.NewLabel(meetingSpan(aw.meeting))
	timeLabel.Alignment = fyne.TextAlignCenter

	platformLabel := widget.NewLabel(aw.meeting.Platform.DisplayName())
	platformLabel.Alignment = fyne.TextAlignCenter

	aw.countdown = widget.NewLabel("Starts " + formatCountdown(time.Until(aw.meeting.Start)))
	aw.countdown.Alignment = fyne.TextAlignCenter
	aw.countdown.Importance = widget.HighImportance

	content := container.NewVBox(
		container.NewPadded(title),
		timeLabel,
		platformLabel,
		aw.countdown,
		widget.NewSeparator(),
	)

	buttonRow := container.NewHBox()
	if aw.meeting.HasLink() {
		joinButton := widget.NewButtonWithIcon("Join Meeting", theme.MediaPlayIcon(), func() {
			if aw.actions.Join != nil {
				aw.actions.Join()
			}
		})
		joinButton.Importance = widget.HighImportance
		buttonRow.Add(joinButton)
	}
	buttonRow.Add(widget.NewButtonWithIcon("Dismiss", theme.CancelIcon(), func() {
		if aw.actions.Dismiss != nil {
			aw.actions.Dismiss()
		}
	}))
	content.Add(container.NewCenter(buttonRow))

	aw.window.SetContent(container.NewPadded(container.NewCenter(content)))
}

// Update refreshes the countdown. Main thread only.
func (aw *AlertWindow) Update(snap engine.Snapshot) {
	if snap.Session == nil || snap.Session.Meeting.ID != aw.meeting.ID {
		return
	}
	aw.countdown.SetText("Starts " + formatCountdown(snap.Session.UntilStart(snap.Now)))
}

// Show puts the window up and focuses it. Main thread only.
func (aw *AlertWindow) Show() {
	aw.window.Show()
	aw.window.RequestFocus()
}

// Close tears the window down on behalf of the engine. Main thread only.
func (aw *AlertWindow) Close() {
	if aw.closed {
		return
	}
	aw.closedByEngine = true
	aw.window.Close()
}

// registerQuitPrevention swallows the quit shortcut while the alert is up so
// the only ways out are Join and Dismiss.
func (aw *AlertWindow) registerQuitPrevention() {
	hk := quitHotkey()
	if hk == nil {
		return
	}
	aw.hotkeyMu.Lock()
	aw.quitHotkey = hk
	aw.hotkeyMu.Unlock()

	go func() {
		if err := hk.Register(); err != nil {
			aw.log.Warn("failed to register quit prevention", logging.Err(err))
			return
		}
		for range hk.Keydown() {
			aw.log.Info("quit blocked while an alert is showing")
		}
	}()
}

func (aw *AlertWindow) unregisterQuitPrevention() {
	aw.hotkeyMu.Lock()
	hk := aw.quitHotkey
	aw.quitHotkey = nil
	aw.hotkeyMu.Unlock()
	if hk == nil {
		return
	}
	if err := hk.Unregister(); err != nil {
		aw.log.Debug("unregister quit prevention", logging.Err(err))
	}
}

func (aw *AlertWindow) setupFocusMonitoring() {
	go func() {
		ticker := time.NewTicker(focusCheckInterval)
		defer ticker.Stop()

		wasFocused := true
		for {
			select {
			case <-aw.stopMonitoring:
				return
			case <-ticker.C:
				isFocused := platform.IsFrontmost()

				// The quit shortcut is only held while the alert has focus.
				if wasFocused && !isFocused {
					aw.unregisterQuitPrevention()
				} else if !wasFocused && isFocused {
					aw.registerQuitPrevention()
				}

				if !isFocused {
					aw.log.Debug("alert window not active, bringing to front")
					fyne.Do(func() {
						if aw.closed {
							return
						}
						platform.BringToFront()
						aw.window.Show()
						aw.window.RequestFocus()
					})
				}
				wasFocused = isFocused
			}
		}
	}()
}
