package main

import (
	"golang.design/x/hotkey"

	"github.com/borgmon/meetalert/pkg/logging"
)

// registerShortcut binds Ctrl+Shift+M to CheckNow.
func (ma *MeetAlert) registerShortcut() {
	hk := hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeyM)
	ma.shortcut = hk

	go func() {
		if err := hk.Register(); err != nil {
			ma.log.Warn("failed to register check shortcut", logging.Err(err))
			return
		}
		ma.log.Debug("check shortcut registered", logging.F("keys", "Ctrl+Shift+M"))
		for range hk.Keydown() {
			ma.engine.CheckNow()
		}
	}()
}

func (ma *MeetAlert) unregisterShortcut() {
	if ma.shortcut == nil {
		return
	}
	if err := ma.shortcut.Unregister(); err != nil {
		ma.log.Debug("unregister check shortcut", logging.Err(err))
	}
	ma.shortcut = nil
}
