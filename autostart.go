package main

import (
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"

	"github.com/borgmon/meetalert/pkg/logging"
)

func launchAtLogin(execPath string) *autostart.App {
	return &autostart.App{
		Name:        "meetalert",
		DisplayName: "MeetAlert",
		Exec:        []string{execPath},
	}
}

// setupAutostart makes the login item match enable.
func setupAutostart(enable bool, log logging.Logger) error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}
	// Resolve symlinks if any
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return err
	}

	app := launchAtLogin(execPath)
	switch {
	case enable && !app.IsEnabled():
		if err := app.Enable(); err != nil {
			return err
		}
		log.Info("autostart enabled")
	case !enable && app.IsEnabled():
		if err := app.Disable(); err != nil {
			return err
		}
		log.Info("autostart disabled")
	}
	return nil
}
