//go:build !darwin

package main

import "golang.design/x/hotkey"

// quitHotkey returns nil: only macOS has an app-wide quit shortcut to block.
func quitHotkey() *hotkey.Hotkey {
	return nil
}
