//go:build darwin

package main

import "golang.design/x/hotkey"

// quitHotkey is Cmd+Q.
func quitHotkey() *hotkey.Hotkey {
	return hotkey.New([]hotkey.Modifier{hotkey.ModCmd}, hotkey.KeyQ)
}
