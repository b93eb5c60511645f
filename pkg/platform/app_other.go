//go:build !darwin

// Package platform holds the bits of window management fyne does not cover.
package platform

// UseAccessoryPolicy is a no-op outside macOS.
func UseAccessoryPolicy() {}

// IsFrontmost always returns true outside macOS.
func IsFrontmost() bool {
	return true
}

// BringToFront is a no-op outside macOS; fyne's RequestFocus is enough.
func BringToFront() {}
