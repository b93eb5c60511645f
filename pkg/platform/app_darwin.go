//go:build darwin

// Package platform holds the bits of window management fyne does not cover.
package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework AppKit
#import <Cocoa/Cocoa.h>
#import <AppKit/AppKit.h>

void useAccessoryPolicy(void) {
    [NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
}

int isFrontmost(void) {
    return [NSApp isActive] ? 1 : 0;
}

void bringToFront(void) {
    [NSApp activateIgnoringOtherApps:YES];
}
*/
import "C"

// UseAccessoryPolicy hides the Dock icon; the app lives in the menu bar.
func UseAccessoryPolicy() {
	C.useAccessoryPolicy()
}

// IsFrontmost reports whether the app currently has focus.
func IsFrontmost() bool {
	return C.isFrontmost() == 1
}

// BringToFront activates the app over whatever the user is doing.
func BringToFront() {
	C.bringToFront()
}
