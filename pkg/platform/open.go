package platform

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenCommand returns the OS command that opens target in its default
// handler.
func OpenCommand(goos, target string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	default:
		return "", nil, fmt.Errorf("no opener for %s", goos)
	}
}

// Open hands target to the OS opener without waiting for it to exit.
func Open(target string) error {
	name, args, err := OpenCommand(runtime.GOOS, target)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}
