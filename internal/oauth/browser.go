package oauth

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/skratchdot/open-golang/open"
)

// BrowserOpener opens a URL in the user's browser.
type BrowserOpener interface {
	Open(url string) error
}

// BrowserOpenerFunc adapts a function to BrowserOpener.
type BrowserOpenerFunc func(url string) error

// Open calls f(url).
func (f BrowserOpenerFunc) Open(url string) error {
	return f(url)
}

// SystemBrowser opens URLs in the default web browser.
type SystemBrowser struct{}

// Open tries the platform's registered handler first, then falls back to
// the per-OS launcher command. The command is started, not waited for.
func (SystemBrowser) Open(url string) error {
	if err := open.Start(url); err == nil {
		return nil
	}
	return openWithCommand(url)
}

func openWithCommand(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// NoBrowser never opens anything; the URL is only printed.
type NoBrowser struct{}

// Open always reports failure so the caller falls back to the printed URL.
func (NoBrowser) Open(string) error {
	return fmt.Errorf("browser launch disabled")
}
