package auth

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser opens the specified URL in the default browser.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return exec.Command(cmd, args...).Start() //nolint:gosec // G204: cmd is hardcoded per-platform; fire-and-forget
}

// OpenURL opens url in the external browser. Exported for callers that
// need the same best-effort behavior outside the grant flow.
func OpenURL(url string) error {
	return openBrowser(url)
}
