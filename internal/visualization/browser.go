package visualization

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// OpenBrowser launches the default browser on a dashboard URL. Only http and
// https URLs are accepted.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// browserCommand returns the launcher for goos: xdg-open, open, or cmd start.
func browserCommand(goos, url string) (string, []string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", nil, fmt.Errorf("refusing to open non-http URL %q", url)
	}
	switch goos {
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "cmd", []string{"/c", "start", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
