package reminder

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier shows a notification on the local desktop.
type Notifier interface {
	Notify(title, body string) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(string, string) error { return nil }

// ExecNotifier shells out to notify-send on Linux and osascript on macOS.
// Other platforms are silently ignored.
type ExecNotifier struct{}

func (ExecNotifier) Notify(title, body string) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", title, body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(body), escapeAppleScript(title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
