package cli

import (
	"os/exec"
	"runtime"
)

// browserCommands 各平台按顺序尝试的命令
func browserCommands(goos, url string) [][]string {
	switch goos {
	case "windows":
		// rundll32 在 Windows 7 上比 cmd /c start 稳定
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"explorer", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	default:
		cmds := [][]string{{"xdg-open", url}}
		for _, b := range []string{"google-chrome", "firefox", "chromium-browser", "sensible-browser"} {
			cmds = append(cmds, []string{b, url})
		}
		return cmds
	}
}

// openBrowser 打开默认浏览器，失败时依次尝试备选命令
func openBrowser(url string) error {
	var err error
	for _, c := range browserCommands(runtime.GOOS, url) {
		if err = exec.Command(c[0], c[1:]...).Start(); err == nil {
			return nil
		}
	}
	return err
}
