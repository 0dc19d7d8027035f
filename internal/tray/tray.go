package tray

import (
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"fyne.io/systray"
	"github.com/sirupsen/logrus"
)

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// Tray manages the system tray icon and menu
type Tray struct {
	shutdownFunc ShutdownFunc
	monitorURL   string
	once         sync.Once
	shuttingDown atomic.Bool
	menuOpen     *systray.MenuItem
	menuExit     *systray.MenuItem
}

// New creates a new Tray. monitorURL may be empty when the monitor is
// disabled; the "Open monitor" item is then omitted.
func New(monitorURL string, shutdownFn ShutdownFunc) *Tray {
	return &Tray{
		shutdownFunc: shutdownFn,
		monitorURL:   monitorURL,
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() {
		t.onReady(iconData)
	}, func() {
		t.onExit()
	})
}

// Quit removes the tray icon. Safe to call during shutdown from any goroutine.
func (t *Tray) Quit() {
	if t.shuttingDown.CompareAndSwap(false, true) {
		systray.Quit()
	}
}

func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	systray.SetTitle("dianach")
	systray.SetTooltip("dianach yoke bridge")

	if t.monitorURL != "" {
		t.menuOpen = systray.AddMenuItem("Open monitor", "Open the monitor in a browser")
	}
	t.menuExit = systray.AddMenuItem("Exit", "Quit dianach")

	go t.handleMenuClicks()

	logrus.Debug("system tray initialized")
}

func (t *Tray) handleMenuClicks() {
	var openCh chan struct{}
	if t.menuOpen != nil {
		openCh = t.menuOpen.ClickedCh
	}
	for {
		select {
		case <-openCh:
			if !t.shuttingDown.Load() {
				t.openBrowser()
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	logrus.Debug("system tray exiting")
}

func (t *Tray) openBrowser() {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", t.monitorURL)
	case "darwin":
		cmd = exec.Command("open", t.monitorURL)
	default:
		cmd = exec.Command("xdg-open", t.monitorURL)
	}

	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Warn("failed to open browser")
	}
}
