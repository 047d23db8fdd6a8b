package keypad

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"jukebox/internal/config"
	"jukebox/internal/logging"
)

// HotplugMonitor listens for udev netlink events on the GPIO chip backing the
// keypad and pauses/resumes the poller when the device goes away and returns.
type HotplugMonitor struct {
	logger *slog.Logger
	poller *Poller
	device string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewHotplugMonitor creates a monitor for the configured GPIO chip device.
func NewHotplugMonitor(cfg *config.Config, logger *slog.Logger, poller *Poller) *HotplugMonitor {
	if cfg == nil || poller == nil {
		return nil
	}
	device := strings.TrimSpace(cfg.Keypad.ChipDevice)
	if device == "" {
		return nil
	}
	return &HotplugMonitor{
		logger: logging.NewComponentLogger(logger, "keypad-hotplug"),
		poller: poller,
		device: device,
	}
}

// Start begins listening for udev events. A netlink connect failure is
// non-fatal; the poller then relies on read errors alone.
func (m *HotplugMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; hotplug detection unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon can access netlink sockets"),
			logging.String(logging.FieldImpact, "keypad device loss is detected only via read errors"))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
		logging.String("device", m.device))
	return nil
}

// Stop shuts down the monitor.
func (m *HotplugMonitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

func (m *HotplugMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"))
		}
	}
}

func (m *HotplugMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "gpio",
		},
	})
	return rules
}

func (m *HotplugMonitor) handleEvent(uevent netlink.UEvent) {
	devname := uevent.Env["DEVNAME"]
	if devname == "" {
		return
	}
	if !strings.HasPrefix(devname, "/dev/") {
		devname = "/dev/" + devname
	}
	if devname != m.device && filepath.Base(devname) != filepath.Base(m.device) {
		return
	}

	switch uevent.Action {
	case "remove":
		m.logger.Warn("keypad GPIO chip removed",
			logging.String("device", devname),
			logging.String(logging.FieldEventType, "keypad_device_removed"),
			logging.String(logging.FieldImpact, "keypad input suspended"))
		m.poller.SetPaused(true)
	case "add":
		m.logger.Info("keypad GPIO chip attached",
			logging.String("device", devname),
			logging.String(logging.FieldEventType, "keypad_device_added"))
		m.poller.SetPaused(false)
	}
}
