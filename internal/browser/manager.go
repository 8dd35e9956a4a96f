// Package browser provisions the single Chrome tab a domloop Agent owns:
// launch (or connect to a remote instance), open one stealth tab, and
// tear both down on Close. It is the provisioning layer behind
// agent.Provisioner, an external collaborator of the core control loop
// (see SPEC_FULL.md §4.1a). This package never imports the agent
// package; the agent package uses it only through agent.Provisioner and
// the *Tab that returns.
//
// There is deliberately no recycling or pooling here: SPEC_FULL.md's
// runtime state owns exactly one page and one context for the
// session's lifetime ("Exclusively owned... never shared across
// sessions"), so a background goroutine that could kill and relaunch
// Chrome out from under a running act/extract/observe call would break
// that invariant rather than serve it.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser Manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance
	// (REMOTE environment). Empty launches a local Chrome (LOCAL).
	RemoteURL string

	// Headless forces headless Chrome and a 1280x720 viewport on init,
	// per the session "headless" configuration option.
	Headless bool

	// ResourceBlocking lists resource types to block (images, fonts,
	// media, stylesheets) on every tab this manager opens.
	ResourceBlocking []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns exactly one Chrome process (or connection to a remote
// one) for the lifetime of a domloop Agent.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance) and returns
// the Rod browser handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}

	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle. Thread-safe.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// OpenTab opens a new stealth tab on the current browser and navigates
// it to pageURL. It satisfies agent.Provisioner.
func (m *Manager) OpenTab(ctx context.Context, pageURL, pageID string) (*Tab, error) {
	return OpenTab(ctx, m, pageURL, pageID)
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(m.cfg.Headless)

		// Anti-detection flag, paired with go-rod/stealth at tab creation.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	return b, nil
}

func (m *Manager) cleanup() error {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
