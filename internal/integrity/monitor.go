package integrity

import (
	"errors"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

var ErrAlreadyMounted = errors.New("integrity monitor already mounted")

// Violation is a single detected integrity breach
type Violation struct {
	Type    models.ViolationType `json:"type"`
	Details string               `json:"details,omitempty"`
	At      time.Time            `json:"at"`
}

type ViolationFunc func(Violation)

type Options struct {
	WatchVisibility   bool
	WatchBlur         bool
	WatchFullscreen   bool
	BlockContextMenu  bool
	BlockClipboard    bool
	RequireFullscreen bool

	// OnLockChange is told whenever the fullscreen lock engages or releases
	OnLockChange func(locked bool)
	Now          func() time.Time
}

// OptionsForExam derives the watcher set from the exam's proctoring flags
func OptionsForExam(exam *models.Exam) Options {
	return Options{
		WatchVisibility:   exam.PreventTabSwitching,
		WatchBlur:         exam.PreventTabSwitching,
		WatchFullscreen:   exam.RequireFullScreen,
		BlockContextMenu:  exam.PreventRightClick,
		BlockClipboard:    exam.PreventCopyPaste,
		RequireFullscreen: exam.RequireFullScreen,
	}
}

// Monitor watches one exam session's browser events and reports violations
// through a callback. It performs no I/O itself.
type Monitor struct {
	mu          sync.Mutex
	opts        Options
	onViolation ViolationFunc

	removers   []func()
	mounted    bool
	fullscreen bool
	locked     bool

	lastCopied string
	hasCopied  bool
}

func NewMonitor(onViolation ViolationFunc, opts Options) *Monitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if onViolation == nil {
		onViolation = func(Violation) {}
	}
	return &Monitor{
		opts:        opts,
		onViolation: onViolation,
		locked:      opts.RequireFullscreen,
	}
}

// Mount registers one listener per enabled watcher on target
func (m *Monitor) Mount(target EventTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mounted {
		return ErrAlreadyMounted
	}

	add := func(kind EventKind, h Handler) {
		m.removers = append(m.removers, target.AddEventListener(kind, h))
	}

	if m.opts.WatchVisibility {
		add(EventVisibilityChange, m.handleVisibility)
	}
	if m.opts.WatchBlur {
		add(EventBlur, m.handleBlur)
	}
	if m.opts.WatchFullscreen || m.opts.RequireFullscreen {
		add(EventFullscreenChange, m.handleFullscreen)
	}
	if m.opts.BlockContextMenu {
		add(EventContextMenu, m.handleContextMenu)
	}
	if m.opts.BlockClipboard {
		add(EventCopy, m.handleCopy)
		add(EventCut, m.handleCopy)
		add(EventPaste, m.handlePaste)
	}

	m.mounted = true
	return nil
}

// Unmount removes every listener registered by Mount
func (m *Monitor) Unmount() {
	m.mu.Lock()
	removers := m.removers
	m.removers = nil
	m.mounted = false
	m.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
}

func (m *Monitor) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Locked reports whether exam content must stay blocked until fullscreen is re-entered
func (m *Monitor) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

func (m *Monitor) handleVisibility(ev Event) Decision {
	if ev.Hidden && m.active() {
		m.report(models.ViolationTabSwitch, "document hidden", ev)
	}
	return Decision{}
}

func (m *Monitor) handleBlur(ev Event) Decision {
	if m.active() {
		m.report(models.ViolationWindowBlur, "window lost focus", ev)
	}
	return Decision{}
}

func (m *Monitor) handleFullscreen(ev Event) Decision {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return Decision{}
	}
	m.fullscreen = ev.FullscreenActive
	wasLocked := m.locked
	m.locked = m.opts.RequireFullscreen && !m.fullscreen
	changed := wasLocked != m.locked
	locked := m.locked
	m.mu.Unlock()

	if changed && m.opts.OnLockChange != nil {
		m.opts.OnLockChange(locked)
	}
	if !ev.FullscreenActive && m.opts.WatchFullscreen {
		m.report(models.ViolationExitedFullscreen, "fullscreen element absent", ev)
	}
	return Decision{}
}

func (m *Monitor) handleContextMenu(ev Event) Decision {
	if !m.active() {
		return Decision{}
	}
	m.report(models.ViolationRightClick, "context menu opened", ev)
	return Decision{PreventDefault: true}
}

func (m *Monitor) handleCopy(ev Event) Decision {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return Decision{}
	}
	m.lastCopied = ev.Text
	m.hasCopied = true
	m.mu.Unlock()

	m.report(models.ViolationCopyPaste, string(ev.Kind), ev)
	return Decision{PreventDefault: true}
}

// handlePaste lets through text identical to the session's last copy or cut
func (m *Monitor) handlePaste(ev Event) Decision {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return Decision{}
	}
	selfPaste := m.hasCopied && ev.Text == m.lastCopied
	m.mu.Unlock()

	if selfPaste {
		return Decision{}
	}
	m.report(models.ViolationCopyPaste, "paste", ev)
	return Decision{PreventDefault: true}
}

func (m *Monitor) active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// report runs the callback without holding the monitor lock
func (m *Monitor) report(t models.ViolationType, details string, ev Event) {
	at := ev.At
	if at.IsZero() {
		at = m.opts.Now()
	}
	m.onViolation(Violation{Type: t, Details: details, At: at})
}
