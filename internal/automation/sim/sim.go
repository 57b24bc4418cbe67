// Package sim is an in-memory automation backend driving a scripted
// application instead of a real one. The script describes a timeline —
// splash window, delayed main window, crash dialogs, view content that
// renders incrementally — so the full launch/teardown path can be exercised
// without a windowing system.
package sim

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/mj1618/ui-harness/internal/automation"
	"github.com/mj1618/ui-harness/internal/model"
)

// View is one navigable view of the scripted application.
type View struct {
	Name        string          // View name, shown as the content group's label
	NavLabel    string          // Name of the nav button that activates the view
	Elements    []model.Element // Content once rendered
	RenderDelay time.Duration   // Content appears this long after navigation
	GrowEvery   time.Duration   // If set, children are revealed one per tick (for stability waits)
}

// Script is the timeline of one scripted application run. The clock starts
// at Attach.
type Script struct {
	WindowTitle     string
	WindowDelay     time.Duration // Main window appears this long after attach
	AvailableAfter  time.Duration // Window reports available this long after appearing
	ResponsiveAfter time.Duration // Window responds this long after appearing
	NeverResponsive bool          // Window exists but its message loop never pumps

	SplashTitle string        // Optional splash window title
	SplashFor   time.Duration // Splash lifetime from attach

	CrashTitle string        // Optional crash-dialog title on the desktop
	CrashAfter time.Duration // Dialog appears this long after attach

	Views       []View
	InitialView string // Name of the view shown before any navigation
}

// Driver implements automation.Driver against scripted applications. One
// script is armed at a time; each Attach binds it to that PID.
type Driver struct {
	mu     sync.Mutex
	script Script
	apps   map[int]*app
	nextID int
}

// NewDriver creates a simulated driver armed with the given script.
func NewDriver(script Script) *Driver {
	return &Driver{script: script, apps: make(map[int]*app), nextID: 100}
}

// SetScript arms a new script for subsequent Attach calls.
func (d *Driver) SetScript(script Script) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = script
}

// Attach binds a scripted root to the given PID, starting its timeline.
func (d *Driver) Attach(pid int) (automation.Root, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := &app{
		driver:     d,
		pid:        pid,
		script:     d.script,
		attachedAt: time.Now(),
		windowID:   d.nextID,
		values:     make(map[string]string),
	}
	a.currentView = d.script.InitialView
	a.navigatedAt = a.attachedAt
	d.nextID += 10
	d.apps[pid] = a
	return a, nil
}

// TopLevelWindows lists every simulated window on the desktop, including
// crash dialogs, which do not belong to any attached root.
func (d *Driver) TopLevelWindows() ([]model.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var all []model.Window
	for _, a := range d.apps {
		wins, err := a.visibleWindows()
		if err != nil {
			return nil, err
		}
		all = append(all, wins...)
		if dlg, ok := a.crashDialog(); ok {
			all = append(all, dlg)
		}
	}
	return all, nil
}

// Attaches reports how many roots have been created, for leak assertions.
func (d *Driver) Attaches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.apps)
}

// Releases reports how many roots have been released, for leak assertions.
func (d *Driver) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, a := range d.apps {
		if a.released() {
			n++
		}
	}
	return n
}

// app is one scripted application instance; it implements automation.Root.
type app struct {
	driver     *Driver
	pid        int
	script     Script
	attachedAt time.Time
	windowID   int

	mu          sync.Mutex
	currentView string
	navigatedAt time.Time
	closed      bool
	releases    int
	clicks      []string
	invokes     []string
	values      map[string]string
}

func (a *app) elapsed() time.Duration { return time.Since(a.attachedAt) }

func (a *app) windowUp() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.closed && a.elapsed() >= a.script.WindowDelay
}

func (a *app) visibleWindows() ([]model.Window, error) {
	var wins []model.Window
	if a.script.SplashTitle != "" && a.elapsed() < a.script.SplashFor {
		wins = append(wins, model.Window{
			PID:       a.pid,
			ID:        a.windowID + 1,
			Title:     a.script.SplashTitle,
			Bounds:    [4]int{200, 200, 400, 300},
			Available: true,
		})
	}
	if a.windowUp() {
		wins = append(wins, model.Window{
			PID:       a.pid,
			ID:        a.windowID,
			Title:     a.script.WindowTitle,
			Bounds:    [4]int{0, 0, 1024, 768},
			Main:      true,
			Focused:   true,
			Available: a.availableNow(),
		})
	}
	return wins, nil
}

func (a *app) crashDialog() (model.Window, bool) {
	if a.script.CrashTitle == "" || a.elapsed() < a.script.CrashAfter {
		return model.Window{}, false
	}
	return model.Window{
		PID:       a.pid,
		ID:        a.windowID + 2,
		Title:     a.script.CrashTitle,
		Bounds:    [4]int{300, 300, 500, 200},
		Available: true,
	}, true
}

func (a *app) availableNow() bool {
	return a.elapsed() >= a.script.WindowDelay+a.script.AvailableAfter
}

func (a *app) Windows() ([]model.Window, error) {
	return a.visibleWindows()
}

func (a *app) Available(windowID int) (bool, error) {
	if windowID != a.windowID {
		splashUp := windowID == a.windowID+1 && a.script.SplashTitle != "" && a.elapsed() < a.script.SplashFor
		return splashUp, nil
	}
	return a.windowUp() && a.availableNow(), nil
}

func (a *app) Responsive(windowID int, within time.Duration) (bool, error) {
	if windowID != a.windowID || !a.windowUp() {
		return false, nil
	}
	if a.script.NeverResponsive {
		return false, nil
	}
	return a.elapsed() >= a.script.WindowDelay+a.script.ResponsiveAfter, nil
}

// Elements renders the current tree: the window, one nav button per view,
// and the active view's content, revealed according to its render schedule.
// IDs are assigned on the full tree before any filtering, so an ID obtained
// from a filtered read still resolves in Click and SetValue.
func (a *app) Elements(opts automation.ReadOptions) ([]model.Element, error) {
	if !a.windowUp() {
		return nil, nil
	}
	// Only the main window carries an element tree; splash and crash
	// dialogs are bare.
	if opts.WindowID != 0 && opts.WindowID != a.windowID {
		return nil, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	var nav []model.Element
	for _, v := range a.script.Views {
		nav = append(nav, model.Element{
			AutomationID: "Nav" + v.Name,
			Kind:         model.KindButton,
			Class:        "Button",
			Name:         v.NavLabel,
			Bounds:       [4]int{0, 40 * len(nav), 160, 36},
		})
	}

	root := model.Element{
		Kind:     model.KindWindow,
		Class:    "Window",
		Name:     a.script.WindowTitle,
		Bounds:   [4]int{0, 0, 1024, 768},
		Children: append(nav, a.renderedViewLocked()...),
	}
	tree := []model.Element{root}
	assignIDs(tree, new(int))
	if opts.Depth > 0 {
		tree = pruneDepth(tree, opts.Depth)
	}
	if len(opts.Kinds) > 0 {
		keep := make(map[model.Kind]bool, len(opts.Kinds))
		for _, k := range opts.Kinds {
			keep[k] = true
		}
		tree = filterKinds(tree, keep)
	}
	return tree, nil
}

// pruneDepth cuts the tree below the given depth; depth 1 keeps only the
// top-level elements.
func pruneDepth(elements []model.Element, depth int) []model.Element {
	out := make([]model.Element, len(elements))
	for i, el := range elements {
		out[i] = el
		if depth == 1 {
			out[i].Children = nil
		} else {
			out[i].Children = pruneDepth(el.Children, depth-1)
		}
	}
	return out
}

// filterKinds keeps elements of the requested kinds. Matching descendants of
// a pruned element are promoted into its place so they stay reachable.
func filterKinds(elements []model.Element, keep map[model.Kind]bool) []model.Element {
	var out []model.Element
	for _, el := range elements {
		children := filterKinds(el.Children, keep)
		if keep[el.Kind] {
			el.Children = children
			out = append(out, el)
		} else {
			out = append(out, children...)
		}
	}
	return out
}

// renderedViewLocked returns the active view's content, respecting its
// render delay and growth schedule. Caller holds a.mu.
func (a *app) renderedViewLocked() []model.Element {
	v, ok := a.findView(a.currentView)
	if !ok {
		return nil
	}
	sinceNav := time.Since(a.navigatedAt)
	if sinceNav < v.RenderDelay {
		return nil
	}

	children := v.Elements
	if v.GrowEvery > 0 {
		ticks := int((sinceNav - v.RenderDelay) / v.GrowEvery)
		if ticks < len(children) {
			children = children[:ticks]
		}
	}
	// Apply recorded SetValue overrides.
	content := make([]model.Element, len(children))
	for i, el := range children {
		content[i] = el
		if v, ok := a.values[el.AutomationID]; ok {
			content[i].Value = v
		}
	}
	return []model.Element{{
		AutomationID: "View" + v.Name,
		Kind:         model.KindGroup,
		Class:        "Pane",
		Name:         v.Name,
		Bounds:       [4]int{160, 0, 864, 768},
		Children:     content,
	}}
}

func (a *app) findView(name string) (View, bool) {
	for _, v := range a.script.Views {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// assignIDs numbers the tree depth-first, matching how real backends assign
// sequential IDs per read.
func assignIDs(elements []model.Element, next *int) {
	for i := range elements {
		*next++
		elements[i].ID = *next
		assignIDs(elements[i].Children, next)
	}
}

func (a *app) Click(windowID, elementID int) error {
	tree, err := a.Elements(automation.ReadOptions{WindowID: windowID})
	if err != nil {
		return err
	}
	el, ok := model.FindByID(tree, elementID)
	if !ok {
		return fmt.Errorf("sim: no element with id %d in window %d", elementID, windowID)
	}
	if !el.Clickable() {
		return fmt.Errorf("sim: element %d (%s) is not clickable", elementID, el.Name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.clicks = append(a.clicks, el.Name)
	// Nav buttons switch the active view.
	for _, v := range a.script.Views {
		if el.AutomationID == "Nav"+v.Name {
			a.currentView = v.Name
			a.navigatedAt = time.Now()
			break
		}
	}
	return nil
}

func (a *app) SetValue(windowID, elementID int, value string) error {
	tree, err := a.Elements(automation.ReadOptions{WindowID: windowID})
	if err != nil {
		return err
	}
	el, ok := model.FindByID(tree, elementID)
	if !ok {
		return fmt.Errorf("sim: no element with id %d in window %d", elementID, windowID)
	}
	if el.AutomationID == "" {
		return fmt.Errorf("sim: element %d has no automation id to set a value on", elementID)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[el.AutomationID] = value
	return nil
}

func (a *app) Invoke(windowID, elementID int, action string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.invokes = append(a.invokes, fmt.Sprintf("%d:%s", elementID, action))
	return nil
}

func (a *app) CloseWindow(windowID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if windowID != a.windowID {
		return fmt.Errorf("sim: no window with id %d", windowID)
	}
	a.closed = true
	return nil
}

// CaptureWindow renders a solid bitmap sized to the window, so the
// diagnostics capture path can be exercised end to end.
func (a *app) CaptureWindow(windowID int, opts automation.ScreenshotOptions) ([]byte, error) {
	if !a.windowUp() {
		return nil, fmt.Errorf("sim: window %d is gone", windowID)
	}
	scale := opts.Scale
	if scale <= 0 || scale > 1.0 {
		scale = 1.0
	}
	w := int(1024 * scale)
	h := int(768 * scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := color.RGBA{R: 30, G: 30, B: 46, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *app) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releases++
	return nil
}

func (a *app) released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.releases > 0
}

// Clicks returns the recorded click labels, for test assertions.
func (a *app) Clicks() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.clicks...)
}
