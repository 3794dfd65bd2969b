// Package display tracks the interactive/ambient and visible/hidden state of
// the watch face and keeps the redraw timer in step with it.
package display

// Mode is the display state seen by the renderer.
type Mode struct {
	Visible       bool
	Ambient       bool
	LowBitAmbient bool
	// AntiAlias is false only while ambient on a low-bit display.
	AntiAlias bool
}

// TimerRunning reports whether a mode calls for the periodic redraw timer.
func (m Mode) TimerRunning() bool {
	return m.Visible && !m.Ambient
}

// Reconciler starts or stops the periodic redraw timer.
type Reconciler interface {
	Reconcile(shouldRun bool)
}

// Controller owns Mode. It must only be used from the UI loop.
type Controller struct {
	mode  Mode
	timer Reconciler
}

func NewController(timer Reconciler) *Controller {
	return &Controller{mode: Mode{AntiAlias: true}, timer: timer}
}

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) SetVisible(visible bool) {
	c.mode.Visible = visible
	c.reconcile()
}

// SetAmbient updates the ambient flag and reports whether it changed.
func (c *Controller) SetAmbient(ambient bool) bool {
	changed := c.mode.Ambient != ambient
	if changed {
		c.mode.Ambient = ambient
		if c.mode.LowBitAmbient {
			c.mode.AntiAlias = !ambient
		}
	}
	c.reconcile()
	return changed
}

func (c *Controller) SetLowBitAmbient(lowBit bool) {
	c.mode.LowBitAmbient = lowBit
}

func (c *Controller) reconcile() {
	if c.timer != nil {
		c.timer.Reconcile(c.mode.TimerRunning())
	}
}
