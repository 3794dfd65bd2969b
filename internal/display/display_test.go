package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTimer struct {
	running bool
	calls   int
}

func (f *fakeTimer) Reconcile(shouldRun bool) {
	f.calls++
	f.running = shouldRun
}

func TestTimerRunsOnlyWhenVisibleAndInteractive(t *testing.T) {
	tests := []struct {
		name    string
		visible bool
		ambient bool
		want    bool
	}{
		{"visible interactive", true, false, true},
		{"visible ambient", true, true, false},
		{"hidden interactive", false, false, false},
		{"hidden ambient", false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer := &fakeTimer{}
			c := NewController(timer)
			c.SetAmbient(tt.ambient)
			c.SetVisible(tt.visible)

			assert.Equal(t, tt.want, timer.running)
			assert.Equal(t, tt.want, c.Mode().TimerRunning())
		})
	}
}

func TestEveryTransitionReconciles(t *testing.T) {
	timer := &fakeTimer{}
	c := NewController(timer)

	c.SetVisible(true)
	assert.True(t, timer.running)

	c.SetAmbient(true)
	assert.False(t, timer.running)

	c.SetAmbient(false)
	assert.True(t, timer.running)

	c.SetVisible(false)
	assert.False(t, timer.running)
	assert.Equal(t, 4, timer.calls)
}

func TestSetAmbientReportsChange(t *testing.T) {
	c := NewController(nil)
	assert.True(t, c.SetAmbient(true))
	assert.False(t, c.SetAmbient(true))
	assert.True(t, c.SetAmbient(false))
}

func TestAntiAliasFollowsLowBitAmbient(t *testing.T) {
	c := NewController(nil)
	assert.True(t, c.Mode().AntiAlias)

	c.SetAmbient(true)
	assert.True(t, c.Mode().AntiAlias, "full-color ambient keeps anti-aliasing")
	c.SetAmbient(false)

	c.SetLowBitAmbient(true)
	c.SetAmbient(true)
	assert.False(t, c.Mode().AntiAlias)
	c.SetAmbient(false)
	assert.True(t, c.Mode().AntiAlias)
}
