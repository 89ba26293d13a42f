package liveview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flisboa999/guiaturismo/internal/app"
)

func TestControlRelayRoutesByControl(t *testing.T) {
	relay := NewControlRelay()
	var mine, other []app.ControlState
	stop := relay.Watch("input-a", func(s app.ControlState) { mine = append(mine, s) })
	relay.Watch("input-b", func(s app.ControlState) { other = append(other, s) })

	gate := app.NewInputGate(relay.Notify)
	release, ok := gate.Acquire("input-a")
	assert.True(t, ok)
	release()

	assert.Equal(t, []app.ControlState{{Disabled: true}, {Focused: true}}, mine)
	assert.Empty(t, other)

	stop()
	relay.Notify("input-a", app.ControlState{Disabled: true})
	assert.Len(t, mine, 2)
}
