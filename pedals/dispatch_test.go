package pedals_test

import (
	"context"
	"testing"

	"rudderwalk/pedals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGUID = "2f681490ea8a11ed801a444553540000"

func TestDispatcherRoutesByDeviceAndAxis(t *testing.T) {
	d := pedals.NewDispatcher(nil)

	var rudder, left []float64
	require.NoError(t, d.Register(testGUID, 6, func(v float64) { rudder = append(rudder, v) }))
	require.NoError(t, d.Register(testGUID, 2, func(v float64) { left = append(left, v) }))

	assert.True(t, d.Dispatch(pedals.Event{Device: testGUID, Axis: 6, Value: 0.5}))
	assert.True(t, d.Dispatch(pedals.Event{Device: testGUID, Axis: 2, Value: -1}))
	assert.True(t, d.Dispatch(pedals.Event{Device: testGUID, Axis: 6, Value: -0.25}))

	assert.Equal(t, []float64{0.5, -0.25}, rudder)
	assert.Equal(t, []float64{-1}, left)
}

func TestDispatcherDropsUnboundEvents(t *testing.T) {
	d := pedals.NewDispatcher(nil)
	require.NoError(t, d.Register(testGUID, 6, func(float64) { t.Fatal("wrong handler called") }))

	assert.False(t, d.Dispatch(pedals.Event{Device: testGUID, Axis: 1, Value: 1}))
	assert.False(t, d.Dispatch(pedals.Event{Device: "other-device", Axis: 6, Value: 1}))
}

func TestDispatcherRejectsDuplicateBinding(t *testing.T) {
	d := pedals.NewDispatcher(nil)
	require.NoError(t, d.Register(testGUID, 6, func(float64) {}))
	assert.Error(t, d.Register(testGUID, 6, func(float64) {}))
}

func TestDispatcherRun(t *testing.T) {
	d := pedals.NewDispatcher(nil)
	got := make(chan float64, 4)
	require.NoError(t, d.Register(testGUID, 6, func(v float64) { got <- v }))

	events := make(chan pedals.Event, 4)
	events <- pedals.Event{Device: testGUID, Axis: 6, Value: 0.75}
	close(events)

	err := d.Run(context.Background(), events)
	require.NoError(t, err, "closed channel ends the run cleanly")
	assert.Equal(t, 0.75, <-got)
}

func TestDispatcherRunHonorsContext(t *testing.T) {
	d := pedals.NewDispatcher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx, make(chan pedals.Event))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBindingsValidate(t *testing.T) {
	b := pedals.Bindings{Device: testGUID, Profile: "Default", RudderAxis: 6, LeftBrakeAxis: 2, RightBrakeAxis: 1}
	require.NoError(t, b.Validate())

	bad := b
	bad.RudderAxis = 0
	assert.Error(t, bad.Validate())

	bad = b
	bad.RightBrakeAxis = 9
	assert.Error(t, bad.Validate())

	bad = b
	bad.LeftBrakeAxis = b.RudderAxis
	assert.Error(t, bad.Validate())
}
