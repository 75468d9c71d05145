package simulator

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pumpsim/internal/record"
)

func TestPassThrough_Identity(t *testing.T) {
	smbg := record.NewSMBG(common("2014-09-25T01:00:00Z")).WithUnits("mg/dL").WithValue(101).MustDone()
	alarm := record.NewAlarm(common("2014-09-25T01:05:00Z")).WithAlarmType("occlusion").MustDone()
	cartridge := record.NewReservoirChange(common("2014-09-25T01:10:00Z")).MustDone()
	clock := record.NewTimeChange(common("2014-09-25T01:15:00Z")).
		WithChange(record.TimeChange{From: "2014-09-25T01:15:00", To: "2014-09-25T02:15:00", Agent: "manual"}).
		MustDone()
	settings := record.NewPumpSettings(common("2014-09-25T01:20:00Z")).
		WithActiveSchedule("billy").
		WithUnits(record.Units{BG: "mg/dL"}).
		WithBasalSchedule("billy", []record.BasalSegment{{Start: 0, Rate: 1.0}, {Start: 6 * time.Hour, Rate: 1.1}}).
		WithBasalSchedule("bob", []record.BasalSegment{{Start: 0, Rate: 0}}).
		MustDone()

	sim := New()
	require.NoError(t, sim.SMBG(smbg))
	require.NoError(t, sim.Alarm(alarm))
	require.NoError(t, sim.CartridgeChange(cartridge))
	require.NoError(t, sim.TimeChange(clock))
	require.NoError(t, sim.PumpSettings(settings))

	assert.Equal(t, []record.Record{smbg, alarm, cartridge, clock, settings}, sim.Events())
}

func TestPassThrough_WrongSubTypeIsInvalidSequence(t *testing.T) {
	alarm := record.NewAlarm(common("2014-09-25T01:05:00Z")).WithAlarmType("occlusion").MustDone()
	cartridge := record.NewReservoirChange(common("2014-09-25T01:10:00Z")).MustDone()

	sim := New()
	assert.True(t, IsInvalidSequence(sim.CartridgeChange(alarm)))
	assert.True(t, IsInvalidSequence(sim.Alarm(cartridge)))
	assert.True(t, IsInvalidSequence(sim.TimeChange(cartridge)))
	assert.Empty(t, sim.Events())
}

func TestPassThrough_MissingField(t *testing.T) {
	sim := New()

	// Assembled without a builder, so units is absent.
	err := sim.SMBG(record.SMBG{Common: common("2014-09-25T01:00:00Z"), Value: 100})
	require.Error(t, err)
	assert.True(t, IsMissingField(err))
	assert.True(t, record.IsMissingField(err))

	var mf *record.MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "units", mf.Field)
	assert.Empty(t, sim.Events())
}

func TestBolus(t *testing.T) {
	c := common("2014-09-25T01:00:00Z")

	t.Run("normal bolus passes through", func(t *testing.T) {
		b := record.NewNormalBolus(c).WithNormal(1.3).MustDone()
		sim := New()
		require.NoError(t, sim.Bolus(b))
		assert.Equal(t, []record.Record{b}, sim.Events())
	})

	t.Run("zero-volume bolus is dropped", func(t *testing.T) {
		sim := New()
		require.NoError(t, sim.Bolus(record.NewNormalBolus(c).WithNormal(0).MustDone()))
		assert.Empty(t, sim.Events())
	})

	t.Run("interrupted zero-volume bolus is kept", func(t *testing.T) {
		b := record.NewNormalBolus(c).WithNormal(0).WithExpectedNormal(2).MustDone()
		sim := New()
		require.NoError(t, sim.Bolus(b))
		assert.Equal(t, []record.Record{b}, sim.Events())
	})

	t.Run("square bolus is never zero-volume", func(t *testing.T) {
		b := record.NewSquareBolus(c).WithExtended(0).WithDuration(time.Hour).MustDone()
		sim := New()
		require.NoError(t, sim.Bolus(b))
		assert.Len(t, sim.Events(), 1)
	})
}

func TestWizard(t *testing.T) {
	c := common("2014-09-25T01:00:00Z")
	wizard := func(bolus record.Bolus) record.Wizard {
		return record.NewWizard(c).
			WithUnits("mg/dL").
			WithRecommended(record.Recommended{Carb: 1, Correction: 0.5, Net: 1.5}).
			WithBolus(bolus).
			MustDone()
	}

	t.Run("keeps nested bolus", func(t *testing.T) {
		w := wizard(record.NewNormalBolus(c).WithNormal(1.5).MustDone())
		sim := New()
		require.NoError(t, sim.Wizard(w))
		assert.Equal(t, []record.Record{w}, sim.Events())
	})

	t.Run("drops zero-volume nested bolus but keeps wizard", func(t *testing.T) {
		w := wizard(record.NewNormalBolus(c).WithNormal(0).MustDone())
		sim := New()
		require.NoError(t, sim.Wizard(w))

		events := sim.Events()
		require.Len(t, events, 1)
		got, ok := events[0].(record.Wizard)
		require.True(t, ok)
		assert.Nil(t, got.Bolus)
		assert.Equal(t, w.Recommended, got.Recommended)
		assert.NotNil(t, w.Bolus, "input must not be mutated")
	})
}

func TestSuspendResume(t *testing.T) {
	reason := map[string]string{"suspended": "manual"}
	suspend := func(ts string) record.DeviceEvent {
		return record.NewSuspend(common(ts)).WithReason(reason).MustDone()
	}
	resume := func(ts string) *record.DeviceEventBuilder {
		return record.NewResume(common(ts)).WithReason(map[string]string{"resumed": "manual"})
	}

	t.Run("resume links the first suspend of a run", func(t *testing.T) {
		first := suspend("2014-09-25T18:00:00Z")
		second := suspend("2014-09-25T18:10:00Z")

		sim := New()
		require.NoError(t, sim.Suspend(first))
		require.NoError(t, sim.Suspend(second))
		require.NoError(t, sim.Resume(resume("2014-09-25T18:30:00Z")))

		events := sim.Events()
		require.Len(t, events, 3)
		assert.Equal(t, first, events[0])
		assert.Equal(t, second, events[1])

		got := events[2].(record.DeviceEvent)
		require.NotNil(t, got.Previous)
		assert.Equal(t, first.Strip(), *got.Previous)
	})

	t.Run("context clears after resume", func(t *testing.T) {
		sim := New()
		require.NoError(t, sim.Suspend(suspend("2014-09-25T18:00:00Z")))
		require.NoError(t, sim.Resume(resume("2014-09-25T18:30:00Z")))
		require.NoError(t, sim.Resume(resume("2014-09-25T19:00:00Z")))

		events := sim.Events()
		require.Len(t, events, 3)
		assert.NotNil(t, events[1].(record.DeviceEvent).Previous)
		assert.Nil(t, events[2].(record.DeviceEvent).Previous)
	})

	t.Run("resume without suspend has no previous", func(t *testing.T) {
		sim := New()
		require.NoError(t, sim.Resume(resume("2014-09-25T18:30:00Z")))
		assert.Nil(t, sim.Events()[0].(record.DeviceEvent).Previous)
	})

	t.Run("resume without reason is a missing field", func(t *testing.T) {
		sim := New()
		err := sim.Resume(record.NewResume(common("2014-09-25T18:30:00Z")))
		assert.True(t, IsMissingField(err))
	})

	t.Run("wrong status is invalid", func(t *testing.T) {
		sim := New()
		assert.True(t, IsInvalidSequence(sim.Suspend(record.NewResume(common("2014-09-25T18:00:00Z")).WithReason(reason).MustDone())))
		assert.True(t, IsInvalidSequence(sim.Resume(record.NewSuspend(common("2014-09-25T18:00:00Z")).WithReason(reason))))
	})
}

func TestEvents_OrderedByTime(t *testing.T) {
	sim := New()
	require.NoError(t, sim.Basal(scheduled("2014-09-25T15:00:00Z", 1.3)))
	suspendEvent := record.NewSuspend(common("2014-09-25T18:05:00Z")).
		WithReason(map[string]string{"suspended": "manual"}).
		MustDone()
	require.NoError(t, sim.Suspend(suspendEvent))
	require.NoError(t, sim.Basal(suspendBasal("2014-09-25T18:05:00Z")))

	events := sim.Events()
	require.Len(t, events, 2)
	assert.Equal(t, record.KindBasal, events[0].Kind())
	assert.Equal(t, suspendEvent, events[1])

	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Meta().Time.Before(events[i-1].Meta().Time))
	}
}

func TestEvents_ReturnsCopy(t *testing.T) {
	sim := New()
	require.NoError(t, sim.SMBG(record.NewSMBG(common("2014-09-25T01:00:00Z")).WithUnits("mg/dL").WithValue(90).MustDone()))

	events := sim.Events()
	events[0] = nil
	assert.NotNil(t, sim.Events()[0])
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sim := New(WithLogger(logger))
	require.NoError(t, sim.Basal(suspendBasal("2014-09-25T18:00:00Z")))
	require.NoError(t, sim.Basal(suspendBasal("2014-09-25T18:00:00Z")))
	require.NoError(t, sim.FinalBasal())

	out := buf.String()
	assert.Contains(t, out, "coalescing duplicate suspended basal")
	assert.Contains(t, out, "basal duration unknown at end of stream")
}

func TestFlushed_RejectsFurtherInput(t *testing.T) {
	sim := New()
	require.NoError(t, sim.FinalBasal())
	assert.True(t, sim.Flushed())

	assert.True(t, IsInvalidSequence(sim.FinalBasal()))
	assert.True(t, IsInvalidSequence(sim.Basal(scheduled("2014-09-25T15:00:00Z", 1))))
	assert.True(t, IsInvalidSequence(sim.TempBasal(start(0.5, time.Hour))))
	assert.True(t, IsInvalidSequence(sim.Bolus(record.NewNormalBolus(common("2014-09-25T15:00:00Z")).WithNormal(1).MustDone())))
	assert.True(t, IsInvalidSequence(sim.NewDay(newDay("2014-09-26T00:00:00Z"))))
}

func TestSequenceError_Message(t *testing.T) {
	err := invalidSequence("tempBasal", "stop without an open temp basal")
	assert.Equal(t, "INVALID_SEQUENCE: tempBasal: stop without an open temp basal", err.Error())

	err = missingField("basal", &record.MissingFieldError{Kind: record.KindBasal, Field: "rate"})
	assert.Equal(t, `MISSING_FIELD: basal: basal: missing required field "rate"`, err.Error())
}
