package simulator

import (
	"time"

	"github.com/roach88/pumpsim/internal/record"
)

// at parses an RFC 3339 instant.
func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// common returns UTC common fields at s with zero offsets.
func common(s string) record.Common {
	t := at(s)
	return record.Common{Time: t, DeviceTime: t.Format(record.DeviceTimeLayout)}
}

func withDevice(c record.Common, id string) record.Common {
	c.DeviceID = id
	return c
}

func scheduled(ts string, rate float64) *record.BasalBuilder {
	return record.NewScheduledBasal(common(ts)).WithRate(rate)
}

func temp(ts string) *record.BasalBuilder {
	return record.NewTempBasal(common(ts))
}

func suspendBasal(ts string) *record.BasalBuilder {
	return record.NewSuspendBasal(common(ts))
}

func start(percent float64, d time.Duration) TempBasalControl {
	return TempBasalControl{Kind: ControlStart, Percent: percent, Duration: d}
}

func stop(timeLeft time.Duration) TempBasalControl {
	return TempBasalControl{Kind: ControlStop, TimeLeft: timeLeft}
}

func newDay(ts string) NewDayMarker {
	t := at(ts)
	return NewDayMarker{Time: t, DeviceTime: t.Format(record.DeviceTimeLayout)}
}

// basals filters the basal records out of events.
func basals(events []record.Record) []record.Basal {
	var out []record.Basal
	for _, e := range events {
		if b, ok := e.(record.Basal); ok {
			out = append(out, b)
		}
	}
	return out
}

func ms(n int64) time.Duration {
	return time.Duration(n) * time.Millisecond
}
