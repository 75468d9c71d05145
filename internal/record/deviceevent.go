package record

import "maps"

// DeviceEventSubType distinguishes the device event variants.
type DeviceEventSubType string

const (
	DeviceEventAlarm           DeviceEventSubType = "alarm"
	DeviceEventReservoirChange DeviceEventSubType = "reservoirChange"
	DeviceEventStatus          DeviceEventSubType = "status"
	DeviceEventTimeChange      DeviceEventSubType = "timeChange"
)

// Status values of a status device event.
const (
	StatusSuspended = "suspended"
	StatusResumed   = "resumed"
)

// DeviceEvent is an alarm, cartridge change, suspend/resume or clock change.
type DeviceEvent struct {
	Common

	SubType DeviceEventSubType

	// AlarmType is set on alarms.
	AlarmType string

	// Status and Reason are set on status events.
	Status string
	Reason map[string]string

	// Change is set on time changes.
	Change *TimeChange

	// Previous links a resume to the suspend it ends.
	Previous *DeviceEvent
}

// TimeChange describes a device clock adjustment.
type TimeChange struct {
	From  string
	To    string
	Agent string
}

func (DeviceEvent) Kind() Kind { return KindDeviceEvent }
func (e DeviceEvent) Meta() Common { return e.Common }
func (DeviceEvent) record() {}

// IsSuspend reports whether e is a suspended status event.
func (e DeviceEvent) IsSuspend() bool {
	return e.SubType == DeviceEventStatus && e.Status == StatusSuspended
}

// IsResume reports whether e is a resumed status event.
func (e DeviceEvent) IsResume() bool {
	return e.SubType == DeviceEventStatus && e.Status == StatusResumed
}

// Strip returns a copy of e with Previous removed.
func (e DeviceEvent) Strip() DeviceEvent {
	e.Common = e.Common.clone()
	e.Reason = maps.Clone(e.Reason)
	e.Previous = nil
	return e
}

// DeviceEventBuilder accumulates the fields of a device event.
type DeviceEventBuilder struct {
	annotator
	rec DeviceEvent
}

// NewAlarm starts an alarm event. AlarmType is required.
func NewAlarm(c Common) *DeviceEventBuilder {
	return &DeviceEventBuilder{rec: DeviceEvent{Common: c.clone(), SubType: DeviceEventAlarm}}
}

// NewReservoirChange starts a cartridge change event.
func NewReservoirChange(c Common) *DeviceEventBuilder {
	return &DeviceEventBuilder{rec: DeviceEvent{Common: c.clone(), SubType: DeviceEventReservoirChange}}
}

// NewSuspend starts a suspended status event. Reason is required.
func NewSuspend(c Common) *DeviceEventBuilder {
	return &DeviceEventBuilder{rec: DeviceEvent{Common: c.clone(), SubType: DeviceEventStatus, Status: StatusSuspended}}
}

// NewResume starts a resumed status event. Reason is required.
func NewResume(c Common) *DeviceEventBuilder {
	return &DeviceEventBuilder{rec: DeviceEvent{Common: c.clone(), SubType: DeviceEventStatus, Status: StatusResumed}}
}

// NewTimeChange starts a clock change event. Change is required.
func NewTimeChange(c Common) *DeviceEventBuilder {
	return &DeviceEventBuilder{rec: DeviceEvent{Common: c.clone(), SubType: DeviceEventTimeChange}}
}

func (b *DeviceEventBuilder) WithAlarmType(t string) *DeviceEventBuilder {
	b.rec.AlarmType = t
	return b
}

func (b *DeviceEventBuilder) WithReason(reason map[string]string) *DeviceEventBuilder {
	b.rec.Reason = maps.Clone(reason)
	return b
}

func (b *DeviceEventBuilder) WithChange(c TimeChange) *DeviceEventBuilder {
	b.rec.Change = &c
	return b
}

// WithPrevious links the event this one ends. The stored value is p.Strip().
func (b *DeviceEventBuilder) WithPrevious(p DeviceEvent) *DeviceEventBuilder {
	stripped := p.Strip()
	b.rec.Previous = &stripped
	return b
}

func (b *DeviceEventBuilder) WithPayload(key string, value any) *DeviceEventBuilder {
	b.setPayload(key, value)
	return b
}

func (b *DeviceEventBuilder) Annotate(code string) *DeviceEventBuilder {
	b.annotate(code)
	return b
}

// IsResume reports whether the builder holds a resumed status event.
func (b *DeviceEventBuilder) IsResume() bool {
	return b.rec.IsResume()
}

// Done validates the builder and returns the finalized record.
func (b *DeviceEventBuilder) Done() (DeviceEvent, error) {
	if err := b.rec.Common.validate(KindDeviceEvent); err != nil {
		return DeviceEvent{}, err
	}
	switch b.rec.SubType {
	case DeviceEventAlarm:
		if b.rec.AlarmType == "" {
			return DeviceEvent{}, missing(KindDeviceEvent, "alarmType")
		}
	case DeviceEventStatus:
		if b.rec.Reason == nil {
			return DeviceEvent{}, missing(KindDeviceEvent, "reason")
		}
	case DeviceEventTimeChange:
		if b.rec.Change == nil {
			return DeviceEvent{}, missing(KindDeviceEvent, "change")
		}
	}

	rec := b.rec
	rec.Common = b.apply(rec.Common.clone())
	rec.Reason = maps.Clone(rec.Reason)
	return rec, nil
}

// MustDone is like Done but panics on error.
func (b *DeviceEventBuilder) MustDone() DeviceEvent {
	rec, err := b.Done()
	if err != nil {
		panic(err)
	}
	return rec
}
