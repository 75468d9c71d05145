package record

import "time"

// DeliveryType distinguishes the basal variants.
type DeliveryType string

const (
	DeliveryScheduled DeliveryType = "scheduled"
	DeliveryTemp      DeliveryType = "temp"
	DeliverySuspend   DeliveryType = "suspend"
)

// Basal is a basal delivery segment with a resolved duration.
type Basal struct {
	Common

	DeliveryType DeliveryType

	// Rate is absent for suspended basals and optional for temp basals.
	Rate     *float64
	Duration time.Duration

	// ScheduleName is only set on scheduled basals.
	ScheduleName string

	// Percent and Suppressed are only set on temp basals.
	Percent    *float64
	Suppressed *Suppressed

	// Previous is a copy of the preceding emitted basal with its own
	// Previous removed.
	Previous *Basal
}

// Suppressed describes the rate that would have run absent a temp override.
type Suppressed struct {
	DeliveryType DeliveryType
	Rate         float64
	ScheduleName string
}

func (Basal) Kind() Kind { return KindBasal }
func (b Basal) Meta() Common { return b.Common }
func (Basal) record() {}

// End returns Time + Duration.
func (b Basal) End() time.Time {
	return b.Time.Add(b.Duration)
}

// Strip returns a copy of b with Previous removed. It bounds the depth of
// retained history to one level when b becomes another record's Previous.
func (b Basal) Strip() Basal {
	b.Common = b.Common.clone()
	b.Previous = nil
	return b
}

// BasalBuilder accumulates the fields of a basal record.
type BasalBuilder struct {
	annotator
	rec         Basal
	hasDuration bool
}

// NewScheduledBasal starts a scheduled basal. Rate and duration are required.
func NewScheduledBasal(c Common) *BasalBuilder {
	return &BasalBuilder{rec: Basal{Common: c.clone(), DeliveryType: DeliveryScheduled}}
}

// NewTempBasal starts a temp basal. Duration is required.
func NewTempBasal(c Common) *BasalBuilder {
	return &BasalBuilder{rec: Basal{Common: c.clone(), DeliveryType: DeliveryTemp}}
}

// NewSuspendBasal starts a suspended basal. Duration is required; a rate is
// never carried.
func NewSuspendBasal(c Common) *BasalBuilder {
	return &BasalBuilder{rec: Basal{Common: c.clone(), DeliveryType: DeliverySuspend}}
}

func (b *BasalBuilder) WithRate(rate float64) *BasalBuilder {
	b.rec.Rate = Ptr(rate)
	return b
}

func (b *BasalBuilder) WithDuration(d time.Duration) *BasalBuilder {
	b.rec.Duration = d
	b.hasDuration = true
	return b
}

func (b *BasalBuilder) WithScheduleName(name string) *BasalBuilder {
	b.rec.ScheduleName = name
	return b
}

func (b *BasalBuilder) WithPercent(percent float64) *BasalBuilder {
	b.rec.Percent = Ptr(percent)
	return b
}

func (b *BasalBuilder) WithSuppressed(s Suppressed) *BasalBuilder {
	b.rec.Suppressed = &s
	return b
}

func (b *BasalBuilder) WithDeviceID(id string) *BasalBuilder {
	b.rec.DeviceID = id
	return b
}

// WithPrevious links the preceding basal. The stored value is p.Strip().
func (b *BasalBuilder) WithPrevious(p Basal) *BasalBuilder {
	stripped := p.Strip()
	b.rec.Previous = &stripped
	return b
}

func (b *BasalBuilder) WithPayload(key string, value any) *BasalBuilder {
	b.setPayload(key, value)
	return b
}

// Annotate attaches a data-quality code. Repeated codes are ignored.
func (b *BasalBuilder) Annotate(code string) *BasalBuilder {
	b.annotate(code)
	return b
}

func (b *BasalBuilder) Time() time.Time { return b.rec.Time }
func (b *BasalBuilder) Meta() Common { return b.rec.Common }
func (b *BasalBuilder) DeliveryType() DeliveryType { return b.rec.DeliveryType }
func (b *BasalBuilder) ScheduleName() string { return b.rec.ScheduleName }

// Duration returns the duration and whether it has been set.
func (b *BasalBuilder) Duration() (time.Duration, bool) {
	return b.rec.Duration, b.hasDuration
}

// Rate returns the rate and whether it has been set.
func (b *BasalBuilder) Rate() (float64, bool) {
	if b.rec.Rate == nil {
		return 0, false
	}
	return *b.rec.Rate, true
}

// Percent returns the temp percent and whether it has been set.
func (b *BasalBuilder) Percent() (float64, bool) {
	if b.rec.Percent == nil {
		return 0, false
	}
	return *b.rec.Percent, true
}

// Suppressed returns a copy of the suppressed rate, or nil.
func (b *BasalBuilder) Suppressed() *Suppressed {
	if b.rec.Suppressed == nil {
		return nil
	}
	s := *b.rec.Suppressed
	return &s
}

// Payload returns the value stored under key by WithPayload.
func (b *BasalBuilder) Payload(key string) (any, bool) {
	v, ok := b.payload[key]
	return v, ok
}

// Check validates every required field except duration, which is usually
// resolved later by the reconciliation engine.
func (b *BasalBuilder) Check() error {
	if err := b.rec.Common.validate(KindBasal); err != nil {
		return err
	}
	if b.rec.DeliveryType == DeliveryScheduled && b.rec.Rate == nil {
		return missing(KindBasal, "rate")
	}
	if b.hasDuration && b.rec.Duration < 0 {
		return &InvalidFieldError{Kind: KindBasal, Field: "duration", Reason: "negative"}
	}
	return nil
}

// Done validates the builder and returns the finalized record.
func (b *BasalBuilder) Done() (Basal, error) {
	if err := b.Check(); err != nil {
		return Basal{}, err
	}
	if !b.hasDuration {
		return Basal{}, missing(KindBasal, "duration")
	}

	rec := b.rec
	rec.Common = b.apply(rec.Common.clone())
	if rec.DeliveryType == DeliverySuspend {
		rec.Rate = nil
	}
	return rec, nil
}

// MustDone is like Done but panics on error. Intended for fixtures.
func (b *BasalBuilder) MustDone() Basal {
	rec, err := b.Done()
	if err != nil {
		panic(err)
	}
	return rec
}
