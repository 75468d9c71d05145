package record

import "time"

// BolusSubType distinguishes the bolus variants.
type BolusSubType string

const (
	BolusNormal     BolusSubType = "normal"
	BolusSquare     BolusSubType = "square"
	BolusDualSquare BolusSubType = "dual/square"
)

// Bolus is a discrete insulin dose.
type Bolus struct {
	Common

	SubType BolusSubType

	Normal         *float64
	ExpectedNormal *float64

	Extended         *float64
	ExpectedExtended *float64

	Duration         *time.Duration
	ExpectedDuration *time.Duration
}

func (Bolus) Kind() Kind { return KindBolus }
func (b Bolus) Meta() Common { return b.Common }
func (Bolus) record() {}

// IsZeroVolume reports whether b is a normal bolus that delivered nothing
// and carries no expected (interrupted) amount.
func (b Bolus) IsZeroVolume() bool {
	return b.SubType == BolusNormal &&
		b.Normal != nil && *b.Normal == 0 &&
		b.ExpectedNormal == nil
}

// BolusBuilder accumulates the fields of a bolus record.
type BolusBuilder struct {
	annotator
	rec Bolus
}

// NewNormalBolus starts a normal bolus. Normal is required.
func NewNormalBolus(c Common) *BolusBuilder {
	return &BolusBuilder{rec: Bolus{Common: c.clone(), SubType: BolusNormal}}
}

// NewSquareBolus starts a square bolus. Extended and duration are required.
func NewSquareBolus(c Common) *BolusBuilder {
	return &BolusBuilder{rec: Bolus{Common: c.clone(), SubType: BolusSquare}}
}

// NewDualSquareBolus starts a dual-wave bolus. Normal, extended and
// duration are required.
func NewDualSquareBolus(c Common) *BolusBuilder {
	return &BolusBuilder{rec: Bolus{Common: c.clone(), SubType: BolusDualSquare}}
}

func (b *BolusBuilder) WithNormal(v float64) *BolusBuilder {
	b.rec.Normal = Ptr(v)
	return b
}

func (b *BolusBuilder) WithExpectedNormal(v float64) *BolusBuilder {
	b.rec.ExpectedNormal = Ptr(v)
	return b
}

func (b *BolusBuilder) WithExtended(v float64) *BolusBuilder {
	b.rec.Extended = Ptr(v)
	return b
}

func (b *BolusBuilder) WithExpectedExtended(v float64) *BolusBuilder {
	b.rec.ExpectedExtended = Ptr(v)
	return b
}

func (b *BolusBuilder) WithDuration(d time.Duration) *BolusBuilder {
	b.rec.Duration = Ptr(d)
	return b
}

func (b *BolusBuilder) WithExpectedDuration(d time.Duration) *BolusBuilder {
	b.rec.ExpectedDuration = Ptr(d)
	return b
}

func (b *BolusBuilder) WithPayload(key string, value any) *BolusBuilder {
	b.setPayload(key, value)
	return b
}

func (b *BolusBuilder) Annotate(code string) *BolusBuilder {
	b.annotate(code)
	return b
}

// Done validates the builder and returns the finalized record.
func (b *BolusBuilder) Done() (Bolus, error) {
	if err := b.rec.Common.validate(KindBolus); err != nil {
		return Bolus{}, err
	}
	switch b.rec.SubType {
	case BolusNormal:
		if b.rec.Normal == nil {
			return Bolus{}, missing(KindBolus, "normal")
		}
	case BolusSquare:
		if b.rec.Extended == nil {
			return Bolus{}, missing(KindBolus, "extended")
		}
		if b.rec.Duration == nil {
			return Bolus{}, missing(KindBolus, "duration")
		}
	case BolusDualSquare:
		if b.rec.Normal == nil {
			return Bolus{}, missing(KindBolus, "normal")
		}
		if b.rec.Extended == nil {
			return Bolus{}, missing(KindBolus, "extended")
		}
		if b.rec.Duration == nil {
			return Bolus{}, missing(KindBolus, "duration")
		}
	}

	rec := b.rec
	rec.Common = b.apply(rec.Common.clone())
	return rec, nil
}

// MustDone is like Done but panics on error.
func (b *BolusBuilder) MustDone() Bolus {
	rec, err := b.Done()
	if err != nil {
		panic(err)
	}
	return rec
}
