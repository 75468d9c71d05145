package record

// Recommended is the dose a bolus calculator suggested.
type Recommended struct {
	Carb       float64
	Correction float64
	Net        float64
}

// BGTarget is the glucose target used by the calculator.
type BGTarget struct {
	Target float64
	Low    float64
	High   float64
}

// Wizard is a bolus calculator record with its resulting bolus nested.
type Wizard struct {
	Common

	Units              string
	Recommended        *Recommended
	BGInput            *float64
	CarbInput          *float64
	InsulinOnBoard     *float64
	InsulinCarbRatio   *float64
	InsulinSensitivity *float64
	BGTarget           *BGTarget

	// Bolus is nil when the calculator produced no deliverable bolus.
	Bolus *Bolus
}

func (Wizard) Kind() Kind { return KindWizard }
func (w Wizard) Meta() Common { return w.Common }
func (Wizard) record() {}

// WithoutBolus returns a copy of w with the nested bolus removed.
func (w Wizard) WithoutBolus() Wizard {
	w.Common = w.Common.clone()
	w.Bolus = nil
	return w
}

// WizardBuilder accumulates the fields of a wizard record.
type WizardBuilder struct {
	annotator
	rec Wizard
}

// NewWizard starts a wizard record. Units and recommended are required.
func NewWizard(c Common) *WizardBuilder {
	return &WizardBuilder{rec: Wizard{Common: c.clone()}}
}

func (b *WizardBuilder) WithUnits(units string) *WizardBuilder {
	b.rec.Units = units
	return b
}

func (b *WizardBuilder) WithRecommended(r Recommended) *WizardBuilder {
	b.rec.Recommended = &r
	return b
}

func (b *WizardBuilder) WithBGInput(v float64) *WizardBuilder {
	b.rec.BGInput = Ptr(v)
	return b
}

func (b *WizardBuilder) WithCarbInput(v float64) *WizardBuilder {
	b.rec.CarbInput = Ptr(v)
	return b
}

func (b *WizardBuilder) WithInsulinOnBoard(v float64) *WizardBuilder {
	b.rec.InsulinOnBoard = Ptr(v)
	return b
}

func (b *WizardBuilder) WithInsulinCarbRatio(v float64) *WizardBuilder {
	b.rec.InsulinCarbRatio = Ptr(v)
	return b
}

func (b *WizardBuilder) WithInsulinSensitivity(v float64) *WizardBuilder {
	b.rec.InsulinSensitivity = Ptr(v)
	return b
}

func (b *WizardBuilder) WithBGTarget(t BGTarget) *WizardBuilder {
	b.rec.BGTarget = &t
	return b
}

func (b *WizardBuilder) WithBolus(bolus Bolus) *WizardBuilder {
	b.rec.Bolus = &bolus
	return b
}

func (b *WizardBuilder) WithPayload(key string, value any) *WizardBuilder {
	b.setPayload(key, value)
	return b
}

func (b *WizardBuilder) Annotate(code string) *WizardBuilder {
	b.annotate(code)
	return b
}

// Done validates the builder and returns the finalized record.
func (b *WizardBuilder) Done() (Wizard, error) {
	if err := b.rec.Common.validate(KindWizard); err != nil {
		return Wizard{}, err
	}
	if b.rec.Units == "" {
		return Wizard{}, missing(KindWizard, "units")
	}
	if b.rec.Recommended == nil {
		return Wizard{}, missing(KindWizard, "recommended")
	}

	rec := b.rec
	rec.Common = b.apply(rec.Common.clone())
	return rec, nil
}

// MustDone is like Done but panics on error.
func (b *WizardBuilder) MustDone() Wizard {
	rec, err := b.Done()
	if err != nil {
		panic(err)
	}
	return rec
}
