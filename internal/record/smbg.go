package record

// SMBG is a self-monitored (fingerstick) blood glucose reading.
type SMBG struct {
	Common

	Units string
	Value float64
}

func (SMBG) Kind() Kind { return KindSMBG }
func (s SMBG) Meta() Common { return s.Common }
func (SMBG) record() {}

// SMBGBuilder accumulates the fields of an SMBG record.
type SMBGBuilder struct {
	annotator
	rec      SMBG
	hasValue bool
}

// NewSMBG starts an SMBG record. Units and value are required.
func NewSMBG(c Common) *SMBGBuilder {
	return &SMBGBuilder{rec: SMBG{Common: c.clone()}}
}

func (b *SMBGBuilder) WithUnits(units string) *SMBGBuilder {
	b.rec.Units = units
	return b
}

func (b *SMBGBuilder) WithValue(v float64) *SMBGBuilder {
	b.rec.Value = v
	b.hasValue = true
	return b
}

func (b *SMBGBuilder) Annotate(code string) *SMBGBuilder {
	b.annotate(code)
	return b
}

// Done validates the builder and returns the finalized record.
func (b *SMBGBuilder) Done() (SMBG, error) {
	if err := b.rec.Common.validate(KindSMBG); err != nil {
		return SMBG{}, err
	}
	if b.rec.Units == "" {
		return SMBG{}, missing(KindSMBG, "units")
	}
	if !b.hasValue {
		return SMBG{}, missing(KindSMBG, "value")
	}

	rec := b.rec
	rec.Common = b.apply(rec.Common.clone())
	return rec, nil
}

// MustDone is like Done but panics on error.
func (b *SMBGBuilder) MustDone() SMBG {
	rec, err := b.Done()
	if err != nil {
		panic(err)
	}
	return rec
}
