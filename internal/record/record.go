package record

import (
	"maps"
	"slices"
	"time"
)

// Kind identifies a canonical record variant.
type Kind string

const (
	KindSMBG         Kind = "smbg"
	KindBolus        Kind = "bolus"
	KindWizard       Kind = "wizard"
	KindDeviceEvent  Kind = "deviceEvent"
	KindPumpSettings Kind = "pumpSettings"
	KindBasal        Kind = "basal"
)

// Record is a sealed interface over the canonical record variants.
// Only SMBG, Bolus, Wizard, DeviceEvent, PumpSettings and Basal implement it.
type Record interface {
	Kind() Kind
	Meta() Common
	record()
}

// Common holds the fields present on every record.
type Common struct {
	// Time is the absolute instant of the record.
	Time time.Time

	// DeviceTime is the device-local naive timestamp, "2006-01-02T15:04:05".
	DeviceTime string

	// TimezoneOffset is the offset of DeviceTime from UTC, in minutes.
	TimezoneOffset int

	// ConversionOffset corrects a wrong device clock, in milliseconds.
	ConversionOffset int64

	DeviceID string

	// Annotations and Payload are only set through a builder.
	Annotations []Annotation
	Payload     map[string]any
}

// DeviceTimeLayout is the layout of Common.DeviceTime.
const DeviceTimeLayout = "2006-01-02T15:04:05"

// HasAnnotation reports whether code is among the record's annotations.
func (c Common) HasAnnotation(code string) bool {
	for _, a := range c.Annotations {
		if a.Code == code {
			return true
		}
	}
	return false
}

func (c Common) clone() Common {
	c.Annotations = slices.Clone(c.Annotations)
	c.Payload = maps.Clone(c.Payload)
	return c
}

// validate checks the common fields. Offsets are always considered present
// because zero is a valid offset.
func (c Common) validate(kind Kind) error {
	if c.Time.IsZero() {
		return &MissingFieldError{Kind: kind, Field: "time"}
	}
	if c.DeviceTime == "" {
		return &MissingFieldError{Kind: kind, Field: "deviceTime"}
	}
	return nil
}

// Annotation is a data-quality code attached to a record.
type Annotation struct {
	Code string
}

// Annotation codes emitted by the engine.
const (
	AnnotationUnknownDuration       = "basal/unknown-duration"
	AnnotationFabricatedFromNewDay  = "tandem/basal/fabricated-from-new-day"
	AnnotationTempWithoutRateChange = "tandem/basal/temp-without-rate-change"
)

// Payload keys.
const (
	PayloadDuration   = "duration"
	PayloadLogIndices = "logIndices"
)

// annotator is embedded by every builder.
type annotator struct {
	annotations []Annotation
	payload     map[string]any
}

func (a *annotator) annotate(code string) {
	for _, existing := range a.annotations {
		if existing.Code == code {
			return
		}
	}
	a.annotations = append(a.annotations, Annotation{Code: code})
}

func (a *annotator) setPayload(key string, value any) {
	if a.payload == nil {
		a.payload = make(map[string]any)
	}
	a.payload[key] = value
}

func (a *annotator) apply(c Common) Common {
	if len(a.annotations) > 0 {
		c.Annotations = append(slices.Clone(c.Annotations), a.annotations...)
	}
	if len(a.payload) > 0 {
		merged := maps.Clone(c.Payload)
		if merged == nil {
			merged = make(map[string]any, len(a.payload))
		}
		maps.Copy(merged, a.payload)
		c.Payload = merged
	}
	return c
}

// Ptr returns a pointer to v. Optional numeric fields are pointers so that
// an explicit zero can be told apart from an absent value.
func Ptr[T any](v T) *T {
	return &v
}
