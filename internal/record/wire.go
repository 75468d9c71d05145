package record

import (
	"encoding/json"
	"strconv"
	"time"
)

// TimeLayout is the wire layout of Common.Time.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Millis converts d to whole milliseconds, the wire unit of durations.
func Millis(d time.Duration) int64 {
	return d.Milliseconds()
}

type wireAnnotation struct {
	Code string `json:"code"`
}

type wireCommon struct {
	Time             string           `json:"time"`
	DeviceTime       string           `json:"deviceTime"`
	TimezoneOffset   int              `json:"timezoneOffset"`
	ConversionOffset int64            `json:"conversionOffset"`
	DeviceID         string           `json:"deviceId,omitempty"`
	Annotations      []wireAnnotation `json:"annotations,omitempty"`
	Payload          map[string]any   `json:"payload,omitempty"`
}

func toWireCommon(c Common) wireCommon {
	w := wireCommon{
		Time:             FormatTime(c.Time),
		DeviceTime:       c.DeviceTime,
		TimezoneOffset:   c.TimezoneOffset,
		ConversionOffset: c.ConversionOffset,
		DeviceID:         c.DeviceID,
		Payload:          c.Payload,
	}
	for _, a := range c.Annotations {
		w.Annotations = append(w.Annotations, wireAnnotation(a))
	}
	return w
}

func millisPtr(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	ms := Millis(*d)
	return &ms
}

type wireSuppressed struct {
	Type         string       `json:"type"`
	DeliveryType DeliveryType `json:"deliveryType"`
	Rate         float64      `json:"rate"`
	ScheduleName string       `json:"scheduleName,omitempty"`
}

// MarshalJSON renders the basal in the uploader's wire shape.
func (b Basal) MarshalJSON() ([]byte, error) {
	var suppressed *wireSuppressed
	if b.Suppressed != nil {
		suppressed = &wireSuppressed{
			Type:         string(KindBasal),
			DeliveryType: b.Suppressed.DeliveryType,
			Rate:         b.Suppressed.Rate,
			ScheduleName: b.Suppressed.ScheduleName,
		}
	}
	return json.Marshal(struct {
		Type         Kind         `json:"type"`
		DeliveryType DeliveryType `json:"deliveryType"`
		wireCommon
		Rate         *float64        `json:"rate,omitempty"`
		Duration     int64           `json:"duration"`
		ScheduleName string          `json:"scheduleName,omitempty"`
		Percent      *float64        `json:"percent,omitempty"`
		Suppressed   *wireSuppressed `json:"suppressed,omitempty"`
		Previous     *Basal          `json:"previous,omitempty"`
	}{
		Type:         KindBasal,
		DeliveryType: b.DeliveryType,
		wireCommon:   toWireCommon(b.Common),
		Rate:         b.Rate,
		Duration:     Millis(b.Duration),
		ScheduleName: b.ScheduleName,
		Percent:      b.Percent,
		Suppressed:   suppressed,
		Previous:     b.Previous,
	})
}

// MarshalJSON renders the bolus in the uploader's wire shape.
func (b Bolus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    Kind         `json:"type"`
		SubType BolusSubType `json:"subType"`
		wireCommon
		Normal           *float64 `json:"normal,omitempty"`
		ExpectedNormal   *float64 `json:"expectedNormal,omitempty"`
		Extended         *float64 `json:"extended,omitempty"`
		ExpectedExtended *float64 `json:"expectedExtended,omitempty"`
		Duration         *int64   `json:"duration,omitempty"`
		ExpectedDuration *int64   `json:"expectedDuration,omitempty"`
	}{
		Type:             KindBolus,
		SubType:          b.SubType,
		wireCommon:       toWireCommon(b.Common),
		Normal:           b.Normal,
		ExpectedNormal:   b.ExpectedNormal,
		Extended:         b.Extended,
		ExpectedExtended: b.ExpectedExtended,
		Duration:         millisPtr(b.Duration),
		ExpectedDuration: millisPtr(b.ExpectedDuration),
	})
}

type wireRecommended struct {
	Carb       float64 `json:"carb"`
	Correction float64 `json:"correction"`
	Net        float64 `json:"net"`
}

type wireBGTarget struct {
	Target float64 `json:"target,omitempty"`
	Low    float64 `json:"low,omitempty"`
	High   float64 `json:"high,omitempty"`
}

// MarshalJSON renders the wizard in the uploader's wire shape.
func (w Wizard) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Kind `json:"type"`
		wireCommon
		Units              string           `json:"units"`
		Recommended        *wireRecommended `json:"recommended,omitempty"`
		BGInput            *float64         `json:"bgInput,omitempty"`
		CarbInput          *float64         `json:"carbInput,omitempty"`
		InsulinOnBoard     *float64         `json:"insulinOnBoard,omitempty"`
		InsulinCarbRatio   *float64         `json:"insulinCarbRatio,omitempty"`
		InsulinSensitivity *float64         `json:"insulinSensitivity,omitempty"`
		BGTarget           *wireBGTarget    `json:"bgTarget,omitempty"`
		Bolus              *Bolus           `json:"bolus,omitempty"`
	}{
		Type:               KindWizard,
		wireCommon:         toWireCommon(w.Common),
		Units:              w.Units,
		Recommended:        (*wireRecommended)(w.Recommended),
		BGInput:            w.BGInput,
		CarbInput:          w.CarbInput,
		InsulinOnBoard:     w.InsulinOnBoard,
		InsulinCarbRatio:   w.InsulinCarbRatio,
		InsulinSensitivity: w.InsulinSensitivity,
		BGTarget:           (*wireBGTarget)(w.BGTarget),
		Bolus:              w.Bolus,
	})
}

type wireTimeChange struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Agent string `json:"agent"`
}

// MarshalJSON renders the device event in the uploader's wire shape.
func (e DeviceEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    Kind               `json:"type"`
		SubType DeviceEventSubType `json:"subType"`
		wireCommon
		AlarmType string            `json:"alarmType,omitempty"`
		Status    string            `json:"status,omitempty"`
		Reason    map[string]string `json:"reason,omitempty"`
		Change    *wireTimeChange   `json:"change,omitempty"`
		Previous  *DeviceEvent      `json:"previous,omitempty"`
	}{
		Type:       KindDeviceEvent,
		SubType:    e.SubType,
		wireCommon: toWireCommon(e.Common),
		AlarmType:  e.AlarmType,
		Status:     e.Status,
		Reason:     e.Reason,
		Change:     (*wireTimeChange)(e.Change),
		Previous:   e.Previous,
	})
}

// MarshalJSON renders the SMBG reading in the uploader's wire shape.
func (s SMBG) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Kind `json:"type"`
		wireCommon
		Units string  `json:"units"`
		Value float64 `json:"value"`
	}{
		Type:       KindSMBG,
		wireCommon: toWireCommon(s.Common),
		Units:      s.Units,
		Value:      s.Value,
	})
}

// MarshalJSON renders the settings snapshot in the uploader's wire shape.
// Schedule offsets are milliseconds from midnight.
func (p PumpSettings) MarshalJSON() ([]byte, error) {
	type rateEntry struct {
		Start int64   `json:"start"`
		Rate  float64 `json:"rate"`
	}
	type amountEntry struct {
		Start  int64   `json:"start"`
		Amount float64 `json:"amount"`
	}
	type targetEntry struct {
		Start  int64   `json:"start"`
		Target float64 `json:"target,omitempty"`
		Low    float64 `json:"low,omitempty"`
		High   float64 `json:"high,omitempty"`
	}

	basal := make(map[string][]rateEntry, len(p.BasalSchedules))
	for name, segs := range p.BasalSchedules {
		for _, s := range segs {
			basal[name] = append(basal[name], rateEntry{Start: Millis(s.Start), Rate: s.Rate})
		}
	}
	amounts := func(m map[string][]AmountSegment) map[string][]amountEntry {
		if len(m) == 0 {
			return nil
		}
		out := make(map[string][]amountEntry, len(m))
		for name, segs := range m {
			for _, s := range segs {
				out[name] = append(out[name], amountEntry{Start: Millis(s.Start), Amount: s.Amount})
			}
		}
		return out
	}
	var targets map[string][]targetEntry
	if len(p.BGTargets) > 0 {
		targets = make(map[string][]targetEntry, len(p.BGTargets))
		for name, segs := range p.BGTargets {
			for _, s := range segs {
				targets[name] = append(targets[name], targetEntry{Start: Millis(s.Start), Target: s.Target, Low: s.Low, High: s.High})
			}
		}
	}

	return json.Marshal(struct {
		Type Kind `json:"type"`
		wireCommon
		ActiveSchedule       string                   `json:"activeSchedule"`
		Units                map[string]string        `json:"units"`
		BasalSchedules       map[string][]rateEntry   `json:"basalSchedules"`
		CarbRatios           map[string][]amountEntry `json:"carbRatios,omitempty"`
		InsulinSensitivities map[string][]amountEntry `json:"insulinSensitivities,omitempty"`
		BGTargets            map[string][]targetEntry `json:"bgTargets,omitempty"`
	}{
		Type:                 KindPumpSettings,
		wireCommon:           toWireCommon(p.Common),
		ActiveSchedule:       p.ActiveSchedule,
		Units:                unitsMap(p.Units),
		BasalSchedules:       basal,
		CarbRatios:           amounts(p.CarbRatios),
		InsulinSensitivities: amounts(p.InsulinSensitivities),
		BGTargets:            targets,
	})
}

func unitsMap(u Units) map[string]string {
	m := map[string]string{"bg": u.BG}
	if u.Carb != "" {
		m["carb"] = u.Carb
	}
	return m
}

// Summary is a one-line text rendering used by the CLI.
func Summary(r Record) string {
	c := r.Meta()
	s := FormatTime(c.Time) + " " + string(r.Kind())
	switch v := r.(type) {
	case Basal:
		s += "/" + string(v.DeliveryType) + " duration=" + v.Duration.String()
		if v.Rate != nil {
			s += " rate=" + formatFloat(*v.Rate)
		}
		if v.Percent != nil {
			s += " percent=" + formatFloat(*v.Percent)
		}
		if v.Suppressed != nil {
			s += " suppressed=" + formatFloat(v.Suppressed.Rate)
		}
	case Bolus:
		s += "/" + string(v.SubType)
	case DeviceEvent:
		s += "/" + string(v.SubType)
	}
	for _, a := range c.Annotations {
		s += " [" + a.Code + "]"
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
