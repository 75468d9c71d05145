package session

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Session is one device upload.
type Session struct {
	// Name identifies the session and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// DeviceID is copied to every record without its own device_id.
	DeviceID string `yaml:"device_id,omitempty"`

	// TimezoneOffset is the device clock's offset from UTC, in minutes.
	TimezoneOffset int `yaml:"timezone_offset,omitempty"`

	// ConversionOffset corrects a wrong device clock, in milliseconds.
	ConversionOffset int64 `yaml:"conversion_offset,omitempty"`

	// Events are replayed in order.
	Events []Event `yaml:"events"`
}

// Event kinds.
const (
	KindSMBG            = "smbg"
	KindBolus           = "bolus"
	KindWizard          = "wizard"
	KindAlarm           = "alarm"
	KindCartridgeChange = "cartridge_change"
	KindTimeChange      = "time_change"
	KindPumpSettings    = "pump_settings"
	KindSuspend         = "suspend"
	KindResume          = "resume"
	KindBasal           = "basal"
	KindTempBasalStart  = "temp_basal_start"
	KindTempBasalStop   = "temp_basal_stop"
	KindNewDay          = "new_day"
)

// Event is one decoded pump event. Which fields apply depends on Kind.
type Event struct {
	Kind string `yaml:"kind"`

	// Time is RFC 3339. Optional only on temp basal controls.
	Time string `yaml:"time,omitempty"`

	// DeviceTime defaults to Time shifted by the session timezone offset.
	DeviceTime string `yaml:"device_time,omitempty"`
	DeviceID   string `yaml:"device_id,omitempty"`

	// smbg, wizard
	Units string   `yaml:"units,omitempty"`
	Value *float64 `yaml:"value,omitempty"`

	// bolus
	Subtype          string   `yaml:"subtype,omitempty"`
	Normal           *float64 `yaml:"normal,omitempty"`
	ExpectedNormal   *float64 `yaml:"expected_normal,omitempty"`
	Extended         *float64 `yaml:"extended,omitempty"`
	ExpectedExtended *float64 `yaml:"expected_extended,omitempty"`
	ExpectedDuration *int64   `yaml:"expected_duration,omitempty"`

	// Duration is the bolus extension, the basal's reported duration or
	// the temp basal's requested duration.
	Duration *int64 `yaml:"duration,omitempty"`

	// wizard
	Recommended        *Recommended `yaml:"recommended,omitempty"`
	BGInput            *float64     `yaml:"bg_input,omitempty"`
	CarbInput          *float64     `yaml:"carb_input,omitempty"`
	InsulinOnBoard     *float64     `yaml:"insulin_on_board,omitempty"`
	InsulinCarbRatio   *float64     `yaml:"insulin_carb_ratio,omitempty"`
	InsulinSensitivity *float64     `yaml:"insulin_sensitivity,omitempty"`
	BGTarget           *Target      `yaml:"bg_target,omitempty"`
	Bolus              *Bolus       `yaml:"bolus,omitempty"`

	// alarm
	AlarmType string `yaml:"alarm_type,omitempty"`

	// time_change
	Change *Change `yaml:"change,omitempty"`

	// pump_settings
	ActiveSchedule       string                     `yaml:"active_schedule,omitempty"`
	BGUnits              string                     `yaml:"bg_units,omitempty"`
	CarbUnits            string                     `yaml:"carb_units,omitempty"`
	BasalSchedules       map[string][]BasalSegment  `yaml:"basal_schedules,omitempty"`
	CarbRatios           map[string][]AmountSegment `yaml:"carb_ratios,omitempty"`
	InsulinSensitivities map[string][]AmountSegment `yaml:"insulin_sensitivities,omitempty"`
	BGTargets            map[string][]TargetSegment `yaml:"bg_targets,omitempty"`

	// suspend, resume
	Reason map[string]string `yaml:"reason,omitempty"`

	// basal
	DeliveryType string   `yaml:"delivery_type,omitempty"`
	Rate         *float64 `yaml:"rate,omitempty"`
	ScheduleName string   `yaml:"schedule_name,omitempty"`
	Percent      *float64 `yaml:"percent,omitempty"`

	// temp_basal_start, temp_basal_stop
	Index    *int   `yaml:"index,omitempty"`
	TimeLeft *int64 `yaml:"time_left,omitempty"`
}

// Bolus is a bolus nested in a wizard event.
type Bolus struct {
	Subtype          string   `yaml:"subtype"`
	Normal           *float64 `yaml:"normal,omitempty"`
	ExpectedNormal   *float64 `yaml:"expected_normal,omitempty"`
	Extended         *float64 `yaml:"extended,omitempty"`
	ExpectedExtended *float64 `yaml:"expected_extended,omitempty"`
	Duration         *int64   `yaml:"duration,omitempty"`
	ExpectedDuration *int64   `yaml:"expected_duration,omitempty"`
}

type Recommended struct {
	Carb       float64 `yaml:"carb"`
	Correction float64 `yaml:"correction"`
	Net        float64 `yaml:"net"`
}

type Target struct {
	Target float64 `yaml:"target"`
	Low    float64 `yaml:"low,omitempty"`
	High   float64 `yaml:"high,omitempty"`
}

type Change struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Agent string `yaml:"agent,omitempty"`
}

// BasalSegment starts are milliseconds from local midnight.
type BasalSegment struct {
	Start int64   `yaml:"start"`
	Rate  float64 `yaml:"rate"`
}

type AmountSegment struct {
	Start  int64   `yaml:"start"`
	Amount float64 `yaml:"amount"`
}

type TargetSegment struct {
	Start  int64   `yaml:"start"`
	Target float64 `yaml:"target"`
	Low    float64 `yaml:"low,omitempty"`
	High   float64 `yaml:"high,omitempty"`
}

// LoadSession reads and parses a session YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or fails the session schema.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a session document.
func Parse(data []byte) (*Session, error) {
	var s Session
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	if err := validateSession(&s); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	return &s, nil
}

// validateSession checks what the schema cannot express.
func validateSession(s *Session) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}
	for i, e := range s.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d]: kind is required", i)
		}
		if e.Time != "" {
			if _, err := parseTime(e.Time); err != nil {
				return fmt.Errorf("events[%d]: %w", i, err)
			}
		}
	}
	return nil
}
