package record

import "fmt"

// Validate re-checks the required fields of a finalized record. Records
// returned by Done always pass; a record assembled as a struct literal may
// not.
func Validate(r Record) error {
	var err error
	switch v := r.(type) {
	case SMBG:
		_, err = (&SMBGBuilder{rec: v, hasValue: true}).Done()
	case Bolus:
		_, err = (&BolusBuilder{rec: v}).Done()
	case Wizard:
		_, err = (&WizardBuilder{rec: v}).Done()
		if err == nil && v.Bolus != nil {
			err = Validate(*v.Bolus)
		}
	case DeviceEvent:
		_, err = (&DeviceEventBuilder{rec: v}).Done()
	case PumpSettings:
		_, err = (&PumpSettingsBuilder{rec: v}).Done()
	case Basal:
		_, err = (&BasalBuilder{rec: v, hasDuration: true}).Done()
	default:
		err = fmt.Errorf("unsupported record type %T", r)
	}
	return err
}
