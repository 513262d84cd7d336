package diagnostics

import (
	"errors"
	"fmt"
)

// ErrAbsentAttributes is returned by Sheet when a known attribute was never
// tested. The record service stores omitted attributes as false, so writing
// such a sheet would lose the distinction.
var ErrAbsentAttributes = errors.New("diagnostic sheet has untested attributes")

// Attribute is one canonical test with its display label.
type Attribute struct {
	Key   string
	Label string
}

// Category groups attributes for the detail view.
type Category struct {
	Name       string
	Label      string
	Attributes []Attribute
}

// Categories is the versioned attribute set, in display order.
var Categories = []Category{
	{
		Name:  "system",
		Label: "Sistema",
		Attributes: []Attribute{
			{Key: "software", Label: "Sistema operativo"},
			{Key: "activationLock", Label: "Blocco attivazione"},
			{Key: "battery", Label: "Batteria"},
			{Key: "faceRecognition", Label: "Face ID"},
			{Key: "scanner", Label: "Touch ID"},
		},
	},
	{
		Name:  "connectivity",
		Label: "Connettività",
		Attributes: []Attribute{
			{Key: "wiFi", Label: "Wi-Fi"},
			{Key: "bluetooth", Label: "Bluetooth"},
			{Key: "network", Label: "Rete cellulare"},
			{Key: "simReader", Label: "Lettore SIM"},
			{Key: "nfc", Label: "NFC"},
			{Key: "gps", Label: "GPS"},
		},
	},
	{
		Name:  "hardware",
		Label: "Hardware",
		Attributes: []Attribute{
			{Key: "display", Label: "Display"},
			{Key: "touchscreen", Label: "Touchscreen"},
			{Key: "frontCamera", Label: "Fotocamera anteriore"},
			{Key: "rearCamera", Label: "Fotocamera posteriore"},
			{Key: "accellerometer", Label: "Accelerometro"},
			{Key: "gyroscope", Label: "Giroscopio"},
			{Key: "proximitySensor", Label: "Sensore di prossimità"},
			{Key: "chargePort", Label: "Connettore di ricarica"},
			{Key: "wirelessCharging", Label: "Ricarica wireless"},
		},
	},
	{
		Name:  "physical",
		Label: "Componenti fisici",
		Attributes: []Attribute{
			{Key: "frame", Label: "Scocca"},
			{Key: "backGlass", Label: "Vetro posteriore"},
			{Key: "cameraLens", Label: "Lente fotocamera"},
			{Key: "screws", Label: "Viti"},
		},
	},
	{
		Name:  "audio",
		Label: "Audio e controlli",
		Attributes: []Attribute{
			{Key: "speaker", Label: "Altoparlante"},
			{Key: "earpiece", Label: "Capsula auricolare"},
			{Key: "microphone", Label: "Microfono"},
			{Key: "audioJack", Label: "Jack audio"},
			{Key: "vibrationMotor", Label: "Vibrazione"},
			{Key: "powerKey", Label: "Tasto accensione"},
			{Key: "volumeKeys", Label: "Tasti volume"},
			{Key: "muteSwitch", Label: "Interruttore silenzioso"},
		},
	},
}

// Entry is one resolved attribute in a summary.
type Entry struct {
	Attribute
	State TriState
}

// Section is a visible category with its tested attributes.
type Section struct {
	Name    string
	Label   string
	Entries []Entry
}

// Summarize returns the categories with at least one tested attribute.
// Untested attributes are left out rather than reported as not tested.
func Summarize(rec Record) []Section {
	var sections []Section
	for _, cat := range Categories {
		var entries []Entry
		for _, attr := range cat.Attributes {
			state := Resolve(rec, attr.Key)
			if !state.Known() {
				continue
			}
			entries = append(entries, Entry{Attribute: attr, State: state})
		}
		if len(entries) == 0 {
			continue
		}
		sections = append(sections, Section{Name: cat.Name, Label: cat.Label, Entries: entries})
	}
	return sections
}

// Totals counts tests across the known attribute set.
type Totals struct {
	Performed int
	Passed    int
	Failed    int
}

// Tally counts performed, passed and failed tests for rec.
func Tally(rec Record) Totals {
	var t Totals
	for _, cat := range Categories {
		for _, attr := range cat.Attributes {
			switch Resolve(rec, attr.Key) {
			case True:
				t.Performed++
				t.Passed++
			case False:
				t.Performed++
				t.Failed++
			}
		}
	}
	return t
}

// Sheet builds the full upsert payload keyed by canonical names. When
// fillAbsent is false any untested attribute makes it fail with
// ErrAbsentAttributes; when true untested attributes are written as false.
func Sheet(rec Record, fillAbsent bool) (map[string]bool, error) {
	sheet := make(map[string]bool)
	var missing []string
	for _, cat := range Categories {
		for _, attr := range cat.Attributes {
			switch Resolve(rec, attr.Key) {
			case True:
				sheet[attr.Key] = true
			case False:
				sheet[attr.Key] = false
			default:
				if !fillAbsent {
					missing = append(missing, attr.Key)
					continue
				}
				sheet[attr.Key] = false
			}
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrAbsentAttributes, missing)
	}
	return sheet, nil
}
