// Package diagnostics reads sparse device test sheets whose attribute names
// have drifted over time.
//
// A sheet maps stored attribute names to raw stored values. Every read goes
// through an alias table to the canonical stored name, and yields one of
// three states: true, false, or absent (never tested). Absent is never
// collapsed into false.
package diagnostics

import "encoding/json"

// TriState is the outcome of a single diagnostic test.
type TriState int8

const (
	Absent TriState = iota
	False
	True
)

func (s TriState) String() string {
	switch s {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "absent"
	}
}

// Known reports whether the test was performed.
func (s TriState) Known() bool { return s != Absent }

// Record is a sparse diagnostic sheet as stored by the record service.
type Record map[string]any

// SchemaVersion identifies the attribute set written by Sheet.
const SchemaVersion = 3

// aliases maps requested names to the canonical stored name. Canonical names
// are kept exactly as persisted, including the historical "accellerometer"
// spelling; renaming it would orphan every sheet already stored.
var aliases = map[string]string{
	"touchId":        "scanner",
	"fingerprint":    "scanner",
	"faceId":         "faceRecognition",
	"accelerometer":  "accellerometer",
	"gyro":           "gyroscope",
	"simCard":        "simReader",
	"sim":            "simReader",
	"wifi":           "wiFi",
	"bt":             "bluetooth",
	"chargingPort":   "chargePort",
	"headphoneJack":  "audioJack",
	"earSpeaker":     "earpiece",
	"loudSpeaker":    "speaker",
	"frontCam":       "frontCamera",
	"rearCam":        "rearCamera",
	"backCamera":     "rearCamera",
	"backCover":      "backGlass",
	"powerButton":    "powerKey",
	"volumeButtons":  "volumeKeys",
	"silentSwitch":   "muteSwitch",
	"vibration":      "vibrationMotor",
	"proximity":      "proximitySensor",
	"batteryHealth":  "battery",
	"screen":         "display",
	"touch":          "touchscreen",
	"nfcChip":        "nfc",
	"cellular":       "network",
	"mobileNetwork":  "network",
	"osVersion":      "software",
	"iCloudLock":     "activationLock",
	"findMy":         "activationLock",
	"housingFrame":   "frame",
	"microphoneMain": "microphone",
}

// Canonical resolves a requested attribute name to the name it is stored under.
func Canonical(key string) string {
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}

// Resolve reads key from rec through the alias table. It never mutates rec.
func Resolve(rec Record, key string) TriState {
	if rec == nil {
		return Absent
	}
	raw, ok := rec[Canonical(key)]
	if !ok {
		return Absent
	}
	return coerce(raw)
}

func coerce(raw any) TriState {
	switch v := raw.(type) {
	case bool:
		return fromBool(v)
	case string:
		switch v {
		case "true":
			return True
		case "false":
			return False
		}
		return Absent
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return fromNumber(f)
		}
		return Absent
	case float64:
		return fromNumber(v)
	case float32:
		return fromNumber(float64(v))
	case int:
		return fromNumber(float64(v))
	case int8:
		return fromNumber(float64(v))
	case int16:
		return fromNumber(float64(v))
	case int32:
		return fromNumber(float64(v))
	case int64:
		return fromNumber(float64(v))
	case uint:
		return fromNumber(float64(v))
	case uint8:
		return fromNumber(float64(v))
	case uint16:
		return fromNumber(float64(v))
	case uint32:
		return fromNumber(float64(v))
	case uint64:
		return fromNumber(float64(v))
	default:
		return Absent
	}
}

func fromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

func fromNumber(f float64) TriState {
	switch f {
	case 1:
		return True
	case 0:
		return False
	default:
		return Absent
	}
}
