package domain

import (
	"fmt"
	"time"
)

// Vector3 is a three-axis sensor reading
type Vector3 struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type CameraParams struct {
	Focus        *float64 `json:"focus"`
	Exposure     *float64 `json:"exposure"`
	ISO          *float64 `json:"iso"`
	ShutterSpeed *string  `json:"shutterSpeed"`
	Aperture     *float64 `json:"aperture"`
}

type DeviceInfo struct {
	Model      *string `json:"model"`
	OS         *string `json:"os"`
	AppVersion *string `json:"appVersion"`
}

// SensorData is the device telemetry recorded with a capture. Every field is optional.
type SensorData struct {
	Latitude      *float64      `json:"latitude"`
	Longitude     *float64      `json:"longitude"`
	Altitude      *float64      `json:"altitude"`
	Timestamp     *time.Time    `json:"timestamp"`
	CameraParams  *CameraParams `json:"cameraParams"`
	Accelerometer *Vector3      `json:"accelerometer"`
	Gyroscope     *Vector3      `json:"gyroscope"`
	Compass       *float64      `json:"compass"`
	DeviceInfo    *DeviceInfo   `json:"deviceInfo"`
}

// Severity grades a detected defect
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) IsValid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Defect is one issue reported by the vision analysis
type Defect struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Location    string   `json:"location,omitempty"`
}

// AIAnalysis is the normalized result of a vision analysis
type AIAnalysis struct {
	Summary        string                 `json:"summary"`
	Defects        []Defect               `json:"defects"`
	ProgressStatus *float64               `json:"progressStatus"`
	Confidence     float64                `json:"confidence"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
	APIProvider    string                 `json:"apiProvider"`
	ProcessingTime int64                  `json:"processingTime"`
	ProcessedAt    time.Time              `json:"processedAt"`
	CustomPrompt   *string                `json:"customPrompt"`
}

// SharedVia records the channels a capture has been shared through
type SharedVia struct {
	WhatsApp bool `json:"whatsapp"`
	Email    bool `json:"email"`
	Report   bool `json:"report"`
}

// With returns a copy with the given share method marked
func (s SharedVia) With(method ShareMethod) SharedVia {
	switch method {
	case ShareEmail:
		s.Email = true
	case ShareWhatsApp:
		s.WhatsApp = true
	}
	return s
}

// Point is a 2-D annotation coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Measurement struct {
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Description string  `json:"description,omitempty"`
}

// ReportData is the aggregate computed when a report is generated
type ReportData struct {
	TotalCaptures      int                `json:"totalCaptures"`
	DefectsFound       int                `json:"defectsFound"`
	ProgressPercentage *float64           `json:"progressPercentage"`
	Recommendations    []string           `json:"recommendations"`
	WBSProgress        map[string]float64 `json:"wbsProgress"`
}

// ParseDate accepts YYYY-MM-DD or RFC3339 timestamps
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", value)
	}
	return t, nil
}
