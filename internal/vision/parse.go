package vision

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/yugmi/sense-api/internal/domain"
)

const (
	defaultConfidence  = 0.8
	fallbackConfidence = 0.7
	fallbackSummaryLen = 500
)

var (
	codeFence     = regexp.MustCompile("```(?:json)?")
	sentenceBreak = regexp.MustCompile(`[.!?]+`)
	percentToken  = regexp.MustCompile(`(\d+)%`)

	defectKeywords = []string{"crack", "damage", "defect", "issue", "problem", "concern", "hazard"}
	highKeywords   = []string{"critical", "severe", "urgent", "dangerous", "major"}
	mediumKeywords = []string{"moderate", "significant", "noticeable"}

	knownKeys = map[string]bool{"summary": true, "defects": true, "progressStatus": true, "confidence": true}
)

// ParseResponse normalizes a provider reply. A JSON object (optionally fenced in
// markdown) is read field by field; anything else goes through keyword extraction.
// Provider, timing and prompt fields are left for the caller to fill.
func ParseResponse(text string) *domain.AIAnalysis {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil || fields == nil {
		return parseFreeText(text)
	}

	analysis := &domain.AIAnalysis{
		Summary:    text,
		Defects:    []domain.Defect{},
		Confidence: defaultConfidence,
	}

	var summary string
	if raw, ok := fields["summary"]; ok && json.Unmarshal(raw, &summary) == nil && summary != "" {
		analysis.Summary = summary
	}
	if raw, ok := fields["defects"]; ok {
		analysis.Defects = parseDefects(raw)
	}
	if raw, ok := fields["progressStatus"]; ok {
		analysis.ProgressStatus = parseProgress(raw)
	}
	var confidence float64
	if raw, ok := fields["confidence"]; ok && json.Unmarshal(raw, &confidence) == nil && confidence > 0 {
		analysis.Confidence = confidence
	}

	for key, raw := range fields {
		if knownKeys[key] {
			continue
		}
		var value interface{}
		if json.Unmarshal(raw, &value) != nil {
			continue
		}
		if analysis.Extra == nil {
			analysis.Extra = make(map[string]interface{})
		}
		analysis.Extra[key] = value
	}

	return analysis
}

func parseDefects(raw json.RawMessage) []domain.Defect {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []domain.Defect{}
	}

	defects := make([]domain.Defect, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		switch item[0] {
		case '"':
			var description string
			if json.Unmarshal(item, &description) == nil && description != "" {
				defects = append(defects, domain.Defect{
					Type:        "defect",
					Description: description,
					Severity:    assessSeverity(description),
				})
			}
		case '{':
			var d struct {
				Type        string `json:"type"`
				Description string `json:"description"`
				Severity    string `json:"severity"`
				Location    string `json:"location"`
			}
			if json.Unmarshal(item, &d) != nil {
				continue
			}
			defect := domain.Defect{
				Type:        d.Type,
				Description: d.Description,
				Severity:    domain.Severity(strings.ToLower(d.Severity)),
				Location:    d.Location,
			}
			if defect.Type == "" {
				defect.Type = "defect"
			}
			if !defect.Severity.IsValid() {
				defect.Severity = assessSeverity(d.Description + " " + d.Severity)
			}
			defects = append(defects, defect)
		}
	}
	return defects
}

// parseProgress accepts a number or a numeric string such as "45" or "45%"
func parseProgress(raw json.RawMessage) *float64 {
	var number float64
	if json.Unmarshal(raw, &number) == nil {
		return &number
	}
	var text string
	if json.Unmarshal(raw, &text) != nil {
		return nil
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	if value, err := strconv.ParseFloat(text, 64); err == nil {
		return &value
	}
	return nil
}

func parseFreeText(text string) *domain.AIAnalysis {
	analysis := &domain.AIAnalysis{
		Summary:    truncateRunes(text, fallbackSummaryLen),
		Defects:    extractDefects(text),
		Confidence: fallbackConfidence,
	}
	if match := percentToken.FindStringSubmatch(text); match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			analysis.ProgressStatus = &value
		}
	}
	return analysis
}

// extractDefects yields one defect for every keyword each sentence mentions
func extractDefects(text string) []domain.Defect {
	defects := []domain.Defect{}
	for _, sentence := range sentenceBreak.Split(text, -1) {
		lower := strings.ToLower(sentence)
		for _, keyword := range defectKeywords {
			if !strings.Contains(lower, keyword) {
				continue
			}
			defects = append(defects, domain.Defect{
				Type:        keyword,
				Description: strings.TrimSpace(sentence),
				Severity:    assessSeverity(sentence),
			})
		}
	}
	return defects
}

func assessSeverity(text string) domain.Severity {
	lower := strings.ToLower(text)
	switch {
	case firstContained(lower, highKeywords) != "":
		return domain.SeverityHigh
	case firstContained(lower, mediumKeywords) != "":
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func firstContained(text string, keywords []string) string {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return keyword
		}
	}
	return ""
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
