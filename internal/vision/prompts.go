package vision

import (
	"strings"

	"github.com/yugmi/sense-api/internal/domain"
)

const progressPrompt = `Analyze this construction site image for progress monitoring. Reply with a single JSON object containing:
- summary: brief overview of the visible progress
- progressStatus: estimated completion percentage (0-100)
- currentPhase: current construction phase
- qualityObservations: list of quality notes
- safetyConcerns: list of safety issues
- recommendations: list of next steps`

const auditPrompt = `Audit this construction site image for compliance and quality. Reply with a single JSON object containing:
- summary: compliance overview
- complianceIssues: list of non-compliance issues
- qualityAssessment: quality notes
- defects: list of defects, each with type, description and severity (low, medium or high)
- correctiveActions: list of required actions`

const inspectionPrompt = `Inspect this image for defects and structural issues. Reply with a single JSON object containing:
- summary: inspection overview
- defects: list of visible defects, each with type, description and severity (low, medium or high)
- structuralIssues: list of structural concerns
- safetyHazards: list of safety hazards
- maintenanceRequirements: list of maintenance needs
- priority: overall priority (low, medium or high)`

// PromptFor returns the analysis instructions for a site's operation type.
// Unknown operation types are inspected. wbsID only applies to progress monitoring.
func PromptFor(operation domain.OperationType, wbsID string) string {
	switch operation {
	case domain.OperationProgressMonitoring:
		if wbsID = strings.TrimSpace(wbsID); wbsID != "" {
			return progressPrompt + "\nFocus on WBS ID: " + wbsID
		}
		return progressPrompt
	case domain.OperationAuditing:
		return auditPrompt
	default:
		return inspectionPrompt
	}
}
