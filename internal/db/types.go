package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a remediation run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Target      string     `json:"target"`
	Flow        string     `json:"flow"`
	RunDir      string     `json:"run_dir,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Flow constants for the supported remediation flows
const (
	FlowWeb     = "web"
	FlowAngular = "angular"
	FlowReact   = "react"
)

// Run status constants
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// LLM call type constants, mirroring the client call surface
const (
	CallGenerate      = "generate"
	CallGenerateJSON  = "generate_json"
	CallDescribeImage = "describe_image"
	CallFixComponent  = "fix_component"
	CallRepairBuild   = "repair_build"
)

// Progress categories, used to tag pipeline progress events
const (
	CategoryAudit     = "audit"
	CategoryMapping   = "mapping"
	CategorySynthesis = "synthesis"
	CategoryCaptions  = "captions"
	CategoryApply     = "apply"
	CategoryVerify    = "verify"
	CategoryReport    = "report"
)

// Pipeline step identifiers attached to progress events
const (
	StepDiscover   = "discover_components"
	StepAudit      = "audit"
	StepMap        = "map_violations"
	StepFix        = "fix_components"
	StepCaptions   = "caption_media"
	StepGenerate   = "generate_page"
	StepFinalAudit = "final_audit"
	StepApply      = "apply_changes"
	StepVerify     = "verify_build"
	StepReport     = "report"
)
