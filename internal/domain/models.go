package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LifecycleState replaces boolean soft-delete flags. Retired rows stay in the
// database but are hidden from normal listings and cannot authenticate.
type LifecycleState string

const (
	StateActive  LifecycleState = "active"
	StateRetired LifecycleState = "retired"
)

// IsActive reports whether the entity is in the active state
func (s LifecycleState) IsActive() bool {
	return s == StateActive
}

// UserType distinguishes self-owned individual accounts from organization members
type UserType string

const (
	UserTypeIndividual   UserType = "individual"
	UserTypeOrganization UserType = "organization"
)

// SubscriptionType represents an organization's plan
type SubscriptionType string

const (
	SubscriptionBasic      SubscriptionType = "basic"
	SubscriptionPremium    SubscriptionType = "premium"
	SubscriptionEnterprise SubscriptionType = "enterprise"
)

// ProjectStatus represents the schedule status of a project
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on-hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// IsValid checks if the project status is a known value
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// OperationType selects how captures of a site are analyzed
type OperationType string

const (
	OperationProgressMonitoring OperationType = "progress-monitoring"
	OperationAuditing           OperationType = "auditing"
	OperationInspection         OperationType = "inspection"
)

// IsValid checks if the operation type is a known value
func (o OperationType) IsValid() bool {
	switch o {
	case OperationProgressMonitoring, OperationAuditing, OperationInspection:
		return true
	}
	return false
}

// AccessLevel is the grant recorded on a user/site assignment
type AccessLevel string

const (
	AccessView    AccessLevel = "view"
	AccessCapture AccessLevel = "capture"
	AccessFull    AccessLevel = "full"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// ProcessingStatus tracks the AI analysis of a capture
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

type AnnotationType string

const (
	AnnotationDrawing      AnnotationType = "drawing"
	AnnotationMeasurement  AnnotationType = "measurement"
	AnnotationTag          AnnotationType = "tag"
	AnnotationDefectMarker AnnotationType = "defect-marker"
)

type ReportType string

const (
	ReportProgress   ReportType = "progress"
	ReportAudit      ReportType = "audit"
	ReportInspection ReportType = "inspection"
)

type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportGenerated ReportStatus = "generated"
	ReportShared    ReportStatus = "shared"
)

// ShareMethod is the channel a capture or report is shared through
type ShareMethod string

const (
	ShareEmail    ShareMethod = "email"
	ShareWhatsApp ShareMethod = "whatsapp"
)

// WBSMap is a free-form work breakdown structure mapping
type WBSMap map[string]interface{}

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Organization is a tenant owning users, roles and projects
type Organization struct {
	BaseModel
	Name             string           `gorm:"type:varchar(255);not null"`
	ContactEmail     string           `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone            string           `gorm:"type:varchar(50)"`
	Address          string           `gorm:"type:text"`
	SubscriptionType SubscriptionType `gorm:"type:varchar(20);not null;default:'basic'"`
	MaxUsers         int              `gorm:"not null;default:10"`
	MaxProjects      int              `gorm:"not null;default:5"`
	State            LifecycleState   `gorm:"type:varchar(20);not null;default:'active';index"`
}

func (Organization) TableName() string {
	return "organizations"
}

// User is an account. Individual users own their data outright; organization
// users act through their Role.
type User struct {
	BaseModel
	Email          string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash   string         `gorm:"type:varchar(255);not null" json:"-"`
	FirstName      string         `gorm:"type:varchar(100);not null"`
	LastName       string         `gorm:"type:varchar(100);not null"`
	Phone          string         `gorm:"type:varchar(50)"`
	UserType       UserType       `gorm:"type:varchar(20);not null;default:'individual'"`
	OrganizationID *uuid.UUID     `gorm:"type:uuid;index"`
	Organization   *Organization  `gorm:"foreignKey:OrganizationID"`
	RoleID         *uuid.UUID     `gorm:"type:uuid;index"`
	Role           *Role          `gorm:"foreignKey:RoleID"`
	State          LifecycleState `gorm:"type:varchar(20);not null;default:'active'"`
	LastLoginAt    *time.Time
}

func (User) TableName() string {
	return "users"
}

// FullName returns "First Last"
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Role holds a permission set and an access scope within one organization
type Role struct {
	BaseModel
	Name           string                           `gorm:"type:varchar(100);not null"`
	OrganizationID uuid.UUID                        `gorm:"type:uuid;not null;index"`
	Permissions    datatypes.JSONType[Permissions] `gorm:"not null"`
	Scope          datatypes.JSONType[RoleScope]   `gorm:"not null"`
}

func (Role) TableName() string {
	return "roles"
}

// Project groups sites. OrganizationID is nil for projects owned by an individual.
type Project struct {
	BaseModel
	Name           string                     `gorm:"type:varchar(255);not null"`
	Description    string                     `gorm:"type:text"`
	OrganizationID *uuid.UUID                 `gorm:"type:uuid;index"`
	CreatedByID    uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Address        string                     `gorm:"type:text"`
	StartDate      time.Time                  `gorm:"not null"`
	EndDate        *time.Time
	Budget         *float64                   `gorm:"type:decimal(14,2)"`
	Status         ProjectStatus              `gorm:"type:varchar(20);not null;default:'planning'"`
	WBSData        datatypes.JSONType[WBSMap] `gorm:"column:wbs_data"`
	State          LifecycleState             `gorm:"type:varchar(20);not null;default:'active';index"`
	Sites          []Site                     `gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// Site is a physical location inside a project where captures are taken
type Site struct {
	BaseModel
	Name          string                     `gorm:"type:varchar(255);not null"`
	Description   string                     `gorm:"type:text"`
	ProjectID     uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Project       *Project                   `gorm:"foreignKey:ProjectID"`
	OperationType OperationType              `gorm:"type:varchar(30);not null"`
	Latitude      *float64
	Longitude     *float64
	Address       string                     `gorm:"type:text"`
	StructureType string                     `gorm:"type:varchar(100)"`
	WBSMapping    datatypes.JSONType[WBSMap] `gorm:"column:wbs_mapping"`
	State         LifecycleState             `gorm:"type:varchar(20);not null;default:'active';index"`
	Access        []UserSiteAccess           `gorm:"foreignKey:SiteID"`
}

func (Site) TableName() string {
	return "sites"
}

// UserSiteAccess grants a user explicit access to a site
type UserSiteAccess struct {
	BaseModel
	UserID      uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_site"`
	User        *User       `gorm:"foreignKey:UserID"`
	SiteID      uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_site"`
	AccessLevel AccessLevel `gorm:"type:varchar(20);not null;default:'capture'"`
	GrantedByID *uuid.UUID  `gorm:"type:uuid"`
}

func (UserSiteAccess) TableName() string {
	return "user_site_access"
}

// Capture is one uploaded photo or video with its sensor payload and analysis state
type Capture struct {
	BaseModel
	SiteID            uuid.UUID                         `gorm:"type:uuid;not null;index"`
	Site              *Site                             `gorm:"foreignKey:SiteID"`
	UserID            uuid.UUID                         `gorm:"type:uuid;not null;index"`
	User              *User                             `gorm:"foreignKey:UserID"`
	MediaType         MediaType                         `gorm:"type:varchar(10);not null"`
	StorageKey        string                            `gorm:"type:varchar(1024);not null"`
	FileURL           string                            `gorm:"type:varchar(2048)"`
	ThumbnailKey      string                            `gorm:"type:varchar(1024)"`
	LocalFilePath     string                            `gorm:"type:varchar(1024)"`
	FileName          string                            `gorm:"type:varchar(255);not null"`
	FileSize          int64
	MimeType          string                            `gorm:"type:varchar(100)"`
	Duration          *int
	SensorData        datatypes.JSONType[SensorData]   `gorm:"not null"`
	AIAnalysis        datatypes.JSONType[*AIAnalysis]  `gorm:"column:ai_analysis"`
	WBSID             string                            `gorm:"column:wbs_id;type:varchar(100)"`
	StructurePart     string                            `gorm:"type:varchar(255)"`
	ProcessingStatus  ProcessingStatus                  `gorm:"type:varchar(20);not null;default:'pending';index"`
	AnalysisStartedAt *time.Time
	IsShared          bool                              `gorm:"not null;default:false"`
	SharedVia         datatypes.JSONType[SharedVia]    `gorm:"not null"`
	Annotations       []Annotation                      `gorm:"foreignKey:CaptureID"`
}

func (Capture) TableName() string {
	return "captures"
}

// Analysis returns the stored analysis or nil if none has completed yet
func (c *Capture) Analysis() *AIAnalysis {
	return c.AIAnalysis.Data()
}

// Annotation is a drawing, measurement, tag or defect marker on a capture
type Annotation struct {
	BaseModel
	CaptureID   uuid.UUID                         `gorm:"type:uuid;not null;index"`
	CreatedByID uuid.UUID                         `gorm:"type:uuid;not null"`
	Type        AnnotationType                    `gorm:"type:varchar(20);not null"`
	Coordinates datatypes.JSONSlice[Point]        `gorm:"not null"`
	Label       string                            `gorm:"type:varchar(255)"`
	Measurement datatypes.JSONType[*Measurement] `gorm:"column:measurement"`
	Color       string                            `gorm:"type:varchar(32);not null;default:'#FF0000'"`
	StrokeWidth float64                           `gorm:"not null;default:2"`
	Notes       string                            `gorm:"type:text"`
}

func (Annotation) TableName() string {
	return "annotations"
}

// Report aggregates captures of a site
type Report struct {
	BaseModel
	SiteID      uuid.UUID                      `gorm:"type:uuid;not null;index"`
	Site        *Site                          `gorm:"foreignKey:SiteID"`
	CreatedByID uuid.UUID                      `gorm:"type:uuid;not null"`
	ReportType  ReportType                     `gorm:"type:varchar(20);not null"`
	Title       string                         `gorm:"type:varchar(255);not null"`
	Summary     string                         `gorm:"type:text"`
	CaptureIDs  datatypes.JSONSlice[uuid.UUID] `gorm:"column:capture_ids"`
	ReportData  datatypes.JSONType[ReportData] `gorm:"not null"`
	PDFURL      string                         `gorm:"column:pdf_url;type:varchar(2048)"`
	Status      ReportStatus                   `gorm:"type:varchar(20);not null;default:'draft'"`
}

func (Report) TableName() string {
	return "reports"
}
