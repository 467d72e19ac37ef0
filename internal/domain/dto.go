package domain

import (
	"github.com/google/uuid"
)

// PaginatedResponse wraps list results with paging metadata
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

type OrganizationDTO struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	ContactEmail     string           `json:"contactEmail"`
	Phone            string           `json:"phone,omitempty"`
	Address          string           `json:"address,omitempty"`
	SubscriptionType SubscriptionType `json:"subscriptionType"`
	MaxUsers         int              `json:"maxUsers"`
	MaxProjects      int              `json:"maxProjects"`
	State            LifecycleState   `json:"state"`
	IsActive         bool             `json:"isActive"`
	CreatedAt        string           `json:"createdAt"` // ISO 8601
}

type RoleDTO struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	OrganizationID uuid.UUID   `json:"organizationId"`
	Permissions    Permissions `json:"permissions"`
	Scope          RoleScope   `json:"scope"`
	CreatedAt      string      `json:"createdAt"`
	UpdatedAt      string      `json:"updatedAt"`
}

// UserDTO never carries the password hash
type UserDTO struct {
	ID             uuid.UUID        `json:"id"`
	Email          string           `json:"email"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	FullName       string           `json:"fullName"`
	Phone          string           `json:"phone,omitempty"`
	UserType       UserType         `json:"userType"`
	OrganizationID *uuid.UUID       `json:"organizationId,omitempty"`
	Organization   *OrganizationDTO `json:"organization,omitempty"`
	RoleID         *uuid.UUID       `json:"roleId,omitempty"`
	Role           *RoleDTO         `json:"role,omitempty"`
	State          LifecycleState   `json:"state"`
	IsActive       bool             `json:"isActive"`
	LastLoginAt    *string          `json:"lastLoginAt,omitempty"`
	CreatedAt      string           `json:"createdAt"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	User         UserDTO          `json:"user"`
	Organization *OrganizationDTO `json:"organization,omitempty"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresIn    int64            `json:"expiresIn"`
}

type ProjectDTO struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	OrganizationID *uuid.UUID     `json:"organizationId,omitempty"`
	CreatedBy      uuid.UUID      `json:"createdBy"`
	Address        string         `json:"address,omitempty"`
	StartDate      string         `json:"startDate"`
	EndDate        *string        `json:"endDate,omitempty"`
	Budget         *float64       `json:"budget,omitempty"`
	Status         ProjectStatus  `json:"status"`
	WBSData        WBSMap         `json:"wbsData,omitempty"`
	State          LifecycleState `json:"state"`
	IsActive       bool           `json:"isActive"`
	SiteCount      *int64         `json:"siteCount,omitempty"`
	Sites          []SiteDTO      `json:"sites,omitempty"`
	CreatedAt      string         `json:"createdAt"`
	UpdatedAt      string         `json:"updatedAt"`
}

type SiteUserDTO struct {
	UserID      uuid.UUID   `json:"userId"`
	Email       string      `json:"email,omitempty"`
	FullName    string      `json:"fullName,omitempty"`
	AccessLevel AccessLevel `json:"accessLevel"`
	GrantedBy   *uuid.UUID  `json:"grantedBy,omitempty"`
	GrantedAt   string      `json:"grantedAt"`
}

type SiteDTO struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	ProjectID       uuid.UUID      `json:"projectId"`
	ProjectName     string         `json:"projectName,omitempty"`
	OperationType   OperationType  `json:"operationType"`
	Latitude        *float64       `json:"latitude,omitempty"`
	Longitude       *float64       `json:"longitude,omitempty"`
	Address         string         `json:"address,omitempty"`
	StructureType   string         `json:"structureType,omitempty"`
	WBSMapping      WBSMap         `json:"wbsMapping,omitempty"`
	State           LifecycleState `json:"state"`
	IsActive        bool           `json:"isActive"`
	AuthorizedUsers []SiteUserDTO  `json:"authorizedUsers,omitempty"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

type SiteAccessDTO struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"userId"`
	SiteID      uuid.UUID   `json:"siteId"`
	AccessLevel AccessLevel `json:"accessLevel"`
	GrantedBy   *uuid.UUID  `json:"grantedBy,omitempty"`
}

type AnnotationDTO struct {
	ID          uuid.UUID      `json:"id"`
	CaptureID   uuid.UUID      `json:"captureId"`
	Type        AnnotationType `json:"type"`
	Coordinates []Point        `json:"coordinates"`
	Label       string         `json:"label,omitempty"`
	Measurement *Measurement   `json:"measurement,omitempty"`
	Color       string         `json:"color"`
	StrokeWidth float64        `json:"strokeWidth"`
	Notes       string         `json:"notes,omitempty"`
	CreatedBy   uuid.UUID      `json:"createdBy"`
	CreatedAt   string         `json:"createdAt"`
}

type CaptureDTO struct {
	ID                 uuid.UUID        `json:"id"`
	SiteID             uuid.UUID        `json:"siteId"`
	SiteName           string           `json:"siteName,omitempty"`
	UserID             uuid.UUID        `json:"userId"`
	MediaType          MediaType        `json:"mediaType"`
	FileURL            string           `json:"fileUrl"`
	StorageKey         string           `json:"storageKey"`
	ThumbnailKey       string           `json:"thumbnailKey,omitempty"`
	LocalFilePath      string           `json:"localFilePath,omitempty"`
	FileName           string           `json:"fileName"`
	FileSize           int64            `json:"fileSize"`
	MimeType           string           `json:"mimeType"`
	Duration           *int             `json:"duration,omitempty"`
	SensorData         SensorData       `json:"sensorData"`
	AIAnalysis         *AIAnalysis      `json:"aiAnalysis"`
	WBSID              string           `json:"wbsId,omitempty"`
	StructurePart      string           `json:"structurePart,omitempty"`
	ProcessingStatus   ProcessingStatus `json:"processingStatus"`
	IsShared           bool             `json:"isShared"`
	SharedVia          SharedVia        `json:"sharedVia"`
	SignedURL          string           `json:"signedUrl,omitempty"`
	ThumbnailSignedURL string           `json:"thumbnailSignedUrl,omitempty"`
	AnnotationCount    int              `json:"annotationCount"`
	Annotations        []AnnotationDTO  `json:"annotations,omitempty"`
	CreatedAt          string           `json:"createdAt"`
	UpdatedAt          string           `json:"updatedAt"`
}

type ReportDTO struct {
	ID         uuid.UUID    `json:"id"`
	SiteID     uuid.UUID    `json:"siteId"`
	SiteName   string       `json:"siteName,omitempty"`
	CreatedBy  uuid.UUID    `json:"createdBy"`
	ReportType ReportType   `json:"reportType"`
	Title      string       `json:"title"`
	Summary    string       `json:"summary,omitempty"`
	CaptureIDs []uuid.UUID  `json:"captureIds"`
	ReportData ReportData   `json:"reportData"`
	PDFURL     string       `json:"pdfUrl,omitempty"`
	Status     ReportStatus `json:"status"`
	CreatedAt  string       `json:"createdAt"`
	UpdatedAt  string       `json:"updatedAt"`
}

// ShareResultDTO reports where a capture or report was sent
type ShareResultDTO struct {
	Method    ShareMethod `json:"method"`
	Recipient string      `json:"recipient"`
	ShareURL  string      `json:"shareUrl,omitempty"`
	SharedVia *SharedVia  `json:"sharedVia,omitempty"`
}

// Request types

type OrganizationInput struct {
	Name    string `json:"name" validate:"required,min=2,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty"`
}

type RegisterRequest struct {
	Email            string             `json:"email" validate:"required,email"`
	Password         string             `json:"password" validate:"required,min=6"`
	FirstName        string             `json:"firstName" validate:"required,min=2,max=100"`
	LastName         string             `json:"lastName" validate:"required,min=2,max=100"`
	Phone            string             `json:"phone,omitempty" validate:"max=50"`
	UserType         UserType           `json:"userType" validate:"required,oneof=individual organization"`
	OrganizationData *OrganizationInput `json:"organizationData,omitempty" validate:"required_if=UserType organization,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type CreateRoleRequest struct {
	Name        string       `json:"name" validate:"required,min=2,max=100"`
	Permissions *Permissions `json:"permissions,omitempty"`
	Scope       *RoleScope   `json:"scope,omitempty"`
}

type UpdateRoleRequest struct {
	Name        *string      `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Permissions *Permissions `json:"permissions,omitempty"`
	Scope       *RoleScope   `json:"scope,omitempty"`
}

type CreateMemberRequest struct {
	Email     string    `json:"email" validate:"required,email"`
	Password  string    `json:"password" validate:"required,min=6"`
	FirstName string    `json:"firstName" validate:"required,min=2,max=100"`
	LastName  string    `json:"lastName" validate:"required,min=2,max=100"`
	Phone     string    `json:"phone,omitempty" validate:"max=50"`
	RoleID    uuid.UUID `json:"roleId" validate:"required"`
}

type CreateProjectRequest struct {
	Name        string        `json:"name" validate:"required,min=2,max=255"`
	Description string        `json:"description,omitempty"`
	Address     string        `json:"address,omitempty"`
	StartDate   string        `json:"startDate" validate:"required"`
	EndDate     *string       `json:"endDate,omitempty"`
	Budget      *float64      `json:"budget,omitempty" validate:"omitempty,gte=0"`
	Status      ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planning active on-hold completed cancelled"`
	WBSData     WBSMap        `json:"wbsData,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description *string        `json:"description,omitempty"`
	Address     *string        `json:"address,omitempty"`
	StartDate   *string        `json:"startDate,omitempty"`
	EndDate     *string        `json:"endDate,omitempty"`
	Budget      *float64       `json:"budget,omitempty" validate:"omitempty,gte=0"`
	Status      *ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planning active on-hold completed cancelled"`
	WBSData     WBSMap         `json:"wbsData,omitempty"`
}

type CreateSiteRequest struct {
	Name          string        `json:"name" validate:"required,min=2,max=255"`
	Description   string        `json:"description,omitempty"`
	ProjectID     uuid.UUID     `json:"projectId" validate:"required"`
	OperationType OperationType `json:"operationType" validate:"required,oneof=progress-monitoring auditing inspection"`
	Latitude      *float64      `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64      `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Address       string        `json:"address,omitempty"`
	StructureType string        `json:"structureType,omitempty" validate:"max=100"`
	WBSMapping    WBSMap        `json:"wbsMapping,omitempty"`
}

type UpdateSiteRequest struct {
	Name          *string        `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description   *string        `json:"description,omitempty"`
	OperationType *OperationType `json:"operationType,omitempty" validate:"omitempty,oneof=progress-monitoring auditing inspection"`
	Latitude      *float64       `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64       `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Address       *string        `json:"address,omitempty"`
	StructureType *string        `json:"structureType,omitempty" validate:"omitempty,max=100"`
	WBSMapping    WBSMap         `json:"wbsMapping,omitempty"`
}

type AssignUserRequest struct {
	UserID      uuid.UUID   `json:"userId" validate:"required"`
	SiteID      uuid.UUID   `json:"siteId" validate:"required"`
	AccessLevel AccessLevel `json:"accessLevel,omitempty" validate:"omitempty,oneof=view capture full"`
}

type AnalysisRequest struct {
	CaptureID     uuid.UUID     `json:"captureId" validate:"required"`
	MediaURL      string        `json:"mediaUrl,omitempty" validate:"omitempty,url"`
	OperationType OperationType `json:"operationType,omitempty" validate:"omitempty,oneof=progress-monitoring auditing inspection"`
	WBSID         string        `json:"wbsId,omitempty" validate:"max=100"`
}

type RedoAnalysisRequest struct {
	CustomPrompt string `json:"customPrompt,omitempty" validate:"max=4000"`
}

type ShareRequest struct {
	Method    ShareMethod `json:"method" validate:"required"`
	Recipient string      `json:"recipient" validate:"required,max=255"`
}

type CreateAnnotationRequest struct {
	Type        AnnotationType `json:"type" validate:"required,oneof=drawing measurement tag defect-marker"`
	Coordinates []Point        `json:"coordinates"`
	Label       string         `json:"label,omitempty" validate:"max=255"`
	Measurement *Measurement   `json:"measurement,omitempty"`
	Color       string         `json:"color,omitempty" validate:"max=32"`
	StrokeWidth *float64       `json:"strokeWidth,omitempty" validate:"omitempty,gt=0"`
	Notes       string         `json:"notes,omitempty"`
}

type CreateReportRequest struct {
	SiteID     uuid.UUID   `json:"siteId" validate:"required"`
	ReportType ReportType  `json:"reportType" validate:"required,oneof=progress audit inspection"`
	Title      string      `json:"title" validate:"required,min=2,max=255"`
	Summary    string      `json:"summary,omitempty"`
	CaptureIDs []uuid.UUID `json:"captureIds,omitempty"`
}
