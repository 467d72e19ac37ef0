package mapper

import (
	"time"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// NewPaginatedResponse wraps a page of items
func NewPaginatedResponse(items interface{}, total int64, page, pageSize int) domain.PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return domain.PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// ToOrganizationDTO converts Organization to OrganizationDTO
func ToOrganizationDTO(org *domain.Organization) domain.OrganizationDTO {
	return domain.OrganizationDTO{
		ID:               org.ID,
		Name:             org.Name,
		ContactEmail:     org.ContactEmail,
		Phone:            org.Phone,
		Address:          org.Address,
		SubscriptionType: org.SubscriptionType,
		MaxUsers:         org.MaxUsers,
		MaxProjects:      org.MaxProjects,
		State:            org.State,
		IsActive:         org.State.IsActive(),
		CreatedAt:        formatTime(org.CreatedAt),
	}
}

// ToRoleDTO converts Role to RoleDTO
func ToRoleDTO(role *domain.Role) domain.RoleDTO {
	return domain.RoleDTO{
		ID:             role.ID,
		Name:           role.Name,
		OrganizationID: role.OrganizationID,
		Permissions:    role.Permissions.Data(),
		Scope:          role.Scope.Data(),
		CreatedAt:      formatTime(role.CreatedAt),
		UpdatedAt:      formatTime(role.UpdatedAt),
	}
}

// ToUserDTO converts User to UserDTO, including organization and role when loaded
func ToUserDTO(user *domain.User) domain.UserDTO {
	dto := domain.UserDTO{
		ID:             user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		FullName:       user.FullName(),
		Phone:          user.Phone,
		UserType:       user.UserType,
		OrganizationID: user.OrganizationID,
		RoleID:         user.RoleID,
		State:          user.State,
		IsActive:       user.State.IsActive(),
		LastLoginAt:    formatTimePtr(user.LastLoginAt),
		CreatedAt:      formatTime(user.CreatedAt),
	}
	if user.Organization != nil {
		org := ToOrganizationDTO(user.Organization)
		dto.Organization = &org
	}
	if user.Role != nil {
		role := ToRoleDTO(user.Role)
		dto.Role = &role
	}
	return dto
}

// ToProjectDTO converts Project to ProjectDTO; loaded sites are included
func ToProjectDTO(project *domain.Project) domain.ProjectDTO {
	dto := domain.ProjectDTO{
		ID:             project.ID,
		Name:           project.Name,
		Description:    project.Description,
		OrganizationID: project.OrganizationID,
		CreatedBy:      project.CreatedByID,
		Address:        project.Address,
		StartDate:      project.StartDate.UTC().Format("2006-01-02"),
		Budget:         project.Budget,
		Status:         project.Status,
		WBSData:        project.WBSData.Data(),
		State:          project.State,
		IsActive:       project.State.IsActive(),
		CreatedAt:      formatTime(project.CreatedAt),
		UpdatedAt:      formatTime(project.UpdatedAt),
	}

	if project.EndDate != nil {
		end := project.EndDate.UTC().Format("2006-01-02")
		dto.EndDate = &end
	}

	if len(project.Sites) > 0 {
		dto.Sites = make([]domain.SiteDTO, len(project.Sites))
		for i := range project.Sites {
			dto.Sites[i] = ToSiteDTO(&project.Sites[i])
		}
	}

	return dto
}

// ToSiteDTO converts Site to SiteDTO; project name and access grants are included when loaded
func ToSiteDTO(site *domain.Site) domain.SiteDTO {
	dto := domain.SiteDTO{
		ID:            site.ID,
		Name:          site.Name,
		Description:   site.Description,
		ProjectID:     site.ProjectID,
		OperationType: site.OperationType,
		Latitude:      site.Latitude,
		Longitude:     site.Longitude,
		Address:       site.Address,
		StructureType: site.StructureType,
		WBSMapping:    site.WBSMapping.Data(),
		State:         site.State,
		IsActive:      site.State.IsActive(),
		CreatedAt:     formatTime(site.CreatedAt),
		UpdatedAt:     formatTime(site.UpdatedAt),
	}

	if site.Project != nil {
		dto.ProjectName = site.Project.Name
	}

	for _, access := range site.Access {
		user := domain.SiteUserDTO{
			UserID:      access.UserID,
			AccessLevel: access.AccessLevel,
			GrantedBy:   access.GrantedByID,
			GrantedAt:   formatTime(access.UpdatedAt),
		}
		if access.User != nil {
			user.Email = access.User.Email
			user.FullName = access.User.FullName()
		}
		dto.AuthorizedUsers = append(dto.AuthorizedUsers, user)
	}

	return dto
}

func ToSiteAccessDTO(access *domain.UserSiteAccess) domain.SiteAccessDTO {
	return domain.SiteAccessDTO{
		ID:          access.ID,
		UserID:      access.UserID,
		SiteID:      access.SiteID,
		AccessLevel: access.AccessLevel,
		GrantedBy:   access.GrantedByID,
	}
}

func ToAnnotationDTO(annotation *domain.Annotation) domain.AnnotationDTO {
	coordinates := []domain.Point(annotation.Coordinates)
	if coordinates == nil {
		coordinates = []domain.Point{}
	}
	return domain.AnnotationDTO{
		ID:          annotation.ID,
		CaptureID:   annotation.CaptureID,
		Type:        annotation.Type,
		Coordinates: coordinates,
		Label:       annotation.Label,
		Measurement: annotation.Measurement.Data(),
		Color:       annotation.Color,
		StrokeWidth: annotation.StrokeWidth,
		Notes:       annotation.Notes,
		CreatedBy:   annotation.CreatedByID,
		CreatedAt:   formatTime(annotation.CreatedAt),
	}
}

// ToCaptureDTO converts Capture to CaptureDTO. Signed URLs are filled in by the caller.
func ToCaptureDTO(capture *domain.Capture) domain.CaptureDTO {
	dto := domain.CaptureDTO{
		ID:               capture.ID,
		SiteID:           capture.SiteID,
		UserID:           capture.UserID,
		MediaType:        capture.MediaType,
		FileURL:          capture.FileURL,
		StorageKey:       capture.StorageKey,
		ThumbnailKey:     capture.ThumbnailKey,
		LocalFilePath:    capture.LocalFilePath,
		FileName:         capture.FileName,
		FileSize:         capture.FileSize,
		MimeType:         capture.MimeType,
		Duration:         capture.Duration,
		SensorData:       capture.SensorData.Data(),
		AIAnalysis:       capture.Analysis(),
		WBSID:            capture.WBSID,
		StructurePart:    capture.StructurePart,
		ProcessingStatus: capture.ProcessingStatus,
		IsShared:         capture.IsShared,
		SharedVia:        capture.SharedVia.Data(),
		AnnotationCount:  len(capture.Annotations),
		CreatedAt:        formatTime(capture.CreatedAt),
		UpdatedAt:        formatTime(capture.UpdatedAt),
	}

	if capture.Site != nil {
		dto.SiteName = capture.Site.Name
	}

	if len(capture.Annotations) > 0 {
		dto.Annotations = make([]domain.AnnotationDTO, len(capture.Annotations))
		for i := range capture.Annotations {
			dto.Annotations[i] = ToAnnotationDTO(&capture.Annotations[i])
		}
	}

	return dto
}

func ToReportDTO(report *domain.Report) domain.ReportDTO {
	ids := []uuid.UUID(report.CaptureIDs)
	if ids == nil {
		ids = []uuid.UUID{}
	}
	dto := domain.ReportDTO{
		ID:         report.ID,
		SiteID:     report.SiteID,
		CreatedBy:  report.CreatedByID,
		ReportType: report.ReportType,
		Title:      report.Title,
		Summary:    report.Summary,
		CaptureIDs: ids,
		ReportData: report.ReportData.Data(),
		PDFURL:     report.PDFURL,
		Status:     report.Status,
		CreatedAt:  formatTime(report.CreatedAt),
		UpdatedAt:  formatTime(report.UpdatedAt),
	}
	if report.Site != nil {
		dto.SiteName = report.Site.Name
	}
	return dto
}
