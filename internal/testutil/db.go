package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/database"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database migrated with every domain model
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateOrganization creates an organization with an "Organization Admin" role and
// an admin user holding that role
func CreateOrganization(t *testing.T, db *gorm.DB, name string) (*domain.Organization, *domain.User) {
	t.Helper()

	org := &domain.Organization{
		Name:             name,
		ContactEmail:     fmt.Sprintf("contact-%s@example.com", uuid.NewString()[:8]),
		SubscriptionType: domain.SubscriptionBasic,
		MaxUsers:         10,
		MaxProjects:      5,
		State:            domain.StateActive,
	}
	require.NoError(t, db.Create(org).Error)

	role := CreateRole(t, db, org.ID, "Organization Admin", domain.FullPermissions(), domain.FullScope())
	admin := CreateOrgUser(t, db, org, role, "admin")
	return org, admin
}

// CreateRole creates a role in an organization
func CreateRole(t *testing.T, db *gorm.DB, orgID uuid.UUID, name string, perms domain.Permissions, scope domain.RoleScope) *domain.Role {
	t.Helper()
	role := &domain.Role{
		Name:           name,
		OrganizationID: orgID,
		Permissions:    datatypes.NewJSONType(perms),
		Scope:          datatypes.NewJSONType(scope),
	}
	require.NoError(t, db.Create(role).Error)
	return role
}

// CreateOrgUser creates an active organization member with the given role
func CreateOrgUser(t *testing.T, db *gorm.DB, org *domain.Organization, role *domain.Role, prefix string) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:          fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8]),
		PasswordHash:   hash(t),
		FirstName:      "Test",
		LastName:       "User",
		UserType:       domain.UserTypeOrganization,
		OrganizationID: &org.ID,
		RoleID:         &role.ID,
		State:          domain.StateActive,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(user).Error)
	user.Organization = org
	user.Role = role
	return user
}

// CreateIndividual creates an active individual user
func CreateIndividual(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:        fmt.Sprintf("solo-%s@example.com", uuid.NewString()[:8]),
		PasswordHash: hash(t),
		FirstName:    "Solo",
		LastName:     "Builder",
		UserType:     domain.UserTypeIndividual,
		State:        domain.StateActive,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(user).Error)
	return user
}

// CreateProject creates an active project owned by the user (and its organization, if any)
func CreateProject(t *testing.T, db *gorm.DB, owner *domain.User, name string) *domain.Project {
	t.Helper()
	project := &domain.Project{
		Name:           name,
		OrganizationID: owner.OrganizationID,
		CreatedByID:    owner.ID,
		StartDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:         domain.ProjectStatusPlanning,
		WBSData:        datatypes.NewJSONType(domain.WBSMap{}),
		State:          domain.StateActive,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(project).Error)
	return project
}

// CreateSite creates an active site in a project
func CreateSite(t *testing.T, db *gorm.DB, project *domain.Project, name string, op domain.OperationType) *domain.Site {
	t.Helper()
	lat, lng := 40.7128, -74.0060
	site := &domain.Site{
		Name:          name,
		ProjectID:     project.ID,
		OperationType: op,
		Latitude:      &lat,
		Longitude:     &lng,
		WBSMapping:    datatypes.NewJSONType(domain.WBSMap{}),
		State:         domain.StateActive,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(site).Error)
	site.Project = project
	return site
}

// CreateCapture creates a pending image capture uploaded by the user
func CreateCapture(t *testing.T, db *gorm.DB, site *domain.Site, user *domain.User) *domain.Capture {
	t.Helper()
	capture := &domain.Capture{
		SiteID:           site.ID,
		UserID:           user.ID,
		MediaType:        domain.MediaImage,
		StorageKey:       "test/" + uuid.NewString() + ".jpg",
		FileName:         "photo.jpg",
		FileSize:         1024,
		MimeType:         "image/jpeg",
		SensorData:       datatypes.NewJSONType(domain.SensorData{}),
		AIAnalysis:       datatypes.NewJSONType[*domain.AIAnalysis](nil),
		ProcessingStatus: domain.ProcessingPending,
		SharedVia:        datatypes.NewJSONType(domain.SharedVia{}),
	}
	require.NoError(t, db.Omit(clause.Associations).Create(capture).Error)
	return capture
}

// UserContext loads the user's relations the same way the auth middleware does
func UserContext(t *testing.T, db *gorm.DB, user *domain.User) *auth.UserContext {
	t.Helper()
	var loaded domain.User
	require.NoError(t, db.Preload("Organization").Preload("Role").First(&loaded, "id = ?", user.ID).Error)
	return auth.NewUserContext(&loaded)
}

// cost 4 keeps fixture creation fast
func hash(t *testing.T) string {
	h, err := auth.HashPassword("secret1", 4)
	require.NoError(t, err)
	return h
}
