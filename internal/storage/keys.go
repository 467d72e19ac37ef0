package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// KeyBuilder lays out capture objects under a namespace
type KeyBuilder struct {
	namespace string
}

func NewKeyBuilder(namespace string) *KeyBuilder {
	return &KeyBuilder{namespace: strings.Trim(namespace, "/")}
}

// CaptureOwner identifies where a capture belongs in the key hierarchy.
// OrganizationID nil selects the individual layout keyed by UserID.
type CaptureOwner struct {
	OrganizationID *uuid.UUID
	ProjectID      uuid.UUID
	SiteID         uuid.UUID
	UserID         uuid.UUID
}

// CaptureKey builds
// <ns>/organizations/<org>/projects/<project>/sites/<site>/<yyyy>/<mm>/<ts>_<file> or
// <ns>/individuals/<user>/<yyyy>/<mm>/<ts>_<file>
func (b *KeyBuilder) CaptureKey(owner CaptureOwner, fileName string, at time.Time) string {
	at = at.UTC()
	name := fmt.Sprintf("%d_%s", at.UnixMilli(), SanitizeFileName(fileName))
	year := fmt.Sprintf("%04d", at.Year())
	month := fmt.Sprintf("%02d", int(at.Month()))

	if owner.OrganizationID != nil {
		return path.Join(b.namespace,
			"organizations", owner.OrganizationID.String(),
			"projects", owner.ProjectID.String(),
			"sites", owner.SiteID.String(),
			year, month, name)
	}
	return path.Join(b.namespace, "individuals", owner.UserID.String(), year, month, name)
}

// ThumbnailKey derives the thumbnail key: the original key without extension plus _thumb.jpg
func ThumbnailKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + "_thumb.jpg"
}

// SanitizeFileName keeps the base name and replaces characters unsafe in object keys
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
