package handler_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/config"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/http/handler"
	"github.com/yugmi/sense-api/internal/media"
	"github.com/yugmi/sense-api/internal/notification"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/service"
	"github.com/yugmi/sense-api/internal/storage"
	"github.com/yugmi/sense-api/internal/testutil"
	"github.com/yugmi/sense-api/internal/vision"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type captureFixture struct {
	db    *gorm.DB
	h     *handler.CaptureHandler
	store *storage.LocalStorage
	user  *domain.User
	site  *domain.Site
}

func setupCaptureHandler(t *testing.T) *captureFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := zap.NewNop()

	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080", storage.NewURLSigner("signing-secret"))
	require.NoError(t, err)

	storageCfg := &config.StorageConfig{
		Namespace:       "sense-test",
		MaxUploadSizeMB: 1,
		SignedURLTTL:    3600,
		ShareURLTTL:     86400,
	}
	notifier := notification.NewLogNotifier(logger)
	captureRepo := repository.NewCaptureRepository(db)

	captureService := service.NewCaptureService(
		captureRepo,
		repository.NewSiteRepository(db),
		repository.NewAnnotationRepository(db),
		store,
		media.NewThumbnailer(),
		notifier,
		notifier,
		storageCfg,
		logger,
	)
	analysisService := service.NewAnalysisService(captureRepo, store, vision.Disabled{}, &config.VisionConfig{Provider: "none"}, logger)

	user := testutil.CreateIndividual(t, db)
	project := testutil.CreateProject(t, db, user, "Riverside Tower")

	return &captureFixture{
		db:    db,
		h:     handler.NewCaptureHandler(captureService, analysisService, storageCfg.MaxUploadBytes(), logger),
		store: store,
		user:  user,
		site:  testutil.CreateSite(t, db, project, "Level 2", domain.OperationProgressMonitoring),
	}
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// multipartUpload builds a capture upload; a nil file omits the file part
func multipartUpload(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile("file", "IMG_0042.jpg")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/captures", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCaptureHandler_Create(t *testing.T) {
	f := setupCaptureHandler(t)

	t.Run("image upload", func(t *testing.T) {
		req := asUser(t, f.db, multipartUpload(t, map[string]string{
			"siteId":     f.site.ID.String(),
			"sensorData": `{"latitude": 51.5, "longitude": -0.12, "compass": 90}`,
			"wbsId":      "WBS-2.1",
		}, sampleJPEG(t)), f.user)

		rr := serve(f.h.Create, req)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var dto domain.CaptureDTO
		env := decodeData(t, rr, &dto)
		assert.True(t, env.Success)
		assert.Equal(t, domain.MediaImage, dto.MediaType)
		assert.Equal(t, "image/jpeg", dto.MimeType)
		assert.Equal(t, domain.ProcessingPending, dto.ProcessingStatus)
		assert.Equal(t, "WBS-2.1", dto.WBSID)
		assert.NotEmpty(t, dto.StorageKey)
	})

	t.Run("missing file", func(t *testing.T) {
		req := asUser(t, f.db, multipartUpload(t, map[string]string{
			"siteId": f.site.ID.String(),
		}, nil), f.user)

		rr := serve(f.h.Create, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Media file is required", decodeEnvelope(t, rr).Message)
	})

	t.Run("missing sensor data", func(t *testing.T) {
		req := asUser(t, f.db, multipartUpload(t, map[string]string{
			"siteId": f.site.ID.String(),
		}, sampleJPEG(t)), f.user)

		rr := serve(f.h.Create, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		assert.Equal(t, "sensor data is required", decodeEnvelope(t, rr).Message)
	})

	t.Run("invalid site id", func(t *testing.T) {
		req := asUser(t, f.db, multipartUpload(t, map[string]string{
			"siteId": "level-2",
		}, sampleJPEG(t)), f.user)

		rr := serve(f.h.Create, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := decodeEnvelope(t, rr)
		require.Len(t, env.Errors, 1)
		assert.Equal(t, "siteId", env.Errors[0].Field)
	})

	t.Run("unknown site", func(t *testing.T) {
		req := asUser(t, f.db, multipartUpload(t, map[string]string{
			"siteId": uuid.NewString(),
		}, sampleJPEG(t)), f.user)

		rr := serve(f.h.Create, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("negative duration", func(t *testing.T) {
		req := asUser(t, f.db, multipartUpload(t, map[string]string{
			"siteId":   f.site.ID.String(),
			"duration": "-3",
		}, sampleJPEG(t)), f.user)

		rr := serve(f.h.Create, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := multipartUpload(t, map[string]string{"siteId": f.site.ID.String()}, sampleJPEG(t))
		rr := serve(f.h.Create, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestCaptureHandler_ListAndGet(t *testing.T) {
	f := setupCaptureHandler(t)
	capture := testutil.CreateCapture(t, f.db, f.site, f.user)

	t.Run("list own captures", func(t *testing.T) {
		req := asUser(t, f.db, httptest.NewRequest(http.MethodGet, "/captures", nil), f.user)
		rr := serve(f.h.List, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var page struct {
			Items []domain.CaptureDTO `json:"items"`
			Total int64               `json:"total"`
		}
		decodeData(t, rr, &page)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("by project or site requires a filter", func(t *testing.T) {
		req := asUser(t, f.db, httptest.NewRequest(http.MethodGet, "/captures/by-project-or-site", nil), f.user)
		rr := serve(f.h.ListByProjectOrSite, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("by site", func(t *testing.T) {
		req := asUser(t, f.db, httptest.NewRequest(http.MethodGet, "/captures/by-project-or-site?siteId="+f.site.ID.String(), nil), f.user)
		rr := serve(f.h.ListByProjectOrSite, req)
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("get by id", func(t *testing.T) {
		req := asUser(t, f.db, httptest.NewRequest(http.MethodGet, "/captures/"+capture.ID.String(), nil), f.user)
		rr := serve(f.h.GetByID, withURLParams(req, map[string]string{"id": capture.ID.String()}))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var dto domain.CaptureDTO
		decodeData(t, rr, &dto)
		assert.Equal(t, capture.ID, dto.ID)
	})

	t.Run("unknown capture", func(t *testing.T) {
		id := uuid.NewString()
		req := asUser(t, f.db, httptest.NewRequest(http.MethodGet, "/captures/"+id, nil), f.user)
		rr := serve(f.h.GetByID, withURLParams(req, map[string]string{"id": id}))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCaptureHandler_AnalysisWithoutProvider(t *testing.T) {
	f := setupCaptureHandler(t)
	capture := testutil.CreateCapture(t, f.db, f.site, f.user)

	req := asUser(t, f.db, jsonRequest(t, http.MethodPost, "/captures/analysis", map[string]string{
		"captureId": capture.ID.String(),
	}), f.user)

	rr := serve(f.h.Analyze, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.False(t, decodeEnvelope(t, rr).Success)
}

func TestCaptureHandler_ShareAndAnnotate(t *testing.T) {
	f := setupCaptureHandler(t)
	capture := testutil.CreateCapture(t, f.db, f.site, f.user)
	id := capture.ID.String()

	t.Run("share by email", func(t *testing.T) {
		req := asUser(t, f.db, jsonRequest(t, http.MethodPost, "/captures/"+id+"/share", map[string]string{
			"method":    "email",
			"recipient": "inspector@example.com",
		}), f.user)

		rr := serve(f.h.Share, withURLParams(req, map[string]string{"id": id}))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "Capture shared successfully via email", decodeEnvelope(t, rr).Message)
	})

	t.Run("unsupported share method", func(t *testing.T) {
		req := asUser(t, f.db, jsonRequest(t, http.MethodPost, "/captures/"+id+"/share", map[string]string{
			"method":    "carrier-pigeon",
			"recipient": "inspector@example.com",
		}), f.user)

		rr := serve(f.h.Share, withURLParams(req, map[string]string{"id": id}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("annotate", func(t *testing.T) {
		req := asUser(t, f.db, jsonRequest(t, http.MethodPost, "/captures/"+id+"/annotations", map[string]interface{}{
			"type":        "defect-marker",
			"label":       "Spalling",
			"coordinates": []map[string]float64{{"x": 0.25, "y": 0.4}},
		}), f.user)

		rr := serve(f.h.Annotate, withURLParams(req, map[string]string{"id": id}))
		assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	})

	t.Run("annotation type validated", func(t *testing.T) {
		req := asUser(t, f.db, jsonRequest(t, http.MethodPost, "/captures/"+id+"/annotations", map[string]interface{}{
			"type": "sticker",
		}), f.user)

		rr := serve(f.h.Annotate, withURLParams(req, map[string]string{"id": id}))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := decodeEnvelope(t, rr)
		require.NotEmpty(t, env.Errors)
		assert.Equal(t, "type", env.Errors[0].Field)
	})
}
