package echoapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/destination"
	mediasvc "github.com/vistavoyage/voyage/services/media"
	"github.com/vistavoyage/voyage/tests"
)

// 1x1 transparent png
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func (env *testEnv) upload(path, token, field string, content []byte) *httptest.ResponseRecorder {
	env.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if content != nil {
		fw, err := w.CreateFormFile(field, "image.bin")
		require.NoError(env.t, err)
		_, err = fw.Write(content)
		require.NoError(env.t, err)
	}
	require.NoError(env.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func Test_mediaApi(t *testing.T) {
	env := setup(t)
	token := env.adminToken(env.createAdmin("writer", admin.RoleEditor))
	dest := testutil.CreateDestination(t, env.destRepo, "Maasai Mara", "Kenya", true)

	t.Run("standalone upload", func(t *testing.T) {
		rec := env.upload("/api/v1/admin/packages/upload-image", token, "file", pngPixel)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var up mediasvc.Upload
		decode(t, rec, &up)
		assert.Equal(t, "image/png", up.ContentType)
		assert.True(t, strings.HasSuffix(up.Filename, ".png"))
		assert.Equal(t, int64(len(pngPixel)), up.Size)

		stored, err := os.ReadFile(filepath.Join(env.conf.Media.Dir, packageFolder, up.Filename))
		require.NoError(t, err)
		assert.Equal(t, pngPixel, stored)

		// stored files are served back
		req, rec := newAuthRequest(http.MethodGet, "/media/"+packageFolder+"/"+up.Filename, "")
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("attach to destination", func(t *testing.T) {
		rec := env.upload("/api/v1/admin/destinations/"+dest.ID+"/upload-image", token, "file", pngPixel)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res UploadResponse[destination.Destination]
		decode(t, rec, &res)
		assert.Equal(t, "Image uploaded successfully", res.Message)
		assert.Equal(t, res.Upload.URL, res.Object.FeaturedImage)

		got, err := env.destRepo.GetDestinationByID(context.Background(), dest.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Upload.URL, got.FeaturedImage)
	})

	t.Run("unknown object", func(t *testing.T) {
		rec := env.upload("/api/v1/admin/destinations/unknown/upload-image", token, "file", pngPixel)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	tests := []struct {
		name     string
		field    string
		content  []byte
		wantData string
	}{
		{"missing file", "file", nil, `{"file": "file is required"}`},
		{"wrong field", "image", pngPixel, `{"file": "file is required"}`},
		{"empty file", "file", []byte{}, `{"file": "file is empty"}`},
		{"not an image", "file", []byte("%PDF-1.4 not an image"), `{"file": "only jpeg, png, webp and gif images are allowed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload("/api/v1/admin/activities/upload-image", token, tt.field, tt.content)
			checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(tt.wantData)}, rec)
		})
	}

	t.Run("too big", func(t *testing.T) {
		big := append(append([]byte{}, pngPixel...), make([]byte, env.conf.Media.MaxSize)...)
		rec := env.upload("/api/v1/admin/blogs/upload-image", token, "file", big)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"file": "file is too large"}`)}, rec)
	})
}
