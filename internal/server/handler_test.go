package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwaylab/swinggate/internal/csrf"
	"github.com/fairwaylab/swinggate/internal/models"
	"github.com/fairwaylab/swinggate/internal/ratelimit"
	"github.com/fairwaylab/swinggate/internal/validate/validatetest"
)

func newTestRouter(t *testing.T) (http.Handler, *Storage) {
	t.Helper()
	tmp := t.TempDir()
	store, err := NewStorage(tmp, NewLocalBlobStore(tmp))
	require.NoError(t, err)
	h := NewHandler(store, csrf.NewService(false))
	global := ratelimit.New("global", 1000, time.Minute)
	upload := ratelimit.New("upload", 1000, time.Minute)
	return Routes(h, global, upload), store
}

// csrfPair fetches a token and its matching cookie from /csrf.
func csrfPair(t *testing.T, router http.Handler) (string, *http.Cookie) {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return body.Token, cookies[0]
}

func postUpload(t *testing.T, router http.Handler, req models.UploadRequest, token string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/clips", bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set(csrf.HeaderName, token)
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, r)
	return rr
}

func TestUploadClip(t *testing.T) {
	router, store := newTestRouter(t)
	token, cookie := csrfPair(t, router)

	content := validatetest.MP4(2048)
	rr := postUpload(t, router, models.UploadRequest{
		Metadata: models.UploadMetadata{
			FileName: "../swing.mp4",
			FileSize: int64(len(content)),
			MimeType: "video/mp4",
			Notes:    "  Nice tempo <script>alert(1)</script> ",
			Annotations: []map[string]any{
				{"type": "rect", "left": 10.0, "stroke": "#f00", "__proto__": "polluted"},
			},
		},
		Content: content,
	}, token, cookie)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var meta models.ClipMetadata
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&meta))
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "swing.mp4", meta.FileName, "path traversal stripped")
	assert.Equal(t, int64(len(content)), meta.FileSize)
	assert.Equal(t, "Nice tempo", meta.Notes, "markup stripped from notes")
	require.Len(t, meta.Annotations, 1)
	assert.Equal(t, "#FF0000", meta.Annotations[0].Stroke)

	stored, ok := store.GetClip(meta.ID)
	require.True(t, ok)
	assert.Equal(t, meta.ID, stored.ID)
}

func TestUploadRequiresCSRF(t *testing.T) {
	router, _ := newTestRouter(t)

	content := validatetest.MP4(16)
	rr := postUpload(t, router, models.UploadRequest{
		Metadata: models.UploadMetadata{FileName: "a.mp4", MimeType: "video/mp4"},
		Content:  content,
	}, "", nil)

	require.Equal(t, http.StatusForbidden, rr.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "CSRF Validation Failed", body["error"])
	assert.Equal(t, "Invalid or missing CSRF token", body["message"])
}

func TestUploadSchemaViolations(t *testing.T) {
	router, _ := newTestRouter(t)
	token, cookie := csrfPair(t, router)

	rr := postUpload(t, router, models.UploadRequest{
		Metadata: models.UploadMetadata{FileSize: 99},
	}, token, cookie)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "Validation failed", body.Error)
	assert.Contains(t, body.Fields, "metadata.file_name")
	assert.Contains(t, body.Fields, "metadata.mime_type")
	assert.Contains(t, body.Fields, "content")
	assert.Contains(t, body.Fields, "metadata.file_size")
}

func TestUploadTypeMismatch(t *testing.T) {
	router, _ := newTestRouter(t)
	token, cookie := csrfPair(t, router)

	// Declared mp4, bytes are OGG.
	rr := postUpload(t, router, models.UploadRequest{
		Metadata: models.UploadMetadata{FileName: "a.mp4", MimeType: "video/mp4"},
		Content:  validatetest.Ogg(),
	}, token, cookie)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "FILE_TYPE_MISMATCH")
}

func TestUploadDisallowedType(t *testing.T) {
	router, _ := newTestRouter(t)
	token, cookie := csrfPair(t, router)

	rr := postUpload(t, router, models.UploadRequest{
		Metadata: models.UploadMetadata{FileName: "a.flv", MimeType: "video/x-flv"},
		Content:  []byte("FLV....."),
	}, token, cookie)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "FILE_TYPE_INVALID")
}

func TestClipLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	token, cookie := csrfPair(t, router)

	content := validatetest.MP4(128)
	rr := postUpload(t, router, models.UploadRequest{
		Metadata: models.UploadMetadata{FileName: "swing.mp4", MimeType: "video/mp4"},
		Content:  content,
	}, token, cookie)
	require.Equal(t, http.StatusCreated, rr.Code)
	var meta models.ClipMetadata
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&meta))

	// List
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clips", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var clips []models.ClipMetadata
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&clips))
	require.Len(t, clips, 1)

	// Download
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clips/"+meta.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var dl models.DownloadResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&dl))
	assert.Equal(t, content, dl.Content)

	// Delete needs the token too.
	del := httptest.NewRequest(http.MethodDelete, "/clips/"+meta.ID, nil)
	del.Header.Set(csrf.HeaderName, token)
	del.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, del)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clips/"+meta.ID, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDownloadNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clips/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIndexServesTokenMetaTag(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, strings.Contains(rr.Body.String(),
		`<meta name="csrf-token" content="`+cookies[0].Value+`">`),
		"index page must distribute the cookie's token via the meta tag")
}
