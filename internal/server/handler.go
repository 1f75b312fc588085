package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fairwaylab/swinggate/internal/apperrors"
	"github.com/fairwaylab/swinggate/internal/csrf"
	"github.com/fairwaylab/swinggate/internal/models"
	"github.com/fairwaylab/swinggate/internal/sanitize"
	"github.com/fairwaylab/swinggate/internal/validate"
)

// maxUploadBody caps the JSON envelope: the content is base64-encoded, so
// allow the 4/3 inflation plus headroom for metadata.
const maxUploadBody = validate.MaxFileSize*4/3 + 1<<20

// Handler serves the clip API.
type Handler struct {
	Storage *Storage
	CSRF    *csrf.Service
}

func NewHandler(storage *Storage, csrfService *csrf.Service) *Handler {
	return &Handler{Storage: storage, CSRF: csrfService}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="csrf-token" content="{{.Token}}">
<title>SwingGate</title>
</head>
<body>
<h1>SwingGate</h1>
<p>Swing clip upload gateway. Mutating requests must echo the csrf-token meta value in the X-CSRF-Token header.</p>
</body>
</html>
`))

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// Index serves the token distribution page: browser-side code reads the
// csrf-token meta tag and attaches the header on every mutating request.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	token, err := h.CSRF.GetOrIssue(w, r)
	if err != nil {
		slog.Error("failed to issue csrf token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal Server Error",
			"message": "Something went wrong. Please try again.",
		})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTemplate.Execute(w, struct{ Token string }{Token: token})
}

// Token issues (or echoes) the CSRF token as JSON, for non-browser
// clients like the CLI.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := h.CSRF.GetOrIssue(w, r)
	if err != nil {
		slog.Error("failed to issue csrf token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal Server Error",
			"message": "Something went wrong. Please try again.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// writeAppError logs the full error with its metadata and responds with
// only the user-safe message.
func writeAppError(w http.ResponseWriter, err error) {
	ae, ok := apperrors.As(err)
	if !ok {
		slog.Error("unexpected error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal Server Error",
			"message": "Something went wrong. Please try again.",
		})
		return
	}
	slog.Warn("request rejected", "code", ae.Code, "error", ae.Message, "metadata", ae.Metadata)
	writeJSON(w, ae.Status, map[string]string{"error": ae.Code, "message": ae.UserMessage()})
}

// validateUploadRequest performs the schema gate and returns field-level
// messages for a 400 response.
func validateUploadRequest(req *models.UploadRequest) map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(req.Metadata.FileName) == "" {
		fields["metadata.file_name"] = "file name is required"
	}
	if strings.TrimSpace(req.Metadata.MimeType) == "" {
		fields["metadata.mime_type"] = "mime type is required"
	}
	if len(req.Content) == 0 {
		fields["content"] = "content is required"
	}
	if req.Metadata.FileSize != 0 && req.Metadata.FileSize != int64(len(req.Content)) {
		fields["metadata.file_size"] = "declared size does not match content length"
	}
	return fields
}

// UploadClip runs the full validation pipeline against an upload and
// stores the clip on success.
func (h *Handler) UploadClip(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	var req models.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("failed to decode upload request", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Bad Request",
			"message": "request body is not valid JSON",
		})
		return
	}

	if fields := validateUploadRequest(&req); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"message": "request body failed validation",
			"fields":  fields,
		})
		return
	}

	mimeType := strings.ToLower(strings.TrimSpace(req.Metadata.MimeType))
	info := validate.FileInfo{
		Name:     sanitize.Filename(req.Metadata.FileName),
		Size:     int64(len(req.Content)),
		MimeType: mimeType,
	}
	if err := validate.Validate(r.Context(), info, req.Content); err != nil {
		writeAppError(w, err)
		return
	}

	meta := models.ClipMetadata{
		ID:          uuid.New().String(),
		FileName:    info.Name,
		FileSize:    info.Size,
		MimeType:    mimeType,
		Notes:       sanitize.Text(req.Metadata.Notes),
		Annotations: sanitize.Annotations(req.Metadata.Annotations),
		Timestamp:   time.Now().UTC(),
	}
	if err := h.Storage.SaveClip(r.Context(), meta, req.Content); err != nil {
		slog.Error("failed to save clip", "id", meta.ID, "name", meta.FileName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal Server Error",
			"message": "Something went wrong. Please try again.",
		})
		return
	}
	slog.Info("clip uploaded", "id", meta.ID, "name", meta.FileName, "size", meta.FileSize, "type", meta.MimeType)

	writeJSON(w, http.StatusCreated, meta)
}

func (h *Handler) ListClips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Storage.ListClips())
}

func (h *Handler) DownloadClip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	meta, ok := h.Storage.GetClip(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "Not Found",
			"message": "clip not found",
		})
		return
	}

	content, err := h.Storage.GetClipContent(r.Context(), id)
	if err != nil {
		slog.Error("failed to get clip content", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal Server Error",
			"message": "Something went wrong. Please try again.",
		})
		return
	}
	slog.Info("clip downloaded", "id", id, "name", meta.FileName)

	writeJSON(w, http.StatusOK, models.DownloadResponse{Metadata: meta, Content: content})
}

func (h *Handler) DeleteClip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.Storage.GetClip(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "Not Found",
			"message": "clip not found",
		})
		return
	}
	if err := h.Storage.DeleteClip(r.Context(), id); err != nil {
		if errors.Is(err, errClipNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "clip not found",
			})
			return
		}
		slog.Error("failed to delete clip", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal Server Error",
			"message": "Something went wrong. Please try again.",
		})
		return
	}
	slog.Info("clip deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
