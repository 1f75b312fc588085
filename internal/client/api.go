package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"path/filepath"
	"strings"

	"github.com/fairwaylab/swinggate/internal/models"
	"github.com/fairwaylab/swinggate/internal/transport"
)

// API wraps the HTTP calls to the server. It keeps the csrf_token cookie
// in a jar and echoes the token in the X-CSRF-Token header on every
// mutating request, the same contract the browser fetch wrapper follows.
type API struct {
	BaseURL string
	HTTP    *http.Client

	token string
}

func NewAPI(baseURL string) (*API, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Jar: jar},
	}, nil
}

// Token fetches (and caches) the CSRF token; the matching cookie lands in
// the jar as a side effect.
func (a *API) Token() (string, error) {
	if a.token != "" {
		return a.token, nil
	}

	resp, err := a.HTTP.Get(a.BaseURL + "/csrf")
	if err != nil {
		return "", fmt.Errorf("failed to fetch csrf token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %s for token request", resp.Status)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	a.token = body.Token
	return a.token, nil
}

// do sends a request, attaching the CSRF header on mutating methods and
// translating rate-limit and CSRF rejections into readable errors.
func (a *API) do(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, a.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if method != http.MethodGet && method != http.MethodHead {
		token, err := a.Token()
		if err != nil {
			return nil, err
		}
		req.Header.Set(transport.CSRFHeader, token)
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		defer resp.Body.Close()
		var rl struct {
			Message    string `json:"message"`
			RetryAfter int    `json:"retryAfter"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&rl)
		return nil, fmt.Errorf("rate limited: retry in %d seconds", rl.RetryAfter)
	case http.StatusForbidden:
		defer resp.Body.Close()
		return nil, fmt.Errorf("server rejected the request: CSRF validation failed")
	}
	return resp, nil
}

// apiError decodes the server's {error, message} body into an error.
func apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Message != "" {
		return fmt.Errorf("%s (%s)", body.Message, resp.Status)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

// mimeByExt maps upload file extensions onto the server's allow-list.
var mimeByExt = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".ogg":  "video/ogg",
	".ogv":  "video/ogg",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
}

// MimeTypeFor guesses the declared MIME type from a filename.
func MimeTypeFor(name string) string {
	return mimeByExt[strings.ToLower(filepath.Ext(name))]
}

// Upload posts a clip with its annotations.
func (a *API) Upload(req models.UploadRequest) (models.ClipMetadata, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return models.ClipMetadata{}, err
	}

	resp, err := a.do(http.MethodPost, "/clips", bytes.NewReader(payload))
	if err != nil {
		return models.ClipMetadata{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return models.ClipMetadata{}, apiError(resp)
	}
	var meta models.ClipMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return models.ClipMetadata{}, err
	}
	return meta, nil
}

// List fetches all clip metadata.
func (a *API) List() ([]models.ClipMetadata, error) {
	resp, err := a.do(http.MethodGet, "/clips", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var clips []models.ClipMetadata
	if err := json.NewDecoder(resp.Body).Decode(&clips); err != nil {
		return nil, err
	}
	return clips, nil
}

// Download fetches a clip with its content.
func (a *API) Download(id string) (models.DownloadResponse, error) {
	resp, err := a.do(http.MethodGet, "/clips/"+id, nil)
	if err != nil {
		return models.DownloadResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.DownloadResponse{}, apiError(resp)
	}
	var out models.DownloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.DownloadResponse{}, err
	}
	return out, nil
}

// Delete removes a clip.
func (a *API) Delete(id string) error {
	resp, err := a.do(http.MethodDelete, "/clips/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}
