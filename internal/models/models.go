package models

import "time"

// Annotation is a single drawing overlaid on a clip frame. Fields mirror
// what the canvas editor produces; anything outside this set is dropped by
// sanitize.Annotation before a clip is stored.
type Annotation struct {
	Type        string  `json:"type"`
	Left        float64 `json:"left,omitempty"`
	Top         float64 `json:"top,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	X1          float64 `json:"x1,omitempty"`
	Y1          float64 `json:"y1,omitempty"`
	X2          float64 `json:"x2,omitempty"`
	Y2          float64 `json:"y2,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	Angle       float64 `json:"angle,omitempty"`
	ScaleX      float64 `json:"scaleX,omitempty"`
	ScaleY      float64 `json:"scaleY,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	Text        string  `json:"text,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
}

// ClipMetadata describes an accepted swing clip.
type ClipMetadata struct {
	ID          string       `json:"id"`
	FileName    string       `json:"file_name"`
	FileSize    int64        `json:"file_size"`
	MimeType    string       `json:"mime_type"`
	Notes       string       `json:"notes,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// UploadMetadata is the client-supplied half of an upload request.
// Annotations arrive as loose maps so the server can project them onto the
// allow-listed Annotation fields instead of trusting the client's shape.
type UploadMetadata struct {
	FileName    string           `json:"file_name"`
	FileSize    int64            `json:"file_size"`
	MimeType    string           `json:"mime_type"`
	Notes       string           `json:"notes,omitempty"`
	Annotations []map[string]any `json:"annotations,omitempty"`
}

// UploadRequest is the payload for uploading a clip. Content is
// base64-encoded on the wire by encoding/json.
type UploadRequest struct {
	Metadata UploadMetadata `json:"metadata"`
	Content  []byte         `json:"content"`
}

// DownloadResponse returns a stored clip with its content.
type DownloadResponse struct {
	Metadata ClipMetadata `json:"metadata"`
	Content  []byte       `json:"content"`
}
