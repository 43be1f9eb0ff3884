package api

import "time"

// --- Box ---

// Box is a named, shareable collection of files.
type Box struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Files     []File    `json:"files"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// File is a single uploaded file inside a box. Files are immutable once
// received.
type File struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// --- Inputs ---

// CreateBoxInput is the payload for POST /boxes.
type CreateBoxInput struct {
	Title string `json:"title"`
}

// UploadInput describes a local file to send to a box.
type UploadInput struct {
	LocalPath string
	MimeType  string
	FileName  string
}
