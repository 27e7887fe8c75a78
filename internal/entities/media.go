package entities

import "time"

type Media struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	URL          string    `json:"url"`
	MimeType     string    `json:"mimetype"`
	Size         int64     `json:"size"`
	RemoteID     string    `json:"remote_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// StoredObject is what the remote media storage reports after an upload.
type StoredObject struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
	Size     int64  `json:"size"`
}
