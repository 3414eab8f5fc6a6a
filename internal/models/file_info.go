package models

import "time"

// FileInfo describes the upload a dashboard session was built from.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`       // decoded CSV bytes
	Compressed bool      `json:"compressed"` // arrived gzipped
	UploadedAt time.Time `json:"uploadedAt"`
}
