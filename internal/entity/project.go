package entity

import (
	"time"

	"github.com/google/uuid"
)

// Project groups the drawings, elements and analyses of one building.
type Project struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectFile is one uploaded drawing and its processing state.
type ProjectFile struct {
	ID           uuid.UUID      `json:"id"`
	ProjectID    uuid.UUID      `json:"projectId"`
	SourcePath   string         `json:"sourcePath"`
	Filename     string         `json:"filename"`
	FileExt      string         `json:"fileExt"`
	Format       string         `json:"format"`
	FileSize     int            `json:"fileSize"`
	ContentHash  []byte         `json:"-"`
	Status       string         `json:"status"`
	ErrorMessage *string        `json:"errorMessage,omitempty"`
	Extracted    *ExtractedData `json:"extractedData,omitempty"`
	UploadedAt   time.Time      `json:"uploadedAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
