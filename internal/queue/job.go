package queue

import "time"

// UploadJob is the unit of work placed on the ingestion queue, one per
// uploaded file. It is immutable after creation.
type UploadJob struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}
