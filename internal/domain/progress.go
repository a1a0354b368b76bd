package domain

// CompletedFile records one successfully processed file in a batch.
type CompletedFile struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
}

// FailedFile records one failed file in a batch, with the reason surfaced to
// the user.
type FailedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// UploadProgress is the ephemeral per-batch accounting object. It is created
// fresh when a batch starts, mutated in place as files resolve, and discarded
// once the batch settles. It is never persisted.
type UploadProgress struct {
	Total          int             `json:"total"`
	Completed      int             `json:"completed"`
	CurrentFile    string          `json:"current_file,omitempty"`
	CompletedFiles []CompletedFile `json:"completed_files"`
	FailedFiles    []FailedFile    `json:"failed_files"`
}

// NewUploadProgress initializes progress for a batch of total files.
func NewUploadProgress(total int) UploadProgress {
	return UploadProgress{
		Total:          total,
		CompletedFiles: []CompletedFile{},
		FailedFiles:    []FailedFile{},
	}
}

// Clone returns an independent copy, so progress callbacks can hand the
// snapshot to another goroutine without racing the loop that mutates it.
func (p UploadProgress) Clone() UploadProgress {
	out := p
	out.CompletedFiles = append([]CompletedFile(nil), p.CompletedFiles...)
	out.FailedFiles = append([]FailedFile(nil), p.FailedFiles...)
	return out
}
