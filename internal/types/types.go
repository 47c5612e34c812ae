package types

import "time"

// RepoFile is one entry of a repository listing as returned by the backend
type RepoFile struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	Size int64  `json:"size"`
	Mode string `json:"mode,omitempty"`
	SHA  string `json:"sha,omitempty"`
}

// Repository entry types
const (
	RepoFileBlob = "blob"
	RepoFileTree = "tree"
)

// RepositoryFiles is the flat listing of a repository snapshot
type RepositoryFiles struct {
	Files []RepoFile `json:"files"`
}

// SaveFilesRequest asks the backend to ingest the selected files
type SaveFilesRequest struct {
	Repository string   `json:"repository"`
	FilePaths  []string `json:"filePaths"`
	Branch     string   `json:"branch"`
}

// SaveFilesResponse carries the task created for a save-files request
type SaveFilesResponse struct {
	TaskID string `json:"taskId"`
}

// SaveTaskStatus reports the progress of a save-files task
type SaveTaskStatus struct {
	Completed      bool     `json:"completed"`
	Progress       float64  `json:"progress"`
	TotalFiles     int      `json:"totalFiles"`
	CompletedFiles int      `json:"completedFiles"`
	SavedFiles     []string `json:"savedFiles"`
	FailedFiles    []string `json:"failedFiles"`
	Error          string   `json:"error,omitempty"`
	SavedPath      string   `json:"savedPath,omitempty"`
}

// Generation job statuses
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// CustomResumeRequest is the payload collected by the resume wizard
type CustomResumeRequest struct {
	JobDescriptionURL  string   `json:"jobDescriptionUrl,omitempty"`
	JobDescriptionText string   `json:"jobDescriptionText,omitempty"`
	ManualEntry        bool     `json:"manualEntry"`
	CultureInfo        string   `json:"cultureInfo,omitempty"`
	PortfolioIDs       []string `json:"portfolioIds,omitempty"`
	CareerIDs          []string `json:"careerIds,omitempty"`
}

// GenerationProgress describes where a running generation job is
type GenerationProgress struct {
	CurrentStep string `json:"current_step"`
	Message     string `json:"message"`
}

// CustomResumeStatus is returned while polling a resume generation job
type CustomResumeStatus struct {
	Status   string             `json:"status"`
	Progress GenerationProgress `json:"progress"`
	Result   *Resume            `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Section is one ordered block of a resume
type Section struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// Resume is a stored resume document
type Resume struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Sections  []Section `json:"sections"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Portfolio is a stored portfolio document
type Portfolio struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Projects    []Project `json:"projects,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// Project is a portfolio entry, often backed by an ingested repository
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Repository  string   `json:"repository,omitempty"`
	Skills      []string `json:"skills,omitempty"`
}

// JobDescription is a stored job posting record
type JobDescription struct {
	ID               string    `json:"id,omitempty"`
	Title            string    `json:"title"`
	Company          string    `json:"company"`
	Location         string    `json:"location,omitempty"`
	URL              string    `json:"url,omitempty"`
	Description      string    `json:"description"`
	Responsibilities []string  `json:"responsibilities,omitempty"`
	Requirements     []string  `json:"requirements,omitempty"`
	Skills           []string  `json:"skills,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitzero"`
}

// ExtractJobInput is the raw posting handed to the AI extractor
type ExtractJobInput struct {
	Posting string `json:"posting"`
}

// Listing entry states
const (
	MarkSelected = "selected"
	MarkPartial  = "partial"
	MarkNone     = "none"
)

// ListingEntry is one row of a printed repository tree
type ListingEntry struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Depth     int    `json:"depth"`
	Directory bool   `json:"directory"`
	Mark      string `json:"mark"`
	Size      int64  `json:"size,omitempty"`
}

// FileListing is the printable view of a repository tree and its selection
type FileListing struct {
	Repository    string         `json:"repository"`
	Branch        string         `json:"branch,omitempty"`
	Entries       []ListingEntry `json:"entries"`
	SelectedFiles int            `json:"selectedFiles"`
	SelectedSize  int64          `json:"selectedSize"`
	Orphans       []string       `json:"orphans,omitempty"`
}
