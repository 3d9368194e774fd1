package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// CallRecord describes a stored call in a transport-friendly format.
type CallRecord struct {
	ID              string   `json:"id"`
	Filename        string   `json:"filename"`
	UploadTimestamp string   `json:"uploadTimestamp"`
	Transcript      *string  `json:"transcript"`
	Summary         string   `json:"summary,omitempty"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	ErrorDetail     string   `json:"errorDetail,omitempty"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
}

// CallListResponse wraps a collection of call records for API responses.
type CallListResponse struct {
	Calls []CallRecord `json:"calls"`
	Total int          `json:"total"`
}

// CallResponse wraps a single call record.
type CallResponse struct {
	Call CallRecord `json:"call"`
}

// UploadResponse acknowledges an accepted upload.
type UploadResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// TagRequest carries a tag to attach to a record.
type TagRequest struct {
	Tag string `json:"tag"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StorePath    string             `json:"storePath"`
	LockFilePath string             `json:"lockFilePath"`
	Counts       map[string]int     `json:"counts"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	ID    string `json:"id,omitempty"`
}
