package domain

import "fmt"

// FileHandle identifies a single file in a GitHub repository.
// It is built per request and never persisted.
type FileHandle struct {
	// Owner is the user or organization that owns the repository.
	Owner string

	// Repo is the repository name.
	Repo string

	// Path is the file path relative to the repository root.
	// Example: "src/main/java/App.java"
	Path string

	// Ref is an optional branch, tag or commit. Empty means the default branch.
	Ref string
}

// String returns the handle in "owner/repo:path" form, with "@ref" when set.
func (h FileHandle) String() string {
	if h.Ref != "" {
		return fmt.Sprintf("%s/%s:%s@%s", h.Owner, h.Repo, h.Path, h.Ref)
	}
	return fmt.Sprintf("%s/%s:%s", h.Owner, h.Repo, h.Path)
}

// FileMetadata is the subset of the upstream contents object needed to read a blob.
type FileMetadata struct {
	// Size is the blob size in bytes.
	Size int64 `json:"size"`

	// SHA is the git blob hash used to address chunk requests.
	SHA string `json:"sha"`
}

// LineDocument is a single line of a file as stored in the per-request search index.
type LineDocument struct {
	// Number is the zero-based line number.
	Number int `json:"number"`

	// Text is the line content including its terminator.
	Text string `json:"text"`
}

// Bleve field name constants for line documents.
const (
	LineFieldNumber = "number"
	LineFieldText   = "text"
)

// Chunk is a byte range of a blob returned by one upstream call.
type Chunk struct {
	// Data holds the raw bytes of the range.
	Data []byte

	// Final is set when the upstream ignored the range and returned the rest of the blob.
	Final bool
}
