package commonModels

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type AccessLevel string

const (
	AccessPublic     AccessLevel = "publico"
	AccessDepartment AccessLevel = "departamento"
	AccessPrivate    AccessLevel = "privado"
)

func (a AccessLevel) Valid() bool {
	switch a {
	case AccessPublic, AccessDepartment, AccessPrivate:
		return true
	}
	return false
}

func ParseAccessLevel(raw string) (AccessLevel, error) {
	level := AccessLevel(strings.ToLower(strings.TrimSpace(raw)))
	if !level.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccessLevel, raw)
	}
	return level, nil
}

// MetadataSidecar is the persisted JSON record kept next to every stored blob.
type MetadataSidecar struct {
	AccessLevel     AccessLevel `json:"access_level"`
	OwnerDepartment string      `json:"owner_department"`
	ContentHash     string      `json:"content_hash"`
	UploadTimestamp *time.Time  `json:"upload_timestamp,omitempty"`
}

// DefaultSidecar is used when a blob has no readable metadata.
func DefaultSidecar(department string) MetadataSidecar {
	return MetadataSidecar{AccessLevel: AccessPublic, OwnerDepartment: department}
}

// WithDefaults fills absent fields from DefaultSidecar. A present but unknown
// access level is kept as is and stays invisible.
func (m MetadataSidecar) WithDefaults(department string) MetadataSidecar {
	if m.AccessLevel == "" {
		m.AccessLevel = AccessPublic
	}
	if m.OwnerDepartment == "" {
		m.OwnerDepartment = department
	}
	return m
}

type Document struct {
	Id              string      `json:"source_doc_id"`
	ContentHash     string      `json:"content_hash"`
	SizeBytes       int64       `json:"size_bytes"`
	AccessLevel     AccessLevel `json:"access_level"`
	OwnerDepartment string      `json:"owner_department"`
	UploadTimestamp time.Time   `json:"upload_timestamp"`
	ContentType     DocType     `json:"content_type"`
}

type DocChunk struct {
	Doc            Document
	ChunkId        string    `json:"chunk_id"`
	Chunk          string    `json:"content"`
	PageNum        int       `json:"page_num"`
	ChunkPageOrder int       `json:"chunk_order"`
	Embedding      []float32 `json:"-"`
}

type RetrievedChunk struct {
	ChunkId          string      `json:"chunk_id"`
	SourceDocumentId string      `json:"source_doc_id"`
	Text             string      `json:"content"`
	AccessLevel      AccessLevel `json:"access_level"`
	OwnerDepartment  string      `json:"owner_department"`
	Score            float32     `json:"score"`
}

type BlobInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// UploadFile is one file of an ingest request. Content is held in memory;
// request size is bounded by the transport.
type UploadFile struct {
	Name            string
	Content         []byte
	AccessLevel     AccessLevel
	OwnerDepartment string
}

type IngestStatus string

const (
	StatusStored               IngestStatus = "stored"
	StatusSkippedDuplicate     IngestStatus = "skipped-duplicate"
	StatusStoredNotIndexed     IngestStatus = "stored-but-not-indexed"
	StatusRejectedNameConflict IngestStatus = "rejected-name-conflict"
	StatusFailed               IngestStatus = "failed"
)

type IngestOutcome struct {
	File        string       `json:"file"`
	Status      IngestStatus `json:"status"`
	DuplicateOf string       `json:"duplicate_of,omitempty"`
	Chunks      int          `json:"chunks,omitempty"`
	Message     string       `json:"message,omitempty"`
	Err         error        `json:"-"`
}

type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type DeleteResult struct {
	Deleted  bool     `json:"deleted"`
	Warnings []string `json:"warnings,omitempty"`
}

// LibraryEntry is one row of the document library listing.
type LibraryEntry struct {
	Name            string      `json:"name"`
	OwnerDepartment string      `json:"owner_department"`
	AccessLevel     AccessLevel `json:"access_level"`
	SizeBytes       int64       `json:"size_bytes"`
	SizeKB          float64     `json:"size_kb"`
	Type            DocType     `json:"type"`
	ModTime         time.Time   `json:"modified_at"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var PPTX DocType = "PPTX"
var XLSX DocType = "XLSX"
var ERR DocType = "ERROR"

func FileType(name string) DocType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return PDF
	case ".docx":
		return DOCX
	case ".txt":
		return TXT
	case ".pptx":
		return PPTX
	case ".xlsx":
		return XLSX
	}
	return ERR
}
