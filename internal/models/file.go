package models

import "time"

type FileStatus string

const (
	FilePending  FileStatus = "pending"
	FileVerified FileStatus = "verified"
	FileRejected FileStatus = "rejected"
)

// Valid reports whether s is one of the known file statuses.
func (s FileStatus) Valid() bool {
	switch s {
	case FilePending, FileVerified, FileRejected:
		return true
	}
	return false
}

// CanTransition reports whether a file may move from s to next.
// Verified and rejected files must go back through pending.
func (s FileStatus) CanTransition(next FileStatus) bool {
	switch s {
	case FilePending:
		return next == FileVerified || next == FileRejected
	case FileVerified, FileRejected:
		return next == FilePending
	}
	return false
}

type UploadedFile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Size       int64      `json:"size"`
	UserID     string     `json:"userId"`
	Status     FileStatus `json:"status"`
	UploadedAt time.Time  `json:"uploadedAt"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	URL        string     `json:"url"`
}
