package filelist

import (
	"fmt"
	"strings"

	"github.com/Revology-Analytics/revify-portal/internal/models"
)

// Filter returns the files whose name or uploader id contains term,
// ignoring case. A blank term returns files unchanged.
func Filter(files []models.UploadedFile, term string) []models.UploadedFile {
	if strings.TrimSpace(term) == "" {
		return files
	}

	needle := strings.ToLower(term)
	out := make([]models.UploadedFile, 0, len(files))
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.Name), needle) ||
			strings.Contains(strings.ToLower(f.UserID), needle) {
			out = append(out, f)
		}
	}
	return out
}

type TypeCategory string

const (
	CategoryImage    TypeCategory = "image"
	CategoryPDF      TypeCategory = "pdf"
	CategoryDocument TypeCategory = "document"
	CategoryOther    TypeCategory = "other"
)

// ClassifyType buckets a MIME type for display. Matching is by prefix or
// substring, so vendor types like application/msword land in document.
func ClassifyType(mime string) TypeCategory {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return CategoryImage
	case strings.Contains(mime, "pdf"):
		return CategoryPDF
	case strings.Contains(mime, "word"), strings.Contains(mime, "doc"):
		return CategoryDocument
	default:
		return CategoryOther
	}
}

// TypeLabel is the upper-cased subtype, e.g. "PDF" for application/pdf.
func TypeLabel(mime string) string {
	if i := strings.LastIndex(mime, "/"); i >= 0 {
		mime = mime[i+1:]
	}
	return strings.ToUpper(mime)
}

const (
	kib = 1024
	mib = 1024 * 1024
)

func FormatSize(bytes int64) string {
	switch {
	case bytes < kib:
		return fmt.Sprintf("%d B", bytes)
	case bytes < mib:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kib)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mib)
	}
}

type Badge struct {
	Label   string `json:"label"`
	Variant string `json:"variant"`
}

// StatusBadge renders a status. Anything unrecognized shows as pending.
func StatusBadge(status models.FileStatus) Badge {
	switch status {
	case models.FileVerified:
		return Badge{Label: "Verified", Variant: "success"}
	case models.FileRejected:
		return Badge{Label: "Rejected", Variant: "destructive"}
	default:
		return Badge{Label: "Pending", Variant: "outline"}
	}
}

// Actions lists the statuses a file can be moved to from status.
func Actions(status models.FileStatus) []models.FileStatus {
	switch status {
	case models.FilePending:
		return []models.FileStatus{models.FileVerified, models.FileRejected}
	case models.FileVerified, models.FileRejected:
		return []models.FileStatus{models.FilePending}
	}
	return nil
}

// Row is a file with its display fields resolved.
type Row struct {
	models.UploadedFile
	SizeLabel    string              `json:"sizeLabel"`
	TypeLabel    string              `json:"typeLabel"`
	TypeCategory TypeCategory        `json:"typeCategory"`
	Badge        Badge               `json:"badge"`
	Actions      []models.FileStatus `json:"actions"`
}

func NewRow(f models.UploadedFile) Row {
	return Row{
		UploadedFile: f,
		SizeLabel:    FormatSize(f.Size),
		TypeLabel:    TypeLabel(f.Type),
		TypeCategory: ClassifyType(f.Type),
		Badge:        StatusBadge(f.Status),
		Actions:      Actions(f.Status),
	}
}

func Rows(files []models.UploadedFile) []Row {
	rows := make([]Row, 0, len(files))
	for _, f := range files {
		rows = append(rows, NewRow(f))
	}
	return rows
}
