package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Revology-Analytics/revify-portal/internal/db"
	"github.com/Revology-Analytics/revify-portal/internal/http/middleware"
	"github.com/Revology-Analytics/revify-portal/internal/storage"
)

type FileHandler struct {
	files       *storage.Files
	maxFileSize int64
	logger      *logrus.Entry
}

func NewFileHandler(files *storage.Files, maxFileSize int64, logger *logrus.Logger) *FileHandler {
	return &FileHandler{
		files:       files,
		maxFileSize: maxFileSize,
		logger:      logger.WithField("component", "file_handler"),
	}
}

func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	// Leave room for the multipart envelope around the file part.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidationError, "Failed to get file")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		WriteError(w, http.StatusBadRequest, CodeValidationError, "No filename provided")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = sniff(file)
	}

	saved, err := h.files.Save(r.Context(), storage.Upload{
		Name:   filename,
		Type:   contentType,
		UserID: user.ID,
		Body:   file,
	})
	if errors.Is(err, storage.ErrTooLarge) {
		WriteError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, "File is too large")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("upload failed")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Failed to save file")
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// sniff detects the content type from the first bytes and rewinds.
func sniff(file io.ReadSeeker) string {
	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "application/octet-stream"
	}
	return http.DetectContentType(buf[:n])
}

// ListFiles returns the caller's own uploads.
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	files, err := h.files.UserFiles(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).Error("list files failed")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Failed to get files")
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// DownloadFile serves a file to its owner or an admin.
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	id := mux.Vars(r)["id"]

	record, blob, err := h.files.Open(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		WriteError(w, http.StatusNotFound, CodeNotFound, "File not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("file_id", id).Error("open file failed")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Failed to open file")
		return
	}
	defer blob.Close()

	if record.UserID != user.ID && !user.IsAdmin {
		WriteError(w, http.StatusNotFound, CodeNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", record.Type)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": record.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, "", record.UploadedAt, blob)
}
