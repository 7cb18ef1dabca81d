package server

import (
	"fmt"
	"net/http"
	"path"

	"github.com/google/uuid"

	"askwell/pkg/domain"
)

var photoContentTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
}

var audioContentTypes = map[string]struct{}{
	"audio/mpeg": {},
	"audio/mp4":  {},
	"audio/aac":  {},
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request, user domain.User) {
	s.handleUpload(w, r, user, "photos", photoContentTypes)
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request, user domain.User) {
	s.handleUpload(w, r, user, "audio", audioContentTypes)
}

// handleUpload stores a multipart file in object storage and returns a
// pre-signed URL for it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, user domain.User, prefix string, allowed map[string]struct{}) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	contentType := header.Header.Get("Content-Type")
	if _, ok := allowed[contentType]; !ok {
		writeError(w, http.StatusBadRequest, "unsupported file type")
		return
	}
	key := fmt.Sprintf("%s/%s/%s%s", prefix, user.ID, uuid.NewString(), path.Ext(header.Filename))
	ctx := r.Context()
	if err := s.uploads.Put(ctx, key, file, header.Size, contentType); err != nil {
		writeAppError(w, fmt.Errorf("store upload: %w", err))
		return
	}
	url, err := s.uploads.PresignGet(ctx, key, s.presignExpiry)
	if err != nil {
		writeAppError(w, fmt.Errorf("presign upload: %w", err))
		return
	}
	s.audit(r, "upload", "success", "user_id", user.ID, "key", key)
	writeJSON(w, http.StatusCreated, domain.Attachment{
		URL:         url,
		ContentType: contentType,
	})
}
