package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/pdfoutline/internal/doctree"
	"github.com/dgallion1/pdfoutline/internal/outline"
	"github.com/dgallion1/pdfoutline/internal/parser"
	"github.com/dgallion1/pdfoutline/internal/pipeline"
	"github.com/dgallion1/pdfoutline/internal/render"
)

// handleOutline extracts the uploaded file synchronously and returns the
// outline in the requested format.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	format, ok := s.requestFormat(w, r)
	if !ok {
		return
	}
	maxBytes := s.cfg.Get().Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename, data, status, err := readUpload(file, header, maxBytes)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	res, err := s.orchestrator.Extract(r.Context(), filename, data)
	if err != nil {
		s.log.Warn("outline failed", "file", filename, "error", err)
		writeRunError(w, err)
		return
	}
	s.writeOutline(w, res.Outline, format)
}

// readUpload validates and reads one uploaded file. On failure it returns
// the HTTP status to report.
func readUpload(file multipart.File, header *multipart.FileHeader, maxBytes int64) (string, []byte, int, error) {
	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		return filename, nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return filename, nil, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > maxBytes {
		return filename, nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", maxBytes)
	}
	return filename, data, http.StatusOK, nil
}

func (s *Server) requestFormat(w http.ResponseWriter, r *http.Request) (render.Format, bool) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return format, true
}

func (s *Server) writeOutline(w http.ResponseWriter, o doctree.Outline, format render.Format) {
	data, err := render.Render(o, format, s.cfg.Get().RenderOptions())
	if err != nil {
		s.log.Error("render failed", "format", format, "error", err)
		jsonError(w, "failed to render outline", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// statusForError maps a run error onto an HTTP status.
func statusForError(err error) int {
	var ie *outline.InputError
	if errors.As(err, &ie) {
		switch ie.Reason {
		case outline.ReasonUnreadable, outline.ReasonEncrypted:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadRequest
		}
	}
	switch pipeline.ClassifyError(err) {
	case pipeline.FailureExtraction:
		return http.StatusUnprocessableEntity
	case pipeline.FailureDeadline:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeRunError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{
		"error":   err.Error(),
		"failure": string(pipeline.ClassifyError(err)),
	})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
