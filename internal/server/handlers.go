package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"audioconv/internal/api"
	"audioconv/internal/catalog"
	"audioconv/internal/logging"
	"audioconv/internal/services"
)

//go:embed index.html
var indexHTML []byte

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			s.writeServiceError(w, r, services.Wrap(services.ErrPayloadTooLarge, "upload", "read body",
				"limit is "+humanize.IBytes(uint64(s.cfg.MaxUploadBytes())), nil))
			return
		}
		s.writeServiceError(w, r, services.Wrap(services.ErrMissingFile, "upload", "parse form", "", err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := api.UploadRequest{
		Format:        r.FormValue("format"),
		ActivationKey: r.FormValue("activation_bytes"),
	}
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		req.Filename = header.Filename
		req.Body = file
	case errors.Is(err, http.ErrMissingFile):
		// A file input submitted with nothing chosen arrives as a plain value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			req.Body = strings.NewReader("")
		}
	default:
		s.writeServiceError(w, r, services.Wrap(services.ErrUnexpectedIO, "upload", "open part", "", err))
		return
	}

	result, err := s.svc.Publish(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UploadResponse{Success: true, DownloadURL: result.DownloadURL})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := r.PathValue("filename")
	f, info, err := s.svc.Open(r.Context(), token)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	name := info.Name()
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.status(r.Context()))
}

func (s *Server) handleConversions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.outputs == nil {
		s.writeJSON(w, http.StatusOK, api.ConversionListResponse{Items: []api.ConversionRecord{}})
		return
	}
	var statuses []catalog.Status
	for _, value := range trimmedValues(r.URL.Query()["status"]) {
		statuses = append(statuses, catalog.Status(strings.ToLower(value)))
	}
	items, err := s.outputs.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []api.ConversionRecord{}
	}
	s.writeJSON(w, http.StatusOK, api.ConversionListResponse{Items: items})
}

// writeServiceError logs err with request context and answers with the
// status and message its marker maps to.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	logger := logging.WithContext(r.Context(), s.logger)
	attrs := []logging.Attr{
		logging.String("path", r.URL.Path),
		logging.Int("status", status),
		logging.Error(err),
	}
	var toolErr *services.ExternalToolError
	if errors.As(err, &toolErr) {
		attrs = append(attrs, logging.ToolOutput(toolErr.Output))
	}
	switch {
	case status >= http.StatusInternalServerError:
		logging.ErrorWithContext(logger, "request failed", "request_failed", attrs...)
	default:
		logger.Info("request rejected", logging.Args(attrs...)...)
	}
	s.writeError(w, status, services.Message(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
