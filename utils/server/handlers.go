package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kris-hansen/docsquad/utils/fileutil"
	"github.com/kris-hansen/docsquad/utils/pipeline"
)

// maxMultipartMemory is how much of an upload is held in memory before
// spilling to temporary files
const maxMultipartMemory = 32 << 20

// RunRequest is the body of POST /document/run
type RunRequest struct {
	UserPrompt  string `json:"user_prompt"`
	UserContext string `json:"user_context,omitempty"`
}

// RunResponse is returned by both run endpoints on success
type RunResponse struct {
	Document     string `json:"document"`
	OutputPath   string `json:"output_path"`
	Confirmation string `json:"confirmation"`
	RunID        string `json:"run_id"`
	FileURI      string `json:"file_uri,omitempty"`
	FileChecksum string `json:"file_checksum,omitempty"` // xxhash64 of the source bytes
}

// ErrorResponse carries a human readable failure
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the docsquad API. POST /document/run with a prompt naming a file, or POST /document/upload with a multipart file.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.runner == nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "service": "docsquad"})
}

// handleRun extracts a file path from a free-text prompt and runs the pipeline on it
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	rawPath, ok := fileutil.ExtractPathFromPrompt(req.UserPrompt)
	if !ok {
		writeError(w, http.StatusBadRequest, "No valid file path found in user_prompt. Include a path such as 'videos/demo.mp4'.")
		return
	}
	path, err := fileutil.ExpandPath(rawPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid file path %q: %v", rawPath, err))
		return
	}

	if s.runner == nil {
		writeError(w, http.StatusInternalServerError, "Orchestrator is not initialized. Check the server configuration.")
		return
	}

	s.logger.Info().Str("file", path).Msg("run requested")
	out, err := s.execute(r.Context(), pipeline.Request{FilePath: path, UserContext: req.UserContext}, nil)
	s.respond(w, out, err)
}

// handleUpload stores a multipart file in the runtime scratch directory for
// the duration of one run
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusInternalServerError, "Orchestrator is not initialized. Check the server configuration.")
		return
	}

	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing form field 'file'")
		return
	}
	defer file.Close()

	scratchDir, path, err := s.stage(file, header)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to store upload")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store upload: %v", err))
		return
	}
	cleanup := func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			s.logger.Warn().Err(err).Str("dir", scratchDir).Msg("failed to remove scratch directory")
		}
	}

	s.logger.Info().Str("file", header.Filename).Int64("size", header.Size).Msg("upload run requested")
	out, err := s.execute(r.Context(), pipeline.Request{FilePath: path, UserContext: r.FormValue("user_context")}, cleanup)
	s.respond(w, out, err)
}

// stage copies an upload into its own uuid-named scratch directory, keeping
// the original base name so the output document is named after it
func (s *Server) stage(src io.Reader, header *multipart.FileHeader) (dir, path string, err error) {
	dir = filepath.Join(s.config.RuntimeDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", err
	}

	path = filepath.Join(dir, uploadName(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		os.RemoveAll(dir)
		return "", "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.RemoveAll(dir)
		return "", "", err
	}
	if err := dst.Close(); err != nil {
		os.RemoveAll(dir)
		return "", "", err
	}
	return dir, path, nil
}

// uploadName reduces a client supplied file name to a safe base name
func uploadName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." || strings.TrimSpace(base) == "" {
		return "upload"
	}
	return base
}

func (s *Server) respond(w http.ResponseWriter, out *pipeline.Outcome, err error) {
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(pipeline.KindOf(err))).Msg("pipeline run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{
		Document:     out.Document,
		OutputPath:   out.OutputPath,
		Confirmation: out.Confirmation,
		RunID:        out.RunID,
		FileURI:      out.FileReference.URI,
		FileChecksum: out.FileReference.Checksum,
	})
}
