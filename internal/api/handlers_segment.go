package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/tripgenie/internal/parser"
	"github.com/dgallion1/tripgenie/internal/segment"
)

// batchConcurrency bounds how many uploaded files are parsed at once.
const batchConcurrency = 4

type segmentResponse struct {
	Filename string            `json:"filename,omitempty"`
	Strategy segment.Strategy  `json:"strategy,omitempty"`
	Sections []segment.Section `json:"sections"`
	Error    string            `json:"error,omitempty"`
}

func newSegmentResponse(filename, text string) segmentResponse {
	res := segment.Parse(text)
	sections := res.Sections
	if sections == nil {
		sections = []segment.Section{}
	}
	return segmentResponse{Filename: filename, Strategy: res.Strategy, Sections: sections}
}

// handleSegment segments a JSON {"text": ...} body or a multipart "file".
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		s.handleSegmentUpload(w, r)
		return
	}

	var body struct {
		Text *string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.Text == nil {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, newSegmentResponse("", *body.Text))
}

func (s *Server) handleSegmentUpload(w http.ResponseWriter, r *http.Request) {
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

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	text, err := parser.PlanText(bytes.NewReader(data), filename, s.parserOptions())
	if err != nil {
		s.log.Warn("document parse failed", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, newSegmentResponse(filename, text))
}

// handleBatchSegment parses and segments every multipart "files" part
// concurrently. Results keep upload order; per-file failures are reported
// inline.
func (s *Server) handleBatchSegment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]segmentResponse, len(files))
	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, fh := range files {
		g.Go(func() error {
			results[i] = s.segmentFile(fh)
			return nil
		})
	}
	g.Wait()

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) segmentFile(fh *multipart.FileHeader) segmentResponse {
	filename := sanitizeFilename(fh.Filename)
	fail := func(msg string) segmentResponse {
		return segmentResponse{Filename: filename, Sections: []segment.Section{}, Error: msg}
	}

	if !parser.IsSupportedExtension(filename) {
		return fail(fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)))
	}

	f, err := fh.Open()
	if err != nil {
		return fail("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
		return fail("file too large or read error")
	}

	text, err := parser.PlanText(bytes.NewReader(data), filename, s.parserOptions())
	if err != nil {
		s.log.Warn("document parse failed", "filename", filename, "error", err)
		return fail(err.Error())
	}
	return newSegmentResponse(filename, text)
}

func (s *Server) parserOptions() parser.Options {
	return parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext}
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
