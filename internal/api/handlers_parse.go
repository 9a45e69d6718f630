package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/importer"
	"github.com/dgallion1/mdschema/internal/parser"
	"github.com/dgallion1/mdschema/internal/serialize"
)

type parseRequest struct {
	Markdown string         `json:"markdown"`
	Config   *parser.Config `json:"config,omitempty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.parser.Parse(req.Markdown, nil, s.parseConfig(req.Config)))
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	before := s.parser.CacheStats().Entries
	s.parser.ClearCache()
	s.log.Info("parse cache cleared", "entries", before)
	writeJSON(w, http.StatusOK, map[string]any{"cleared": before})
}

type serializeRequest struct {
	Schema doctree.Nodes `json:"schema"`
}

func (s *Server) handleSerialize(w http.ResponseWriter, r *http.Request) {
	var req serializeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"markdown": serialize.Markdown(req.Schema)})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes+1024*1024) // extra 1MB for form overhead

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
	imp, err := importer.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext}.ForFile(filename)
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxBodyBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxBodyBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxBodyBytes), http.StatusRequestEntityTooLarge)
		return
	}

	md, err := imp.Import(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("import failed", "filename", filename, "error", err)
		jsonError(w, "import failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	res := s.parser.Parse(md, nil, s.parseConfig(nil))
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"markdown": md,
		"schema":   res.Schema,
		"links":    res.Links,
	})
}

// parseConfig applies server defaults when the request carries no config.
func (s *Server) parseConfig(cfg *parser.Config) parser.Config {
	if cfg != nil {
		return *cfg
	}
	return parser.Config{OpenLinksInNewTab: s.cfg.OpenLinksInNewTab}
}

// decodeJSON reads a size-limited JSON body into v. It writes the error
// response and returns false on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes), http.StatusRequestEntityTooLarge)
			return false
		}
		if errors.Is(err, io.EOF) {
			return true
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
