package staging

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

	"github.com/foliokit/media-agent/internal/pkg/response"
	"github.com/foliokit/media-agent/internal/pkg/validator"
)

const (
	// Multipart parse ceiling for staging requests. Individual file
	// size limits are enforced at upload start, not here.
	maxMultipartMemory = 32 * 1024 * 1024

	maxCustomThumbSize = 10 * 1024 * 1024
)

// Starter receives committed files for upload.
type Starter interface {
	StartAll(files []*StagedFile)
}

// Handler handles staging HTTP requests.
type Handler struct {
	queue    *Queue
	uploader Starter
	spoolDir string
}

// NewHandler creates a staging handler. Files posted as multipart
// bodies are spooled under spoolDir before being staged by path.
func NewHandler(queue *Queue, uploader Starter, spoolDir string) *Handler {
	return &Handler{queue: queue, uploader: uploader, spoolDir: spoolDir}
}

// AddFiles handles POST /staging/files. The body is either multipart
// form data carrying the files themselves, or JSON naming absolute
// paths already on disk. Files beyond the queue capacity are silently
// dropped.
func (h *Handler) AddFiles(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/") {
		h.addMultipart(w, r)
		return
	}

	var req AddPathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	added := h.queue.AddFiles(req.Paths)
	response.OK(w, toListResponse(copyFiles(added), h.queue.Generating()))
}

func (h *Handler) addMultipart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.BadRequest(w, "Invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		response.BadRequest(w, "No files in request")
		return
	}

	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		path, err := h.spool(part)
		if err != nil {
			response.InternalError(w)
			return
		}
		paths = append(paths, path)
	}

	added := h.queue.AddFiles(paths)

	// Spooled copies the queue did not accept (over capacity,
	// duplicates) would otherwise leak on disk.
	accepted := make(map[string]bool, len(added))
	for _, f := range added {
		accepted[f.Path] = true
	}
	for _, p := range paths {
		if !accepted[p] {
			os.Remove(p)
		}
	}

	response.OK(w, toListResponse(copyFiles(added), h.queue.Generating()))
}

// RemoveFile handles DELETE /staging/files.
func (h *Handler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	h.queue.Remove(req.Path)
	response.NoContent(w)
}

// List handles GET /staging.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, toListResponse(h.queue.List(), h.queue.Generating()))
}

// Clear handles DELETE /staging.
func (h *Handler) Clear(w http.ResponseWriter, _ *http.Request) {
	h.queue.ClearAll()
	response.NoContent(w)
}

// SetThumbnail handles PUT /staging/files/thumbnail. The multipart
// body carries the target path and the replacement thumbnail image.
func (h *Handler) SetThumbnail(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.BadRequest(w, "Invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	path := r.FormValue("path")
	if path == "" {
		response.BadRequest(w, "Missing path")
		return
	}

	file, header, err := r.FormFile("thumbnail")
	if err != nil {
		response.BadRequest(w, "Missing thumbnail file")
		return
	}
	defer file.Close()

	if header.Size > maxCustomThumbSize {
		response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "thumbnail too large")
		return
	}

	blob, err := io.ReadAll(file)
	if err != nil {
		response.InternalError(w)
		return
	}

	if err := h.queue.SetCustomThumbnail(path, header.Filename, blob); err != nil {
		h.writeQueueError(w, err)
		return
	}
	response.NoContent(w)
}

// ClearThumbnail handles DELETE /staging/files/thumbnail. Reverts to
// the generated thumbnail when one exists.
func (h *Handler) ClearThumbnail(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.queue.ClearCustomThumbnail(req.Path); err != nil {
		h.writeQueueError(w, err)
		return
	}
	response.NoContent(w)
}

// SetAlt handles PUT /staging/files/alt.
func (h *Handler) SetAlt(w http.ResponseWriter, r *http.Request) {
	var req SetAltRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.queue.SetAlt(req.Path, req.Alt); err != nil {
		h.writeQueueError(w, err)
		return
	}
	response.NoContent(w)
}

// Commit handles POST /staging/commit. Refused while any thumbnail is
// still generating; otherwise the whole queue drains into the upload
// pipeline and staging is left empty.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	if h.queue.Generating() {
		response.Conflict(w, "Thumbnails are still generating")
		return
	}

	files := h.queue.Commit()
	h.uploader.StartAll(files)
	response.OK(w, map[string]int{"committed": len(files)})
}

func (h *Handler) writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotStaged):
		response.NotFound(w, "File is not staged")
	case errors.Is(err, ErrGenerating):
		response.Conflict(w, "Thumbnail is still generating")
	default:
		response.InternalError(w)
	}
}

// spool copies a multipart file into the spool directory and returns
// its on-disk path, which becomes the staged file's identity.
func (h *Handler) spool(part *multipart.FileHeader) (string, error) {
	src, err := part.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.spoolDir, 0o755); err != nil {
		return "", err
	}

	path := spoolPath(h.spoolDir, part.Filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func copyFiles(files []*StagedFile) []StagedFile {
	out := make([]StagedFile, 0, len(files))
	for _, f := range files {
		out = append(out, *f)
	}
	return out
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "file"
	}
	return name
}

func spoolPath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s", uuid.NewString()[:8], sanitizeFileName(name)))
}

// SpoolCleanup returns a cleanup func that deletes files under dir and
// leaves every other path alone. User-named paths staged over JSON are
// never touched; only copies the agent spooled itself are.
func SpoolCleanup(dir string) func(string) {
	dir = filepath.Clean(dir)
	return func(path string) {
		if dir == "" || dir == "." {
			return
		}
		rel, err := filepath.Rel(dir, filepath.Clean(path))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
			return
		}
		os.Remove(path)
	}
}
