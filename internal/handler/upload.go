package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// multipartMemory is how much of a form is buffered before spilling to disk
const multipartMemory = 32 << 20

// Request body caps per upload endpoint. Per-file limits are enforced by the
// services.
const (
	maxImageBody   = 12 << 20
	maxPostBody    = model.MaxPostMediaFiles*model.MaxVideoFileSize + 1<<20
	maxStoryBody   = model.MaxStoriesPerUpload*model.MaxStoryFileSize + 1<<20
	maxVideoBody   = model.MaxVideosPerUpload*model.MaxVideoFileSize + 1<<20
	maxMessageBody = 50 << 20
)

// isMultipart reports whether the request carries a multipart form
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseMultipart parses the form under a body cap, writing 413 or 400 on
// failure. The caller must RemoveAll the returned form.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, model.NewPayloadTooLargeError("Ukuran upload maksimal "+humanize.IBytes(uint64(maxBytes))))
			return nil, false
		}
		WriteError(w, model.NewBadRequestError("Form multipart tidak valid"))
		return nil, false
	}
	return r.MultipartForm, true
}

// openedFiles tracks multipart files that must be closed after the request
type openedFiles []multipart.File

func (o openedFiles) Close() {
	for _, f := range o {
		_ = f.Close()
	}
}

// formFiles opens every file posted under any of the given field names
func formFiles(form *multipart.Form, fields ...string) ([]*service.UploadFile, openedFiles, error) {
	var (
		uploads []*service.UploadFile
		opened  openedFiles
	)
	for _, field := range fields {
		for _, fh := range form.File[field] {
			f, err := fh.Open()
			if err != nil {
				opened.Close()
				return nil, nil, err
			}
			opened = append(opened, f)
			uploads = append(uploads, toUploadFile(fh, f))
		}
	}
	return uploads, opened, nil
}

// formFile opens the first file of field, returning nil when absent
func formFile(form *multipart.Form, field string) (*service.UploadFile, openedFiles, error) {
	files, opened, err := formFiles(form, field)
	if err != nil || len(files) == 0 {
		return nil, opened, err
	}
	return files[0], opened, nil
}

func toUploadFile(fh *multipart.FileHeader, body io.Reader) *service.UploadFile {
	return &service.UploadFile{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        body,
	}
}

// formValue returns the first value of a multipart field
func formValue(form *multipart.Form, field string) string {
	if vals := form.Value[field]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// formValuePtr is formValue for optional fields; absent fields yield nil
func formValuePtr(form *multipart.Form, field string) *string {
	vals, ok := form.Value[field]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// formList reads a repeated field, also accepting one comma separated value
func formList(form *multipart.Form, field string) []string {
	var out []string
	for _, v := range append(form.Value[field], form.Value[field+"[]"]...) {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
