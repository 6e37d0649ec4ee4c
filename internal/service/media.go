package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/renunganku/api/internal/model"
)

// presignTTL bounds how long an upload target stays valid
const presignTTL = 15 * time.Minute

// sniffLen is how much of a file http.DetectContentType looks at
const sniffLen = 512

// extTypes is the content type each stored extension is served with
var extTypes = map[string]string{
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
}

// sniffedExts maps what http.DetectContentType reports onto the extension
// a file is stored under. Anything else is refused, which keeps HTML and
// SVG out of the store.
var sniffedExts = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/avi":       ".avi",
	"audio/mpeg":      ".mp3",
	"audio/wave":      ".wav",
	"application/ogg": ".ogg",
	"application/pdf": ".pdf",
	"application/zip": ".zip",
	"text/plain":      ".txt",
}

// opaqueExts sniff as application/octet-stream and are accepted on the
// declared format alone
var opaqueExts = map[string]bool{".mov": true}

// zipExts are office formats that sniff as zip archives
var zipExts = map[string]bool{".docx": true, ".xlsx": true, ".pptx": true}

var extAliases = map[string]string{".jpeg": ".jpg", ".jpe": ".jpg", ".qt": ".mov"}

var typeAliases = map[string]string{
	"image/jpg":   ".jpg",
	"image/pjpeg": ".jpg",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"video/avi":   ".avi",
}

// StoredFile is a file written to the media store
type StoredFile struct {
	Key         string
	URL         string
	Path        string
	Size        int64
	ContentType string
}

// MediaStore keeps uploads on the local filesystem and serves them under
// /uploads/
type MediaStore struct {
	root          string
	publicBaseURL string
	cdnURL        string
	secret        []byte
}

// MediaStoreConfig holds configuration for the media store
type MediaStoreConfig struct {
	Root          string
	PublicBaseURL string
	CDNURL        string
	// Secret signs upload targets; a random one is generated when empty
	Secret []byte
}

// NewMediaStore creates the store, making sure the root directory exists
func NewMediaStore(cfg MediaStoreConfig) (*MediaStore, error) {
	if cfg.Root == "" {
		cfg.Root = "./uploads"
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, err
		}
	}
	return &MediaStore{
		root:          cfg.Root,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		cdnURL:        strings.TrimRight(cfg.CDNURL, "/"),
		secret:        cfg.Secret,
	}, nil
}

// Save writes r under dir with a fresh name keeping ext. Files larger than
// limit are rejected and removed.
func (s *MediaStore) Save(ctx context.Context, dir, ext string, r io.Reader, limit int64) (*StoredFile, error) {
	key := path.Join(dir, strings.ReplaceAll(uuid.NewString(), "-", "")+strings.ToLower(ext))
	return s.SaveAt(ctx, key, r, limit)
}

// SaveAt writes r at key
func (s *MediaStore) SaveAt(ctx context.Context, key string, r io.Reader, limit int64) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}

	f, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && limit > 0 && n > limit {
		err = FileTooLarge(limit)
	}
	if err != nil {
		_ = os.Remove(p)
		return nil, err
	}

	return &StoredFile{
		Key:         key,
		URL:         s.PublicURL(key),
		Path:        p,
		Size:        n,
		ContentType: extTypes[strings.ToLower(path.Ext(key))],
	}, nil
}

// Path maps a key to its file, refusing keys that escape the root
func (s *MediaStore) Path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidMediaURL
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// PublicURL returns the address clients use for key
func (s *MediaStore) PublicURL(key string) string {
	if s.cdnURL != "" {
		return s.cdnURL + "/" + key
	}
	return s.publicBaseURL + "/uploads/" + key
}

// RewriteURL points a stored URL at the CDN when one is configured
func (s *MediaStore) RewriteURL(u string) string {
	if s.cdnURL == "" {
		return u
	}
	if key, ok := s.KeyFromURL(u); ok {
		return s.cdnURL + "/" + key
	}
	return u
}

// KeyFromURL extracts the key of a URL served by this store
func (s *MediaStore) KeyFromURL(u string) (string, bool) {
	prefixes := []string{s.publicBaseURL + "/uploads/", "/uploads/"}
	if s.cdnURL != "" {
		prefixes = append([]string{s.cdnURL + "/"}, prefixes...)
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(u, prefix) {
			key := strings.TrimPrefix(u, prefix)
			if i := strings.IndexAny(key, "?#"); i >= 0 {
				key = key[:i]
			}
			if _, err := s.Path(key); err != nil {
				return "", false
			}
			return key, true
		}
	}
	return "", false
}

// Owns reports whether u is served by this store and the file exists
func (s *MediaStore) Owns(u string) bool {
	key, ok := s.KeyFromURL(u)
	if !ok {
		return false
	}
	p, _ := s.Path(key)
	_, err := os.Stat(p)
	return err == nil
}

// LocalPath resolves a stored URL to its file
func (s *MediaStore) LocalPath(u string) (string, error) {
	key, ok := s.KeyFromURL(u)
	if !ok {
		return "", ErrInvalidMediaURL
	}
	return s.Path(key)
}

// DeleteURL removes the file behind u. Foreign and missing files are ignored.
func (s *MediaStore) DeleteURL(u string) error {
	key, ok := s.KeyFromURL(u)
	if !ok {
		return nil
	}
	p, err := s.Path(key)
	if err != nil {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("media delete failed", slog.String("key", key), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Presign returns an upload target for a new file under dir. The key's
// extension comes from the known formats, never from the client verbatim.
func (s *MediaStore) Presign(dir string, file model.PresignFile, now time.Time) (model.PresignedUpload, error) {
	ext := declaredExt(file.ContentType, file.FileName)
	if ext == "" {
		return model.PresignedUpload{}, ErrUnsupportedMedia
	}
	key := path.Join(dir, strings.ReplaceAll(uuid.NewString(), "-", "")+ext)
	expires := now.Add(presignTTL)
	exp := strconv.FormatInt(expires.Unix(), 10)

	return model.PresignedUpload{
		FileName:  file.FileName,
		Key:       key,
		UploadURL: s.publicBaseURL + "/v1/media/upload/" + key + "?expires=" + exp + "&signature=" + s.sign(key, exp),
		PublicURL: s.PublicURL(key),
		Method:    "PUT",
		ExpiresAt: expires,
	}, nil
}

// VerifyUpload checks an upload target signature and expiry
func (s *MediaStore) VerifyUpload(key, expires, signature string, now time.Time) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || now.Unix() > exp {
		return ErrInvalidMediaURL
	}
	if !hmac.Equal([]byte(signature), []byte(s.sign(key, expires))) {
		return ErrInvalidMediaURL
	}
	return nil
}

func (s *MediaStore) sign(key, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

// FileTooLarge builds the size error shown to users
func FileTooLarge(limit int64) error {
	return fmt.Errorf("%w: maksimal %s", ErrFileTooLarge, humanize.IBytes(uint64(limit)))
}

// DetectMediaType classifies a declared file as IMAGE or VIDEO from its name
// or, failing that, its MIME type. Received bytes are classified by
// UploadFile.Detect instead.
func DetectMediaType(contentType, fileName string) (model.MediaType, bool) {
	switch t := model.MediaTypeFromMIME(extTypes[declaredExt(contentType, fileName)]); t {
	case model.MediaTypeImage, model.MediaTypeVideo:
		return t, true
	}
	return "", false
}

// UploadFile is one file taken from a multipart request
type UploadFile struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader

	sniffed string
}

// Sniff returns the content type http.DetectContentType reports for the
// first bytes of the body, without parameters. Body still yields every byte
// afterwards.
func (f *UploadFile) Sniff() (string, error) {
	if f.sniffed != "" {
		return f.sniffed, nil
	}
	var head []byte
	if f.Body != nil {
		head = make([]byte, sniffLen)
		n, err := io.ReadFull(f.Body, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return "", err
		}
		head = head[:n]
		f.Body = io.MultiReader(bytes.NewReader(head), f.Body)
	}
	ct, _, _ := strings.Cut(http.DetectContentType(head), ";")
	f.sniffed = strings.TrimSpace(ct)
	return f.sniffed, nil
}

// Detect classifies the upload by its content and returns the content type
// it is served with and the extension it is stored under. The client's
// name and MIME type only pick between formats the sniffer cannot tell
// apart.
func (f *UploadFile) Detect() (contentType, ext string, err error) {
	sniffed, err := f.Sniff()
	if err != nil {
		return "", "", err
	}
	declared := declaredExt(f.ContentType, f.FileName)
	switch {
	case sniffed == "application/octet-stream" && opaqueExts[declared]:
		ext = declared
	case sniffed == "application/zip" && zipExts[declared]:
		ext = declared
	default:
		var ok bool
		if ext, ok = sniffedExts[sniffed]; !ok {
			return "", "", ErrUnsupportedMedia
		}
	}
	return extTypes[ext], ext, nil
}

// Visual detects an IMAGE or VIDEO upload
func (f *UploadFile) Visual() (model.MediaType, string, error) {
	ct, ext, err := f.Detect()
	if err != nil {
		return "", "", err
	}
	switch t := model.MediaTypeFromMIME(ct); t {
	case model.MediaTypeImage, model.MediaTypeVideo:
		return t, ext, nil
	}
	return "", "", ErrUnsupportedMedia
}

// SaveImage stores an image upload under dir
func (s *MediaStore) SaveImage(ctx context.Context, dir string, f *UploadFile, limit int64) (*StoredFile, error) {
	if f == nil {
		return nil, ErrFileRequired
	}
	if limit > 0 && f.Size > limit {
		return nil, FileTooLarge(limit)
	}
	t, ext, err := f.Visual()
	if err != nil {
		return nil, err
	}
	if t != model.MediaTypeImage {
		return nil, ErrUnsupportedMedia
	}
	return s.Save(ctx, dir, ext, f.Body, limit)
}

// SavePresigned stores a direct upload at key once its content matches the
// format the key was signed for
func (s *MediaStore) SavePresigned(ctx context.Context, key string, r io.Reader, limit int64) (*StoredFile, error) {
	f := &UploadFile{FileName: key, Body: r}
	_, ext, err := f.Detect()
	if err != nil {
		return nil, err
	}
	if ext != strings.ToLower(path.Ext(key)) {
		return nil, ErrUnsupportedMedia
	}
	return s.SaveAt(ctx, key, f.Body, limit)
}

// Open returns a stored file for reading. Directories, missing files and
// keys outside the root all report ErrMediaNotFound.
func (s *MediaStore) Open(key string) (*os.File, os.FileInfo, error) {
	if key == "" || strings.HasSuffix(key, "/") {
		return nil, nil, ErrMediaNotFound
	}
	p, err := s.Path(key)
	if err != nil {
		return nil, nil, ErrMediaNotFound
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, ErrMediaNotFound
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, ErrMediaNotFound
	}
	return f, info, nil
}

// ServedType returns the Content-Type a stored key is served with and
// whether browsers may render it inline
func ServedType(key string) (contentType string, inline bool) {
	ct, ok := extTypes[strings.ToLower(path.Ext(key))]
	if !ok {
		return "application/octet-stream", false
	}
	switch model.MediaTypeFromMIME(ct) {
	case model.MediaTypeImage, model.MediaTypeVideo, model.MediaTypeAudio:
		return ct, true
	}
	if ct == "text/plain" {
		ct += "; charset=utf-8"
	}
	return ct, false
}

// declaredExt maps the client's file name, or failing that its MIME type,
// onto a known extension. Unknown formats yield "".
func declaredExt(contentType, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if alias, ok := extAliases[ext]; ok {
		ext = alias
	}
	if _, ok := extTypes[ext]; ok {
		return ext
	}
	ct, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	for e, t := range extTypes {
		if t == ct {
			return e
		}
	}
	return typeAliases[ct]
}
