// Package mediasvc stores uploaded images on the local disk.
package mediasvc

import (
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
)

var (
	ErrEmptyFile   = core.NewFieldError("file", "file is empty")
	ErrFileTooBig  = core.NewFieldError("file", "file is too large")
	ErrUnsupported = core.NewFieldError("file", "only jpeg, png, webp and gif images are allowed")
	ErrBadFolder   = core.NewFieldError("folder", "invalid folder")

	allowedTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}
	folderRegex = regexp.MustCompile(`^[a-z0-9_-]{1,50}$`)
)

// Upload describes a stored file.
type Upload struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Service struct {
	dir     string
	baseURL string
	maxSize int64
}

func NewService(conf *core.Config) *Service {
	return &Service{dir: conf.Media.Dir, baseURL: conf.Media.BaseURL, maxSize: conf.Media.MaxSize}
}

func (svc *Service) Dir() string { return svc.dir }

// Save sniffs the content of r and writes it to `<dir>/<folder>/<uuid><ext>`.
func (svc *Service) Save(folder string, r io.Reader) (Upload, error) {
	if !folderRegex.MatchString(folder) {
		return Upload{}, ErrBadFolder
	}

	// read one byte past the limit to detect oversized files
	content, err := io.ReadAll(io.LimitReader(r, svc.maxSize+1))
	if err != nil {
		return Upload{}, errors.Wrap(err, "reading upload")
	}
	if len(content) == 0 {
		return Upload{}, ErrEmptyFile
	}
	if int64(len(content)) > svc.maxSize {
		return Upload{}, ErrFileTooBig
	}

	mtype := mimetype.Detect(content)
	var ct, ext string
	for t, e := range allowedTypes {
		if mtype.Is(t) {
			ct, ext = t, e
			break
		}
	}
	if ct == "" {
		return Upload{}, ErrUnsupported
	}

	dir := filepath.Join(svc.dir, folder)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return Upload{}, errors.Wrap(err, "creating media dir")
	}
	name := uuid.New().String() + ext
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Upload{}, errors.Wrap(err, "creating media file")
	}
	if _, err = io.Copy(f, bytes.NewReader(content)); err != nil {
		_ = f.Close()
		return Upload{}, errors.Wrap(err, "writing media file")
	}
	if err = f.Close(); err != nil {
		return Upload{}, errors.Wrap(err, "closing media file")
	}

	return Upload{
		URL:         svc.baseURL + "/" + path.Join(folder, name),
		Filename:    name,
		ContentType: ct,
		Size:        int64(len(content)),
	}, nil
}
