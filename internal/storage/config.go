package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
)

const mb = 1 << 20

// Limits holds the upload rules applied before anything is written.
type Limits struct {
	DocumentMax     int64
	PaymentProofMax int64
	Allowed         []string
}

func NewLimits(cfg config.StorageConfig) Limits {
	return Limits{
		DocumentMax:     cfg.DocumentMaxMB * mb,
		PaymentProofMax: cfg.PaymentProofMaxMB * mb,
		Allowed:         cfg.AllowedTypes,
	}
}

// MaxFor returns the size limit of a form field.
func (l Limits) MaxFor(field string) int64 {
	if field == domain.FieldPaymentProof {
		return l.PaymentProofMax
	}
	return l.DocumentMax
}

// Read loads a multipart file and checks its size and sniffed content type.
func (l Limits) Read(field string, fh *multipart.FileHeader) (*File, error) {
	if fh == nil {
		return nil, fieldError(field, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", field, err)
	}
	defer src.Close()
	return l.Check(field, fh.Filename, src)
}

// Check reads at most the field's limit plus one byte from r.
func (l Limits) Check(field, filename string, r io.Reader) (*File, error) {
	max := l.MaxFor(field)
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, fieldError(field, "file is empty")
	}
	if int64(len(data)) > max {
		return nil, fieldError(field, fmt.Sprintf("file exceeds %dMB", max/mb))
	}

	m := mimetype.Detect(data)
	if !l.allowed(m) {
		return nil, fieldError(field, fmt.Sprintf("file type %s is not allowed", m.String()))
	}
	return &File{
		Field:    field,
		Filename: filepath.Base(filename),
		MIME:     m.String(),
		Ext:      m.Extension(),
		Data:     data,
	}, nil
}

func (l Limits) allowed(m *mimetype.MIME) bool {
	for _, a := range l.Allowed {
		if m.Is(strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

func fieldError(field, msg string) error {
	return &domain.ValidationError{
		Message: field + ": " + msg,
		Fields:  map[string]string{field: msg},
	}
}
