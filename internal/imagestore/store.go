package imagestore

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/metervision/meter-reading-api/internal/apperr"
)

// dataURIPattern matches the declared-format prefix of a base64 image
// data URI, capturing the MIME subtype.
var dataURIPattern = regexp.MustCompile(`^data:image/([a-zA-Z+]+);base64,`)

// extensionBySubtype maps the accepted MIME subtypes to file extensions.
var extensionBySubtype = map[string]string{
	"jpeg": "jpeg",
	"jpg":  "jpg",
	"png":  "png",
	"webp": "webp",
}

// Store persists uploaded meter images as binary files under a directory.
type Store struct {
	dir string
}

// NewStore creates a store writing under dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates and decodes a base64 image data URI and writes it under
// a fresh UUID-based file name, returning that name. Identical images are
// not deduplicated.
func (s *Store) Save(encodedImage string) (string, error) {
	subtype, err := declaredSubtype(encodedImage)
	if err != nil {
		return "", err
	}

	ext, ok := extensionBySubtype[subtype]
	if !ok {
		return "", apperr.New(http.StatusUnsupportedMediaType, apperr.CodeUnsupportedMediaType, "Tipo de imagem não suportada")
	}

	data, err := DecodePayload(encodedImage)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	fileName := fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return fileName, nil
}

// DecodePayload strips the data-URI prefix and decodes the base64 body.
func DecodePayload(encodedImage string) ([]byte, error) {
	payload := dataURIPattern.ReplaceAllString(encodedImage, "")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperr.New(http.StatusBadRequest, apperr.CodeInvalidData, "Formato de imagem inválido")
	}
	return data, nil
}

func declaredSubtype(encodedImage string) (string, error) {
	match := dataURIPattern.FindStringSubmatch(encodedImage)
	if match == nil {
		return "", apperr.New(http.StatusBadRequest, apperr.CodeInvalidData, "Formato de imagem inválido")
	}
	return match[1], nil
}
