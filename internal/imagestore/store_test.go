package imagestore_test

import (
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/metervision/meter-reading-api/internal/apperr"
	"github.com/metervision/meter-reading-api/internal/imagestore"
)

func encodeImage(subtype string, data []byte) string {
	return "data:image/" + subtype + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := imagestore.NewStore(dir)

	if store.Dir() != dir {
		t.Errorf("Expected store dir %s, got %s", dir, store.Dir())
	}

	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	fileName, err := store.Save(encodeImage("png", payload))
	if err != nil {
		t.Fatalf("Expected save to succeed, got error: %v", err)
	}

	if !strings.HasSuffix(fileName, ".png") {
		t.Errorf("Expected .png extension, got %s", fileName)
	}

	written, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("Expected stored file to exist: %v", err)
	}
	if string(written) != string(payload) {
		t.Errorf("Stored bytes differ from decoded input")
	}
}

func TestSave_UniqueFileNames(t *testing.T) {
	store := imagestore.NewStore(t.TempDir())
	encoded := encodeImage("jpeg", []byte("same image twice"))

	first, err := store.Save(encoded)
	if err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	second, err := store.Save(encoded)
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	if first == second {
		t.Errorf("Expected distinct file names for identical images, got %s twice", first)
	}
}

func TestSave_ExtensionMatchesSubtype(t *testing.T) {
	store := imagestore.NewStore(t.TempDir())

	cases := map[string]string{
		"jpeg": ".jpeg",
		"jpg":  ".jpg",
		"png":  ".png",
		"webp": ".webp",
	}

	for subtype, ext := range cases {
		fileName, err := store.Save(encodeImage(subtype, []byte("img")))
		if err != nil {
			t.Fatalf("Save failed for subtype %s: %v", subtype, err)
		}
		if !strings.HasSuffix(fileName, ext) {
			t.Errorf("Expected extension %s for subtype %s, got %s", ext, subtype, fileName)
		}
	}
}

func TestSave_MissingDataURIPrefix(t *testing.T) {
	store := imagestore.NewStore(t.TempDir())

	_, err := store.Save(base64.StdEncoding.EncodeToString([]byte("no prefix")))
	if err == nil {
		t.Fatal("Expected error for payload without data-URI prefix")
	}

	var apiErr *apperr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *apperr.Error, got %T", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != apperr.CodeInvalidData {
		t.Errorf("Expected 400 INVALID_DATA, got %d %s", apiErr.Status, apiErr.Code)
	}
}

func TestSave_UnsupportedSubtype(t *testing.T) {
	store := imagestore.NewStore(t.TempDir())

	_, err := store.Save(encodeImage("gif", []byte("animated")))
	if err == nil {
		t.Fatal("Expected error for unsupported subtype")
	}

	var apiErr *apperr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *apperr.Error, got %T", err)
	}
	if apiErr.Status != http.StatusUnsupportedMediaType || apiErr.Code != apperr.CodeUnsupportedMediaType {
		t.Errorf("Expected 415 UNSUPPORTED_MEDIA_TYPE, got %d %s", apiErr.Status, apiErr.Code)
	}
}

func TestSave_MalformedBase64(t *testing.T) {
	store := imagestore.NewStore(t.TempDir())

	_, err := store.Save("data:image/png;base64,@@not-base64@@")
	if err == nil {
		t.Fatal("Expected error for malformed base64 payload")
	}

	var apiErr *apperr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *apperr.Error, got %T", err)
	}
	if apiErr.Code != apperr.CodeInvalidData {
		t.Errorf("Expected INVALID_DATA, got %s", apiErr.Code)
	}
}

func TestDecodePayload_StripsPrefix(t *testing.T) {
	data, err := imagestore.DecodePayload(encodeImage("webp", []byte("raw bytes")))
	if err != nil {
		t.Fatalf("Expected decode to succeed: %v", err)
	}
	if string(data) != "raw bytes" {
		t.Errorf("Expected decoded payload 'raw bytes', got %q", string(data))
	}
}
