// Package attach validates files before they are attached to a message.
package attach

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrTooLarge        = errors.New("attachment exceeds size limit")
	ErrDisallowedType  = errors.New("attachment type not allowed")
	ErrUnknownType     = errors.New("attachment type could not be determined")
)

// Limits bound what may be attached.
type Limits struct {
	MaxSizeBytes int64
	AllowedTypes []string // MIME types; an entry like "image/*" allows the whole class
}

// Attachment is a validated file ready to attach.
type Attachment struct {
	Path     string
	MimeType string
	Size     int64
}

// Validate checks one file against the limits. The MIME type is sniffed
// from content and falls back to the file extension, since sniffing
// cannot distinguish text flavors.
func Validate(path string, limits Limits) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat attachment: %w", err)
	}
	if limits.MaxSizeBytes > 0 && info.Size() > limits.MaxSizeBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrTooLarge, filepath.Base(path), info.Size(), limits.MaxSizeBytes)
	}

	mimeType, err := detectMimeType(path)
	if err != nil {
		return nil, err
	}
	if !typeAllowed(mimeType, limits.AllowedTypes) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrDisallowedType, filepath.Base(path), mimeType)
	}

	return &Attachment{Path: path, MimeType: mimeType, Size: info.Size()}, nil
}

func detectMimeType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", fmt.Errorf("read attachment: %w", err)
	}

	sniffed := http.DetectContentType(buf[:n])
	sniffed = strings.TrimSuffix(strings.Split(sniffed, ";")[0], " ")

	// Sniffing reports generic types for anything it cannot identify
	// precisely; the extension is more specific then.
	if sniffed == "application/octet-stream" || sniffed == "text/plain" {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			return strings.Split(byExt, ";")[0], nil
		}
	}
	if sniffed == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, filepath.Base(path))
	}
	return sniffed, nil
}

func typeAllowed(mimeType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == mimeType {
			return true
		}
		if class, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(mimeType, class+"/") {
			return true
		}
	}
	return false
}
