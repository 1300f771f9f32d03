package file

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MD5Sum returns the lowercase hex MD5 checksum of the provided data.
func MD5Sum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// DetectMIME sniffs the content first. Empty content falls back to the
// filename extension, then to application/octet-stream.
func DetectMIME(data []byte, filename string) string {
	if len(data) > 0 {
		return mimetype.Detect(data).String()
	}
	if ext := filepath.Ext(filename); ext != "" {
		if m := mimetype.Lookup(extensionMIME(ext)); m != nil {
			return m.String()
		}
	}
	return "application/octet-stream"
}

// IsImage reports whether the MIME type is an image type.
func IsImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

func extensionMIME(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".css":
		return "text/css"
	case ".js":
		return "text/javascript"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	default:
		return ""
	}
}
