package commands

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// defaultRemoteName is used when the URL path has no usable last segment
const defaultRemoteName = "index.html"

// sanitizeFilename rejects names that could escape the target directory
func sanitizeFilename(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty filename")
	}
	if strings.ContainsAny(name, "/\\") {
		return "", errors.New("filename contains path separators")
	}
	if strings.Contains(name, "\x00") {
		return "", errors.New("filename contains null bytes")
	}
	if strings.Contains(name, "..") {
		return "", errors.New("filename contains directory traversal sequence")
	}

	cleaned := filepath.Base(filepath.Clean(name))
	if cleaned != name {
		return "", fmt.Errorf("filename normalization changed input: %q -> %q", name, cleaned)
	}
	if cleaned == "." {
		return "", errors.New("invalid filename")
	}
	for _, r := range cleaned {
		if r < 32 || r == 0x7F {
			return "", errors.New("filename contains control characters")
		}
	}
	if strings.TrimSpace(cleaned) == "" {
		return "", errors.New("filename is only whitespace")
	}
	if len(cleaned) > 255 {
		return "", errors.New("filename too long (max 255 bytes)")
	}
	return cleaned, nil
}

// remoteFilename picks a local name from the last path segment of rawURL
func remoteFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultRemoteName
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return defaultRemoteName
	}
	name, err := sanitizeFilename(base)
	if err != nil {
		return defaultRemoteName
	}
	return name
}

// uniquePath avoids overwriting by appending (1), (2), etc.
func uniquePath(dir, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	p := filepath.Join(dir, name)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return p
	}
	for i := 1; i < 1000; i++ {
		p = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext))
}
