package download

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/net/html/charset"
)

type targetKind int

const (
	targetMemory targetKind = iota
	targetJSON
	targetFile
)

func (k targetKind) String() string {
	switch k {
	case targetJSON:
		return "json"
	case targetFile:
		return "file"
	default:
		return "memory"
	}
}

// completion holds what a successful transfer produced.
type completion struct {
	data  []byte
	text  string
	value any
}

// Path returns the destination of a file session.
func (s *Session) Path() string {
	return s.path
}

// openTarget creates or truncates the destination file. Only the worker
// touches s.file.
func (s *Session) openTarget() error {
	if s.kind != targetFile {
		return nil
	}
	f, err := s.m.fs.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}

func (s *Session) writeFile(chunk []byte) error {
	_, err := s.file.Write(chunk)
	return err
}

// closeTarget closes the destination file, keeping whatever was written.
func (s *Session) closeTarget() {
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
}

// finishTarget turns the received body into the target's result.
func (s *Session) finishTarget(body []byte) (completion, *Error) {
	switch s.kind {
	case targetFile:
		f := s.file
		s.file = nil
		if err := f.Close(); err != nil {
			return completion{}, newError(KindFileSystem, "close", s.url, err)
		}
		return completion{}, nil

	case targetJSON:
		v, err := s.m.decoder.Decode(body)
		if err != nil {
			return completion{}, newError(KindDecode, "decode", s.url, err)
		}
		return completion{data: body, value: v}, nil

	default:
		return completion{data: body, text: s.decodeText(body)}, nil
	}
}

// decodeText converts body to UTF-8 using the response charset, sniffing the
// content when none is declared.
func (s *Session) decodeText(body []byte) string {
	contentType := ""
	if resp := s.Response(); resp != nil {
		contentType = resp.Header.Get("Content-Type")
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(text)
}

// completionCallback binds the success callback for delivery outside the
// lock. Called with s.mu held.
func (s *Session) completionCallback(c completion) func() {
	switch s.kind {
	case targetFile:
		if cb := s.onFile; cb != nil {
			return func() { cb(s) }
		}
	case targetJSON:
		if cb := s.onJSON; cb != nil {
			return func() { cb(s, c.value) }
		}
	default:
		if cb := s.onMemory; cb != nil {
			return func() { cb(s, c.data, c.text) }
		}
	}
	return func() {}
}
