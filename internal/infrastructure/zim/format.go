// Package zim reads ZIM archives: the offline content containers the reader
// serves pages from.
package zim

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNotZim                 = errors.New("not a zim archive")
	ErrCorrupt                = errors.New("malformed zim archive")
	ErrEntryNotFound          = errors.New("entry not found")
	ErrUnsupportedCompression = errors.New("unsupported cluster compression")
	ErrTooManyRedirects       = errors.New("too many redirects")
)

const (
	headerSize  = 80
	magicNumber = 0x044D495A
	noPage      = 0xffffffff

	mimeRedirect   = 0xffff
	mimeLinkTarget = 0xfffe
	mimeDeleted    = 0xfffd
)

// Header is the fixed archive header.
type Header struct {
	MajorVersion  uint16
	MinorVersion  uint16
	UUID          [16]byte
	EntryCount    uint32
	ClusterCount  uint32
	PathPtrPos    uint64
	TitlePtrPos   uint64
	ClusterPtrPos uint64
	MimeListPos   uint64
	MainPage      uint32
	LayoutPage    uint32
	ChecksumPos   uint64
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < headerSize {
		return h, fmt.Errorf("%w: short header", ErrNotZim)
	}
	le := binary.LittleEndian
	if le.Uint32(b[0:]) != magicNumber {
		return h, ErrNotZim
	}
	h.MajorVersion = le.Uint16(b[4:])
	h.MinorVersion = le.Uint16(b[6:])
	copy(h.UUID[:], b[8:24])
	h.EntryCount = le.Uint32(b[24:])
	h.ClusterCount = le.Uint32(b[28:])
	h.PathPtrPos = le.Uint64(b[32:])
	h.TitlePtrPos = le.Uint64(b[40:])
	h.ClusterPtrPos = le.Uint64(b[48:])
	h.MimeListPos = le.Uint64(b[56:])
	h.MainPage = le.Uint32(b[64:])
	h.LayoutPage = le.Uint32(b[68:])
	h.ChecksumPos = le.Uint64(b[72:])

	if h.MajorVersion != 5 && h.MajorVersion != 6 {
		return h, fmt.Errorf("%w: major version %d", ErrNotZim, h.MajorVersion)
	}
	return h, nil
}

// NewNamespaceScheme reports whether user content lives in the 'C'
// namespace and URLs carry no namespace prefix.
func (h Header) NewNamespaceScheme() bool {
	return h.MajorVersion >= 6 && h.MinorVersion >= 1
}

// HasMainPage reports whether the header names a main page entry.
func (h Header) HasMainPage() bool {
	return h.MainPage != noPage && h.MainPage < h.EntryCount
}

// parseMimeList splits the zero-terminated MIME list, which ends with an
// empty string.
func parseMimeList(b []byte) ([]string, error) {
	var mimes []string
	for {
		i := bytes.IndexByte(b, 0)
		if i < 0 {
			return nil, fmt.Errorf("%w: unterminated mime list", ErrCorrupt)
		}
		if i == 0 {
			return mimes, nil
		}
		mimes = append(mimes, string(b[:i]))
		b = b[i+1:]
	}
}

// dirEntry is one directory entry.
type dirEntry struct {
	mime      uint16
	namespace byte
	cluster   uint32
	blob      uint32
	redirect  uint32
	path      string
	title     string
}

func (e *dirEntry) isRedirect() bool { return e.mime == mimeRedirect }

func (e *dirEntry) isContent() bool {
	return e.mime != mimeRedirect && e.mime != mimeLinkTarget && e.mime != mimeDeleted
}

// errIncomplete signals that b ended before the entry's strings did.
var errIncomplete = errors.New("incomplete entry")

func parseDirEntry(b []byte) (*dirEntry, error) {
	if len(b) < 8 {
		return nil, errIncomplete
	}
	le := binary.LittleEndian
	e := &dirEntry{mime: le.Uint16(b[0:]), namespace: b[3]}
	paramLen := int(b[2])

	pos := 8
	switch e.mime {
	case mimeRedirect:
		if len(b) < 12 {
			return nil, errIncomplete
		}
		e.redirect = le.Uint32(b[8:])
		pos = 12
	case mimeLinkTarget, mimeDeleted:
	default:
		if len(b) < 16 {
			return nil, errIncomplete
		}
		e.cluster = le.Uint32(b[8:])
		e.blob = le.Uint32(b[12:])
		pos = 16
	}

	path, n := cString(b[pos:])
	if n < 0 {
		return nil, errIncomplete
	}
	pos += n
	title, n := cString(b[pos:])
	if n < 0 {
		return nil, errIncomplete
	}
	pos += n
	if len(b) < pos+paramLen {
		return nil, errIncomplete
	}

	e.path = path
	e.title = title
	if e.title == "" {
		e.title = path
	}
	return e, nil
}

// cString returns the zero-terminated string at the start of b and the
// number of bytes consumed, or -1 when there is no terminator.
func cString(b []byte) (string, int) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return "", -1
	}
	return string(b[:i]), i + 1
}

func compareKey(ns byte, path string, e *dirEntry) int {
	switch {
	case ns < e.namespace:
		return -1
	case ns > e.namespace:
		return 1
	}
	switch {
	case path < e.path:
		return -1
	case path > e.path:
		return 1
	}
	return 0
}
