package data

import (
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	ContentTypeTextPlain         = "text/plain"
	ContentTypeTextMarkdown      = "text/markdown"
	ContentTypeTextHTML          = "text/html"
	ContentTypeTextCSS           = "text/css"
	ContentTypeTextCSV           = "text/csv"
	ContentTypeTextJavaScript    = "text/javascript"
	ContentTypeTextGo            = "text/x-go"
	ContentTypeApplicationJSON   = "application/json"
	ContentTypeApplicationTOML   = "application/toml"
	ContentTypeApplicationYAML   = "application/yaml"
	ContentTypeApplicationXML    = "application/xml"
	ContentTypeApplicationPDF    = "application/pdf"
	ContentTypeApplicationZip    = "application/zip"
	ContentTypeApplicationGZip   = "application/gzip"
	ContentTypeApplicationStream = "application/octet-stream"
	ContentTypeImagePNG          = "image/png"
	ContentTypeImageJPEG         = "image/jpeg"
)

var extensionToContentType = map[string]string{
	".txt":  ContentTypeTextPlain,
	".log":  ContentTypeTextPlain,
	".md":   ContentTypeTextMarkdown,
	".html": ContentTypeTextHTML,
	".css":  ContentTypeTextCSS,
	".csv":  ContentTypeTextCSV,
	".js":   ContentTypeTextJavaScript,
	".go":   ContentTypeTextGo,
	".json": ContentTypeApplicationJSON,
	".toml": ContentTypeApplicationTOML,
	".yaml": ContentTypeApplicationYAML,
	".yml":  ContentTypeApplicationYAML,
	".xml":  ContentTypeApplicationXML,
	".pdf":  ContentTypeApplicationPDF,
	".zip":  ContentTypeApplicationZip,
	".gz":   ContentTypeApplicationGZip,
	".png":  ContentTypeImagePNG,
	".jpg":  ContentTypeImageJPEG,
	".jpeg": ContentTypeImageJPEG,
}

// GetContentType guesses the content type from the file extension.
func GetContentType(name string) string {
	if ct, ok := extensionToContentType[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return ContentTypeApplicationStream
}

// DetectContentType sniffs the first bytes of a blob, falling back to the name.
func DetectContentType(name string, head []byte) string {
	if ct := GetContentType(name); ct != ContentTypeApplicationStream {
		return ct
	}
	if len(head) == 0 {
		return ContentTypeTextPlain
	}

	ct, _, _ := strings.Cut(http.DetectContentType(head), ";")
	return ct
}

// IsText reports whether content of this type can be shown in a terminal preview.
func IsText(contentType string, head []byte) bool {
	switch {
	case strings.HasPrefix(contentType, "text/"):
		return true
	case contentType == ContentTypeApplicationJSON,
		contentType == ContentTypeApplicationTOML,
		contentType == ContentTypeApplicationYAML,
		contentType == ContentTypeApplicationXML:
		return true
	case contentType == ContentTypeApplicationStream:
		return utf8.Valid(head)
	}
	return false
}
