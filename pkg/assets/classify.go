package assets

import "strings"

var staticSuffixes = []string{
	".js",
	".css",
	".js.map",
	".css.map",
	".woff",
	".woff2",
	".ttf",
	".eot",
}

var staticContentTypes = []string{
	"application/javascript",
	"text/javascript",
	"text/css",
	"application/json",
}

// IsStaticPath reports whether the request path alone marks a static asset.
func IsStaticPath(path string) bool {
	for _, suffix := range staticSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// IsStaticContentType reports whether a declared content type marks a static asset.
func IsStaticContentType(contentType string) bool {
	if strings.HasPrefix(contentType, "font/") {
		return true
	}
	for _, ct := range staticContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// IsStatic combines both rules.
func IsStatic(path, contentType string) bool {
	return IsStaticPath(path) || IsStaticContentType(contentType)
}
