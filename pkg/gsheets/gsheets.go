package gsheets

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultBaseURL is where published spreadsheets are exported from.
const DefaultBaseURL = "https://docs.google.com"

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`),
}

// ExtractID pulls the document identifier out of a spreadsheet URL. Both
// ".../spreadsheets/d/<id>/edit" and "...?id=<id>" shapes are accepted.
func ExtractID(sourceURL string) (string, bool) {
	if strings.TrimSpace(sourceURL) == "" {
		return "", false
	}
	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(sourceURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExportURL builds the direct download URL for a document in the given format (xlsx, csv, pdf).
func ExportURL(baseURL, id, format string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(id), url.QueryEscape(format))
}
