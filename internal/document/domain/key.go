package domain

import (
	"path"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
)

const (
	tempSegment   = "temp"
	maxNameLength = 200
)

// SanitizeName slugs the file stem and lower-cases the extension, so
// "Q3 Balance Sheet.PDF" becomes "q3-balance-sheet.pdf".
func SanitizeName(raw string) (string, error) {
	raw = strings.TrimSpace(path.Base(strings.ReplaceAll(raw, "\\", "/")))
	if raw == "" || raw == "." || raw == "/" {
		return "", ErrInvalidName
	}

	ext := path.Ext(raw)
	stem := strings.TrimSuffix(raw, ext)
	if stem == "" {
		stem, ext = ext, ""
	}

	cleanStem := slug.Make(stem)
	if cleanStem == "" {
		return "", ErrInvalidName
	}
	cleanExt := strings.ToLower(slug.Make(strings.TrimPrefix(ext, ".")))

	name := cleanStem
	if cleanExt != "" {
		name += "." + cleanExt
	}
	if len(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// StorageKey is {user}/temp/{name} before a report exists and
// {user}/{report}/{name} after.
func StorageKey(userID snowflake.ID, reportID *snowflake.ID, name string) string {
	segment := tempSegment
	if reportID != nil && *reportID != 0 {
		segment = reportID.String()
	}
	return userID.String() + "/" + segment + "/" + name
}
