// Package titles implements the naming rules for console-default video
// titles: eligibility matching, game extraction, and formatted output.
package titles

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default titles look like GameName_YYYYMMDDHHMMSS.
var defaultTitlePattern = regexp.MustCompile(`^.+_\d{14}$`)

var timestampSuffix = regexp.MustCompile(`_\d{14}$`)

var titleCaser = cases.Title(language.English)

// IsDefaultTitle reports whether a title still carries the console default
// pattern and is therefore eligible for renaming.
func IsDefaultTitle(title string) bool {
	return defaultTitlePattern.MatchString(title)
}

// ExtractGame strips the timestamp suffix from a default title, returning
// the game name. Pure string transform.
func ExtractGame(title string) string {
	return strings.TrimSpace(timestampSuffix.ReplaceAllString(title, ""))
}

// CanonicalGame normalizes a game name for display and playlist naming.
func CanonicalGame(game string) string {
	return titleCaser.String(strings.TrimSpace(game))
}

// Formatter builds final titles and answers souls-like membership.
type Formatter struct {
	soulslike []string
}

// NewFormatter builds a Formatter from the configured souls-like game list.
func NewFormatter(soulslikeGames []string) *Formatter {
	normalized := make([]string, 0, len(soulslikeGames))
	for _, name := range soulslikeGames {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return &Formatter{soulslike: normalized}
}

// IsSoulslike reports whether the game belongs to the melee-tagged category.
func (f *Formatter) IsSoulslike(game string) bool {
	lowered := strings.ToLower(strings.TrimSpace(game))
	if lowered == "" {
		return false
	}
	for _, name := range f.soulslike {
		if strings.Contains(lowered, name) {
			return true
		}
	}
	return false
}

// Format produces the final video title for a game and boss. Souls-like
// games get a Melee tag.
func (f *Formatter) Format(game, boss string) string {
	if f.IsSoulslike(game) {
		return game + ": " + boss + " Melee PS5"
	}
	return game + ": " + boss + " PS5"
}
