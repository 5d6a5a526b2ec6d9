package title

import (
	"strconv"
	"strings"
)

var separatorReplacer = strings.NewReplacer("_", " ", ".", " ")

// Parse extracts a structured identity guess from a raw release name.
// It is pure and total: empty or unrecognizable input yields an unknown
// identity rather than an error.
//
// Matching order, first hit wins:
//  1. S##E## season/episode marker (TV with episode)
//  2. S## season marker with no trailing episode (whole-season release)
//  3. 4-digit year, else the whole name (movie)
func Parse(raw string) ParsedIdentity {
	if strings.TrimSpace(raw) == "" {
		return ParsedIdentity{MediaType: MediaTypeUnknown}
	}

	name := separatorReplacer.Replace(raw)

	if m := seasonEpisodeRe.FindStringSubmatchIndex(name); m != nil {
		season, _ := strconv.Atoi(name[m[2]:m[3]])
		episode, _ := strconv.Atoi(name[m[4]:m[5]])
		return ParsedIdentity{
			Title:     cleanTitle(strings.TrimSpace(name[:m[0]])),
			MediaType: MediaTypeTV,
			Season:    season,
			Episode:   episode,
		}
	}

	if season, start, ok := findSeasonMarker(name); ok && season >= 1 && season <= 99 {
		cleaned := cleanTitle(strings.TrimSpace(name[:start]))
		// Guard against quality tags and bare numbers masquerading as
		// season markers: require a real title before the marker.
		if len(cleaned) > 2 && !isAllDigits(cleaned) {
			return ParsedIdentity{
				Title:     cleaned,
				MediaType: MediaTypeTV,
				Season:    season,
			}
		}
	}

	year := 0
	part := name
	if m := yearRe.FindStringSubmatchIndex(name); m != nil {
		year, _ = strconv.Atoi(name[m[2]:m[3]])
		part = name[:m[0]]
	}

	return ParsedIdentity{
		Title:     cleanTitle(strings.TrimSpace(part)),
		MediaType: MediaTypeMovie,
		Year:      year,
	}
}

// findSeasonMarker locates the first S## marker that is not the start of an
// S##E## pair. Go regexps lack negative lookahead, so trailing "E<digit>"
// is rejected by inspecting the text after each candidate match.
func findSeasonMarker(name string) (season, start int, ok bool) {
	for _, m := range seasonOnlyRe.FindAllStringSubmatchIndex(name, -1) {
		rest := strings.TrimLeft(name[m[1]:], " ")
		if len(rest) >= 2 && (rest[0] == 'e' || rest[0] == 'E') && rest[1] >= '0' && rest[1] <= '9' {
			continue
		}
		season, _ = strconv.Atoi(name[m[2]:m[3]])
		return season, m[0], true
	}
	return 0, 0, false
}

// cleanTitle strips release artifacts (quality, source, codec, audio,
// channel layout, release flags, bracketed groups) from a title candidate.
// If stripping leaves nothing, the original candidate survives so a name
// made entirely of artifacts still produces a searchable string.
func cleanTitle(s string) string {
	if s == "" {
		return ""
	}

	cleaned := s
	for _, re := range artifactRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	cleaned = collapseRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, "-. ")

	if cleaned == "" {
		return strings.TrimSpace(s)
	}
	return cleaned
}

func isAllDigits(s string) bool {
	stripped := strings.ReplaceAll(s, " ", "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
