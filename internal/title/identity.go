// Package title turns messy torrent release names into a structured
// identity guess that can be searched against a metadata provider.
package title

// MediaType classifies what kind of media a release name refers to.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeTV      MediaType = "tv"
	MediaTypeUnknown MediaType = "unknown"
)

// ParsedIdentity is the normalized guess extracted from a release name.
// Year, Season and Episode use zero to mean "absent". Episode is only ever
// set together with Season, and movies carry neither.
type ParsedIdentity struct {
	Title     string
	MediaType MediaType
	Year      int
	Season    int
	Episode   int
}

// IsZero reports whether no identity could be guessed at all.
func (p ParsedIdentity) IsZero() bool {
	return p.Title == "" && p.MediaType == MediaTypeUnknown
}
