package title

import "regexp"

// Pattern compilation for release name parsing
var (
	// Season/episode markers: S01E01, s1e1
	seasonEpisodeRe = regexp.MustCompile(`(?i)\bs(\d{1,2})e(\d{1,2})\b`)

	// Season-only marker: S05, s5. Go regexps have no lookahead, so the
	// "not followed by E##" guard lives in Parse.
	seasonOnlyRe = regexp.MustCompile(`(?i)\bs(\d{1,2})\b`)

	// 4-digit years between 1900 and 2029
	yearRe = regexp.MustCompile(`\b(19\d{2}|20[0-2]\d)\b`)

	// Release artifacts stripped during title cleaning
	artifactRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(1080p|720p|480p|2160p|4K|UHD|HD|SD)\b`),
		regexp.MustCompile(`(?i)\b(BluRay|BDRip|DVDRip|WEBRip|WEB-DL|HDRip|CAM|TS|TC|R5|SCR)\b`),
		// Dotted tokens are matched in both forms because separator
		// normalization replaces dots with spaces first.
		regexp.MustCompile(`(?i)\b(x264|x265|HEVC|AVC|H[. ]?264|H[. ]?265)\b`),
		regexp.MustCompile(`(?i)\b(AC3|DTS|AAC|MP3|FLAC)\b`),
		regexp.MustCompile(`(?i)\b(5[. ]1|7[. ]1|2[. ]0|Stereo|Mono)\b`),
		regexp.MustCompile(`(?i)\b(REPACK|PROPER|READNFO|NFO)\b`),
		regexp.MustCompile(`\[[^\]]*\]`),
		regexp.MustCompile(`\([^)]*\)`),
	}

	collapseRe = regexp.MustCompile(`\s+`)
)
