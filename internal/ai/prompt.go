package ai

import "fmt"

// extractionPrompt is the fixed instruction template sent with every
// extraction request. The model must answer with a single JSON object.
const extractionPrompt = `You are a helpful assistant that extracts clean movie or TV show titles from messy torrent filenames.

Your task is to identify the actual movie or TV show name from a torrent filename, which often contains:
- Quality indicators (1080p, 720p, BluRay, WEB-DL, etc.)
- Release groups and encoding info (x264, x265, etc.)
- Season/episode numbers (S01E01, S05, etc.)
- Audio/video codec information
- Other metadata

Extract the clean title that would be used to search in a movie/TV database like TMDB.

Examples:
- "The.Matrix.1999.1080p.BluRay.x264" -> {"title": "The Matrix", "year": 1999, "media_type": "movie"}
- "Castle.S05.720p.WEB-DL.FoxLife" -> {"title": "Castle", "season": 5, "media_type": "tv"}
- "Game.of.Thrones.S01E01.1080p" -> {"title": "Game of Thrones", "season": 1, "episode": 1, "media_type": "tv"}
- "Indiana.Jones.and.the.Last.Crusade.BDRemux.mkv" -> {"title": "Indiana Jones and the Last Crusade", "media_type": "movie"}

Respond ONLY with valid JSON in this format:
{
    "title": "Clean title for database search",
    "media_type": "movie" or "tv",
    "year": <year number or null>,
    "season": <season number or null>,
    "episode": <episode number or null>
}

Torrent filename: %s`

func buildPrompt(rawName string) string {
	return fmt.Sprintf(extractionPrompt, rawName)
}
