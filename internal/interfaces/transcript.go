package interfaces

import "context"

// TranscriptFetcher returns the full caption text of a video, or an empty
// string when the video has none.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}
