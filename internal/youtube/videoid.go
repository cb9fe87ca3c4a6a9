package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned when no video identifier can be found.
var ErrInvalidURL = errors.New("invalid youtube url")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID returns the 11 character video id of a YouTube link.
// Accepts watch, youtu.be, shorts, embed, live and /v/ links as well as a bare id.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch host {
	case "youtu.be":
		id = segments[0]
	case "youtube.com", "youtube-nocookie.com":
		if segments[0] == "watch" {
			id = u.Query().Get("v")
			break
		}
		if len(segments) >= 2 {
			switch segments[0] {
			case "embed", "shorts", "live", "v":
				id = segments[1]
			}
		}
	default:
		return "", fmt.Errorf("%w: unsupported host %q", ErrInvalidURL, u.Hostname())
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", ErrInvalidURL, raw)
	}
	return id, nil
}
