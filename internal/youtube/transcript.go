package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"trade-mentor/internal/api"
	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/trace"
)

var errNoPlayerResponse = errors.New("player response not found in watch page")

// TranscriptFetcher scrapes the watch page for caption tracks and downloads
// the preferred one.
type TranscriptFetcher struct {
	baseURL   string
	languages []string
	timeout   time.Duration
	limiter   *rate.Limiter
	captions  *api.Client
}

var _ interfaces.TranscriptFetcher = (*TranscriptFetcher)(nil)

// NewTranscriptFetcher creates a fetcher. languages is the caption preference
// order; requestsPerMinute throttles outbound watch-page visits.
func NewTranscriptFetcher(baseURL string, languages []string, timeout time.Duration, requestsPerMinute int) *TranscriptFetcher {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &TranscriptFetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		languages: languages,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 5),
		captions: api.NewClient(
			api.WithTimeout(timeout),
			api.WithHeaders(api.BrowserHeaders()),
			api.WithLogging(true),
		),
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// Fetch returns the transcript text. A video without caption tracks yields
// an empty string and no error.
func (f *TranscriptFetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "youtube.Fetch")
	defer span.End()

	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	page, err := f.fetchWatchPage(ctx, videoID)
	if err != nil {
		return "", err
	}

	player, err := parsePlayerResponse(page)
	if err != nil {
		return "", err
	}

	tracks := player.Captions.Renderer.CaptionTracks
	if len(tracks) == 0 {
		if st := player.PlayabilityStatus; st.Status != "" && st.Status != "OK" {
			return "", fmt.Errorf("video not playable (%s): %s", st.Status, st.Reason)
		}
		logger.Info(ctx, "Video has no caption tracks", "video_id", videoID)
		return "", nil
	}

	track := pickTrack(tracks, f.languages)
	logger.Debug(ctx, "Caption track selected",
		"video_id", videoID,
		"language", track.LanguageCode,
		"kind", track.Kind,
		"available", len(tracks),
	)

	resp, err := f.captions.Get(ctx, f.resolve(track.BaseURL))
	if err != nil {
		return "", fmt.Errorf("failed to download captions: %w", err)
	}

	return parseCaptionXML(resp.Body)
}

func (f *TranscriptFetcher) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(f.baseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
		// skips the EU consent interstitial
		r.Headers.Set("Cookie", "CONSENT=YES+1")
	})

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Watch page request failed", err, "video_id", videoID, "status", r.StatusCode)
	})

	watchURL := fmt.Sprintf("%s/watch?v=%s", f.baseURL, url.QueryEscape(videoID))
	if err := c.Visit(watchURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", watchURL, err)
	}
	c.Wait()

	if len(body) == 0 {
		return nil, fmt.Errorf("empty watch page for %s", videoID)
	}
	return body, nil
}

// resolve makes relative caption urls absolute against the fetcher base.
func (f *TranscriptFetcher) resolve(trackURL string) string {
	if strings.HasPrefix(trackURL, "http") {
		return trackURL
	}
	return f.baseURL + "/" + strings.TrimLeft(trackURL, "/")
}

// parsePlayerResponse finds the inline ytInitialPlayerResponse object.
func parsePlayerResponse(page []byte) (*playerResponse, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page: %w", err)
	}

	var (
		player   playerResponse
		found    bool
		parseErr error
	)
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.Text()
		idx := strings.Index(src, "ytInitialPlayerResponse")
		if idx < 0 {
			return true
		}
		brace := strings.Index(src[idx:], "{")
		if brace < 0 {
			return true
		}
		// Decode reads exactly one value and ignores the trailing script.
		parseErr = json.NewDecoder(strings.NewReader(src[idx+brace:])).Decode(&player)
		found = true
		return false
	})

	if !found {
		return nil, errNoPlayerResponse
	}
	if parseErr != nil {
		return nil, fmt.Errorf("failed to decode player response: %w", parseErr)
	}
	return &player, nil
}

// pickTrack prefers manual captions over auto-generated ones, in language
// preference order, falling back to the first track.
func pickTrack(tracks []captionTrack, languages []string) captionTrack {
	for _, generated := range []bool{false, true} {
		for _, lang := range languages {
			for _, t := range tracks {
				if (t.Kind == "asr") != generated {
					continue
				}
				if strings.EqualFold(t.LanguageCode, lang) || strings.HasPrefix(strings.ToLower(t.LanguageCode), strings.ToLower(lang)+"-") {
					return t
				}
			}
		}
	}
	return tracks[0]
}

// parseCaptionXML flattens a timedtext document (srv1 <text> or srv3 <p>) into one line of text.
func parseCaptionXML(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse captions: %w", err)
	}

	cues := doc.Find("text")
	if cues.Length() == 0 {
		cues = doc.Find("p")
	}

	parts := make([]string, 0, cues.Length())
	cues.Each(func(_ int, s *goquery.Selection) {
		// entities arrive double-escaped, goquery undoes one level
		text := strings.Join(strings.Fields(html.UnescapeString(s.Text())), " ")
		if text != "" {
			parts = append(parts, text)
		}
	})

	return strings.Join(parts, " "), nil
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
