package pipeline

import (
	"fmt"
	"net/http"
)

// StatusError is a failure that maps to a non-200 HTTP answer. Detail is
// either a string or a NotFoundDetail and is rendered as {"detail": ...}.
type StatusError struct {
	Status int
	Detail any
}

func (e *StatusError) Error() string {
	if s, ok := e.Detail.(string); ok {
		return fmt.Sprintf("%d: %s", e.Status, s)
	}
	if d, ok := e.Detail.(NotFoundDetail); ok {
		return fmt.Sprintf("%d: %s (video %s)", e.Status, d.Message, d.VideoID)
	}
	return fmt.Sprintf("%d: %v", e.Status, e.Detail)
}

func badRequest(format string, args ...any) *StatusError {
	return &StatusError{Status: http.StatusBadRequest, Detail: fmt.Sprintf(format, args...)}
}

func internal(format string, args ...any) *StatusError {
	return &StatusError{Status: http.StatusInternalServerError, Detail: fmt.Sprintf(format, args...)}
}

// NotFoundDetail explains why no transcript could be used.
type NotFoundDetail struct {
	Message        string   `json:"message"`
	VideoID        string   `json:"video_id"`
	URL            string   `json:"url"`
	PossibleCauses []string `json:"possible_causes"`
	Suggestion     string   `json:"suggestion"`
}

func transcriptNotFound(videoID, url string) *StatusError {
	return &StatusError{
		Status: http.StatusNotFound,
		Detail: NotFoundDetail{
			Message: msgNoTranscript,
			VideoID: videoID,
			URL:     url,
			PossibleCauses: []string{
				"1. 해당 영상에 자막이 없을 수 있습니다.",
				"2. 영상이 비공개이거나 삭제되었을 수 있습니다.",
				"3. 자막이 비활성화되어 있을 수 있습니다.",
				"4. 일시적인 네트워크 문제일 수 있습니다.",
			},
			Suggestion: "유튜브에서 해당 영상의 자막 설정을 확인해주세요.",
		},
	}
}

const (
	msgNoTranscript = "자막을 가져올 수 없습니다."
	msgURLRequired  = "externalUrl이 필요합니다."
	msgInvalidURL   = "유효하지 않은 유튜브 URL입니다."
)
