package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trade-mentor/internal/analysis"
	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/metrics"
	"trade-mentor/internal/trace"
	"trade-mentor/internal/types"
	"trade-mentor/internal/youtube"
)

const previewRunes = 200

type Params struct {
	Transcripts interfaces.TranscriptFetcher
	Stores      interfaces.VectorStoreFactory
	Generator   *analysis.Generator
	Query       string
	TopK        int
	Metrics     *metrics.Metrics
}

// Pipeline drives one analysis: extract, fetch, index, retrieve, generate.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	p Params
}

func New(p Params) *Pipeline {
	return &Pipeline{p: p}
}

type Result struct {
	Report  types.AnalysisReport
	VideoID string
}

// Analyze runs the pipeline. Only failures before generation come back as
// errors (*StatusError for expected ones); generation problems are carried in
// the report.
func (pl *Pipeline) Analyze(ctx context.Context, req *types.AnalysisRequest) (Result, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.Analyze")
	defer span.End()

	req.Normalize()
	logger.Info(ctx, "Analysis requested",
		"strategy", req.Strategy,
		"trades", len(req.Trades),
		"prices", len(req.StockPrices),
	)

	var res Result
	videoContext := analysis.GenericContext
	if req.Strategy == types.StrategyExternal {
		var err error
		videoContext, res.VideoID, err = pl.videoContext(ctx, req.ExternalURL)
		if err != nil {
			return res, err
		}
	} else {
		logger.Info(ctx, "Using generic analysis context", "strategy", req.Strategy)
	}

	var report types.AnalysisReport
	_ = pl.stage(ctx, "generate", func(ctx context.Context) error {
		report = pl.p.Generator.Generate(ctx, videoContext, req)
		if report.Failed() {
			return errors.New(report.Error)
		}
		return nil
	})
	res.Report = report

	pl.p.Metrics.ObserveReport(req.Strategy, report.TotalScore, report.Failed())
	logger.Analysis(ctx, req.Strategy, res.VideoID, len(req.Trades), report.TotalScore, report.Error)
	return res, nil
}

// videoContext returns the retrieved transcript passages joined by blank lines.
func (pl *Pipeline) videoContext(ctx context.Context, rawURL string) (string, string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", "", badRequest(msgURLRequired)
	}

	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return "", "", badRequest("%s URL: %s", msgInvalidURL, rawURL)
	}
	logger.Info(ctx, "Video id extracted", "video_id", videoID)

	var transcript string
	err = pl.stage(ctx, "fetch", func(ctx context.Context) error {
		transcript, err = pl.p.Transcripts.Fetch(ctx, videoID)
		return err
	})
	if err != nil || transcript == "" {
		return "", videoID, transcriptNotFound(videoID, rawURL)
	}
	logger.Info(ctx, "Transcript fetched", "video_id", videoID, "chars", len([]rune(transcript)))

	store, err := pl.p.Stores.New(ctx)
	if err != nil {
		return "", videoID, internal("데이터베이스 생성 실패: %v", err)
	}
	defer store.Close()

	err = pl.stage(ctx, "index", func(ctx context.Context) error {
		n, err := store.Index(ctx, transcript)
		if err == nil {
			logger.Info(ctx, "Transcript indexed", "video_id", videoID, "chunks", n)
		}
		return err
	})
	if err != nil {
		return "", videoID, internal("데이터베이스 생성 실패: %v", err)
	}

	var passages []types.Passage
	err = pl.stage(ctx, "retrieve", func(ctx context.Context) error {
		passages, err = store.Search(ctx, pl.p.Query, pl.p.TopK)
		return err
	})
	if err != nil {
		return "", videoID, fmt.Errorf("retrieval failed: %w", err)
	}

	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		parts = append(parts, p.Content)
	}
	videoContext := strings.Join(parts, "\n\n")
	logger.Info(ctx, "Retrieval done", "video_id", videoID, "passages", len(passages), "context_chars", len([]rune(videoContext)))
	return videoContext, videoID, nil
}

// stage runs fn under an operation timer and records its duration.
func (pl *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	op := logger.StartOperation(ctx, "pipeline."+name)
	err := fn(op.GetContext())
	outcome := "ok"
	if err != nil {
		outcome = "error"
		op.EndWithError(err)
	} else {
		op.End()
	}
	pl.p.Metrics.ObserveStage(name, outcome, op.Duration())
	return err
}

// VideoCheck reports whether a video's transcript can be fetched.
type VideoCheck struct {
	Success          bool   `json:"success"`
	VideoID          string `json:"video_id"`
	Message          string `json:"message,omitempty"`
	TranscriptLength int    `json:"transcript_length"`
	Preview          string `json:"preview,omitempty"`
}

// CheckVideo extracts the video id and fetches its transcript without analysing it.
// A failed fetch counts as a video without transcript.
func (pl *Pipeline) CheckVideo(ctx context.Context, rawURL string) (VideoCheck, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.CheckVideo")
	defer span.End()

	if strings.TrimSpace(rawURL) == "" {
		return VideoCheck{}, badRequest("url이 필요합니다.")
	}
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return VideoCheck{}, badRequest(msgInvalidURL)
	}

	transcript, err := pl.p.Transcripts.Fetch(ctx, videoID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Transcript fetch failed", err, "video_id", videoID)
	}
	if err != nil || transcript == "" {
		return VideoCheck{VideoID: videoID, Message: msgNoTranscript}, nil
	}

	runes := []rune(transcript)
	preview := runes
	if len(preview) > previewRunes {
		preview = preview[:previewRunes]
	}
	return VideoCheck{
		Success:          true,
		VideoID:          videoID,
		TranscriptLength: len(runes),
		Preview:          string(preview) + "...",
	}, nil
}
