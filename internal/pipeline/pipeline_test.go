package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-mentor/internal/analysis"
	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/types"
)

const validURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeFetcher struct {
	text  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeStore struct {
	indexErr  error
	searchErr error
	passages  []types.Passage
	query     string
	k         int
	closed    bool
}

func (s *fakeStore) Index(context.Context, string) (int, error) { return 2, s.indexErr }

func (s *fakeStore) Search(_ context.Context, query string, k int) ([]types.Passage, error) {
	s.query, s.k = query, k
	return s.passages, s.searchErr
}

func (s *fakeStore) Close() { s.closed = true }

type fakeFactory struct {
	store *fakeStore
	err   error
	calls int
}

func (f *fakeFactory) New(context.Context) (interfaces.VectorStore, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.store, nil
}

type fakeCompleter struct {
	prompt string
	reply  string
	err    error
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.prompt = prompt
	return c.reply, c.err
}

type fixture struct {
	fetcher   *fakeFetcher
	store     *fakeStore
	factory   *fakeFactory
	completer *fakeCompleter
	pipeline  *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		fetcher: &fakeFetcher{text: "자막 본문"},
		store: &fakeStore{passages: []types.Passage{
			{ID: "chunk-0001", Content: "눌림목 매수"},
			{ID: "chunk-0000", Content: "손절은 짧게"},
		}},
		completer: &fakeCompleter{reply: `{"analysis":[],"total_score":64}`},
	}
	f.factory = &fakeFactory{store: f.store}
	f.pipeline = New(Params{
		Transcripts: f.fetcher,
		Stores:      f.factory,
		Generator:   analysis.NewGenerator(f.completer),
		Query:       "핵심 전략",
		TopK:        5,
	})
	return f
}

func request(strategy, url string) *types.AnalysisRequest {
	return &types.AnalysisRequest{
		Trades: []types.Trade{{
			StockName: "삼성전자", StockCode: "005930", TradeType: "buy",
			Date: "2024-03-15", Price: decimal.NewFromInt(70000), Quantity: 1,
		}},
		StockPrices: []types.StockPriceSample{{Date: "2024-03-14", ClosePrice: decimal.NewFromInt(69000)}},
		Strategy:    strategy,
		ExternalURL: url,
	}
}

func requireStatus(t *testing.T, err error, status int) *StatusError {
	t.Helper()
	var se *StatusError
	require.True(t, errors.As(err, &se), "want *StatusError, got %v", err)
	assert.Equal(t, status, se.Status)
	return se
}

func TestAnalyzeExternal(t *testing.T) {
	f := newFixture()

	res, err := f.pipeline.Analyze(context.Background(), request("", validURL))
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", res.VideoID)
	require.NotNil(t, res.Report.TotalScore)
	assert.Equal(t, 64, *res.Report.TotalScore)

	assert.Equal(t, "핵심 전략", f.store.query)
	assert.Equal(t, 5, f.store.k)
	assert.True(t, f.store.closed)
	assert.Contains(t, f.completer.prompt, "눌림목 매수\n\n손절은 짧게")
}

func TestAnalyzeOtherStrategySkipsRetrieval(t *testing.T) {
	f := newFixture()
	f.completer.err = errors.New("model down")

	res, err := f.pipeline.Analyze(context.Background(), request("conservative", ""))
	require.NoError(t, err)

	assert.Zero(t, f.fetcher.calls)
	assert.Zero(t, f.factory.calls)
	assert.Contains(t, f.completer.prompt, analysis.GenericContext)
	assert.Equal(t, types.AnalysisReport{Error: "model down"}, res.Report)
}

func TestAnalyzeMissingURL(t *testing.T) {
	f := newFixture()
	_, err := f.pipeline.Analyze(context.Background(), request("external", "  "))
	se := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, msgURLRequired, se.Detail)
	assert.Zero(t, f.fetcher.calls)
}

func TestAnalyzeInvalidURL(t *testing.T) {
	f := newFixture()
	_, err := f.pipeline.Analyze(context.Background(), request("external", "https://example.com/watch?v=nothing"))
	se := requireStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, se.Detail, "https://example.com/watch?v=nothing")
	assert.Zero(t, f.fetcher.calls)
}

func TestAnalyzeNoTranscript(t *testing.T) {
	for name, fetcher := range map[string]*fakeFetcher{
		"empty": {},
		"error": {err: errors.New("consent wall")},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.pipeline.p.Transcripts = fetcher

			_, err := f.pipeline.Analyze(context.Background(), request("external", validURL))
			se := requireStatus(t, err, http.StatusNotFound)

			detail, ok := se.Detail.(NotFoundDetail)
			require.True(t, ok)
			assert.Equal(t, "dQw4w9WgXcQ", detail.VideoID)
			assert.Equal(t, validURL, detail.URL)
			assert.Len(t, detail.PossibleCauses, 4)
			assert.NotEmpty(t, detail.Suggestion)
			assert.Zero(t, f.factory.calls)
		})
	}
}

func TestAnalyzeIndexFailure(t *testing.T) {
	f := newFixture()
	f.store.indexErr = errors.New("embedding exploded")

	_, err := f.pipeline.Analyze(context.Background(), request("external", validURL))
	se := requireStatus(t, err, http.StatusInternalServerError)
	assert.Contains(t, se.Detail, "embedding exploded")
	assert.True(t, f.store.closed)
	assert.Empty(t, f.completer.prompt)
}

func TestAnalyzeStoreCreationFailure(t *testing.T) {
	f := newFixture()
	f.factory.err = errors.New("no collection")

	_, err := f.pipeline.Analyze(context.Background(), request("external", validURL))
	requireStatus(t, err, http.StatusInternalServerError)
}

func TestAnalyzeSearchFailureIsUnexpected(t *testing.T) {
	f := newFixture()
	f.store.searchErr = errors.New("query failed")

	_, err := f.pipeline.Analyze(context.Background(), request("external", validURL))
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
	assert.True(t, f.store.closed)
}

func TestCheckVideo(t *testing.T) {
	f := newFixture()
	f.fetcher.text = strings.Repeat("가", 250)

	check, err := f.pipeline.CheckVideo(context.Background(), validURL)
	require.NoError(t, err)
	assert.True(t, check.Success)
	assert.Equal(t, "dQw4w9WgXcQ", check.VideoID)
	assert.Equal(t, 250, check.TranscriptLength)
	assert.Equal(t, strings.Repeat("가", 200)+"...", check.Preview)
}

func TestCheckVideoShortTranscript(t *testing.T) {
	f := newFixture()
	f.fetcher.text = "짧은 자막"

	check, err := f.pipeline.CheckVideo(context.Background(), validURL)
	require.NoError(t, err)
	assert.Equal(t, "짧은 자막...", check.Preview)
}

func TestCheckVideoNoTranscript(t *testing.T) {
	f := newFixture()
	f.fetcher.text = ""

	check, err := f.pipeline.CheckVideo(context.Background(), validURL)
	require.NoError(t, err)
	assert.Equal(t, VideoCheck{VideoID: "dQw4w9WgXcQ", Message: msgNoTranscript}, check)
}

func TestCheckVideoInvalidURL(t *testing.T) {
	f := newFixture()
	_, err := f.pipeline.CheckVideo(context.Background(), "not a url")
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.pipeline.CheckVideo(context.Background(), "")
	requireStatus(t, err, http.StatusBadRequest)
}
