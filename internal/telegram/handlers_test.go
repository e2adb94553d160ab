package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compinvest/internal/analysis"
	"compinvest/internal/finance"
	"compinvest/internal/storage"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, "photo:"+m.Caption)
		}
	}
	return out
}

type fakeRunner struct {
	lastReq     analysis.Request
	lastAlloc   finance.Allocation
	methods     []string
	optimizeErr error
	runs        []storage.Run
}

func (f *fakeRunner) Simulate(_ context.Context, req analysis.Request, alloc finance.Allocation) (analysis.Simulation, error) {
	f.lastReq, f.lastAlloc = req, alloc
	return analysis.Simulation{
		Symbols:    req.Symbols,
		Allocation: alloc,
		Days:       []time.Time{req.Start, req.End},
		Values:     []float64{1, 1.05},
		Stats:      finance.Stats{Sharpe: 1.5, CumulativeReturn: 1.05},
	}, nil
}

func (f *fakeRunner) Optimize(_ context.Context, req analysis.Request, method string, _ float64) (analysis.Optimization, error) {
	f.lastReq = req
	f.methods = append(f.methods, method)
	if method == "grid" && f.optimizeErr != nil {
		return analysis.Optimization{}, f.optimizeErr
	}
	return analysis.Optimization{
		SearchResult: finance.SearchResult{Symbols: req.Symbols, Best: finance.Allocation{0.3, 0.7}, Stats: finance.Stats{Sharpe: 2}},
		Method:       method,
		Days:         []time.Time{req.Start, req.End},
		Values:       []float64{1, 1.1},
	}, nil
}

func (f *fakeRunner) Events(_ context.Context, req analysis.Request, _ finance.StudyOptions) (analysis.EventReport, error) {
	f.lastReq = req
	return analysis.EventReport{}, nil
}

func (f *fakeRunner) RecentRuns(context.Context, int64, int) ([]storage.Run, error) {
	return f.runs, nil
}

type fakeCommenter struct{ note string }

func (f fakeCommenter) Comment(context.Context, string) (string, error) { return f.note, nil }

func newTestHandlers(runner studyRunner, comment commenter) (*Handlers, *fakeSender) {
	api := &fakeSender{}
	return &Handlers{
		api:     api,
		runner:  runner,
		comment: comment,
		now:     func() time.Time { return time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC) },
		log:     zerolog.Nop(),
	}, api
}

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 99}}
}

func TestHandleSimulate(t *testing.T) {
	runner := &fakeRunner{}
	h, api := newTestHandlers(runner, fakeCommenter{note: "Looks steady."})

	h.HandleMessage(message("/simulate spy 0.6 gld 0.4 3m"))

	assert.Equal(t, []string{"SPY", "GLD"}, runner.lastReq.Symbols)
	assert.Equal(t, finance.Allocation{0.6, 0.4}, runner.lastAlloc)
	assert.Equal(t, int64(99), runner.lastReq.ChatID)
	assert.Equal(t, "3m", runner.lastReq.Window)
	assert.Equal(t, time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC), runner.lastReq.Start)

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.True(t, strings.HasPrefix(texts[0], "photo:"))
	assert.Contains(t, texts[0], "Allocation: [0.60 0.40]")
	assert.Equal(t, "Looks steady.", texts[1])
}

func TestHandleSimulateBadInput(t *testing.T) {
	runner := &fakeRunner{}
	h, api := newTestHandlers(runner, nil)

	h.HandleMessage(message("/simulate SPY 0.6 GLD 0.6"))

	texts := api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Usage: /simulate")
	assert.Nil(t, runner.lastReq.Symbols)
}

func TestHandleOptimizeFallsBackToSimplex(t *testing.T) {
	runner := &fakeRunner{optimizeErr: finance.ErrSearchSpaceTooLarge}
	h, api := newTestHandlers(runner, nil)

	h.HandleMessage(message("/optimize A B C D E F G H"))

	assert.Equal(t, []string{"grid", "simplex"}, runner.methods)
	texts := api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "(simplex search)")
}

func TestHandleOptimizeErrors(t *testing.T) {
	runner := &fakeRunner{optimizeErr: errors.New("no prices")}
	h, api := newTestHandlers(runner, nil)

	h.HandleMessage(message("/optimize SPY"))
	h.HandleMessage(message("/optimize SPY GLD"))

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "at least two symbols")
	assert.Equal(t, "Optimization failed: no prices", texts[1])
}

func TestHandleEventsWithoutUsableEvents(t *testing.T) {
	runner := &fakeRunner{}
	h, api := newTestHandlers(runner, nil)

	h.HandleMessage(message("/events@compinvest_bot AAL UAL 2y"))

	assert.Equal(t, []string{"AAL", "UAL"}, runner.lastReq.Symbols)
	texts := api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Events: 0")
}

func TestHandleRuns(t *testing.T) {
	runner := &fakeRunner{}
	h, api := newTestHandlers(runner, nil)
	h.HandleMessage(message("/runs"))

	runner.runs = []storage.Run{{Kind: "simulate", Symbols: "SPY,GLD", Allocation: "[0.60 0.40]", Window: "1y", Sharpe: 1.234, CreatedAt: 1710518400}}
	h.HandleMessage(message("/runs"))

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "No runs yet")
	assert.Equal(t, "2024-03-15 16:00 simulate SPY,GLD [0.60 0.40] 1y sharpe=1.234\n", texts[1])
}

func TestHandleIgnoresChatter(t *testing.T) {
	h, api := newTestHandlers(&fakeRunner{}, nil)
	h.HandleMessage(message("good morning"))
	h.HandleMessage(message("/help"))

	texts := api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "/simulate")
}

func TestWebhookHandlerRejectsBadJSON(t *testing.T) {
	b := &Bot{log: zerolog.Nop()}

	rec := httptest.NewRecorder()
	b.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	b.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":1}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPhotoCaptionCutsByCharacter(t *testing.T) {
	h, api := newTestHandlers(&fakeRunner{}, nil)

	caption := strings.Repeat("é", maxCaption+10)
	h.photo(99, "chart.png", []byte("png"), caption)

	sent := api.texts()
	require.Len(t, sent, 1)
	got := strings.TrimPrefix(sent[0], "photo:")
	assert.Equal(t, maxCaption, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "Шар", truncateRunes("Шарп", 3))
}
