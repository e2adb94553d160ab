package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"compinvest/internal/analysis"
	"compinvest/internal/finance"
	"compinvest/internal/openai"
	"compinvest/internal/storage"
)

var (
	// /simulate S1 w1 S2 w2 ... [window]
	reSimulate = regexp.MustCompile(`^/simulate(?:@[\w_]+)?\s+(.+)$`)
	// /optimize S1 S2 ... [window]
	reOptimize = regexp.MustCompile(`^/optimize(?:@[\w_]+)?\s+(.+)$`)
	// /events S1 S2 ... [window]
	reEvents = regexp.MustCompile(`^/events(?:@[\w_]+)?\s+(.+)$`)
	reRuns   = regexp.MustCompile(`^/runs(?:@[\w_]+)?$`)
	reHelp   = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

const (
	requestTimeout = 2 * time.Minute
	maxCaption     = 1024
	recentRuns     = 10
	listedEvents   = 10
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type studyRunner interface {
	Simulate(ctx context.Context, req analysis.Request, alloc finance.Allocation) (analysis.Simulation, error)
	Optimize(ctx context.Context, req analysis.Request, method string, step float64) (analysis.Optimization, error)
	Events(ctx context.Context, req analysis.Request, opts finance.StudyOptions) (analysis.EventReport, error)
	RecentRuns(ctx context.Context, chatID int64, limit int) ([]storage.Run, error)
}

type commenter interface {
	Comment(ctx context.Context, summary string) (string, error)
}

type Handlers struct {
	api     sender
	runner  studyRunner
	comment commenter
	now     func() time.Time
	log     zerolog.Logger
}

func NewHandlers(api *tgbotapi.BotAPI, runner *analysis.Runner, commentator *openai.Commentator) *Handlers {
	h := &Handlers{
		api:    api,
		runner: runner,
		now:    time.Now,
		log:    log.With().Str("component", "handlers").Logger(),
	}
	if commentator != nil {
		h.comment = commentator
	}
	return h
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	chatID := m.Chat.ID

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch {
	case reSimulate.MatchString(txt):
		h.handleSimulate(ctx, chatID, reSimulate.FindStringSubmatch(txt)[1])
	case reOptimize.MatchString(txt):
		h.handleOptimize(ctx, chatID, reOptimize.FindStringSubmatch(txt)[1])
	case reEvents.MatchString(txt):
		h.handleEvents(ctx, chatID, reEvents.FindStringSubmatch(txt)[1])
	case reRuns.MatchString(txt):
		h.handleRuns(ctx, chatID)
	case reHelp.MatchString(txt):
		h.handleHelp(chatID)
	}
}

func (h *Handlers) request(chatID int64, symbols []string, window string) (analysis.Request, error) {
	start, end, err := finance.ParseWindow(window, h.now())
	if err != nil {
		return analysis.Request{}, err
	}
	return analysis.Request{ChatID: chatID, Symbols: symbols, Start: start, End: end, Window: window}, nil
}

func (h *Handlers) handleSimulate(ctx context.Context, chatID int64, args string) {
	symbols, alloc, window, err := finance.ParseWeightedPortfolio(args)
	if err != nil {
		h.reply(chatID, "Usage: /simulate SPY 0.6 GLD 0.4 [1y]\n"+err.Error())
		return
	}
	req, err := h.request(chatID, symbols, window)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}

	sim, err := h.runner.Simulate(ctx, req, alloc)
	if err != nil {
		h.reply(chatID, "Simulation failed: "+err.Error())
		return
	}
	summary := analysis.FormatSimulation(sim)
	title := fmt.Sprintf("Portfolio %s %s (%s)", strings.Join(sim.Symbols, ","), sim.Allocation, strings.ToUpper(window))
	if img, err := finance.RenderPortfolio(title, sim.Days, sim.Values, sim.Stats); err == nil {
		h.photo(chatID, "portfolio.png", img, summary)
	} else {
		h.log.Warn().Err(err).Msg("portfolio chart failed")
		h.reply(chatID, summary)
	}
	h.commentary(ctx, chatID, summary)
}

func (h *Handlers) handleOptimize(ctx context.Context, chatID int64, args string) {
	symbols, window, err := finance.ParseSymbols(args)
	if err != nil || len(symbols) < 2 {
		h.reply(chatID, "Please provide at least two symbols, e.g. /optimize AAPL GLD GOOG XOM 1y")
		return
	}
	req, err := h.request(chatID, symbols, window)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}

	opt, err := h.runner.Optimize(ctx, req, "grid", finance.DefaultGridStep)
	if errors.Is(err, finance.ErrSearchSpaceTooLarge) {
		opt, err = h.runner.Optimize(ctx, req, "simplex", 0)
	}
	if err != nil {
		h.reply(chatID, "Optimization failed: "+err.Error())
		return
	}
	summary := analysis.FormatOptimization(opt)
	title := fmt.Sprintf("Best Sharpe %s %s (%s)", strings.Join(opt.Symbols, ","), opt.Best, strings.ToUpper(window))
	if img, err := finance.RenderPortfolio(title, opt.Days, opt.Values, opt.Stats); err == nil {
		h.photo(chatID, "optimized.png", img, summary)
	} else {
		h.log.Warn().Err(err).Msg("optimization chart failed")
		h.reply(chatID, summary)
	}
	h.commentary(ctx, chatID, summary)
}

func (h *Handlers) handleEvents(ctx context.Context, chatID int64, args string) {
	symbols, window, err := finance.ParseSymbols(args)
	if err != nil {
		h.reply(chatID, "Usage: /events S1 S2 ... [window]")
		return
	}
	req, err := h.request(chatID, symbols, window)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}

	rep, err := h.runner.Events(ctx, req, finance.DefaultStudyOptions())
	if err != nil {
		h.reply(chatID, "Event study failed: "+err.Error())
		return
	}
	summary := analysis.FormatEvents(rep, listedEvents)
	if rep.Study.Used == 0 {
		h.reply(chatID, summary)
		return
	}
	img, err := finance.RenderEventStudy("Event study "+strings.Join(symbols, ","), rep.Study)
	if err != nil {
		h.log.Warn().Err(err).Msg("event chart failed")
		h.reply(chatID, summary)
		return
	}
	h.photo(chatID, "events.png", img, summary)
}

func (h *Handlers) handleRuns(ctx context.Context, chatID int64) {
	runs, err := h.runner.RecentRuns(ctx, chatID, recentRuns)
	if err != nil {
		h.reply(chatID, "Could not list runs: "+err.Error())
		return
	}
	if len(runs) == 0 {
		h.reply(chatID, "No runs yet. Try /simulate or /optimize.")
		return
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%s %s %s %s %s sharpe=%.3f\n",
			time.Unix(r.CreatedAt, 0).UTC().Format("2006-01-02 15:04"),
			r.Kind, r.Symbols, r.Allocation, r.Window, r.Sharpe)
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /simulate S1 w1 S2 w2 ... [window] - Backtest a fixed allocation (weights sum to 1)\n" +
		"- /optimize S1 S2 ... [window] - Find the allocation with the best Sharpe ratio (0.1 grid)\n" +
		"- /events S1 S2 ... [window] - Find drops below $10 and chart the average path around them\n" +
		"- /runs - Your latest simulations and optimizations\n" +
		"\nWindow like 30d, 6w, 3m, 1y (default 1y). Daily closes from Yahoo."
	h.reply(chatID, help)
}

func (h *Handlers) commentary(ctx context.Context, chatID int64, summary string) {
	if h.comment == nil {
		return
	}
	note, err := h.comment.Comment(ctx, summary)
	if err != nil {
		h.log.Warn().Err(err).Msg("commentary failed")
		return
	}
	if note != "" {
		h.reply(chatID, note)
	}
}

func (h *Handlers) photo(chatID int64, name string, img []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	photo.Caption = truncateRunes(caption, maxCaption)
	if _, err := h.api.Send(photo); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send photo failed")
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
