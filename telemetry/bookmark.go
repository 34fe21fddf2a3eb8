package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstFinisher BookmarkType = "first_finisher"
	BookmarkNewBest       BookmarkType = "new_best"
	BookmarkBreakthrough  BookmarkType = "mean_breakthrough"
	BookmarkStagnation    BookmarkType = "stagnation"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Generation  int          `csv:"generation"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable generations in a training run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	stagnationGens int

	best          float64
	sinceBest     int
	finisherSeen  bool
	stagnantFired bool
}

// NewBookmarkDetector creates a detector with the given history size.
// stagnationGens <= 0 disables stagnation bookmarks.
func NewBookmarkDetector(historySize, stagnationGens int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:        make([]GenerationStats, historySize),
		historySize:    historySize,
		stagnationGens: stagnationGens,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFirstFinisher(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkNewBest(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkBreakthrough(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkStagnation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

// Reset forgets all history, e.g. when the algorithm restarts.
func (bd *BookmarkDetector) Reset() {
	*bd = *NewBookmarkDetector(bd.historySize, bd.stagnationGens)
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkFirstFinisher(stats GenerationStats) *Bookmark {
	if bd.finisherSeen || stats.Finishers == 0 {
		return nil
	}
	bd.finisherSeen = true
	return &Bookmark{
		Type:        BookmarkFirstFinisher,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("%d genotypes completed the track", stats.Finishers),
	}
}

func (bd *BookmarkDetector) checkNewBest(stats GenerationStats) *Bookmark {
	first := bd.historyIdx == 0 && !bd.historyFull
	if !first && stats.BestEval <= bd.best {
		bd.sinceBest++
		return nil
	}

	old := bd.best
	bd.best = stats.BestEval
	bd.sinceBest = 0
	bd.stagnantFired = false
	if first {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkNewBest,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("Best evaluation improved from %.3f to %.3f", old, stats.BestEval),
	}
}

func (bd *BookmarkDetector) checkBreakthrough(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.MeanEval
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.MeanEval > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkBreakthrough,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Mean evaluation %.3f is %.1fx rolling average (%.3f)", stats.MeanEval, stats.MeanEval/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStagnation(stats GenerationStats) *Bookmark {
	if bd.stagnationGens <= 0 || bd.stagnantFired || bd.sinceBest < bd.stagnationGens {
		return nil
	}
	bd.stagnantFired = true
	return &Bookmark{
		Type:        BookmarkStagnation,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("No new best for %d generations (best %.3f)", bd.sinceBest, bd.best),
	}
}
