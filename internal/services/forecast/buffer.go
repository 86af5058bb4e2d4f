package forecast

import (
	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
	"FinCast/pkg/util"
)

// RollingBuffer is the per-path, per-asset trailing history the simulator
// extends with one predicted bar per step.
type RollingBuffer struct {
	bars           []models.Bar
	maxLen         int
	volWindow      int
	periodsPerYear float64
	feats          []models.FeatureRow
}

// NewRollingBuffer copies the trailing maxLen bars of history.
func NewRollingBuffer(history []models.Bar, maxLen, volWindow int, periodsPerYear float64) *RollingBuffer {
	if maxLen <= 0 {
		maxLen = len(history)
	}
	start := 0
	if len(history) > maxLen {
		start = len(history) - maxLen
	}
	bars := make([]models.Bar, len(history)-start, maxLen+1)
	copy(bars, history[start:])
	b := &RollingBuffer{
		bars:           bars,
		maxLen:         maxLen,
		volWindow:      volWindow,
		periodsPerYear: periodsPerYear,
	}
	b.refresh()
	return b
}

// Append adds a bar, drops the oldest beyond maxLen and recomputes features.
func (b *RollingBuffer) Append(bar models.Bar) {
	if len(b.bars) >= b.maxLen {
		copy(b.bars, b.bars[1:])
		b.bars = b.bars[:len(b.bars)-1]
	}
	b.bars = append(b.bars, bar)
	b.refresh()
}

// AppendClose appends a simulated day opening at the previous close.
func (b *RollingBuffer) AppendClose(price float64) {
	prev, ok := b.last()
	if !ok {
		b.Append(models.Bar{Open: price, High: price, Low: price, Close: price})
		return
	}
	bar := models.Bar{
		Date:  util.NextTradingDay(prev.Date),
		Open:  prev.Close,
		High:  max(prev.Close, price),
		Low:   min(prev.Close, price),
		Close: price,
	}
	b.Append(bar)
}

func (b *RollingBuffer) refresh() {
	b.feats = features.ComputeFeatures(b.bars, b.volWindow, b.periodsPerYear)
}

func (b *RollingBuffer) last() (models.Bar, bool) {
	if len(b.bars) == 0 {
		return models.Bar{}, false
	}
	return b.bars[len(b.bars)-1], true
}

// Features returns the feature rows of the current buffer. Read only.
func (b *RollingBuffer) Features() []models.FeatureRow { return b.feats }

// Len returns the number of bars held.
func (b *RollingBuffer) Len() int { return len(b.bars) }

// LastClose returns the most recent close.
func (b *RollingBuffer) LastClose() (float64, bool) {
	bar, ok := b.last()
	return bar.Close, ok
}

// LastDailyChange returns close-open of the most recent bar.
func (b *RollingBuffer) LastDailyChange() float64 {
	bar, ok := b.last()
	if !ok {
		return 0
	}
	return bar.Close - bar.Open
}
