package coverage

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-coords/internal/coords"
)

// ErrNoLevel is returned when no coverage level is fine enough for a view.
var ErrNoLevel = errors.New("no coverage level for view length")

// Level is one binning resolution. It serves views whose total length is at
// least MinLength.
type Level struct {
	MinLength int64
	File      *File
}

// Handler picks the coarsest coverage level suitable for a view, so long
// views read a few wide bins and short views read per-base rows.
type Handler struct {
	levels []Level
	logger *zap.Logger
}

// NewHandler creates a handler over the given levels.
func NewHandler(levels ...Level) *Handler {
	ls := append([]Level(nil), levels...)
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].MinLength < ls[j].MinLength })
	return &Handler{levels: ls, logger: zap.NewNop()}
}

// SetLogger sets the logger for query timing output.
func (h *Handler) SetLogger(l *zap.Logger) {
	h.logger = l
}

// Level returns the level used for a view of the given length.
func (h *Handler) Level(length int64) (Level, error) {
	for i := len(h.levels) - 1; i >= 0; i-- {
		if h.levels[i].MinLength <= length {
			return h.levels[i], nil
		}
	}
	return Level{}, fmt.Errorf("%w: %d", ErrNoLevel, length)
}

// ForIntervalSet returns the bins covering every interval of the set, in
// order, each clipped to its interval.
func (h *Handler) ForIntervalSet(is *coords.IntervalSet) ([]Bin, error) {
	level, err := h.Level(is.Length())
	if err != nil {
		return nil, err
	}

	var bins []Bin
	for _, iv := range is.Intervals() {
		bins = append(bins, level.File.Query(is.Chrom, iv.Start, iv.Stop)...)
	}
	h.logger.Debug("coverage query",
		zap.String("intervals", is.String()),
		zap.String("file", level.File.Path()),
		zap.Int("bins", len(bins)))
	return bins, nil
}
