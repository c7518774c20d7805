package progress

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Renders updates as a terminal progress bar.
type Bar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// Creates a bar writing to w, typically stderr.
func NewBar(w io.Writer) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetDescription("[cyan]starting[reset]"),
		),
	}
}

// Moves the bar to u.Percent and shows the phase as its description.
func (b *Bar) Report(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bar.Describe("[cyan]" + string(u.Phase) + "[reset]")
	_ = b.bar.Set(u.Percent)
	if u.Percent >= 100 {
		_ = b.bar.Finish()
	}
}

// Removes the bar from the terminal without completing it.
//
// Used when the operation fails part way.
func (b *Bar) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bar.Clear()
}
