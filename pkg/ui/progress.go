package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/relocator/pkg/types"
)

// ProgressBufferSize bounds how many samples may queue up before the
// sender starts dropping them
const ProgressBufferSize = 32

// ShowProgress returns a channel to hand to the migration engine and a
// stop function that must be called once the engine returns. Terminal
// output gets a progress bar, text output one line per step, and the
// structured formats nothing.
func ShowProgress(w io.Writer, format Format, title string) (chan types.Progress, func()) {
	ch := make(chan types.Progress, ProgressBufferSize)

	var consume func(types.Progress)
	finish := func() {}

	switch format {
	case FormatTerminal:
		bar, err := pterm.DefaultProgressbar.
			WithTotal(100).
			WithTitle(title).
			WithWriter(w).
			WithRemoveWhenDone(true).
			Start()
		if err != nil {
			consume = textProgress(w)
			break
		}
		consume = func(p types.Progress) {
			bar.UpdateTitle(progressTitle(title, p))
			if delta := int(p.Percent) - bar.Current; delta > 0 {
				bar.Add(delta)
			}
		}
		finish = func() { _, _ = bar.Stop() }
	case FormatText:
		consume = textProgress(w)
	default:
		consume = func(types.Progress) {}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range ch {
			consume(p)
		}
	}()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			close(ch)
			wg.Wait()
			finish()
		})
	}
}

// textProgress prints a line whenever the stage or item changes
func textProgress(w io.Writer) func(types.Progress) {
	var last types.Progress
	return func(p types.Progress) {
		if p.Stage == last.Stage && p.CurrentItem == last.CurrentItem {
			return
		}
		last = p
		if p.CurrentItem == "" {
			fmt.Fprintf(w, "[%s] %3.0f%%\n", p.Stage, p.Percent)
			return
		}
		fmt.Fprintf(w, "[%s] %3.0f%% %s\n", p.Stage, p.Percent, baseName(p.CurrentItem))
	}
}

func progressTitle(title string, p types.Progress) string {
	if p.CurrentItem == "" {
		return fmt.Sprintf("%s (%s)", title, p.Stage)
	}
	return fmt.Sprintf("%s (%s %s)", title, p.Stage, baseName(p.CurrentItem))
}
