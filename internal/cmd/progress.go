package cmd

import (
	"io"
	"time"

	"github.com/dendrascience/trapstash/job"
	"github.com/schollz/progressbar/v2"
)

// barSteps is the resolution of every progress bar.
const barSteps = 1000

var pollInterval = 100 * time.Millisecond

// follow draws a bar for j until it finishes and returns its result.
func follow[T any](w io.Writer, j *job.Job[T]) (T, error) {
	bar := progressbar.NewOptions(barSteps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(j.Name()),
	)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.Done():
			bar.Set(int(j.Progress() * barSteps))
			bar.Finish()
			io.WriteString(w, "\n")
			return j.Wait()
		case <-ticker.C:
			bar.Set(int(j.Progress() * barSteps))
		}
	}
}
