package detect

import (
	"runtime"
)

// Outcome pairs a result with the error, if any, for one input of a batch.
type Outcome struct {
	Input  string
	Result *Result
	Err    error
}

// DetectAll runs DetectPath on every input with at most workers goroutines.
// Outcomes are returned in input order; a failing input does not stop the
// others.
func (d *Detector) DetectAll(inputs []string, workers int) []Outcome {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	outcomes := make([]Outcome, len(inputs))
	if len(inputs) == 0 {
		return outcomes
	}

	type task struct {
		idx  int
		path string
	}
	tasks := make(chan task)
	done := make(chan struct{})

	for w := 0; w < workers; w++ {
		go func() {
			for t := range tasks {
				res, err := d.DetectPath(t.path)
				outcomes[t.idx] = Outcome{Input: t.path, Result: res, Err: err}
				done <- struct{}{}
			}
		}()
	}

	go func() {
		for i, p := range inputs {
			tasks <- task{idx: i, path: p}
		}
		close(tasks)
	}()

	completed := 0
	for completed < len(inputs) {
		<-done
		completed++
		d.log.Debug().Int("completed", completed).Int("total", len(inputs)).Msg("batch progress")
	}
	return outcomes
}
