package orchestrator

import (
	"context"
	"sync"
	"time"
)

// CompareResult is one provider's slot in a comparison: either a reply or
// the text of the error that ended its pipeline.
type CompareResult struct {
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Compare sends the same message to each named provider and gathers every
// reply. Each provider gets its own three-step pipeline (start, send, stop)
// on its own goroutine; one pipeline's failure is captured in its slot and
// never cancels the others. The result map holds exactly one entry per
// distinct requested name and is returned only after every pipeline has
// finished.
func (o *Orchestrator) Compare(ctx context.Context, text string, providerNames []string) map[string]CompareResult {
	results := make(map[string]CompareResult, len(providerNames))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range providerNames {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			res := o.runPipeline(ctx, name, text)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	return results
}

// runPipeline runs one start/send/stop pipeline against a single provider.
// The session is stopped even when the send fails, so comparisons never
// leak subprocesses.
func (o *Orchestrator) runPipeline(ctx context.Context, providerName, text string) CompareResult {
	id, err := o.StartSession(ctx, providerName)
	if err != nil {
		return CompareResult{Error: err.Error(), Timestamp: time.Now()}
	}
	defer o.StopSession(ctx, id)

	reply, err := o.SendMessage(ctx, id, text)
	if err != nil {
		return CompareResult{Error: err.Error(), Timestamp: time.Now()}
	}
	return CompareResult{Response: reply, Timestamp: time.Now()}
}
