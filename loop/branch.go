package loop

import (
	"context"
	"sync"

	"github.com/c360studio/agentloop/llm"
)

// BranchResult is one tier's answer to a fanned-out prompt.
type BranchResult struct {
	Tier     string
	Response *llm.Response
	Err      error
}

// Branch fans the same message list out to several ladder tiers
// concurrently and joins on all results. No branch shares mutable state
// with another; results come back ordered by the input tier list.
func Branch(ctx context.Context, client Completer, messages []llm.Message, tiers []string) []BranchResult {
	results := make([]BranchResult, len(tiers))
	var wg sync.WaitGroup

	for i, tier := range tiers {
		wg.Add(1)
		go func(idx int, tier string) {
			defer wg.Done()

			resp, err := client.Complete(ctx, llm.Request{
				Model:    tier,
				Messages: messages,
			})
			results[idx] = BranchResult{Tier: tier, Response: resp, Err: err}
		}(i, tier)
	}
	wg.Wait()

	return results
}

// BestBranch picks the successful branch from the strongest tier,
// breaking ties toward the later entry in the tier list (tiers are
// ordered weakest to strongest). Returns false when every branch failed.
func BestBranch(results []BranchResult) (BranchResult, bool) {
	ok := make([]BranchResult, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Response != nil {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return BranchResult{}, false
	}
	return ok[len(ok)-1], true
}
