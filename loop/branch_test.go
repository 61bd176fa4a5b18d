package loop

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/agentloop/llm"
)

// tierClient answers per tier, failing the tiers named in fail.
type tierClient struct {
	mu   sync.Mutex
	fail map[string]bool
	seen []string
}

func (c *tierClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	c.seen = append(c.seen, req.Model)
	c.mu.Unlock()

	if c.fail[req.Model] {
		return nil, errors.New("endpoint unavailable")
	}
	return &llm.Response{Content: "answer from " + req.Model, Model: req.Model}, nil
}

func TestBranchFansOutToAllTiers(t *testing.T) {
	client := &tierClient{}
	tiers := []string{"haiku", "sonnet", "opus"}

	results := Branch(context.Background(), client, []llm.Message{{Role: "user", Content: "compare"}}, tiers)

	require.Len(t, results, 3)
	for i, tier := range tiers {
		assert.Equal(t, tier, results[i].Tier)
		require.NoError(t, results[i].Err)
		assert.Equal(t, "answer from "+tier, results[i].Response.Content)
	}
	assert.ElementsMatch(t, tiers, client.seen)
}

func TestBranchCapturesPerTierFailures(t *testing.T) {
	client := &tierClient{fail: map[string]bool{"sonnet": true}}

	results := Branch(context.Background(), client, nil, []string{"haiku", "sonnet"})

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestBestBranchPrefersStrongestTier(t *testing.T) {
	client := &tierClient{fail: map[string]bool{"opus": true}}

	results := Branch(context.Background(), client, nil, []string{"haiku", "sonnet", "opus"})

	best, ok := BestBranch(results)
	require.True(t, ok)
	assert.Equal(t, "sonnet", best.Tier)
}

func TestBestBranchAllFailed(t *testing.T) {
	client := &tierClient{fail: map[string]bool{"haiku": true, "sonnet": true}}

	results := Branch(context.Background(), client, nil, []string{"haiku", "sonnet"})

	_, ok := BestBranch(results)
	assert.False(t, ok)
}
