package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ByteMirror/highlander/arena"
	"github.com/ByteMirror/highlander/config"
	"github.com/ByteMirror/highlander/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"
)

func testOptions(mode string) CheckOptions {
	opts := DefaultCheckOptions(config.Simulation{
		Count:              20,
		InitialHealth:      1000,
		Damage:             10,
		FightMode:          mode,
		YieldMs:            1,
		NaiveLockTimeoutMs: 5,
		StopGraceMs:        2000,
	})
	opts.Duration = 60 * time.Millisecond
	opts.Samples = 3
	return opts
}

func TestRunCheckText(t *testing.T) {
	for _, mode := range []string{config.FightModeOrdered, config.FightModeNaive} {
		t.Run(mode, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, RunCheck(context.Background(), &out, testOptions(mode)))
			assert.Equal(t, 3, strings.Count(out.String(), "invariant holds"), out.String())
		})
	}
}

func TestRunCheckJSON(t *testing.T) {
	opts := testOptions(config.FightModeOrdered)
	opts.Samples = 1
	opts.Format = report.FormatJSON
	opts.Detailed = true

	var out bytes.Buffer
	require.NoError(t, RunCheck(context.Background(), &out, opts))

	var r report.Report
	require.NoError(t, sonnet.Unmarshal(out.Bytes(), &r))
	assert.True(t, r.Holds)
	assert.Equal(t, 20, r.Population)
	assert.Len(t, r.Combatants, 20)
	assert.Equal(t, r.Expected, r.Actual)
}

func TestRunCheckRejectsBadInput(t *testing.T) {
	opts := testOptions(config.FightModeOrdered)
	opts.Samples = 0
	assert.Error(t, RunCheck(context.Background(), &bytes.Buffer{}, opts))

	opts = testOptions("berserk")
	assert.ErrorIs(t, RunCheck(context.Background(), &bytes.Buffer{}, opts), arena.ErrInvalidConfig)
}

func TestRunCheckCancelled(t *testing.T) {
	opts := testOptions(config.FightModeOrdered)
	opts.Duration = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, RunCheck(ctx, &bytes.Buffer{}, opts), context.DeadlineExceeded)
}
