package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobinsight/jobinsight/internal/aggregator"
)

func bucket(app, subject string, seconds, count int) aggregator.Bucket {
	return aggregator.Bucket{
		Key:          aggregator.Key{App: app, Subject: subject},
		TotalSeconds: seconds,
		Count:        count,
	}
}

func TestCompressAllBucketsFit(t *testing.T) {
	buckets := []aggregator.Bucket{
		bucket("Chrome", "github.com", 3600, 40),
		bucket("Code.exe", "main.go", 1800, 12),
	}

	summary := Compress(buckets, 8000)
	assert.Equal(t, 2, summary.Included)
	assert.Zero(t, summary.RolledUp)
	assert.Contains(t, summary.Text, "github.com")
	assert.Contains(t, summary.Text, "main.go")
	assert.Contains(t, summary.Text, "1h00m")
	assert.LessOrEqual(t, len(summary.Text), 8000)
}

func TestCompressRespectsBudgetWithRollup(t *testing.T) {
	buckets := []aggregator.Bucket{
		bucket("Chrome", "github.com", 3600, 40),
		bucket("Code.exe", "main.go", 1800, 12),
		bucket("Chrome", "stackoverflow.com", 600, 8),
		bucket("Spotify", "lo-fi beats", 300, 2),
	}

	budget := 100
	summary := Compress(buckets, budget)

	assert.LessOrEqual(t, len(summary.Text), budget)
	assert.GreaterOrEqual(t, summary.Included, 1)
	assert.GreaterOrEqual(t, summary.RolledUp, 1)
	assert.Equal(t, 4, summary.Included+summary.RolledUp)
	// The excluded tail stays visible as a rollup line.
	assert.Contains(t, summary.Text, "other activities")
	// The largest bucket always appears.
	assert.Contains(t, summary.Text, "github.com")
}

func TestCompressDeterministicAndIdempotent(t *testing.T) {
	buckets := []aggregator.Bucket{
		bucket("Chrome", "github.com", 3600, 40),
		bucket("Code.exe", "main.go", 1800, 12),
		bucket("Chrome", "stackoverflow.com", 600, 8),
	}

	first := Compress(buckets, 120)
	second := Compress(buckets, 120)
	assert.Equal(t, first, second)
}

func TestCompressFirstBucketNeverOmitted(t *testing.T) {
	buckets := []aggregator.Bucket{
		bucket("Chrome", strings.Repeat("very-long-domain.", 20), 3600, 40),
		bucket("Code.exe", "main.go", 1800, 12),
	}

	budget := 30
	summary := Compress(buckets, budget)

	require.Equal(t, 1, summary.Included)
	assert.Equal(t, 1, summary.RolledUp)
	assert.LessOrEqual(t, len(summary.Text), budget)
	assert.NotEmpty(t, summary.Text)
	assert.True(t, strings.HasPrefix(summary.Text, "- "))
}

func TestCompressEmptyBuckets(t *testing.T) {
	summary := Compress(nil, 8000)
	assert.Equal(t, emptySummaryLine, summary.Text)
	assert.Zero(t, summary.Included)
	assert.Zero(t, summary.RolledUp)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "45s", formatSeconds(45))
	assert.Equal(t, "2m05s", formatSeconds(125))
	assert.Equal(t, "1h01m", formatSeconds(3660))
}
