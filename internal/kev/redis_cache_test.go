package kev

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, err := NewRedisCache("localhost:6379", "", 1) // DB 1 for tests
	if err != nil {
		t.Skip("Redis not available, skipping test")
	}
	defer cache.Close()

	ctx := context.Background()
	defer cache.rdb.Del(ctx, redisKey)

	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	in := &Catalog{
		CatalogVersion: "test",
		Vulnerabilities: []Vulnerability{
			{CVEID: "CVE-2024-3400", KnownRansomwareCampaignUse: true},
		},
	}
	require.NoError(t, cache.Store(ctx, in, at, time.Minute))

	out, fetchedAt, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.True(t, at.Equal(fetchedAt))
	v, ok := out.Find("cve-2024-3400")
	require.True(t, ok)
	assert.True(t, bool(v.KnownRansomwareCampaignUse))
}
