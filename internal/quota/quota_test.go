package quota_test

import (
	"testing"

	"github.com/jabl/fancyquota/internal/quota"
	"github.com/stretchr/testify/assert"
)

func TestParseGrace(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"", "0", "-", "  "} {
		g := quota.ParseGrace(token)
		assert.False(t, g.Active(), "token %q", token)
		assert.Equal(t, quota.NoGrace, g)
	}

	g := quota.ParseGrace("1900000000")
	epoch, ok := g.Deadline()
	assert.True(t, ok)
	assert.Equal(t, int64(1900000000), epoch)
	_, ok = g.Text()
	assert.False(t, ok)

	g = quota.ParseGrace("6days")
	text, ok := g.Text()
	assert.True(t, ok)
	assert.Equal(t, "6days", text)
	_, ok = g.Deadline()
	assert.False(t, ok)
	assert.True(t, g.Active())
}

func TestBlock_Set(t *testing.T) {
	t.Parallel()

	b := quota.Block{Kind: quota.Group, Name: "staff"}
	b.Set("/a", quota.Figures{UsedBytes: 1})
	b.Set("/b", quota.Figures{UsedBytes: 2})
	b.Set("/a", quota.Figures{UsedBytes: 3})

	assert.Len(t, b.Entries, 2)
	assert.Equal(t, "/a", b.Entries[0].Mountpoint)
	f, ok := b.Lookup("/a")
	assert.True(t, ok)
	assert.Equal(t, uint64(3), f.UsedBytes)
	assert.Equal(t, "g:staff", b.Label())
	assert.Equal(t, "group", b.Kind.String())
}

func TestFigures_HasQuota(t *testing.T) {
	t.Parallel()

	assert.False(t, quota.Figures{}.HasQuota())
	assert.False(t, quota.Figures{SoftLimitBytes: quota.BlockSize}.HasQuota())
	assert.True(t, quota.Figures{SoftLimitBytes: 2 * quota.BlockSize}.HasQuota())
}
