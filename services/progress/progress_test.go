package progress

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), ".progress"))
	fixed := time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	p, err := store.Load("tuhu")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, store.Save(&CrawlProgress{Vendor: "tuhu", RunID: "r1", FacetIndex: 2, LeafIndex: 17, Page: 3, Records: 412}))

	p, err = store.Load("tuhu")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.FacetIndex)
	assert.Equal(t, 17, p.LeafIndex)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 412, p.Records)
	assert.Equal(t, fixed, p.UpdatedAt)

	// No temporary file is left behind
	_, err = os.Stat(store.Path("tuhu") + ".tmp")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Clear("tuhu"))
	p, err = store.Load("tuhu")
	require.NoError(t, err)
	assert.Nil(t, p)

	// Clearing twice is fine
	assert.NoError(t, store.Clear("tuhu"))
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(store.Path("byd"), []byte("{not json"), 0o644))

	_, err := store.Load("byd")
	assert.Error(t, err)
}

func TestStoreRejectsForeignVendor(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(store.Path("byd"), []byte(`{"vendor":"tuhu"}`), 0o644))

	_, err := store.Load("byd")
	assert.ErrorContains(t, err, "belongs to")
}
