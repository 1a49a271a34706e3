package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestFSStoreSaveLoadRoundTrip(t *testing.T) {
	fs := newTestStore(t)
	want := validResult()

	require.NoError(t, fs.SaveResult(want))

	got, err := fs.LoadResult(want.ID)
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Fingerprint, got.Fingerprint)
	assert.Equal(t, want.Radii, got.Radii)
	assert.Equal(t, want.RadiusUnit, got.RadiusUnit)
	assert.Equal(t, want.Density, got.Density)
	assert.Equal(t, want.DensityUnit, got.DensityUnit)
	assert.Equal(t, want.Params, got.Params)
	assert.Equal(t, want.DensityHSE, got.DensityHSE)
	assert.Equal(t, want.Residual, got.Residual)
	assert.Equal(t, want.Success, got.Success)
	assert.Equal(t, want.Message, got.Message)
	assert.Equal(t, want.Iterations, got.Iterations)
	assert.True(t, got.CreatedAt.Equal(want.CreatedAt))
}

func TestFSStoreSaveOverwrites(t *testing.T) {
	fs := newTestStore(t)
	r := validResult()

	require.NoError(t, fs.SaveResult(r))

	r.Residual = 0.5
	r.Success = false
	require.NoError(t, fs.SaveResult(r))

	got, err := fs.LoadResult(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.Residual)
	assert.False(t, got.Success)

	infos, err := fs.ListResults()
	require.NoError(t, err)
	assert.Len(t, infos, 1, "overwriting must not duplicate the result")
}

func TestFSStoreSaveRejectsInvalid(t *testing.T) {
	fs := newTestStore(t)

	require.Error(t, fs.SaveResult(nil))

	r := validResult()
	r.ID = ""
	err := fs.SaveResult(r)
	require.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFSStoreLoadMissing(t *testing.T) {
	fs := newTestStore(t)

	_, err := fs.LoadResult("no-such-fit")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFSStoreList(t *testing.T) {
	fs := newTestStore(t)

	infos, err := fs.ListResults()
	require.NoError(t, err)
	assert.Empty(t, infos)

	a := validResult()
	a.ID = "fit-a"
	b := validResult()
	b.ID = "fit-b"
	b.Success = false

	require.NoError(t, fs.SaveResult(a))
	require.NoError(t, fs.SaveResult(b))

	infos, err = fs.ListResults()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byID := map[string]ResultInfo{}
	for _, info := range infos {
		byID[info.ID] = info
	}
	assert.True(t, byID["fit-a"].Success)
	assert.False(t, byID["fit-b"].Success)
	assert.Equal(t, len(a.Radii), byID["fit-a"].Points)
}

func TestFSStoreListSkipsCorrupted(t *testing.T) {
	fs := newTestStore(t)

	good := validResult()
	require.NoError(t, fs.SaveResult(good))

	dir := filepath.Join(fs.BaseDir(), "fits", "broken")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "result.json"), []byte("not json"), 0644))

	infos, err := fs.ListResults()
	require.NoError(t, err)
	require.Len(t, infos, 1, "corrupted entries are skipped, not fatal")
	assert.Equal(t, good.ID, infos[0].ID)
}

func TestFSStoreDelete(t *testing.T) {
	fs := newTestStore(t)
	r := validResult()

	require.NoError(t, fs.SaveResult(r))
	require.NoError(t, fs.SaveTrace(r.ID, []TraceEntry{{Eval: 1, Cost: 2}}))

	require.NoError(t, fs.DeleteResult(r.ID))

	_, err := fs.LoadResult(r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = fs.LoadTrace(r.ID)
	assert.ErrorIs(t, err, ErrNotFound, "deleting a result removes its trace")

	err = fs.DeleteResult(r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStoreFindByFingerprint(t *testing.T) {
	fs := newTestStore(t)
	r := validResult()
	require.NoError(t, fs.SaveResult(r))

	got, err := fs.FindByFingerprint(r.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = fs.FindByFingerprint("deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fs.FindByFingerprint("")
	assert.Error(t, err)
}
