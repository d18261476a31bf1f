package mbti

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T, data string, mutate func(*Config)) (*Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeDataset(t, fs, "/countries.csv", data, time.Unix(100, 0))
	cfg := DefaultConfig()
	cfg.DataPath = "/countries.csv"
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(cfg, NewLoader(LoaderOptions{Fs: fs}), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, fs
}

func TestServiceQueries(t *testing.T) {
	svc, _ := newTestService(t, sampleMerged, nil)

	avgs, err := svc.Averages()
	require.NoError(t, err)
	assert.Len(t, avgs, 5)

	common, err := svc.MostCommon()
	require.NoError(t, err)
	assert.Len(t, common, 3)

	top, err := svc.TopN("ESTJ", 0)
	require.NoError(t, err)
	assert.Len(t, top, 4)
	assert.Equal(t, "Brazil", top[0].Country)

	cmpRes, err := svc.Compare("Japan")
	require.NoError(t, err)
	assert.Equal(t, "South Korea", cmpRes.Reference)

	_, err = svc.Compare("Atlantis")
	assert.ErrorIs(t, err, ErrCountryNotFound)
	_, err = svc.TopN("ABCD", 3)
	assert.ErrorIs(t, err, ErrUnknownType)

	assert.Equal(t, 1, svc.Memo().Stats().Misses)
}

func TestServiceDefaultTarget(t *testing.T) {
	svc, _ := newTestService(t, sampleMerged, nil)
	target, err := svc.DefaultTarget()
	require.NoError(t, err)
	assert.Equal(t, "United States", target)

	svc, _ = newTestService(t, sampleMerged, func(c *Config) { c.LastTarget = "Japan" })
	target, err = svc.DefaultTarget()
	require.NoError(t, err)
	assert.Equal(t, "Japan", target)

	svc, _ = newTestService(t, "Country,ESTJ\nSouth Korea,1\nChile,2\n", nil)
	target, err = svc.DefaultTarget()
	require.NoError(t, err)
	assert.Equal(t, "South Korea", target)
}

func TestServiceSnapshot(t *testing.T) {
	svc, _ := newTestService(t, sampleMerged, nil)

	snap, err := svc.Snapshot("", "")
	require.NoError(t, err)
	assert.Equal(t, TypeCode("ESTJ"), snap.SelectedType)
	assert.Equal(t, "United States", snap.Target)
	assert.False(t, snap.ReferenceMissing)
	require.NotNil(t, snap.Comparison)
	assert.Equal(t, "South Korea", snap.Comparison.Reference)
	assert.Len(t, snap.MostCommon, 3)
	assert.Equal(t, []string{"South Korea", "United States", "Japan", "Brazil"}, snap.Countries)

	snap, err = svc.Snapshot("INTJ", "Japan")
	require.NoError(t, err)
	assert.Len(t, snap.Top, 3)
	assert.Equal(t, "Japan", snap.Comparison.Target)

	_, err = svc.Snapshot("ISTP", "")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestServiceSnapshotMissingReference(t *testing.T) {
	svc, _ := newTestService(t, "Country,ESTJ\nChile,2\n", nil)

	snap, err := svc.Snapshot("", "")
	require.NoError(t, err)
	assert.True(t, snap.ReferenceMissing)
	assert.Nil(t, snap.Comparison)
	assert.Equal(t, "Chile", snap.Target)
}

func TestServiceReloadPicksUpChanges(t *testing.T) {
	svc, fs := newTestService(t, "Country,ESTJ\nA,1\n", nil)

	table, err := svc.Table()
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	writeDataset(t, fs, "/countries.csv", "Country,ESTJ\nA,1\nB,2\n", time.Unix(200, 0))
	cached, err := svc.Table()
	require.NoError(t, err)
	assert.Same(t, table, cached)

	reloaded, err := svc.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
}

func TestServiceReloadFailureDropsTable(t *testing.T) {
	svc, fs := newTestService(t, "Country,ESTJ\nA,1\n", nil)
	_, err := svc.Table()
	require.NoError(t, err)

	require.NoError(t, fs.Remove("/countries.csv"))
	_, err = svc.Reload()
	assert.ErrorIs(t, err, ErrSourceNotFound)
	_, err = svc.Averages()
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestServiceUpdateConfig(t *testing.T) {
	svc, fs := newTestService(t, "Country,ESTJ\nA,1\n", nil)
	writeDataset(t, fs, "/other.csv", "Country,INTJ\nZ,5\n", time.Unix(100, 0))
	_, err := svc.Table()
	require.NoError(t, err)

	cfg := svc.Config()
	cfg.DataPath = "/other.csv"
	require.NoError(t, svc.UpdateConfig(cfg))

	table, err := svc.Table()
	require.NoError(t, err)
	assert.Equal(t, []string{"Z"}, table.Countries())

	cfg.TopN = -1
	cfg.Log.Level = "loud"
	assert.Error(t, svc.UpdateConfig(cfg))
}
