package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batamp/batamp-explorer/internal/app"
	"github.com/batamp/batamp-explorer/internal/buildinfo"
	"github.com/batamp/batamp-explorer/internal/crossfilter"
)

// writeDataset writes a small CSV dataset and a config file pointing at it,
// returning the config path.
func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"detectors.csv": "id,source,countType,siteId,siteName,lat,lon,admin1Name\n" +
			"1,batamp,a,10,North Ridge,40.5,-105.1,Colorado\n" +
			"2,nabat,p,20,Creek,45,-110,Montana\n",
		"spp_detections.csv": "detId,species,month,year,detections,detectionNights,detectorNights\n" +
			"1,mylu,6,2019,12,3,5\n" +
			"1,epfu,7,2019,2,1,5\n" +
			"2,mylu,7,2020,1,1,4\n",
		"config.yaml": "data:\n" +
			"  format: csv\n" +
			"  detectors: " + filepath.Join(dir, "detectors.csv") + "\n" +
			"  species: " + filepath.Join(dir, "spp_detections.csv") + "\n" +
			"  database:\n" +
			"    type: sqlite\n" +
			"    sqlite:\n" +
			"      path: " + filepath.Join(dir, "batamp.db") + "\n" +
			"logging:\n" +
			"  default_level: error\n" +
			"  console:\n" +
			"    enabled: false\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return filepath.Join(dir, "config.yaml")
}

// run executes the root command with args and returns stdout and stderr.
// Commands install the global logger, so tests using run are sequential.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	ctx := app.NewContext(buildinfo.NewContext("v0.0.1", ""))
	root := RootCommand(ctx)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = Execute(root, ctx)
	return out.String(), errOut.String(), err
}

func TestExploreJSON(t *testing.T) {
	config := writeDataset(t)

	out, _, err := run(t, "explore", "--config", config, "--filter", "species=mylu", "--json")
	require.NoError(t, err)

	var result crossfilter.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.InDelta(t, 3.0, result.Total, 0)
	assert.InDelta(t, 2.0, result.FilteredTotal, 0)
	assert.True(t, result.HasVisibleFilters)
	assert.NotContains(t, result.Dimensions, "lat")
}

func TestExploreTable(t *testing.T) {
	config := writeDataset(t)

	out, _, err := run(t, "explore", "--config", config, "--value-field", "detections", "--show", "species")
	require.NoError(t, err)
	assert.Contains(t, out, "15 of 15 detections")
	assert.Contains(t, out, "Little Brown Bat (Myotis lucifugus)")
	assert.NotContains(t, out, "Colorado")
}

func TestExploreUnknownDimension(t *testing.T) {
	config := writeDataset(t)

	_, _, err := run(t, "explore", "--config", config, "--filter", "color=red")
	require.Error(t, err)
}

func TestExploreShowUnknownDimension(t *testing.T) {
	config := writeDataset(t)

	out, _, err := run(t, "explore", "--config", config, "--show", "habitat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "habitat")
	assert.Empty(t, out)
}

func TestFailedCommandWritesMetrics(t *testing.T) {
	config := writeDataset(t)
	textfile := filepath.Join(t.TempDir(), "batamp.prom")

	_, _, err := run(t, "explore", "--config", config, "--metrics-textfile", textfile,
		"--filter", "color=red")
	require.Error(t, err)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "crossfilter_errors_total")
}

func TestDetail(t *testing.T) {
	config := writeDataset(t)

	out, _, err := run(t, "detail", "siteId", "10", "--config", config,
		"--value-field", "detections", "--filter", "month=6", "--json")
	require.NoError(t, err)

	var d struct {
		Total     float64 `json:"total"`
		BySpecies []struct {
			Species string `json:"species"`
		} `json:"bySpecies"`
		Notices []string `json:"notices"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.InDelta(t, 14.0, d.Total, 0)
	assert.Len(t, d.BySpecies, 2)
	assert.Len(t, d.Notices, 1)
}

func TestDetailUnknownEntity(t *testing.T) {
	config := writeDataset(t)

	_, _, err := run(t, "detail", "siteId", "99", "--config", config)
	require.Error(t, err)
}

func TestMap(t *testing.T) {
	config := writeDataset(t)
	outFile := filepath.Join(t.TempDir(), "map.geojson")

	_, legend, err := run(t, "map", "--config", config, "--field", "detId",
		"--filter", "year=2019", "--out", outFile)
	require.NoError(t, err)
	assert.Contains(t, legend, "1 of 1 entities")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, []float64{-105.1, 40.5}, fc.Features[0].Geometry.Point)
}

func TestImportThenExploreDatabase(t *testing.T) {
	config := writeDataset(t)

	out, _, err := run(t, "import", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 detectors and 3 species detection rows")

	out, _, err = run(t, "explore", "--config", config, "--format", "database", "--json")
	require.NoError(t, err)
	var result crossfilter.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.InDelta(t, 3.0, result.Total, 0)
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, _, err := run(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "crossfilter:")
}
