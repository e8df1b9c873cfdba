package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChunks struct {
	stats  world.ManagerStats
	states map[vec.Vec2]world.ChunkState
	data   map[vec.Vec2]*world.ChunkData
}

func (f *fakeChunks) Stats() world.ManagerStats { return f.stats }

func (f *fakeChunks) State(coord vec.Vec2) world.ChunkState { return f.states[coord] }

func (f *fakeChunks) Chunk(coord vec.Vec2) (*world.ChunkData, bool) {
	d, ok := f.data[coord]
	return d, ok
}

func (f *fakeChunks) Chunks(state world.ChunkState) []vec.Vec2 {
	var out []vec.Vec2
	for c, s := range f.states {
		if s == state {
			out = append(out, c)
		}
	}
	return out
}

type fakeTiles struct{}

func (fakeTiles) InspectTile(tile vec.Vec2) world.TileInfo {
	return world.TileInfo{Tile: tile, Level: 3, Adjusted: 3, MaskString: "-", FlatArt: 77}
}

type fakeNoise struct{}

func (fakeNoise) CacheStats() terrain.CacheStats {
	return terrain.CacheStats{Hits: 10, Misses: 5, Capacity: 1024}
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*RestServer, *prometheus.Registry) {
	t.Helper()

	chunk := world.NewChunkData(vec.Vec2{X: 1, Y: 2}, 2, 2)
	chunks := &fakeChunks{
		stats: world.ManagerStats{Tick: 7, Resident: 1, Pending: 1, Workers: 4, QueueSize: 256},
		states: map[vec.Vec2]world.ChunkState{
			{X: 1, Y: 2}: world.ChunkResident,
			{X: 0, Y: 0}: world.ChunkPending,
		},
		data: map[vec.Vec2]*world.ChunkData{{X: 1, Y: 2}: chunk},
	}

	bus := eventbus.NewMemoryBus(16)
	t.Cleanup(bus.Close)

	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{
		Chunks:   chunks,
		Tiles:    fakeTiles{},
		Noise:    fakeNoise{},
		Bus:      bus,
		Registry: reg,
		Logger:   logging.NewWriterLogger("api", io.Discard, logging.ERROR),
	})
	return rs, reg
}

func get(t *testing.T, rs *RestServer, path string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rs.Handler().ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	rs, _ := newTestServer(t)
	w, _ := get(t, rs, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStats(t *testing.T) {
	rs, _ := newTestServer(t)
	w, resp := get(t, rs, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	var stats struct {
		Chunks world.ManagerStats  `json:"chunks"`
		Noise  *terrain.CacheStats `json:"noise_cache"`
		Events *eventbus.Stats     `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, uint64(7), stats.Chunks.Tick)
	assert.Equal(t, 4, stats.Chunks.Workers)
	require.NotNil(t, stats.Noise)
	assert.Equal(t, uint64(10), stats.Noise.Hits)
	assert.NotNil(t, stats.Events)
}

func TestChunkList(t *testing.T) {
	rs, _ := newTestServer(t)
	w, resp := get(t, rs, "/api/chunks")
	require.Equal(t, http.StatusOK, w.Code)

	var list ChunkListResponse
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, []vec.Vec2{{X: 1, Y: 2}}, list.Resident)
	assert.Equal(t, []vec.Vec2{{X: 0, Y: 0}}, list.Pending)
}

func TestChunkByCoord(t *testing.T) {
	rs, _ := newTestServer(t)

	w, resp := get(t, rs, "/api/chunks/1/2")
	require.Equal(t, http.StatusOK, w.Code)
	var chunk ChunkResponse
	require.NoError(t, json.Unmarshal(resp.Data, &chunk))
	assert.Equal(t, "resident", chunk.State)
	require.NotNil(t, chunk.Data)
	assert.Equal(t, 2, chunk.Data.Width)

	w, resp = get(t, rs, "/api/chunks/0/0")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &chunk))
	assert.Equal(t, "pending", chunk.State)

	w, resp = get(t, rs, "/api/chunks/-5/9")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)

	w, _ = get(t, rs, "/api/chunks/a/b")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTerrainInspect(t *testing.T) {
	rs, _ := newTestServer(t)
	w, resp := get(t, rs, "/api/terrain/-3/4")
	require.Equal(t, http.StatusOK, w.Code)

	var info world.TileInfo
	require.NoError(t, json.Unmarshal(resp.Data, &info))
	assert.Equal(t, vec.Vec2{X: -3, Y: 4}, info.Tile)
	assert.Equal(t, terrain.TerrainLevel(3), info.Level)
}

func TestMetricsEndpoint(t *testing.T) {
	rs, reg := newTestServer(t)
	get(t, rs, "/health")

	w, _ := get(t, rs, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "debug_api_http_request_duration_seconds")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5e9))
	assert.Equal(t, "1м 1с", formatUptime(61e9))
	assert.Equal(t, "1д 0ч 0м 0с", formatUptime(24*3600e9))
}
