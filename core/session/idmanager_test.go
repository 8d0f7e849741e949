package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDManagerRejectsDottedWorkerName(t *testing.T) {
	_, err := NewIDManager(IDManagerConfig{WorkerName: "node.1"}, nil)
	assert.ErrorIs(t, err, ErrInvalidWorkerName)
}

func TestNewSessionIDNeverEmptyAndNoDotWithoutWorkerName(t *testing.T) {
	mgr, err := NewIDManager(IDManagerConfig{}, nil)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		id := mgr.NewSessionID("", int64(i))
		assert.NotEmpty(t, id)
		assert.NotContains(t, id, ".")
	}
}

type fakeHandler struct {
	path      string
	inUse     map[string]bool
	invalid   []string
	renamed   [][2]string
}

func (f *fakeHandler) ContextPath() string       { return f.path }
func (f *fakeHandler) IsIDInUse(id string) bool  { return f.inUse[id] }
func (f *fakeHandler) HandleInvalidate(id string) { f.invalid = append(f.invalid, id) }
func (f *fakeHandler) HandleRename(oldID, newID string) {
	f.renamed = append(f.renamed, [2]string{oldID, newID})
}

func TestNewSessionIDReusesRequestedIDWhenInUse(t *testing.T) {
	mgr, err := NewIDManager(IDManagerConfig{}, nil)
	require.NoError(t, err)

	h := &fakeHandler{path: "/app", inUse: map[string]bool{"A": true}}
	mgr.Register(h)

	id := mgr.NewSessionID("A", 0)
	assert.Equal(t, "A", id)
}

func TestGetExtendedIDAndGetIDRoundTrip(t *testing.T) {
	mgr, err := NewIDManager(IDManagerConfig{WorkerName: "node-1", NodeIDInSessionID: true}, nil)
	require.NoError(t, err)

	ext := mgr.GetExtendedID("abc")
	assert.True(t, strings.HasSuffix(ext, ".node-1"))
	assert.Equal(t, "abc", mgr.GetID(ext))
	assert.Equal(t, "abc", mgr.GetID("abc"))
}

func TestInvalidateAllFansOutToEveryHandler(t *testing.T) {
	mgr, err := NewIDManager(IDManagerConfig{}, nil)
	require.NoError(t, err)

	h1 := &fakeHandler{path: "/a"}
	h2 := &fakeHandler{path: "/b"}
	mgr.Register(h1)
	mgr.Register(h2)

	mgr.InvalidateAll("x")

	assert.Equal(t, []string{"x"}, h1.invalid)
	assert.Equal(t, []string{"x"}, h2.invalid)
}

func TestRenewSessionIDFansRenameOutToEveryHandler(t *testing.T) {
	mgr, err := NewIDManager(IDManagerConfig{}, nil)
	require.NoError(t, err)

	h := &fakeHandler{path: "/a"}
	mgr.Register(h)

	newID := mgr.RenewSessionID("old", 0)
	require.NotEmpty(t, newID)
	require.Len(t, h.renamed, 1)
	assert.Equal(t, "old", h.renamed[0][0])
	assert.Equal(t, newID, h.renamed[0][1])
}

func TestIsIDInUseAggregatesAcrossHandlers(t *testing.T) {
	mgr, err := NewIDManager(IDManagerConfig{}, nil)
	require.NoError(t, err)

	mgr.Register(&fakeHandler{path: "/a", inUse: map[string]bool{}})
	mgr.Register(&fakeHandler{path: "/b", inUse: map[string]bool{"y": true}})

	assert.True(t, mgr.IsIDInUse("y"))
	assert.False(t, mgr.IsIDInUse("z"))
}
