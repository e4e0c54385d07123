package blockcache_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"bbgraph/internal/blockcache"
	"bbgraph/internal/blockgraph"
)

func TestCache_PutGet(t *testing.T) {
	c, err := blockcache.Open(t.TempDir(), "bbg")
	require.NoError(t, err)

	key := blockcache.Key([]byte("return\n"), "brief", "bigblock")
	_, ok, err := c.Get(key)
	require.NoError(t, err)
	require.False(t, ok)

	snap := &blockgraph.Snapshot{
		Name:   "f",
		Units:  []string{"u0", "u1"},
		Blocks: []blockgraph.BlockSnapshot{{Start: 0, Len: 1, Succs: []uint32{1}}, {Start: 1, Len: 1, Preds: []uint32{0}}},
		Heads:  []uint32{0},
		Tails:  []uint32{1},
	}
	require.NoError(t, c.Put(key, &blockcache.Payload{
		File:   "f.bbl",
		Graph:  "brief",
		Policy: "bigblock",
		Bodies: []blockcache.Entry{{Name: "f", Snapshot: snap}, {Name: "g", Err: "blockgraph: body has no units"}},
	}))

	got, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "f.bbl", got.File)
	require.Len(t, got.Bodies, 2)
	require.Equal(t, snap.Blocks[0].Succs, got.Bodies[0].Snapshot.Blocks[0].Succs)
	require.Equal(t, []string{"u1"}, got.Bodies[0].Snapshot.BlockUnits(1))
	require.Nil(t, got.Bodies[1].Snapshot)
	require.Equal(t, "blockgraph: body has no units", got.Bodies[1].Err)

	require.NoError(t, c.DropAll())
	_, ok, err = c.Get(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKey_DependsOnSettings(t *testing.T) {
	src := []byte("return\n")
	require.Equal(t, blockcache.Key(src, "brief", "bigblock"), blockcache.Key(src, "brief", "bigblock"))
	require.NotEqual(t, blockcache.Key(src, "brief", "bigblock"), blockcache.Key(src, "exceptional", "bigblock"))
	require.NotEqual(t, blockcache.Key(src, "brief", "bigblock"), blockcache.Key(src, "brief", "classic"))
}

func TestCache_NilIsDisabled(t *testing.T) {
	var c *blockcache.Cache
	require.NoError(t, c.Put(blockcache.Digest{}, &blockcache.Payload{}))
	_, ok, err := c.Get(blockcache.Digest{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncodeDecode_SchemaCheck(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, blockcache.Encode(&buf, &blockcache.Payload{File: "a.bbl"}))
	got, err := blockcache.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, "a.bbl", got.File)
	require.NotZero(t, got.Written)

	buf.Reset()
	require.NoError(t, msgpack.NewEncoder(&buf).Encode(&blockcache.Payload{Schema: 99}))
	_, err = blockcache.Decode(&buf)
	require.ErrorIs(t, err, blockcache.ErrSchema)
}

func TestDecode_RejectsDamagedSnapshot(t *testing.T) {
	damaged := &blockgraph.Snapshot{
		Name:   "f",
		Units:  []string{"return"},
		Blocks: []blockgraph.BlockSnapshot{{Start: 0, Len: 3}},
		Heads:  []uint32{0},
		Tails:  []uint32{0},
	}
	var buf bytes.Buffer
	require.NoError(t, blockcache.Encode(&buf, &blockcache.Payload{Bodies: []blockcache.Entry{{Name: "f", Snapshot: damaged}}}))
	_, err := blockcache.Decode(&buf)
	require.ErrorContains(t, err, "body f")
	require.NotErrorIs(t, err, blockcache.ErrSchema)

	c, err := blockcache.Open(t.TempDir(), "bbg")
	require.NoError(t, err)
	key := blockcache.Key([]byte("return\n"), "brief", "bigblock")
	require.NoError(t, c.Put(key, &blockcache.Payload{Bodies: []blockcache.Entry{{Name: "f", Snapshot: damaged}}}))
	_, ok, err := c.Get(key)
	require.Error(t, err)
	require.False(t, ok)
}
