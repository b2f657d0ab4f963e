package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParamMatchesIndexType(t *testing.T) {
	hnsw := searchParamFor("HNSW")
	require.NotNil(t, hnsw)
	assert.Contains(t, hnsw.Params(), "ef")

	auto := searchParamFor("AUTOINDEX")
	require.NotNil(t, auto)
	assert.Contains(t, auto.Params(), "level")

	ivf := searchParamFor("IVF_FLAT")
	require.NotNil(t, ivf)
	assert.Contains(t, ivf.Params(), "nprobe")
}
