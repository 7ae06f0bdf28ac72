package fsuri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathToURIEncodesReservedSet(t *testing.T) {
	u := PathToURI("/tmp/my [project]/src file.rs")
	assert.Contains(t, string(u), "%5Bproject%5D")
	assert.Contains(t, string(u), "src%20file.rs")
}

func TestRoundTripPathNoPercent(t *testing.T) {
	path := "/tmp/my [project]/src file.rs"
	u := PathToURI(path)
	got := URIToPath(u)
	require.Equal(t, path, got)
}

func TestRoundTripURINotReEncoded(t *testing.T) {
	u := PathToURI("/a/b#c?d.go")
	path := URIToPath(u)
	u2 := PathToURI(path)
	assert.Equal(t, u, u2)
}

func TestIsEncodedURI(t *testing.T) {
	assert.True(t, IsEncodedURI(PathToURI("/a/b.go")))
	assert.False(t, IsEncodedURI("not-a-uri"))
}
