package bytes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexBytesJSON(t *testing.T) {
	type holder struct {
		Key HexBytes `json:"key"`
	}

	bz, err := json.Marshal(holder{Key: HexBytes{0x0a, 0xbc, 0xff}})
	require.NoError(t, err)
	require.JSONEq(t, `{"key":"0ABCFF"}`, string(bz))

	var h holder
	require.NoError(t, json.Unmarshal([]byte(`{"key":"0abcff"}`), &h))
	require.Equal(t, HexBytes{0x0a, 0xbc, 0xff}, h.Key)

	require.Error(t, json.Unmarshal([]byte(`{"key":"xyz"}`), &h))
}

func TestHexBytesShortString(t *testing.T) {
	require.Equal(t, "0102", HexBytes{1, 2}.ShortString())
	require.Equal(t, "010203", HexBytes{1, 2, 3, 4}.ShortString())
	require.Equal(t, "", HexBytes(nil).String())
}
