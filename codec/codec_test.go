package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Data  []byte `json:"data"`
}

func TestCodecRoundTrip(t *testing.T) {
	c := Codec{}
	in := testStruct{Name: "test", Value: 42, Data: []byte("hello")}

	b, err := c.Marshal(in)
	require.NoError(t, err)

	var out testStruct
	require.NoError(t, c.Unmarshal(CurrentVersion, b, &out))
	require.Equal(t, in, out)
}

func TestCodecRejectsUnknownVersion(t *testing.T) {
	c := Codec{}
	b, err := c.Marshal(testStruct{Name: "x"})
	require.NoError(t, err)

	var out testStruct
	err = c.Unmarshal(Version(7), b, &out)
	require.Error(t, err)
}
