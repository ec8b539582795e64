package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type column struct {
	Name        string `json:"name"`
	Cardinality int    `json:"cardinality"`
}

func TestCodecs(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			data := MustMarshal(c, column{Name: "fruit", Cardinality: 3})
			assert.JSONEq(t, `{"name":"fruit","cardinality":3}`, string(data))

			var got column
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, column{Name: "fruit", Cardinality: 3}, got)
		})
	}

	_, ok := ByName("protobuf")
	assert.False(t, ok)
	assert.Equal(t, "go-json", Default.Name())
}
