package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// predictorEncoded is a flate stream of two 4-column rows, the second row
// filtered with the PNG up predictor. Reversed, it reads 1..8.
func predictorEncoded() []byte {
	return flate([]byte{
		0, 1, 2, 3, 4,
		2, 4, 4, 4, 4,
	})
}

func TestDecodeStreamPredictorDictParms(t *testing.T) {
	dict := Dict{
		"Filter":      Name("FlateDecode"),
		"DecodeParms": Dict{"Predictor": Integer(12), "Columns": Integer(4)},
	}
	out, err := decodeStream(dict, predictorEncoded())
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out)
}

func TestDecodeStreamPredictorArrayParms(t *testing.T) {
	dict := Dict{
		"Filter":      Array{Name("FlateDecode")},
		"DecodeParms": Array{Dict{"Predictor": Integer(12), "Columns": Integer(4)}},
	}
	out, err := decodeStream(dict, predictorEncoded())
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out)
}

func TestDecodeStreamResolvesIndirectParms(t *testing.T) {
	parms := Dict{"Predictor": Integer(12), "Columns": Integer(4)}
	dict := Dict{
		"Filter":      Name("FlateDecode"),
		"DecodeParms": Ref{Num: 9},
	}
	out, err := decodeStreamWith(dict, predictorEncoded(), func(obj Object) Object {
		if ref, ok := obj.(Ref); ok && ref.Num == 9 {
			return parms
		}
		return obj
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out)
}

func TestDecodeStreamIndirectParmsWithoutResolver(t *testing.T) {
	dict := Dict{
		"Filter":      Name("FlateDecode"),
		"DecodeParms": Ref{Num: 9},
	}
	_, err := decodeStream(dict, predictorEncoded())
	assert.Error(t, err)
}

func TestDecodeStreamNullParms(t *testing.T) {
	dict := Dict{
		"Filter":      Name("FlateDecode"),
		"DecodeParms": Null{},
	}
	out, err := decodeStream(dict, flate([]byte("plain")))
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), out)
}
