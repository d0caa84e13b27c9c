package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindCodes(t *testing.T) {
	// wire contract
	assert.Equal(t, Kind(1), KindInteger)
	assert.Equal(t, Kind(2), KindFloat)
	assert.Equal(t, Kind(3), KindText)
	assert.Equal(t, Kind(4), KindBlob)
	assert.Equal(t, Kind(5), KindNull)
	assert.Equal(t, KindNull, Value{}.Kind())
}

func TestFromDriver(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)
	tbl := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"int64", int64(-7), Integer(-7)},
		{"float", 1.5, Float(1.5)},
		{"string", "héllo", Text("héllo")},
		{"bytes", []byte{0, 1, 2}, Blob([]byte{0, 1, 2})},
		{"time", ts, Text("2024-03-01 10:20:30+00:00")},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromDriver(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FromDriver(struct{}{})
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = FromDriver(true)
	require.ErrorIs(t, err, ErrUnsupported, "bool is never a stored class")
	_, err = FromDriver(uint64(1 << 63))
	require.Error(t, err)
}

func TestBlobIsCopied(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Blob(src)
	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes())
	assert.Equal(t, []byte{}, Blob(nil).Any())
}

func TestRowGetters(t *testing.T) {
	row := NewRow([]Value{Integer(1), Float(2.5), Text("three"), Blob([]byte("four")), Null()})
	assert.Equal(t, 5, row.Len())

	i, err := row.Int(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), i)

	f, err := row.Float(1)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	s, err := row.Text(2)
	require.NoError(t, err)
	assert.Equal(t, "three", s)

	b, err := row.Blob(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("four"), b)
	b[0] = 'X'
	b2, _ := row.Blob(3)
	assert.Equal(t, []byte("four"), b2, "blob getter returns an independent copy")

	k, err := row.Kind(4)
	require.NoError(t, err)
	assert.Equal(t, KindNull, k)
}

func TestRowNoCoercion(t *testing.T) {
	row := NewRow([]Value{Text("12"), Integer(12), Null()})

	_, err := row.Int(0)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = row.Float(1)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = row.Text(1)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = row.Blob(0)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = row.Int(2)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRowOutOfRange(t *testing.T) {
	row := NewRow([]Value{Integer(1), Integer(2)})
	_, err := row.Value(2)
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "got index 2 with 2 columns")
	_, err = row.Int(-1)
	require.ErrorIs(t, err, ErrOutOfRange)
}
