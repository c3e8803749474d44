package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader { return bufio.NewReader(strings.NewReader(s)) }

func stubPassword(t *testing.T, values ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(values) {
			return nil, errors.New("no more passwords")
		}
		v := values[i]
		i++
		return []byte(v), nil
	}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	v, err := GetSimpleText(reader("  Jane Doe \n"), "Name", &out)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", v)
	assert.Equal(t, "Name: ", out.String())

	v, err = GetSimpleText(reader("partial"), "Name", &out)
	require.NoError(t, err)
	assert.Equal(t, "partial", v)

	_, err = GetSimpleText(reader(""), "Name", &out)
	assert.Error(t, err)
}

func TestGetWithDefault(t *testing.T) {
	var out bytes.Buffer
	v, err := GetWithDefault(reader("\n"), "Phone", "0711", &out)
	require.NoError(t, err)
	assert.Equal(t, "0711", v)
	assert.Contains(t, out.String(), "Phone [0711]: ")

	v, err = GetWithDefault(reader("0722\n"), "Phone", "0711", &out)
	require.NoError(t, err)
	assert.Equal(t, "0722", v)
}

func TestGetAmount(t *testing.T) {
	var out bytes.Buffer
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"\n", 250, false},
		{"1500\n", 1500, false},
		{"1,250.50\n", 1250.5, false},
		{"-1\n", 0, true},
		{"abc\n", 0, true},
	}
	for _, tt := range tests {
		got, err := GetAmount(reader(tt.in), "Amount", 250, &out)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 0.001, tt.in)
	}
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	for in, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "sure\n": false} {
		got, err := Confirm(reader(in), "Delete", &out)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestGetPassword(t *testing.T) {
	stubPassword(t, "s3cret")
	var out bytes.Buffer
	pw, err := GetPassword(&out, "Password")
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Equal(t, "Password: \n", out.String())

	_, err = GetPassword(&out, "Password")
	assert.Error(t, err)
}

func TestGetMultiline(t *testing.T) {
	var out bytes.Buffer
	v, err := GetMultiline(reader("screen cracked\nno power\n\nignored\n"), "Problem", &out)
	require.NoError(t, err)
	assert.Equal(t, "screen cracked\nno power", v)
}
