package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/threadcraft/internal/storage/postgres"
)

func TestExport(t *testing.T) {
	recs := []postgres.OrderRecord{
		{ID: "o-2", Status: "SHIPPED", Total: 32000, Version: 4},
		{ID: "o-1", Status: "PENDING", Total: 10500, Version: 1},
	}

	var buf bytes.Buffer
	n, err := export(t.Context(), recs, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := pgzip.NewReader(&buf)
	require.NoError(t, err)
	defer zr.Close()

	var got []postgres.OrderRecord
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var rec postgres.OrderRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		got = append(got, rec)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	assert.Equal(t, "o-2", got[0].ID)
	assert.Equal(t, int64(32000), got[0].Total)
	assert.Equal(t, "PENDING", got[1].Status)
}

func TestExport_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := export(t.Context(), nil, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Still a valid, empty gzip stream.
	zr, err := pgzip.NewReader(&buf)
	require.NoError(t, err)
	defer zr.Close()
	assert.False(t, bufio.NewScanner(zr).Scan())
}

func TestExport_Cancelled(t *testing.T) {
	recs := make([]postgres.OrderRecord, 500)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var buf bytes.Buffer
	_, err := export(ctx, recs, &buf)
	require.ErrorIs(t, err, context.Canceled)
}
