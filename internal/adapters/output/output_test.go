package output_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/azicorr/internal/adapters/output"
	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/correlation"
	"github.com/okian/azicorr/internal/domain/observable"
	"github.com/stretchr/testify/require"
)

func result(t *testing.T, bin int, kind observable.Kind) correlation.Result {
	t.Helper()
	key := observable.Key{Bin: bin, Kind: kind}
	d, err := observable.New(key, observable.Axis{Bins: 4, Min: 0, Max: 1}, "test")
	require.NoError(t, err)
	d.Fill(0.3, 1)
	require.NoError(t, d.Scale(0.5))
	return correlation.Result{
		Key:      key,
		Bin:      centrality.Bin{Index: bin, Range: centrality.Range{Low: 0, High: 20}},
		Triggers: 2,
		Valid:    true,
		Dist:     d,
	}
}

type recordingSink struct {
	keys   []string
	err    error
	closed bool
}

func (r *recordingSink) Write(_ context.Context, res correlation.Result) error {
	if r.err != nil {
		return r.err
	}
	r.keys = append(r.keys, res.Key.String())
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestYODA(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "run.yoda")

	sink, err := output.NewYODA(path)
	require.NoError(t, err)
	require.Equal(t, path, sink.Path())

	rep := correlation.Report{Results: []correlation.Result{
		result(t, 0, observable.KindYield),
		result(t, 0, observable.KindIAA),
	}}
	require.NoError(t, output.WriteAll(ctx, sink, rep))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	require.Contains(t, text, "YODA_HISTO1D")
	require.Contains(t, text, rep.Results[0].Key.Path())
	require.Contains(t, text, rep.Results[1].Key.Path())
	require.Equal(t, 2, strings.Count(text, "BEGIN YODA_HISTO1D"))

	require.ErrorIs(t, sink.Write(ctx, rep.Results[0]), output.ErrClosed)
	require.ErrorIs(t, sink.Write(ctx, correlation.Result{}), output.ErrNoResult)
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("disk full")}
	multi := output.NewMulti(good, nil, bad)

	err := multi.Write(ctx, result(t, 1, observable.KindYield))
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Equal(t, []string{"yield-c1-s0"}, good.keys)

	require.NoError(t, multi.Close())
	require.True(t, good.closed)
	require.True(t, bad.closed)
}

func TestWriteAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &recordingSink{}
	err := output.WriteAll(ctx, sink, correlation.Report{Results: []correlation.Result{result(t, 0, observable.KindYield)}})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, sink.keys)
}
