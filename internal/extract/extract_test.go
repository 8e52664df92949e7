package extract

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-insights/internal/gcs"
)

// mockStore implements gcs.StorageService for the calls Extract makes.
type mockStore struct {
	AttrsFunc          func(ctx context.Context, bucket, key string) (gcs.ObjectAttrs, error)
	DownloadToTempFunc func(ctx context.Context, bucket, key string) (string, error)

	downloads int
}

func (m *mockStore) Attrs(ctx context.Context, bucket, key string) (gcs.ObjectAttrs, error) {
	return m.AttrsFunc(ctx, bucket, key)
}

func (m *mockStore) DownloadToTemp(ctx context.Context, bucket, key string) (string, error) {
	m.downloads++
	return m.DownloadToTempFunc(ctx, bucket, key)
}

func (m *mockStore) Upload(context.Context, string, string, []byte, string, map[string]string) error {
	return errors.New("not implemented")
}

func (m *mockStore) UploadFile(context.Context, string, string, string, map[string]string) error {
	return errors.New("not implemented")
}

func (m *mockStore) List(context.Context, string, string) ([]gcs.ObjectAttrs, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStore) SignedURL(context.Context, string, string, time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

// newStore returns a store whose object has the given size and whose download
// writes a real temp file. The file path is reported through *path.
func newStore(t *testing.T, size int64, path *string) *mockStore {
	t.Helper()
	return &mockStore{
		AttrsFunc: func(context.Context, string, string) (gcs.ObjectAttrs, error) {
			return gcs.ObjectAttrs{Size: size}, nil
		},
		DownloadToTempFunc: func(context.Context, string, string) (string, error) {
			f, err := os.CreateTemp(t.TempDir(), "statement-*.pdf")
			if err != nil {
				return "", err
			}
			f.Close()
			*path = f.Name()
			return f.Name(), nil
		},
	}
}

// fakeStrategy returns canned output and records whether it ran.
type fakeStrategy struct {
	name  string
	local bool
	text  string
	err   error
	panic bool

	calls   int
	sawPath string
}

func (f *fakeStrategy) Name() string { return f.name }
func (f *fakeStrategy) Local() bool  { return f.local }

func (f *fakeStrategy) Extract(_ context.Context, src Source) (string, error) {
	f.calls++
	f.sawPath = src.Path
	if f.panic {
		panic("corrupt xref table")
	}
	return f.text, f.err
}

var longText = strings.Repeat("01/02 TESCO -12.40 ", 5)

func TestExtract_FirstSufficientStrategyWins(t *testing.T) {
	var path string
	store := newStore(t, 1024, &path)
	a := &fakeStrategy{name: "layout", local: true, text: "   " + longText + "\n"}
	b := &fakeStrategy{name: "lenient", local: true, text: longText}
	c := &fakeStrategy{name: "ocr", text: longText}

	res, err := New(store, a, b, c).Extract(context.Background(), "bank", "statements/u1/jan.pdf")

	require.NoError(t, err)
	assert.Equal(t, "layout", res.Strategy)
	assert.Equal(t, strings.TrimSpace(longText), res.Text)
	assert.Equal(t, path, a.sawPath)
	assert.Zero(t, b.calls)
	assert.Zero(t, c.calls)
	assert.NoFileExists(t, path)
}

func TestExtract_OCROnlyAfterLocalStrategiesFallShort(t *testing.T) {
	var path string
	store := newStore(t, 2048, &path)
	a := &fakeStrategy{name: "layout", local: true, text: "Page 1"}
	b := &fakeStrategy{name: "lenient", local: true, err: errors.New("malformed xref")}
	c := &fakeStrategy{name: "ocr", text: longText}

	res, err := New(store, a, b, c).Extract(context.Background(), "bank", "k.pdf")

	require.NoError(t, err)
	assert.Equal(t, "ocr", res.Strategy)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
	assert.Empty(t, c.sawPath, "OCR reads the object in place")
	assert.NoFileExists(t, path)
}

func TestExtract_PanicIsRecoveredAndTempRemoved(t *testing.T) {
	var path string
	store := newStore(t, 2048, &path)
	a := &fakeStrategy{name: "layout", local: true, panic: true}
	b := &fakeStrategy{name: "lenient", local: true, text: longText}

	res, err := New(store, a, b).Extract(context.Background(), "bank", "k.pdf")

	require.NoError(t, err)
	assert.Equal(t, "lenient", res.Strategy)
	assert.NoFileExists(t, path)
}

func TestExtract_NothingSufficientYieldsEmpty(t *testing.T) {
	var path string
	store := newStore(t, 2048, &path)
	short := strings.Repeat("x", MinTextLength-1)
	a := &fakeStrategy{name: "layout", local: true, text: short}
	b := &fakeStrategy{name: "lenient", local: true, text: "  " + short + "  "}
	c := &fakeStrategy{name: "ocr", text: short}

	res, err := New(store, a, b, c).Extract(context.Background(), "bank", "k.pdf")

	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.NoFileExists(t, path)
}

func TestExtract_ExactlyMinLengthIsAccepted(t *testing.T) {
	var path string
	store := newStore(t, 10, &path)
	a := &fakeStrategy{name: "layout", local: true, text: strings.Repeat("y", MinTextLength)}

	res, err := New(store, a).Extract(context.Background(), "bank", "k.pdf")

	require.NoError(t, err)
	assert.Equal(t, "layout", res.Strategy)
}

func TestExtract_EmptyObjectRunsNoStrategy(t *testing.T) {
	var path string
	store := newStore(t, 0, &path)
	a := &fakeStrategy{name: "layout", local: true, text: longText}
	c := &fakeStrategy{name: "ocr", text: longText}

	res, err := New(store, a, c).Extract(context.Background(), "bank", "k.pdf")

	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Zero(t, a.calls)
	assert.Zero(t, c.calls)
	assert.Zero(t, store.downloads)
}

func TestExtract_LargeObjectGoesStraightToOCR(t *testing.T) {
	var path string
	store := newStore(t, MaxLocalBytes+1, &path)
	a := &fakeStrategy{name: "layout", local: true, text: longText}
	b := &fakeStrategy{name: "lenient", local: true, text: longText}
	c := &fakeStrategy{name: "ocr", text: longText}

	res, err := New(store, a, b, c).Extract(context.Background(), "bank", "k.pdf")

	require.NoError(t, err)
	assert.Equal(t, "ocr", res.Strategy)
	assert.Zero(t, a.calls)
	assert.Zero(t, b.calls)
	assert.Zero(t, store.downloads)
}

func TestExtract_ObjectAtSizeLimitStillTriesLocal(t *testing.T) {
	var path string
	store := newStore(t, MaxLocalBytes, &path)
	a := &fakeStrategy{name: "layout", local: true, text: longText}

	res, err := New(store, a).Extract(context.Background(), "bank", "k.pdf")

	require.NoError(t, err)
	assert.Equal(t, "layout", res.Strategy)
}

func TestExtract_StorageErrors(t *testing.T) {
	t.Run("attrs", func(t *testing.T) {
		store := &mockStore{AttrsFunc: func(context.Context, string, string) (gcs.ObjectAttrs, error) {
			return gcs.ObjectAttrs{}, gcs.ErrObjectNotFound
		}}

		_, err := New(store, &fakeStrategy{name: "layout", local: true}).Extract(context.Background(), "b", "k")

		assert.ErrorIs(t, err, gcs.ErrObjectNotFound)
	})

	t.Run("download", func(t *testing.T) {
		store := &mockStore{
			AttrsFunc: func(context.Context, string, string) (gcs.ObjectAttrs, error) {
				return gcs.ObjectAttrs{Size: 10}, nil
			},
			DownloadToTempFunc: func(context.Context, string, string) (string, error) {
				return "", errors.New("connection reset")
			},
		}

		_, err := New(store, &fakeStrategy{name: "layout", local: true}).Extract(context.Background(), "b", "k")

		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestLocalStrategies_RejectNonPDF(t *testing.T) {
	dir := t.TempDir()
	garbage := dir + "/garbage.pdf"
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a pdf at all"), 0o600))

	for _, s := range []Strategy{LayoutStrategy{}, LenientStrategy{}} {
		t.Run(s.Name(), func(t *testing.T) {
			text, _ := runStrategy(context.Background(), s, Source{Path: garbage})
			assert.Empty(t, text)

			text, err := runStrategy(context.Background(), s, Source{Path: dir + "/missing.pdf"})
			assert.Error(t, err)
			assert.Empty(t, text)
		})
	}
}

func TestExtractFile_SkipsRemoteStrategies(t *testing.T) {
	path := t.TempDir() + "/local.pdf"
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	a := &fakeStrategy{name: "layout", local: true, text: "short"}
	b := &fakeStrategy{name: "lenient", local: true, text: longText}
	c := &fakeStrategy{name: "ocr", text: longText}

	res, err := New(nil, a, b, c).ExtractFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "lenient", res.Strategy)
	assert.Equal(t, path, b.sawPath)
	assert.Zero(t, c.calls)
	assert.FileExists(t, path)
}

func TestExtractFile_Missing(t *testing.T) {
	_, err := New(nil, &fakeStrategy{name: "layout", local: true}).ExtractFile(context.Background(), t.TempDir()+"/nope.pdf")
	assert.Error(t, err)
}
