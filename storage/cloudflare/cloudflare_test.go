package cloudflare_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renanfs/imagestore"
	"github.com/renanfs/imagestore/storage/cloudflare"
)

func processedPair(t *testing.T) *imagestore.Processed {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 200, 150))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	processed, err := imagestore.Process(imagestore.FileUpload{
		OriginalName: "photo.png",
		Buffer:       buf.Bytes(),
	}, imagestore.UploadOptions{})
	require.NoError(t, err)
	return processed
}

func newStorage(t *testing.T, apiBase string, cfg cloudflare.Config) *cloudflare.Storage {
	t.Helper()

	cfg.AccountID = "acct-123"
	cfg.APIToken = "token-abc"
	cfg.APIBase = apiBase

	storage, err := cloudflare.New(cfg, nil)
	require.NoError(t, err)
	return storage
}

func TestStorage_Store(t *testing.T) {
	t.Run("uploads the full rendering as multipart", func(t *testing.T) {
		var gotAuth, gotPath, gotFilename string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path

			if file, header, err := r.FormFile("file"); assert.NoError(t, err) {
				gotFilename = header.Filename
				file.Close()
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"result":{"id":"asset-42","size":9876}}`))
		}))
		defer server.Close()

		storage := newStorage(t, server.URL, cloudflare.Config{})
		processed := processedPair(t)

		stored, err := storage.Store(context.Background(), processed.Full, processed.Thumb, processed.Ext)

		require.NoError(t, err)
		assert.Equal(t, "Bearer token-abc", gotAuth)
		assert.Equal(t, "/client/v4/accounts/acct-123/images/v1", gotPath)
		assert.Equal(t, "image.png", gotFilename)
		assert.Equal(t, "https://imagedelivery.net/asset-42/public", stored.FullURL)
		assert.Equal(t, "https://imagedelivery.net/asset-42/thumbnail", stored.ThumbURL)
		assert.Equal(t, int64(9876), stored.FileSize)
	})

	t.Run("uses configured variant names", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"result":{"id":"asset-9","size":1}}`))
		}))
		defer server.Close()

		storage := newStorage(t, server.URL, cloudflare.Config{VariantFull: "hero", VariantThumb: "small"})
		processed := processedPair(t)

		stored, err := storage.Store(context.Background(), processed.Full, processed.Thumb, processed.Ext)

		require.NoError(t, err)
		assert.Equal(t, "https://imagedelivery.net/asset-9/hero", stored.FullURL)
		assert.Equal(t, "https://imagedelivery.net/asset-9/small", stored.ThumbURL)
	})

	t.Run("missing asset id is a hard failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"result":{}}`))
		}))
		defer server.Close()

		storage := newStorage(t, server.URL, cloudflare.Config{})
		processed := processedPair(t)

		stored, err := storage.Store(context.Background(), processed.Full, processed.Thumb, processed.Ext)

		assert.Nil(t, stored)
		require.ErrorIs(t, err, cloudflare.ErrMissingAssetID)
	})

	t.Run("non-2xx status is a backend failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}))
		defer server.Close()

		storage := newStorage(t, server.URL, cloudflare.Config{})
		processed := processedPair(t)

		stored, err := storage.Store(context.Background(), processed.Full, processed.Thumb, processed.Ext)

		assert.Nil(t, stored)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 403")
	})
}

func TestStorage_PublicURL(t *testing.T) {
	storage := newStorage(t, "", cloudflare.Config{})

	full := storage.PublicURL("asset-1", imagestore.VariantFull)
	thumb := storage.PublicURL("asset-1", imagestore.VariantThumb)

	assert.Equal(t, "https://imagedelivery.net/asset-1/public", full)
	assert.Equal(t, "https://imagedelivery.net/asset-1/thumbnail", thumb)
	// pure and stable across calls
	assert.Equal(t, full, storage.PublicURL("asset-1", imagestore.VariantFull))
}

func TestNew(t *testing.T) {
	_, err := cloudflare.New(cloudflare.Config{APIToken: "t"}, nil)
	assert.Error(t, err)

	_, err = cloudflare.New(cloudflare.Config{AccountID: "a"}, nil)
	assert.Error(t, err)
}
