package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "http://localhost:8000/media/")

	tests := []struct {
		name    string
		key     string
		wantURL string
		wantFp  string
		wantErr bool
	}{
		{name: "nested key", key: "receipts/t1/RCP-1.html", wantURL: "http://localhost:8000/media/receipts/t1/RCP-1.html", wantFp: "receipts/t1/RCP-1.html"},
		{name: "escaping key", key: "../../etc/RCP-2.html", wantURL: "http://localhost:8000/media/etc/RCP-2.html", wantFp: "etc/RCP-2.html"},
		{name: "empty key", key: "", wantErr: true},
		{name: "root key", key: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := store.Put(context.Background(), tt.key, []byte("<html></html>"), "text/html")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, tt.wantURL, url)

			content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(tt.wantFp)))
			if assert.NoError(t, err) {
				assert.Equal(t, "<html></html>", string(content))
			}
		})
	}

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.Put(ctx, "receipts/RCP-3.html", nil, "text/html")
		assert.Equal(t, context.Canceled, err)
	})
}
