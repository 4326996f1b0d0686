package portfolio

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetRef_JSON(t *testing.T) {
	ref := AssetRef{Locator: "portfolio/hero/a.png", Backend: BackendLocal}
	raw, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"locator":"portfolio/hero/a.png","backend":"local"}`, string(raw))

	var back AssetRef
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, ref, back)
}

func TestAssetRef_LegacyString(t *testing.T) {
	var remote, local AssetRef
	require.NoError(t, json.Unmarshal([]byte(`"https://res.cloudinary.com/demo/image/upload/v1/portfolio/x.png"`), &remote))
	require.NoError(t, json.Unmarshal([]byte(`"portfolio/hero/x.png"`), &local))

	assert.Equal(t, BackendRemote, remote.Backend)
	assert.Equal(t, BackendLocal, local.Backend)
}

func TestAssetRef_MissingBackendInferred(t *testing.T) {
	var ref AssetRef
	require.NoError(t, json.Unmarshal([]byte(`{"locator":"http://minio:9000/b/k.png"}`), &ref))
	assert.Equal(t, BackendRemote, ref.Backend)

	err := json.Unmarshal([]byte(`{"locator":"k.png","backend":"ftp"}`), &ref)
	assert.Error(t, err)
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		params  UploadParams
		wantExt string
		wantErr bool
	}{
		{name: "jpeg", params: UploadParams{MimeType: "image/jpeg", Size: 10, Kind: AssetKindImage}, wantExt: ".jpg"},
		{name: "jpg alias with params", params: UploadParams{MimeType: "Image/JPG; charset=binary", Kind: AssetKindImage}, wantExt: ".jpg"},
		{name: "svg", params: UploadParams{MimeType: "image/svg+xml", Kind: AssetKindImage}, wantExt: ".svg"},
		{name: "docx", params: UploadParams{MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Kind: AssetKindDocument}, wantExt: ".docx"},
		{name: "pdf for image field", params: UploadParams{MimeType: "application/pdf", Kind: AssetKindImage}, wantErr: true},
		{name: "pdf any kind", params: UploadParams{MimeType: "application/pdf"}, wantExt: ".pdf"},
		{name: "gif rejected", params: UploadParams{MimeType: "image/gif"}, wantErr: true},
		{name: "too large", params: UploadParams{MimeType: "image/png", Size: MaxUploadSize + 1}, wantErr: true},
		{name: "exactly max", params: UploadParams{MimeType: "image/png", Size: MaxUploadSize}, wantExt: ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := ValidateUpload(tt.params)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestLimitUpload(t *testing.T) {
	exact := bytes.Repeat([]byte("a"), int(MaxUploadSize))
	n, err := io.Copy(io.Discard, LimitUpload(bytes.NewReader(exact)))
	require.NoError(t, err)
	assert.Equal(t, MaxUploadSize, n)

	over := io.MultiReader(bytes.NewReader(exact), strings.NewReader("b"))
	_, err = io.Copy(io.Discard, LimitUpload(over))
	assert.True(t, errors.Is(err, ErrValidation))
}
