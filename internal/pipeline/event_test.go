package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUploadEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []ObjectRef
		wantErr error
	}{
		{
			name:    "storage notification",
			payload: `{"Records":[{"bucket":{"name":"b"},"object":{"name":"statements/u1/my+file%281%29.pdf"}}]}`,
			want:    []ObjectRef{{Bucket: "b", Key: "statements/u1/my file(1).pdf"}},
		},
		{
			name:    "s3 style notification",
			payload: `{"Records":[{"s3":{"bucket":{"name":"b"},"object":{"key":"statements/u2/a.pdf"}}}]}`,
			want:    []ObjectRef{{Bucket: "b", Key: "statements/u2/a.pdf"}},
		},
		{
			name:    "several records",
			payload: `{"Records":[{"bucket":{"name":"b"},"object":{"name":"a.pdf"}},{"bucket":{"name":"c"},"object":{"name":"d.pdf"}}]}`,
			want:    []ObjectRef{{Bucket: "b", Key: "a.pdf"}, {Bucket: "c", Key: "d.pdf"}},
		},
		{
			name:    "direct",
			payload: `{"bucket":"b","key":"statements/u1/a+b.pdf"}`,
			want:    []ObjectRef{{Bucket: "b", Key: "statements/u1/a+b.pdf"}},
		},
		{name: "empty records", payload: `{"Records":[]}`, wantErr: ErrMissingObject},
		{name: "record without key", payload: `{"Records":[{"bucket":{"name":"b"}}]}`, wantErr: ErrMissingObject},
		{name: "direct without bucket", payload: `{"key":"a.pdf"}`, wantErr: ErrMissingObject},
		{name: "empty object", payload: `{}`, wantErr: ErrMissingObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUploadEvent([]byte(tt.payload))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUploadEvent_NotJSON(t *testing.T) {
	_, err := ParseUploadEvent([]byte("bucket=b"))
	assert.Error(t, err)
}
