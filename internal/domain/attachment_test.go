package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAttachment(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name       string
		attachment *Attachment
		wantErr    bool
		errMsg     string
	}{
		{
			name: "valid inline attachment",
			attachment: &Attachment{
				ID:         "att-1",
				ItemID:     "item-1",
				Kind:       AttachmentKindImage,
				Filename:   "diagram.png",
				InlineData: []byte{0x89, 0x50, 0x4e, 0x47},
				CreatedAt:  now,
			},
			wantErr: false,
		},
		{
			name: "valid url attachment",
			attachment: &Attachment{
				ID:        "att-2",
				ItemID:    "item-1",
				Kind:      AttachmentKindVideo,
				Filename:  "demo.mp4",
				SourceURL: "https://example.com/demo.mp4",
				CreatedAt: now,
			},
			wantErr: false,
		},
		{
			name: "invalid kind",
			attachment: &Attachment{
				ID:        "att-3",
				ItemID:    "item-1",
				Kind:      "archive",
				Filename:  "x.zip",
				SourceURL: "https://example.com/x.zip",
			},
			wantErr: true,
			errMsg:  "Kind",
		},
		{
			name: "neither inline data nor url",
			attachment: &Attachment{
				ID:       "att-4",
				ItemID:   "item-1",
				Kind:     AttachmentKindDocument,
				Filename: "empty.pdf",
			},
			wantErr: true,
			errMsg:  "inline data",
		},
		{
			name: "both inline data and url",
			attachment: &Attachment{
				ID:         "att-5",
				ItemID:     "item-1",
				Kind:       AttachmentKindAudio,
				Filename:   "clip.mp3",
				InlineData: []byte{0x01},
				SourceURL:  "https://example.com/clip.mp3",
			},
			wantErr: true,
			errMsg:  "both",
		},
		{
			name: "missing filename",
			attachment: &Attachment{
				ID:        "att-6",
				ItemID:    "item-1",
				Kind:      AttachmentKindImage,
				SourceURL: "https://example.com/pic.jpg",
			},
			wantErr: true,
			errMsg:  "Filename",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttachment(tt.attachment)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAttachmentStateHelpers(t *testing.T) {
	inline := &Attachment{InlineData: []byte{0x01}}
	assert.True(t, inline.IsInline())
	assert.False(t, inline.IsMaterialized())

	stored := &Attachment{StorageKey: "tenant-1/att-1/pic.png"}
	assert.False(t, stored.IsInline())
	assert.True(t, stored.IsMaterialized())
}
