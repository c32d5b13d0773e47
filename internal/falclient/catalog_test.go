package falclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	assert.True(t, catalog.SupportsJobType(JobTypeTextToVideo))
	assert.True(t, catalog.SupportsJobType(JobTypeImageToImage))
	assert.False(t, catalog.SupportsJobType("text_to_speech"))

	videoDefault, err := catalog.DefaultModel(JobTypeTextToVideo)
	require.NoError(t, err)
	assert.Equal(t, "fal-ai/fast-animatediff/text-to-video", videoDefault)

	imageDefault, err := catalog.DefaultModel(JobTypeImageToImage)
	require.NoError(t, err)
	assert.Equal(t, "fal-ai/flux-lora-canny", imageDefault)
}

func TestModelCatalog_Resolve(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name      string
		jobType   string
		modelName string
		want      string
		wantErr   bool
	}{
		{
			name:    "empty model resolves to default",
			jobType: JobTypeTextToVideo,
			want:    "fal-ai/fast-animatediff/text-to-video",
		},
		{
			name:      "listed model accepted",
			jobType:   JobTypeTextToVideo,
			modelName: "fal-ai/hunyuan-video",
			want:      "fal-ai/hunyuan-video",
		},
		{
			name:      "model from the other job type rejected",
			jobType:   JobTypeImageToImage,
			modelName: "fal-ai/hunyuan-video",
			wantErr:   true,
		},
		{
			name:      "unknown model rejected",
			jobType:   JobTypeTextToVideo,
			modelName: "fal-ai/not-a-model",
			wantErr:   true,
		},
		{
			name:    "unknown job type rejected",
			jobType: "audio_to_audio",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := catalog.Resolve(tt.jobType, tt.modelName)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCatalog_DefaultAddedToModelSet(t *testing.T) {
	catalog := NewCatalog(map[string]CatalogConfig{
		JobTypeTextToVideo: {
			Default: "fal-ai/custom-model",
			Models:  []string{"fal-ai/other-model"},
		},
	})

	got, err := catalog.Resolve(JobTypeTextToVideo, "fal-ai/custom-model")
	require.NoError(t, err)
	assert.Equal(t, "fal-ai/custom-model", got)
}
