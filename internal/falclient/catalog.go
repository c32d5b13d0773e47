package falclient

import "fmt"

// Job types the fal queue client supports
const (
	JobTypeTextToVideo  = "text_to_video"
	JobTypeImageToImage = "image_to_image"
)

// ModelCatalog maps a job type to its default model and the set of models
// callers may choose from. It is read-only input for the service layer;
// the client itself submits whatever model name it is handed.
type ModelCatalog struct {
	entries map[string]catalogEntry
}

type catalogEntry struct {
	defaultModel string
	models       map[string]struct{}
}

// DefaultCatalog returns the catalog of models currently exposed by fal for
// each supported job type.
func DefaultCatalog() *ModelCatalog {
	return NewCatalog(map[string]CatalogConfig{
		JobTypeTextToVideo: {
			Default: "fal-ai/fast-animatediff/text-to-video",
			Models: []string{
				"fal-ai/minimax-video",
				"fal-ai/mochi-v1",
				"fal-ai/hunyuan-video",
				"fal-ai/luma-dream-machine",
				"fal-ai/kling-video/v1/standard/text-to-video",
				"fal-ai/kling-video/v1.5/pro/text-to-video",
				"fal-ai/cogvideox-5b",
				"fal-ai/ltx-video",
				"fal-ai/fast-svd/text-to-video",
				"fal-ai/fast-svd-lcm/text-to-video",
				"fal-ai/t2v-turbo",
				"fal-ai/fast-animatediff/text-to-video",
				"fal-ai/fast-animatediff/turbo/text-to-video",
			},
		},
		JobTypeImageToImage: {
			Default: "fal-ai/flux-lora-canny",
			Models: []string{
				"fal-ai/flux-pro/v1.1-ultra/redux",
				"fal-ai/flux-lora-canny",
				"fal-ai/flux-lora-depth",
				"fal-ai/ideogram/v2/turbo/remix",
				"fal-ai/iclight-v2",
			},
		},
	})
}

// CatalogConfig is the external configuration shape for one job type
type CatalogConfig struct {
	Default string   `yaml:"default"`
	Models  []string `yaml:"models"`
}

// NewCatalog builds a catalog from configuration. A default model not listed
// in the model set is added to it.
func NewCatalog(cfg map[string]CatalogConfig) *ModelCatalog {
	entries := make(map[string]catalogEntry, len(cfg))

	for jobType, entry := range cfg {
		models := make(map[string]struct{}, len(entry.Models)+1)
		for _, m := range entry.Models {
			models[m] = struct{}{}
		}
		if entry.Default != "" {
			models[entry.Default] = struct{}{}
		}
		entries[jobType] = catalogEntry{
			defaultModel: entry.Default,
			models:       models,
		}
	}

	return &ModelCatalog{entries: entries}
}

// SupportsJobType reports whether the catalog knows the given job type
func (c *ModelCatalog) SupportsJobType(jobType string) bool {
	_, ok := c.entries[jobType]
	return ok
}

// DefaultModel returns the default model for a job type
func (c *ModelCatalog) DefaultModel(jobType string) (string, error) {
	entry, ok := c.entries[jobType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported job type %q", ErrValidation, jobType)
	}
	return entry.defaultModel, nil
}

// Resolve returns the model to submit for a job type. An empty model name
// resolves to the job type's default; a non-empty one must be in the catalog.
func (c *ModelCatalog) Resolve(jobType, modelName string) (string, error) {
	entry, ok := c.entries[jobType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported job type %q", ErrValidation, jobType)
	}

	if modelName == "" {
		return entry.defaultModel, nil
	}

	if _, ok := entry.models[modelName]; !ok {
		return "", fmt.Errorf("%w: model %q is not available for job type %q", ErrValidation, modelName, jobType)
	}

	return modelName, nil
}
