package domain

// LocalizedName holds a texture's display name per language tag
// (e.g. {"en": "Oak Parquet", "ru": "Дуб паркет"}).
type LocalizedName map[string]string

// Texture represents a generated or imported surface texture in the catalog.
// ImageURL starts empty and is filled once the queued image-generation job
// completes.
type Texture struct {
	Record
	Name        LocalizedName `json:"name"`
	CategoryID  string        `json:"category_id"`
	ImageURL    string        `json:"image_url,omitempty"`
	Fingerprint string        `json:"fingerprint"`
}

// Category is one of the closed set of material categories textures are
// classified into (wood, stone, metal, fabric, ...).
type Category struct {
	Record
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Image-generation job states.
const (
	JobQueued   = "queued"
	JobComplete = "complete"
	JobFailed   = "failed"
)

// ImageJob is a queued texture image-generation request. The texture
// creation path only enqueues; a worker picks the job up asynchronously.
type ImageJob struct {
	Record
	TextureID  string `json:"texture_id"`
	Descriptor string `json:"descriptor"`
	Status     string `json:"status"`
}
