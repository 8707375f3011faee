package imagegen

import (
	"context"
	"fmt"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/objstore"
)

// placeholderPNG is a 1x1 transparent PNG written until a real render
// backend is configured.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// DiskRenderer writes generated texture images into the local object store.
// It stands in for the hosted image model in development and tests.
type DiskRenderer struct {
	disk *objstore.Disk
}

// NewDiskRenderer creates a renderer writing under the store's root.
func NewDiskRenderer(disk *objstore.Disk) *DiskRenderer {
	return &DiskRenderer{disk: disk}
}

// Render implements Renderer.
func (r *DiskRenderer) Render(ctx context.Context, job *domain.ImageJob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := fmt.Sprintf("generated/textures/%s.png", job.TextureID)
	if err := r.disk.Write(path, placeholderPNG); err != nil {
		return "", err
	}
	return path, nil
}
