package api

import "github.com/atelierapp/atelier-server/internal/service"

// Services groups the service dependencies handlers reach for.
type Services struct {
	Catalog  *service.CatalogService
	Texture  *service.TextureService
	Recovery *service.RecoveryService
}
