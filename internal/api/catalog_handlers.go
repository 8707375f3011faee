package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/service"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listStyles",
		Method:      http.MethodGet,
		Path:        "/api/v1/styles",
		Summary:     "List styles",
		Description: "Returns all design styles",
		Tags:        []string{"Catalog"},
	}, s.handleListStyles)

	huma.Register(s.api, huma.Operation{
		OperationID: "createStyle",
		Method:      http.MethodPost,
		Path:        "/api/v1/styles",
		Summary:     "Create style",
		Description: "Creates a new design style",
		Tags:        []string{"Catalog"},
	}, s.handleCreateStyle)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStyle",
		Method:      http.MethodGet,
		Path:        "/api/v1/styles/{id}",
		Summary:     "Get style",
		Description: "Returns a style by ID",
		Tags:        []string{"Catalog"},
	}, s.handleGetStyle)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMaterials",
		Method:      http.MethodGet,
		Path:        "/api/v1/materials",
		Summary:     "List materials",
		Description: "Returns all materials",
		Tags:        []string{"Catalog"},
	}, s.handleListMaterials)

	huma.Register(s.api, huma.Operation{
		OperationID: "createMaterial",
		Method:      http.MethodPost,
		Path:        "/api/v1/materials",
		Summary:     "Create material",
		Description: "Creates a new material bound to a category",
		Tags:        []string{"Catalog"},
	}, s.handleCreateMaterial)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMaterial",
		Method:      http.MethodGet,
		Path:        "/api/v1/materials/{id}",
		Summary:     "Get material",
		Description: "Returns a material by ID",
		Tags:        []string{"Catalog"},
	}, s.handleGetMaterial)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns the closed set of material categories",
		Tags:        []string{"Catalog"},
	}, s.handleListCategories)
}

// === DTOs ===

type StyleResponse struct {
	ID          string    `json:"id" doc:"Style ID"`
	Name        string    `json:"name" doc:"Display name"`
	Slug        string    `json:"slug" doc:"URL-safe slug"`
	Description string    `json:"description,omitempty" doc:"Description"`
	Images      []string  `json:"images" doc:"Linked storage object paths"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update time"`
}

type ListStylesResponse struct {
	Styles []StyleResponse `json:"styles" doc:"List of styles"`
}

type ListStylesOutput struct {
	Body ListStylesResponse
}

type CreateStyleRequest struct {
	Name        string `json:"name" doc:"Style name"`
	Description string `json:"description,omitempty" doc:"Description"`
}

type CreateStyleInput struct {
	Body CreateStyleRequest
}

type StyleOutput struct {
	Body StyleResponse
}

type GetStyleInput struct {
	ID string `path:"id" doc:"Style ID"`
}

type MaterialResponse struct {
	ID         string    `json:"id" doc:"Material ID"`
	Name       string    `json:"name" doc:"Display name"`
	Slug       string    `json:"slug" doc:"URL-safe slug"`
	CategoryID string    `json:"category_id" doc:"Material category ID"`
	Images     []string  `json:"images" doc:"Linked storage object paths"`
	CreatedAt  time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt  time.Time `json:"updated_at" doc:"Last update time"`
}

type ListMaterialsResponse struct {
	Materials []MaterialResponse `json:"materials" doc:"List of materials"`
}

type ListMaterialsOutput struct {
	Body ListMaterialsResponse
}

type CreateMaterialRequest struct {
	Name         string `json:"name" doc:"Material name"`
	CategorySlug string `json:"category_slug" doc:"Slug of the owning category"`
}

type CreateMaterialInput struct {
	Body CreateMaterialRequest
}

type MaterialOutput struct {
	Body MaterialResponse
}

type GetMaterialInput struct {
	ID string `path:"id" doc:"Material ID"`
}

type CategoryResponse struct {
	ID   string `json:"id" doc:"Category ID"`
	Name string `json:"name" doc:"Display name"`
	Slug string `json:"slug" doc:"URL-safe slug"`
}

type ListCategoriesResponse struct {
	Categories []CategoryResponse `json:"categories" doc:"List of categories"`
}

type ListCategoriesOutput struct {
	Body ListCategoriesResponse
}

// === Handlers ===

func (s *Server) handleListStyles(ctx context.Context, _ *struct{}) (*ListStylesOutput, error) {
	styles, err := s.services.Catalog.ListStyles(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]StyleResponse, len(styles))
	for i, st := range styles {
		resp[i] = mapStyleResponse(st)
	}

	return &ListStylesOutput{Body: ListStylesResponse{Styles: resp}}, nil
}

func (s *Server) handleCreateStyle(ctx context.Context, input *CreateStyleInput) (*StyleOutput, error) {
	st, err := s.services.Catalog.CreateStyle(ctx, service.CreateStyleRequest{
		Name:        input.Body.Name,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}

	return &StyleOutput{Body: mapStyleResponse(st)}, nil
}

func (s *Server) handleGetStyle(ctx context.Context, input *GetStyleInput) (*StyleOutput, error) {
	st, err := s.services.Catalog.GetStyle(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &StyleOutput{Body: mapStyleResponse(st)}, nil
}

func (s *Server) handleListMaterials(ctx context.Context, _ *struct{}) (*ListMaterialsOutput, error) {
	materials, err := s.services.Catalog.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]MaterialResponse, len(materials))
	for i, m := range materials {
		resp[i] = mapMaterialResponse(m)
	}

	return &ListMaterialsOutput{Body: ListMaterialsResponse{Materials: resp}}, nil
}

func (s *Server) handleCreateMaterial(ctx context.Context, input *CreateMaterialInput) (*MaterialOutput, error) {
	m, err := s.services.Catalog.CreateMaterial(ctx, service.CreateMaterialRequest{
		Name:         input.Body.Name,
		CategorySlug: input.Body.CategorySlug,
	})
	if err != nil {
		return nil, err
	}

	return &MaterialOutput{Body: mapMaterialResponse(m)}, nil
}

func (s *Server) handleGetMaterial(ctx context.Context, input *GetMaterialInput) (*MaterialOutput, error) {
	m, err := s.services.Catalog.GetMaterial(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &MaterialOutput{Body: mapMaterialResponse(m)}, nil
}

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*ListCategoriesOutput, error) {
	categories, err := s.services.Catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}

	return &ListCategoriesOutput{Body: ListCategoriesResponse{Categories: resp}}, nil
}

// === Mappers ===

func mapStyleResponse(st *domain.Style) StyleResponse {
	images := st.Images
	if images == nil {
		images = []string{}
	}
	return StyleResponse{
		ID:          st.ID,
		Name:        st.Name,
		Slug:        st.Slug,
		Description: st.Description,
		Images:      images,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}

func mapMaterialResponse(m *domain.Material) MaterialResponse {
	images := m.Images
	if images == nil {
		images = []string{}
	}
	return MaterialResponse{
		ID:         m.ID,
		Name:       m.Name,
		Slug:       m.Slug,
		CategoryID: m.CategoryID,
		Images:     images,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
