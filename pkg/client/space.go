package client

import (
	"context"
	"net/url"
	"spacebook/pkg/model"
	"strconv"
)

const spacesPath = "/api/v1/spaces"

type SpaceClient struct {
	httpClient *HttpClient
}

func NewSpaceClient(httpClient *HttpClient) *SpaceClient {
	return &SpaceClient{httpClient: httpClient}
}

func (c *SpaceClient) Create(ctx context.Context, space *model.Space) (*model.Space, error) {
	resp, err := c.httpClient.POST(ctx, spacesPath, space)
	if err != nil {
		return nil, err
	}
	return decodeData[*model.Space](resp)
}

func (c *SpaceClient) GetByID(ctx context.Context, id string) (*model.Space, error) {
	resp, err := c.httpClient.GET(ctx, spacesPath+"/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodeData[*model.Space](resp)
}

// List fetches one page of spaces matching filter.
func (c *SpaceClient) List(ctx context.Context, filter model.SpaceFilter, limit int, offset int64) ([]model.Space, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.FormatInt(offset, 10))
	if filter.MinCapacity > 0 {
		q.Set("min_capacity", strconv.Itoa(filter.MinCapacity))
	}
	if filter.MaxCapacity > 0 {
		q.Set("max_capacity", strconv.Itoa(filter.MaxCapacity))
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}

	resp, err := c.httpClient.GET(ctx, spacesPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodeData[[]model.Space](resp)
}

func (c *SpaceClient) Update(ctx context.Context, id string, update *model.SpaceUpdate) (*model.Space, error) {
	resp, err := c.httpClient.PUT(ctx, spacesPath+"/id/"+url.PathEscape(id), update)
	if err != nil {
		return nil, err
	}
	return decodeData[*model.Space](resp)
}

func (c *SpaceClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.DELETE(ctx, spacesPath+"/id/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return CheckResponse(resp)
}
