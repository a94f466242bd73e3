package client

import (
	"context"
	"fmt"
	"net/url"
	"spacebook/pkg/model"
	"strconv"
	"time"
)

const reservationsPath = "/api/v1/reservations"

type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(httpClient *HttpClient) *ReservationClient {
	return &ReservationClient{httpClient: httpClient}
}

func (c *ReservationClient) Create(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error) {
	resp, err := c.httpClient.POST(ctx, reservationsPath, req)
	if err != nil {
		return nil, err
	}
	return decodeData[*model.Reservation](resp)
}

func (c *ReservationClient) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	resp, err := c.httpClient.GET(ctx, reservationsPath+"/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodeData[*model.Reservation](resp)
}

func (c *ReservationClient) ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]model.Reservation, error) {
	q := url.Values{}
	q.Set("owner_id", ownerID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.FormatInt(offset, 10))

	resp, err := c.httpClient.GET(ctx, reservationsPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodeData[[]model.Reservation](resp)
}

func (c *ReservationClient) Update(ctx context.Context, id string, update *model.ReservationUpdate) error {
	resp, err := c.httpClient.PATCH(ctx, reservationsPath+"/id/"+url.PathEscape(id), update)
	if err != nil {
		return err
	}
	return CheckResponse(resp)
}

func (c *ReservationClient) Cancel(ctx context.Context, id string) error {
	resp, err := c.httpClient.DELETE(ctx, reservationsPath+"/id/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return CheckResponse(resp)
}

// Availability fetches the slot grid for a day. granularity 0 uses the space default.
func (c *ReservationClient) Availability(ctx context.Context, spaceID string, date time.Time, granularity time.Duration) ([]model.AvailabilitySlot, error) {
	q := url.Values{}
	q.Set("space_id", spaceID)
	q.Set("date", date.Format(time.DateOnly))
	if granularity > 0 {
		q.Set("granularity", fmt.Sprintf("%d", int(granularity/time.Minute)))
	}

	resp, err := c.httpClient.GET(ctx, reservationsPath+"/available-slots?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodeData[[]model.AvailabilitySlot](resp)
}
