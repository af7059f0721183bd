package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nkiryanov/doccollab/internal/models"
)

const (
	PathNotifications        = "/notifications"
	PathReadNotification     = "/notifications/read"
	PathReadAllNotifications = "/notifications/readAll"

	// Notification id deleting every notification of the user
	AllNotifications int64 = -1
)

func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification
	err := c.do(ctx, http.MethodGet, PathNotifications, nil, &notifications)
	return notifications, err
}

func (c *Client) ReadNotification(ctx context.Context, n models.Notification) error {
	return c.do(ctx, http.MethodPut, PathReadNotification, n, nil)
}

func (c *Client) ReadAllNotifications(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, PathReadAllNotifications, nil, nil)
}

// DeleteNotification deletes notification by id, AllNotifications deletes every one
func (c *Client) DeleteNotification(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, PathNotifications+"/"+strconv.FormatInt(id, 10), nil, nil)
}
