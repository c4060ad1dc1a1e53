package avatar

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Default Roblox endpoints
const (
	DefaultUsersEndpoint      = "https://users.roblox.com/v1/usernames/users"
	DefaultThumbnailsEndpoint = "https://thumbnails.roblox.com/v1/users/avatar-headshot"
	DefaultSize               = "150x150"
	DefaultTimeout            = 6 * time.Second
)

// RobloxConfig configures a RobloxClient
type RobloxConfig struct {
	UsersEndpoint      string
	ThumbnailsEndpoint string
	// Size is the thumbnail size, e.g. 150x150
	Size    string
	Timeout time.Duration
}

// RobloxClient looks up avatar headshots at the Roblox web API.
// It first resolves the username to a user id and then the user id to a
// thumbnail URL.
type RobloxClient struct {
	client *resty.Client
	conf   RobloxConfig
}

type usernamesRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

type usernamesResponse struct {
	Data []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

type thumbnailsResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

// NewRobloxClient creates a new RobloxClient; empty config values are
// replaced by the defaults
func NewRobloxClient(conf RobloxConfig) *RobloxClient {
	if conf.UsersEndpoint == "" {
		conf.UsersEndpoint = DefaultUsersEndpoint
	}
	if conf.ThumbnailsEndpoint == "" {
		conf.ThumbnailsEndpoint = DefaultThumbnailsEndpoint
	}
	if conf.Size == "" {
		conf.Size = DefaultSize
	}
	if conf.Timeout <= 0 {
		conf.Timeout = DefaultTimeout
	}
	client := resty.New().
		SetTimeout(conf.Timeout).
		SetHeader("Accept", "application/json")
	return &RobloxClient{
		client: client,
		conf:   conf,
	}
}

// Client returns the underlying resty client
func (r *RobloxClient) Client() *resty.Client {
	return r.client
}

// Fetch implements the Fetcher interface
func (r *RobloxClient) Fetch(ctx context.Context, username string) Avatar {
	logger := log.WithField("username", username)
	id, ok := r.userID(ctx, username)
	if !ok {
		logger.Debug("could not resolve roblox user id")
		return Absent
	}
	url, ok := r.thumbnail(ctx, id)
	if !ok {
		logger.WithField("user_id", id).Debug("could not resolve roblox thumbnail")
		return Absent
	}
	return Avatar{URL: url}
}

func (r *RobloxClient) userID(ctx context.Context, username string) (int64, bool) {
	if username == "" {
		return 0, false
	}
	var res usernamesResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(
			usernamesRequest{
				Usernames:          []string{username},
				ExcludeBannedUsers: false,
			},
		).
		SetResult(&res).
		Post(r.conf.UsersEndpoint)
	if err != nil {
		log.WithError(err).Debug("roblox username lookup failed")
		return 0, false
	}
	if !resp.IsSuccess() {
		log.WithField("status", resp.StatusCode()).Debug("roblox username lookup returned non-success status")
		return 0, false
	}
	if len(res.Data) == 0 || res.Data[0].ID == 0 {
		return 0, false
	}
	return res.Data[0].ID, true
}

func (r *RobloxClient) thumbnail(ctx context.Context, userID int64) (string, bool) {
	var res thumbnailsResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("userIds", strconv.FormatInt(userID, 10)).
		SetQueryParam("size", r.conf.Size).
		SetQueryParam("format", "Png").
		SetQueryParam("isCircular", "true").
		SetResult(&res).
		Get(r.conf.ThumbnailsEndpoint)
	if err != nil {
		log.WithError(err).Debug("roblox thumbnail lookup failed")
		return "", false
	}
	if !resp.IsSuccess() {
		log.WithField("status", resp.StatusCode()).Debug("roblox thumbnail lookup returned non-success status")
		return "", false
	}
	if len(res.Data) == 0 || res.Data[0].ImageURL == "" {
		return "", false
	}
	return res.Data[0].ImageURL, true
}
