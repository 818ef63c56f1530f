package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// ScoreOwner identifies the account a score belongs to.
type ScoreOwner struct {
	ID         int64
	UserName   string
	ProfileURL string
}

// ScoreInfo is the metadata record for one published score.
type ScoreInfo struct {
	ID          int64
	Title       string
	Description string
	License     string
	Tags        []string
	IsPrivate   bool
	URL         string
	Owner       ScoreOwner
}

// FetchScoreInfo downloads score metadata, retrying once through the
// executor on an expired token.
func (c *Client) FetchScoreInfo(ctx context.Context, scoreID int64) (ScoreInfo, error) {
	var info ScoreInfo
	err := c.Execute(ctx, func() error {
		fetched, err := c.fetchScoreInfo(ctx, scoreID)
		if err != nil {
			return err
		}
		info = fetched
		return nil
	})
	return info, err
}

func (c *Client) fetchScoreInfo(ctx context.Context, scoreID int64) (ScoreInfo, error) {
	params := url.Values{}
	params.Set("score_id", strconv.FormatInt(scoreID, 10))

	reqURL, err := c.prepareURL(c.cfg.ScoreInfoURL(), params)
	if err != nil {
		return ScoreInfo{}, err
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return ScoreInfo{}, err
	}

	var raw struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		License     string `json:"license"`
		Tags        string `json:"tags"`
		Sharing     string `json:"sharing"`
		CustomURL   string `json:"custom_url"`
		User        struct {
			UID       int64  `json:"uid"`
			Username  string `json:"username"`
			CustomURL string `json:"custom_url"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return ScoreInfo{}, err
	}

	info := ScoreInfo{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: raw.Description,
		License:     raw.License,
		IsPrivate:   raw.Sharing == "private",
		URL:         raw.CustomURL,
		Owner: ScoreOwner{
			ID:         raw.User.UID,
			UserName:   raw.User.Username,
			ProfileURL: raw.User.CustomURL,
		},
	}
	if raw.Tags != "" {
		info.Tags = strings.Split(raw.Tags, ",")
	}

	return info, nil
}
