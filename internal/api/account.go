package api

import (
	"context"
	"encoding/json"

	"github.com/scorecloud/scorecloud-cli/internal/session"
)

// FetchAccountInfo downloads the signed-in user's profile and publishes it
// to the session state. Runs through the executor, so an expired token is
// refreshed and the fetch retried once.
func (c *Client) FetchAccountInfo(ctx context.Context) (session.AccountInfo, error) {
	var info session.AccountInfo
	err := c.Execute(ctx, func() error {
		fetched, err := c.fetchAccountInfo(ctx)
		if err != nil {
			return err
		}
		info = fetched
		return nil
	})
	if err != nil {
		return session.AccountInfo{}, err
	}

	c.session.SetAccount(info)
	return info, nil
}

func (c *Client) fetchAccountInfo(ctx context.Context) (session.AccountInfo, error) {
	reqURL, err := c.prepareURL(c.cfg.UserInfoURL(), nil)
	if err != nil {
		return session.AccountInfo{}, err
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return session.AccountInfo{}, err
	}

	var user struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		ProfileURL string `json:"profile_url"`
		AvatarURL  string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return session.AccountInfo{}, err
	}

	return session.AccountInfo{
		ID:            user.ID,
		UserName:      user.Name,
		ProfileURL:    user.ProfileURL,
		AvatarURL:     user.AvatarURL,
		SheetmusicURL: user.ProfileURL + "/sheetmusic",
	}, nil
}
