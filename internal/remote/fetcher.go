// Package remote is the only part of comfydepot that talks to the network.
//
// Plugins are cloned and pulled through a GitRepo (go-git in production);
// model files are fetched over HTTP. Every failure wraps ErrRemoteFailure,
// and deadline expiry wraps ErrTimeout, so callers can count them per item.
package remote

import (
	"context"
)

// PullResult reports the outcome of an update.
type PullResult struct {
	// Changed is true when new upstream content was checked out
	Changed bool
}

// ProgressFunc receives bytes written so far and the expected total
// (-1 when unknown).
type ProgressFunc func(written, total int64)

// Fetcher performs the remote side of install and update actions.
type Fetcher interface {
	Clone(ctx context.Context, url, dest string) error
	PullUpdate(ctx context.Context, path string) (PullResult, error)
	Download(ctx context.Context, url, dest string, onProgress ProgressFunc) error
}

// UpdateChecker reports whether an installed checkout has upstream changes.
type UpdateChecker interface {
	HasUpdate(ctx context.Context, path string) (bool, error)
}

// Repos is the git side of a Fetcher; gitx.GitRepo satisfies it.
type Repos interface {
	Clone(ctx context.Context, url, dest string) error
	Pull(ctx context.Context, dir string) (bool, error)
	HasUpdate(ctx context.Context, dir string) (bool, error)
}

// Downloader is the HTTP side of a Fetcher.
type Downloader interface {
	Download(ctx context.Context, url, dest string, onProgress ProgressFunc) error
}

// Client combines git and HTTP into a Fetcher and UpdateChecker.
type Client struct {
	repos Repos
	dl    Downloader
}

// NewClient creates a Client.
func NewClient(repos Repos, dl Downloader) *Client {
	return &Client{repos: repos, dl: dl}
}

// Clone checks a plugin out into dest.
func (c *Client) Clone(ctx context.Context, url, dest string) error {
	return wrap(ctx, "clone", c.repos.Clone(ctx, url, dest))
}

// PullUpdate fast-forwards the checkout at path.
func (c *Client) PullUpdate(ctx context.Context, path string) (PullResult, error) {
	changed, err := c.repos.Pull(ctx, path)
	if err != nil {
		return PullResult{}, wrap(ctx, "pull", err)
	}
	return PullResult{Changed: changed}, nil
}

// HasUpdate fetches and compares the checkout at path with its upstream.
func (c *Client) HasUpdate(ctx context.Context, path string) (bool, error) {
	changed, err := c.repos.HasUpdate(ctx, path)
	if err != nil {
		return false, wrap(ctx, "fetch", err)
	}
	return changed, nil
}

// Download fetches url into dest.
func (c *Client) Download(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	return wrap(ctx, "download", c.dl.Download(ctx, url, dest, onProgress))
}
