package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"
	"flickr-mirror/internal/storage"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const defaultRetryWindow = 2 * time.Minute

// DownloadResult summarizes one DownloadPending pass
type DownloadResult struct {
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
}

// DownloadService copies photo binaries from Flickr into blob storage
type DownloadService struct {
	fetcher     Fetcher
	blobs       BlobStore
	downloads   DownloadStore
	keys        storage.KeyBuilder
	notifier    Notifier
	retryWindow time.Duration
}

// NewDownloadService creates a new download service. A zero retryWindow uses
// the default; notifier may be nil.
func NewDownloadService(fetcher Fetcher, blobs BlobStore, stores Stores, keys storage.KeyBuilder, notifier Notifier, retryWindow time.Duration) *DownloadService {
	if retryWindow <= 0 {
		retryWindow = defaultRetryWindow
	}
	return &DownloadService{
		fetcher:     fetcher,
		blobs:       blobs,
		downloads:   stores.Downloads,
		keys:        keys,
		notifier:    notifier,
		retryWindow: retryWindow,
	}
}

// SourceOf picks the URL to download: the stored Original rendition, else
// the stored Large one, else a URL built from the catalog. original reports
// whether it is the full resolution file.
func SourceOf(p *models.Photo) (source string, original bool) {
	if s, ok := p.Size("ori"); ok && s.Source != "" {
		return s.Source, true
	}
	if s, ok := p.Size("large"); ok && s.Source != "" {
		return s.Source, false
	}
	if p.OriginalSecret != "" {
		return flickr.BuildSourceURL(p.Farm, p.Server, p.FlickrID, p.OriginalSecret, flickr.MustSize("ori"), p.OriginalExtension()), true
	}
	return flickr.BuildSourceURL(p.Farm, p.Server, p.FlickrID, p.Secret, flickr.MustSize("large"), "jpg"), false
}

// DownloadPending downloads up to limit photos of account that have no
// stored binary yet. Failures are recorded on the photo's download row.
func (s *DownloadService) DownloadPending(ctx context.Context, account *models.RemoteAccount, limit int) (*DownloadResult, error) {
	photos, err := s.downloads.Pending(ctx, account.ID, limit)
	if err != nil {
		return nil, err
	}

	result := &DownloadResult{}
	for i, p := range photos {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record := s.download(ctx, p)
		if err := s.downloads.Save(ctx, record); err != nil {
			return result, err
		}
		if record.Errors != nil {
			result.Failed++
		} else {
			result.Downloaded++
		}

		if s.notifier != nil {
			s.notifier.Notify(account.UserID, WSMessage{
				Type: EventDownloadProgress,
				Data: Progress{Stage: "download", Done: i + 1, Total: len(photos)},
			})
		}
	}

	log.Info().
		Int64("account_id", account.ID).
		Int("downloaded", result.Downloaded).
		Int("failed", result.Failed).
		Msg("Downloads finished")

	return result, nil
}

func (s *DownloadService) download(ctx context.Context, p *models.Photo) *models.DownloadRecord {
	source, original := SourceOf(p)
	record := &models.DownloadRecord{PhotoID: p.ID, URL: source, Original: &original}

	fail := func(err error) *models.DownloadRecord {
		log.Warn().Err(err).Str("photo_id", p.FlickrID).Str("url", source).Msg("Download failed")
		msg := err.Error()
		record.Errors = &msg
		return record
	}

	key := s.keys.Key(p.DatePosted, fileName(source, p.FlickrID))
	exists, err := s.blobs.Exists(ctx, key)
	if err != nil {
		return fail(err)
	}
	if exists {
		record.FileKey = &key
		return record
	}

	data, err := s.fetch(ctx, source)
	if err != nil {
		return fail(err)
	}

	if err := s.blobs.Put(ctx, key, data, http.DetectContentType(data)); err != nil {
		return fail(err)
	}

	record.FileKey = &key
	return record
}

// fetch downloads rawURL, retrying with exponential backoff. Client errors
// (4xx) are not retried.
func (s *DownloadService) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var data []byte
	op := func() error {
		body, err := s.fetcher.Download(ctx, rawURL)
		if err != nil {
			var httpErr *flickr.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		defer body.Close()

		data, err = io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(s.retryWindow)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return data, nil
}

// fileName is the last path segment of rawURL, or fallback.jpg
func fileName(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if name := path.Base(u.Path); name != "." && name != "/" && name != "" {
			return name
		}
	}
	return fallback + ".jpg"
}
