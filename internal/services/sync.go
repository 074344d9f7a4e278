package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/importer"
	"flickr-mirror/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrNotLinked is returned when an account holds no Flickr access token
var ErrNotLinked = errors.New("account is not linked to flickr")

const defaultPerPage = 500

// PhotoSetPayload is an album object plus its flickr.photosets.getPhotos pages
type PhotoSetPayload struct {
	Info   json.RawMessage
	Photos []json.RawMessage
}

// SyncResult summarizes one SyncAccount pass
type SyncResult struct {
	Photos      int `json:"photos"`
	PhotoErrors int `json:"photo_errors"`
	PhotoSets   int `json:"photosets"`
	Collections int `json:"collections"`
}

// SyncService mirrors Flickr entities into the local stores, keyed by remote id
type SyncService struct {
	api      RemoteAPI
	stores   Stores
	notifier Notifier
	perPage  int
}

// NewSyncService creates a new sync service. notifier may be nil.
func NewSyncService(api RemoteAPI, stores Stores, notifier Notifier, perPage int) *SyncService {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	return &SyncService{
		api:      api,
		stores:   stores,
		notifier: notifier,
		perPage:  perPage,
	}
}

// CreatePhoto imports a photo payload as a new row owned by account and attaches its tags
func (s *SyncService) CreatePhoto(ctx context.Context, account *models.RemoteAccount, payload importer.PhotoPayload) (*models.Photo, error) {
	fields, tags, err := importer.Photo(payload)
	if err != nil {
		return nil, err
	}

	photo, err := s.stores.Photos.Create(ctx, account.ID, fields)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Photos.SetTags(ctx, photo.ID, tags); err != nil {
		return nil, err
	}
	photo.Tags = tags
	return photo, nil
}

// UpdatePhoto overwrites the photo with the given remote id and returns the
// number of rows matched. With updateTags and exactly one match the tag set
// is replaced by the payload's.
func (s *SyncService) UpdatePhoto(ctx context.Context, flickrID string, payload importer.PhotoPayload, updateTags bool) (int64, error) {
	fields, tags, err := importer.Photo(payload)
	if err != nil {
		return 0, err
	}

	n, err := s.stores.Photos.UpdateByFlickrID(ctx, flickrID, fields)
	if err != nil {
		return 0, err
	}
	if n != 1 || !updateTags {
		return n, nil
	}

	photo, err := s.stores.Photos.GetByFlickrID(ctx, flickrID)
	if err != nil {
		return 0, fmt.Errorf("failed to reload photo %s: %w", flickrID, err)
	}
	if err := s.stores.Photos.SetTags(ctx, photo.ID, tags); err != nil {
		return 0, err
	}
	return n, nil
}

func decodePhotoSet(payload PhotoSetPayload) (models.PhotoSetFields, []string, error) {
	fields, _, err := importer.PhotoSet(payload.Info, nil)
	if err != nil {
		return fields, nil, err
	}
	var members []string
	for _, page := range payload.Photos {
		ids, err := importer.PhotoSetMembers(page)
		if err != nil {
			return fields, nil, err
		}
		members = append(members, ids...)
	}
	return fields, members, nil
}

// CreatePhotoSet imports an album as a new row and attaches its mirrored members
func (s *SyncService) CreatePhotoSet(ctx context.Context, account *models.RemoteAccount, payload PhotoSetPayload) (*models.PhotoSet, error) {
	fields, members, err := decodePhotoSet(payload)
	if err != nil {
		return nil, err
	}

	set, err := s.stores.PhotoSets.Create(ctx, account.ID, fields)
	if err != nil {
		return nil, err
	}
	if err := s.attachPhotos(ctx, set.ID, members); err != nil {
		return nil, err
	}
	return set, nil
}

// UpdatePhotoSet overwrites the album with the given remote id and returns the
// number of rows matched. With updatePhotos and exactly one match the
// membership is replaced.
func (s *SyncService) UpdatePhotoSet(ctx context.Context, flickrID string, payload PhotoSetPayload, updatePhotos bool) (int64, error) {
	fields, members, err := decodePhotoSet(payload)
	if err != nil {
		return 0, err
	}

	n, err := s.stores.PhotoSets.UpdateByFlickrID(ctx, flickrID, fields)
	if err != nil {
		return 0, err
	}
	if n != 1 || !updatePhotos {
		return n, nil
	}

	set, err := s.stores.PhotoSets.GetByFlickrID(ctx, flickrID)
	if err != nil {
		return 0, fmt.Errorf("failed to reload photoset %s: %w", flickrID, err)
	}
	if err := s.stores.PhotoSets.ClearPhotos(ctx, set.ID); err != nil {
		return 0, err
	}
	if err := s.attachPhotos(ctx, set.ID, members); err != nil {
		return 0, err
	}
	return n, nil
}

// attachPhotos adds the already mirrored photos among flickrIDs; others are skipped
func (s *SyncService) attachPhotos(ctx context.Context, setID int64, flickrIDs []string) error {
	if len(flickrIDs) == 0 {
		return nil
	}
	known, err := s.stores.Photos.IDsByFlickrIDs(ctx, flickrIDs)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(known))
	for _, flickrID := range flickrIDs {
		if id, ok := known[flickrID]; ok {
			ids = append(ids, id)
		}
	}
	if skipped := len(flickrIDs) - len(ids); skipped > 0 {
		log.Debug().Int64("photoset_id", setID).Int("skipped", skipped).Msg("Skipped photos not mirrored yet")
	}
	return s.stores.PhotoSets.AddPhotos(ctx, setID, ids)
}

// attachSets adds the already mirrored photosets among flickrIDs; others are skipped
func (s *SyncService) attachSets(ctx context.Context, collectionID int64, flickrIDs []string) error {
	if len(flickrIDs) == 0 {
		return nil
	}
	known, err := s.stores.PhotoSets.IDsByFlickrIDs(ctx, flickrIDs)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(known))
	for _, flickrID := range flickrIDs {
		if id, ok := known[flickrID]; ok {
			ids = append(ids, id)
		}
	}
	return s.stores.Collections.AddSets(ctx, collectionID, ids)
}

// CreateCollectionTree imports a flickr.collections.getTree response as new rows
func (s *SyncService) CreateCollectionTree(ctx context.Context, account *models.RemoteAccount, tree json.RawMessage) ([]*models.Collection, error) {
	return s.importCollectionTree(ctx, account, tree, false)
}

// CreateOrUpdateCollectionTree imports a collection tree, updating nodes that
// already exist by remote id and replacing their set membership.
func (s *SyncService) CreateOrUpdateCollectionTree(ctx context.Context, account *models.RemoteAccount, tree json.RawMessage) ([]*models.Collection, error) {
	return s.importCollectionTree(ctx, account, tree, true)
}

func (s *SyncService) importCollectionTree(ctx context.Context, account *models.RemoteAccount, tree json.RawMessage, update bool) ([]*models.Collection, error) {
	roots, err := importer.CollectionTree(tree)
	if err != nil {
		return nil, err
	}
	var written []*models.Collection
	for _, node := range roots {
		if err := s.importCollection(ctx, account, nil, node, update, &written); err != nil {
			return nil, err
		}
	}
	return written, nil
}

// importCollection writes node under parentID, then its children depth-first
func (s *SyncService) importCollection(ctx context.Context, account *models.RemoteAccount, parentID *int64, node flickr.CollectionNode, update bool, written *[]*models.Collection) error {
	fields, setIDs, children := importer.Collection(node)

	var c *models.Collection
	if update {
		n, err := s.stores.Collections.UpdateByFlickrID(ctx, fields.FlickrID, parentID, fields)
		if err != nil {
			return err
		}
		if n == 1 {
			c, err = s.stores.Collections.GetByFlickrID(ctx, fields.FlickrID)
			if err != nil {
				return fmt.Errorf("failed to reload collection %s: %w", fields.FlickrID, err)
			}
			if err := s.stores.Collections.ClearSets(ctx, c.ID); err != nil {
				return err
			}
		}
	}
	if c == nil {
		var err error
		c, err = s.stores.Collections.Create(ctx, account.ID, parentID, fields)
		if err != nil {
			return err
		}
	}

	if err := s.attachSets(ctx, c.ID, setIDs); err != nil {
		return err
	}
	*written = append(*written, c)

	for _, child := range children {
		if err := s.importCollection(ctx, account, &c.ID, child, update, written); err != nil {
			return err
		}
	}
	return nil
}

// SyncAccount runs a full pass for a linked account: profile, photos, then
// photosets, then the collection tree. A photo that fails to fetch or import
// is recorded and skipped.
func (s *SyncService) SyncAccount(ctx context.Context, account *models.RemoteAccount) (*SyncResult, error) {
	cred, err := CredentialOf(account)
	if err != nil {
		return nil, err
	}
	if account.NSID == "" {
		return nil, fmt.Errorf("account %d has no flickr nsid", account.ID)
	}

	s.notify(account.UserID, WSMessage{Type: EventSyncStarted})
	result, err := s.syncAccount(ctx, account, cred)
	if err != nil {
		s.notify(account.UserID, WSMessage{Type: EventSyncFailed, Message: err.Error()})
		return nil, err
	}
	s.notify(account.UserID, WSMessage{Type: EventSyncFinished, Data: result})

	log.Info().
		Int64("account_id", account.ID).
		Int("photos", result.Photos).
		Int("photo_errors", result.PhotoErrors).
		Int("photosets", result.PhotoSets).
		Int("collections", result.Collections).
		Msg("Account synced")

	return result, nil
}

func (s *SyncService) syncAccount(ctx context.Context, account *models.RemoteAccount, cred *flickr.Credential) (*SyncResult, error) {
	result := &SyncResult{}

	person, err := s.api.Raw(ctx, cred, "flickr.people.getInfo", map[string]string{"user_id": account.NSID})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	profile, err := importer.Account(person)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Accounts.UpdateFromRemote(ctx, account.ID, profile); err != nil {
		return nil, err
	}
	account.AccountFields = profile

	photoIDs, err := s.listPhotoIDs(ctx, cred)
	if err != nil {
		return nil, err
	}
	for i, id := range photoIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.syncPhoto(ctx, account, cred, id); err != nil {
			result.PhotoErrors++
			log.Warn().Err(err).Str("photo_id", id).Msg("Failed to sync photo")
		} else {
			result.Photos++
		}
		if (i+1)%10 == 0 || i+1 == len(photoIDs) {
			s.notify(account.UserID, WSMessage{
				Type: EventSyncProgress,
				Data: Progress{Stage: "photos", Done: i + 1, Total: len(photoIDs)},
			})
		}
	}

	albums, err := s.listPhotoSets(ctx, cred, account.NSID)
	if err != nil {
		return nil, err
	}
	for _, album := range albums {
		if err := s.syncPhotoSet(ctx, account, cred, album); err != nil {
			return nil, err
		}
		result.PhotoSets++
	}
	s.notify(account.UserID, WSMessage{
		Type: EventSyncProgress,
		Data: Progress{Stage: "photosets", Done: result.PhotoSets, Total: len(albums)},
	})

	tree, err := s.api.Raw(ctx, cred, "flickr.collections.getTree", map[string]string{"user_id": account.NSID})
	if err != nil {
		return nil, fmt.Errorf("failed to get collection tree: %w", err)
	}
	collections, err := s.CreateOrUpdateCollectionTree(ctx, account, tree)
	if err != nil {
		return nil, err
	}
	result.Collections = len(collections)

	return result, nil
}

// listPhotoIDs pages through flickr.people.getPhotos for the token owner
func (s *SyncService) listPhotoIDs(ctx context.Context, cred *flickr.Credential) ([]string, error) {
	var ids []string
	for page := 1; ; page++ {
		raw, err := s.api.Raw(ctx, cred, "flickr.people.getPhotos", map[string]string{
			"user_id":  "me",
			"per_page": strconv.Itoa(s.perPage),
			"page":     strconv.Itoa(page),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list photos: %w", err)
		}
		var resp flickr.PeoplePhotosResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode photo list: %w", err)
		}
		for _, p := range resp.Photos.Photo {
			ids = append(ids, p.ID.String())
		}
		if pages, _ := resp.Photos.Pages.Int(); page >= pages {
			return ids, nil
		}
	}
}

// fetchPhoto gathers the payloads of one photo and records them in the
// response cache. Info and sizes are required; exif and geo are optional.
func (s *SyncService) fetchPhoto(ctx context.Context, cred *flickr.Credential, flickrID string) (importer.PhotoPayload, error) {
	params := map[string]string{"photo_id": flickrID}
	var payload importer.PhotoPayload

	var err error
	payload.Info, err = s.api.Raw(ctx, cred, "flickr.photos.getInfo", params)
	if err == nil {
		payload.Sizes, err = s.api.Raw(ctx, cred, "flickr.photos.getSizes", params)
	}
	if err == nil {
		if exif, exifErr := s.api.Raw(ctx, cred, "flickr.photos.getExif", params); exifErr == nil {
			payload.Exif = exif
		} else {
			log.Debug().Err(exifErr).Str("photo_id", flickrID).Msg("No exif")
		}
		if geo, geoErr := s.api.Raw(ctx, cred, "flickr.photos.geo.getLocation", params); geoErr == nil {
			payload.Geo = geo
		} else {
			log.Debug().Err(geoErr).Str("photo_id", flickrID).Msg("No location")
		}
	}

	entry := &models.ResponseCache{
		FlickrID: flickrID,
		Info:     rawString(payload.Info),
		Sizes:    rawString(payload.Sizes),
		Exif:     rawString(payload.Exif),
		Geo:      rawString(payload.Geo),
	}
	if err != nil {
		msg := err.Error()
		entry.Exception = &msg
	}
	if cacheErr := s.stores.Cache.Save(ctx, entry); cacheErr != nil {
		log.Warn().Err(cacheErr).Str("photo_id", flickrID).Msg("Failed to cache responses")
	}

	return payload, err
}

func rawString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

// syncPhoto fetches one photo and updates it, creating it when absent
func (s *SyncService) syncPhoto(ctx context.Context, account *models.RemoteAccount, cred *flickr.Credential, flickrID string) error {
	payload, err := s.fetchPhoto(ctx, cred, flickrID)
	if err != nil {
		return err
	}
	n, err := s.UpdatePhoto(ctx, flickrID, payload, true)
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = s.CreatePhoto(ctx, account, payload)
	}
	return err
}

// listPhotoSets pages through flickr.photosets.getList
func (s *SyncService) listPhotoSets(ctx context.Context, cred *flickr.Credential, nsid string) ([]json.RawMessage, error) {
	var albums []json.RawMessage
	for page := 1; ; page++ {
		raw, err := s.api.Raw(ctx, cred, "flickr.photosets.getList", map[string]string{
			"user_id":  nsid,
			"per_page": strconv.Itoa(s.perPage),
			"page":     strconv.Itoa(page),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list photosets: %w", err)
		}
		var resp flickr.PhotoSetListResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode photoset list: %w", err)
		}
		albums = append(albums, resp.PhotoSets.PhotoSet...)
		if pages, _ := resp.PhotoSets.Pages.Int(); page >= pages {
			return albums, nil
		}
	}
}

// syncPhotoSet fetches the members of one album and upserts it
func (s *SyncService) syncPhotoSet(ctx context.Context, account *models.RemoteAccount, cred *flickr.Credential, album json.RawMessage) error {
	var info flickr.PhotoSetInfo
	if err := json.Unmarshal(album, &info); err != nil {
		return fmt.Errorf("failed to decode photoset: %w", err)
	}
	setID := info.ID.String()

	payload := PhotoSetPayload{Info: album}
	for page := 1; ; page++ {
		raw, err := s.api.Raw(ctx, cred, "flickr.photosets.getPhotos", map[string]string{
			"photoset_id": setID,
			"user_id":     account.NSID,
			"per_page":    strconv.Itoa(s.perPage),
			"page":        strconv.Itoa(page),
		})
		if err != nil {
			return fmt.Errorf("failed to list photoset %s: %w", setID, err)
		}
		payload.Photos = append(payload.Photos, raw)

		var resp flickr.PhotoSetPhotosResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("failed to decode photoset %s: %w", setID, err)
		}
		if pages, _ := resp.PhotoSet.Pages.Int(); page >= pages {
			break
		}
	}

	n, err := s.UpdatePhotoSet(ctx, setID, payload, true)
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = s.CreatePhotoSet(ctx, account, payload)
	}
	return err
}

func (s *SyncService) notify(userID string, msg WSMessage) {
	if s.notifier != nil {
		s.notifier.Notify(userID, msg)
	}
}
