package services

import (
	"context"
	"errors"
	"strconv"

	"flickr-mirror/internal/models"
	"flickr-mirror/internal/repository"
)

// PageSize is the number of photos per gallery page
const PageSize = 10

// Pagination describes one page of a listing
type Pagination struct {
	Page  int
	Pages int
	Total int
}

// HasPrevious reports whether a page exists before this one
func (p Pagination) HasPrevious() bool { return p.Page > 1 }

// HasNext reports whether a page exists after this one
func (p Pagination) HasNext() bool { return p.Page < p.Pages }

// PreviousPage is the number of the page before this one
func (p Pagination) PreviousPage() int { return p.Page - 1 }

// NextPage is the number of the page after this one
func (p Pagination) NextPage() int { return p.Page + 1 }

func newPagination(page, total int) Pagination {
	pages := (total + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	return Pagination{Page: page, Pages: pages, Total: total}
}

// SetSummary is a photoset with its cover photo (nil when it has none)
type SetSummary struct {
	Set   *models.PhotoSet
	Cover *models.Photo
}

// IndexPage is the front page: public photos plus every photoset
type IndexPage struct {
	Photos    []*models.Photo
	PhotoSets []SetSummary
	Accounts  map[int64]*models.RemoteAccount
	Pagination
}

// SetPage lists the public photos of one photoset
type SetPage struct {
	Set       *models.PhotoSet
	Cover     *models.Photo
	Photos    []*models.Photo
	PhotoSets []SetSummary
	Accounts  map[int64]*models.RemoteAccount
	Pagination
}

// PhotoPage is a single photo with its owner and neighbours
type PhotoPage struct {
	Photo    *models.Photo
	Account  *models.RemoteAccount
	Set      *models.PhotoSet
	Previous *models.Photo
	Next     *models.Photo
}

// GalleryService answers the read-only queries of the browsing UI
type GalleryService struct {
	photos   PhotoStore
	sets     PhotoSetStore
	accounts AccountStore
}

// NewGalleryService creates a new gallery service
func NewGalleryService(stores Stores) *GalleryService {
	return &GalleryService{
		photos:   stores.Photos,
		sets:     stores.PhotoSets,
		accounts: stores.Accounts,
	}
}

func offsetOf(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}

// Index returns one page of public photos and all photosets
func (s *GalleryService) Index(ctx context.Context, page int) (*IndexPage, error) {
	if page < 1 {
		page = 1
	}
	photos, total, err := s.photos.ListPublic(ctx, PageSize, offsetOf(page))
	if err != nil {
		return nil, err
	}
	sets, err := s.summaries(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accountsOf(ctx, photos, sets)
	if err != nil {
		return nil, err
	}
	return &IndexPage{
		Photos:     photos,
		PhotoSets:  sets,
		Accounts:   accounts,
		Pagination: newPagination(page, total),
	}, nil
}

// Set returns one page of the public photos of a photoset.
// repository.ErrNotFound is returned for an unknown set.
func (s *GalleryService) Set(ctx context.Context, flickrID string, page int) (*SetPage, error) {
	if page < 1 {
		page = 1
	}
	set, err := s.sets.GetByFlickrID(ctx, flickrID)
	if err != nil {
		return nil, err
	}
	photos, total, err := s.photos.ListPublicInSet(ctx, set.ID, PageSize, offsetOf(page))
	if err != nil {
		return nil, err
	}
	cover, err := s.Cover(ctx, set)
	if err != nil {
		return nil, err
	}
	sets, err := s.summaries(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accountsOf(ctx, photos, sets)
	if err != nil {
		return nil, err
	}
	return &SetPage{
		Set:        set,
		Cover:      cover,
		Photos:     photos,
		PhotoSets:  sets,
		Accounts:   accounts,
		Pagination: newPagination(page, total),
	}, nil
}

// Photo looks a photo up by remote id, falling back to the primary key when
// id is numeric. With setID the neighbours are taken within that set,
// otherwise among public photos.
func (s *GalleryService) Photo(ctx context.Context, id, setID string) (*PhotoPage, error) {
	photo, err := s.photos.GetByFlickrID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		pk, convErr := strconv.ParseInt(id, 10, 64)
		if convErr != nil {
			return nil, err
		}
		photo, err = s.photos.GetByID(ctx, pk)
	}
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, photo.AccountID)
	if err != nil {
		return nil, err
	}
	result := &PhotoPage{Photo: photo, Account: account}

	if setID != "" {
		set, err := s.sets.GetByFlickrID(ctx, setID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		result.Set = set
	}

	if result.Set != nil {
		if result.Previous, err = s.photos.PreviousInSet(ctx, result.Set.ID, photo); err != nil {
			return nil, err
		}
		if result.Next, err = s.photos.NextInSet(ctx, result.Set.ID, photo); err != nil {
			return nil, err
		}
		return result, nil
	}

	if result.Previous, err = s.photos.PreviousPublic(ctx, photo); err != nil {
		return nil, err
	}
	if result.Next, err = s.photos.NextPublic(ctx, photo); err != nil {
		return nil, err
	}
	return result, nil
}

// Cover returns the primary photo of a set if mirrored, else its latest
// member, else nil.
func (s *GalleryService) Cover(ctx context.Context, set *models.PhotoSet) (*models.Photo, error) {
	if set.PrimaryPhoto != "" {
		photo, err := s.photos.GetByFlickrID(ctx, set.PrimaryPhoto)
		if err == nil {
			return photo, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	photo, err := s.photos.LatestInSet(ctx, set.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return photo, err
}

// accountsOf loads the owners of the given photos and set covers
func (s *GalleryService) accountsOf(ctx context.Context, photos []*models.Photo, sets []SetSummary) (map[int64]*models.RemoteAccount, error) {
	accounts := map[int64]*models.RemoteAccount{}
	load := func(id int64) error {
		if _, ok := accounts[id]; ok {
			return nil
		}
		account, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		accounts[id] = account
		return nil
	}
	for _, p := range photos {
		if err := load(p.AccountID); err != nil {
			return nil, err
		}
	}
	for _, summary := range sets {
		if summary.Cover == nil {
			continue
		}
		if err := load(summary.Cover.AccountID); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

func (s *GalleryService) summaries(ctx context.Context) ([]SetSummary, error) {
	sets, err := s.sets.ListVisible(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SetSummary, 0, len(sets))
	for _, set := range sets {
		cover, err := s.Cover(ctx, set)
		if err != nil {
			return nil, err
		}
		out = append(out, SetSummary{Set: set, Cover: cover})
	}
	return out, nil
}
