package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"flickr-mirror/internal/models"
	"flickr-mirror/internal/repository"
)

// MemDB is an in-memory stand-in for the PostgreSQL repositories. It keeps
// the same uniqueness and not-found behavior.
type MemDB struct {
	mu     sync.Mutex
	nextID int64
	fails  map[string]error

	users          map[string]*models.User
	accounts       map[int64]*models.RemoteAccount
	photos         map[int64]*models.Photo
	sets           map[int64]*models.PhotoSet
	setPhotos      map[int64]map[int64]bool
	collections    map[int64]*models.Collection
	collectionSets map[int64]map[int64]bool
	cache          map[string]*models.ResponseCache
	downloads      map[int64]*models.DownloadRecord
	pending        map[string]models.PendingAuthorization
}

// NewMemDB creates an empty in-memory database
func NewMemDB() *MemDB {
	return &MemDB{
		fails:          map[string]error{},
		users:          map[string]*models.User{},
		accounts:       map[int64]*models.RemoteAccount{},
		photos:         map[int64]*models.Photo{},
		sets:           map[int64]*models.PhotoSet{},
		setPhotos:      map[int64]map[int64]bool{},
		collections:    map[int64]*models.Collection{},
		collectionSets: map[int64]map[int64]bool{},
		cache:          map[string]*models.ResponseCache{},
		downloads:      map[int64]*models.DownloadRecord{},
		pending:        map[string]models.PendingAuthorization{},
	}
}

// Fail makes every call to op (e.g. "Photos.NextPublic") return err
func (db *MemDB) Fail(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.fails[op] = err
}

// lock acquires the mutex and returns the injected error for op, if any
func (db *MemDB) lock(op string) error {
	db.mu.Lock()
	return db.fails[op]
}

func (db *MemDB) id() int64 {
	db.nextID++
	return db.nextID
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, repository.ErrNotFound)
}

func clonePhoto(p *models.Photo) *models.Photo {
	c := *p
	c.Sizes = make(map[string]models.PhotoSize, len(p.Sizes))
	for k, v := range p.Sizes {
		c.Sizes[k] = v
	}
	c.Tags = append([]string{}, p.Tags...)
	return &c
}

// Users returns the user store view
func (db *MemDB) Users() *MemUsers { return &MemUsers{db} }

// Accounts returns the account store view
func (db *MemDB) Accounts() *MemAccounts { return &MemAccounts{db} }

// Photos returns the photo store view
func (db *MemDB) Photos() *MemPhotos { return &MemPhotos{db} }

// PhotoSets returns the photoset store view
func (db *MemDB) PhotoSets() *MemPhotoSets { return &MemPhotoSets{db} }

// Collections returns the collection store view
func (db *MemDB) Collections() *MemCollections { return &MemCollections{db} }

// Cache returns the response cache view
func (db *MemDB) Cache() *MemCache { return &MemCache{db} }

// Downloads returns the download store view
func (db *MemDB) Downloads() *MemDownloads { return &MemDownloads{db} }

// Pending returns the pending authorization store view
func (db *MemDB) Pending() *MemPending { return &MemPending{db} }

// MemUsers stores local users
type MemUsers struct{ db *MemDB }

func (s *MemUsers) Create(_ context.Context, user *models.User) error {
	if err := s.db.lock("Users.Create"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[user.ID]; ok {
		return fmt.Errorf("duplicate user %s", user.ID)
	}
	u := *user
	s.db.users[user.ID] = &u
	return nil
}

func (s *MemUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if err := s.db.lock("Users.GetByID"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, notFound("user")
	}
	c := *u
	return &c, nil
}

// MemAccounts stores remote accounts
type MemAccounts struct{ db *MemDB }

func cloneAccount(a *models.RemoteAccount) *models.RemoteAccount {
	c := *a
	return &c
}

func (s *MemAccounts) GetByID(_ context.Context, id int64) (*models.RemoteAccount, error) {
	if err := s.db.lock("Accounts.GetByID"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return nil, notFound("account")
	}
	return cloneAccount(a), nil
}

func (s *MemAccounts) GetByUserID(_ context.Context, userID string) (*models.RemoteAccount, error) {
	if err := s.db.lock("Accounts.GetByUserID"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.UserID == userID {
			return cloneAccount(a), nil
		}
	}
	return nil, notFound("account")
}

func (s *MemAccounts) GetOrCreateForUser(_ context.Context, userID string) (*models.RemoteAccount, error) {
	if err := s.db.lock("Accounts.GetOrCreateForUser"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.UserID == userID {
			return cloneAccount(a), nil
		}
	}
	a := &models.RemoteAccount{ID: s.db.id(), UserID: userID, LastSync: time.Now()}
	s.db.accounts[a.ID] = a
	return cloneAccount(a), nil
}

func (s *MemAccounts) List(_ context.Context) ([]*models.RemoteAccount, error) {
	if err := s.db.lock("Accounts.List"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	out := []*models.RemoteAccount{}
	for _, a := range s.db.accounts {
		out = append(out, cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemAccounts) UpdateFromRemote(_ context.Context, id int64, f models.AccountFields) error {
	if err := s.db.lock("Accounts.UpdateFromRemote"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return notFound("account")
	}
	a.AccountFields = f
	a.LastSync = time.Now()
	return nil
}

func (s *MemAccounts) SetCredential(_ context.Context, id int64, token, secret, perms string) error {
	if err := s.db.lock("Accounts.SetCredential"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return notFound("account")
	}
	a.Token, a.TokenSecret, a.Perms = &token, &secret, &perms
	return nil
}

func (s *MemAccounts) ClearCredential(_ context.Context, id int64) error {
	if err := s.db.lock("Accounts.ClearCredential"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	if a, ok := s.db.accounts[id]; ok {
		a.Token, a.TokenSecret, a.Perms = nil, nil, nil
	}
	return nil
}

// MemPhotos stores photos with sizes and tags
type MemPhotos struct{ db *MemDB }

func (s *MemPhotos) byFlickrID(flickrID string) *models.Photo {
	for _, p := range s.db.photos {
		if p.FlickrID == flickrID {
			return p
		}
	}
	return nil
}

func (s *MemPhotos) Create(_ context.Context, accountID int64, f models.PhotoFields) (*models.Photo, error) {
	if err := s.db.lock("Photos.Create"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	if s.byFlickrID(f.FlickrID) != nil {
		return nil, fmt.Errorf("failed to create photo: duplicate flickr_id %s", f.FlickrID)
	}
	p := &models.Photo{ID: s.db.id(), AccountID: accountID, Show: true, PhotoFields: f, LastSync: time.Now()}
	p = clonePhoto(p)
	s.db.photos[p.ID] = p
	return clonePhoto(p), nil
}

func (s *MemPhotos) UpdateByFlickrID(_ context.Context, flickrID string, f models.PhotoFields) (int64, error) {
	if err := s.db.lock("Photos.UpdateByFlickrID"); err != nil {
		s.db.mu.Unlock()
		return 0, err
	}
	defer s.db.mu.Unlock()
	p := s.byFlickrID(flickrID)
	if p == nil {
		return 0, nil
	}
	sizes := p.Sizes
	for label, size := range f.Sizes {
		sizes[label] = size
	}
	f.FlickrID = p.FlickrID
	p.PhotoFields = f
	p.Sizes = sizes
	p.LastSync = time.Now()
	return 1, nil
}

func (s *MemPhotos) GetByFlickrID(_ context.Context, flickrID string) (*models.Photo, error) {
	if err := s.db.lock("Photos.GetByFlickrID"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	p := s.byFlickrID(flickrID)
	if p == nil {
		return nil, notFound("photo")
	}
	return clonePhoto(p), nil
}

func (s *MemPhotos) GetByID(_ context.Context, id int64) (*models.Photo, error) {
	if err := s.db.lock("Photos.GetByID"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	p, ok := s.db.photos[id]
	if !ok {
		return nil, notFound("photo")
	}
	return clonePhoto(p), nil
}

// Delete removes a photo, as a concurrent writer would
func (s *MemPhotos) Delete(flickrID string) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if p := s.byFlickrID(flickrID); p != nil {
		delete(s.db.photos, p.ID)
		for _, members := range s.db.setPhotos {
			delete(members, p.ID)
		}
	}
}

func (s *MemPhotos) IDsByFlickrIDs(_ context.Context, flickrIDs []string) (map[string]int64, error) {
	if err := s.db.lock("Photos.IDsByFlickrIDs"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	ids := map[string]int64{}
	for _, id := range flickrIDs {
		if p := s.byFlickrID(id); p != nil {
			ids[id] = p.ID
		}
	}
	return ids, nil
}

func (s *MemPhotos) SetTags(_ context.Context, photoID int64, tags []string) error {
	if err := s.db.lock("Photos.SetTags"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	p, ok := s.db.photos[photoID]
	if !ok {
		return notFound("photo")
	}
	seen := map[string]bool{}
	p.Tags = []string{}
	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			p.Tags = append(p.Tags, tag)
		}
	}
	sort.Strings(p.Tags)
	return nil
}

func isPublic(p *models.Photo) bool {
	return p.Show && p.IsPublic != nil && *p.IsPublic
}

// newestFirst orders by date posted desc (missing last), date taken desc, id desc
func newestFirst(photos []*models.Photo) {
	sort.Slice(photos, func(i, j int) bool {
		a, b := photos[i], photos[j]
		if c := compareTime(a.DatePosted, b.DatePosted); c != 0 {
			return c > 0
		}
		if c := compareTime(a.DateTaken, b.DateTaken); c != 0 {
			return c > 0
		}
		return a.ID > b.ID
	})
}

// compareTime orders nil before any time
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

func page(photos []*models.Photo, limit, offset int) []*models.Photo {
	out := []*models.Photo{}
	for i := offset; i < len(photos) && i < offset+limit; i++ {
		out = append(out, clonePhoto(photos[i]))
	}
	return out
}

func (s *MemPhotos) ListPublic(_ context.Context, limit, offset int) ([]*models.Photo, int, error) {
	if err := s.db.lock("Photos.ListPublic"); err != nil {
		s.db.mu.Unlock()
		return nil, 0, err
	}
	defer s.db.mu.Unlock()
	var matched []*models.Photo
	for _, p := range s.db.photos {
		if isPublic(p) {
			matched = append(matched, p)
		}
	}
	newestFirst(matched)
	return page(matched, limit, offset), len(matched), nil
}

func (s *MemPhotos) ListPublicInSet(_ context.Context, setID int64, limit, offset int) ([]*models.Photo, int, error) {
	if err := s.db.lock("Photos.ListPublicInSet"); err != nil {
		s.db.mu.Unlock()
		return nil, 0, err
	}
	defer s.db.mu.Unlock()
	var matched []*models.Photo
	for id := range s.db.setPhotos[setID] {
		if p, ok := s.db.photos[id]; ok && isPublic(p) {
			matched = append(matched, p)
		}
	}
	newestFirst(matched)
	return page(matched, limit, offset), len(matched), nil
}

func (s *MemPhotos) LatestInSet(_ context.Context, setID int64) (*models.Photo, error) {
	if err := s.db.lock("Photos.LatestInSet"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	var matched []*models.Photo
	for id := range s.db.setPhotos[setID] {
		if p, ok := s.db.photos[id]; ok && p.Show {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, notFound("photo")
	}
	newestFirst(matched)
	return clonePhoto(matched[0]), nil
}

// neighbour returns the closest photo after (dir 1) or before (dir -1) p by
// (date posted, id) among candidates, or nil.
func neighbour(candidates []*models.Photo, p *models.Photo, dir int) *models.Photo {
	if p.DatePosted == nil {
		return nil
	}
	var best *models.Photo
	key := func(x *models.Photo) int {
		if c := x.DatePosted.Compare(*p.DatePosted); c != 0 {
			return c
		}
		switch {
		case x.ID > p.ID:
			return 1
		case x.ID < p.ID:
			return -1
		}
		return 0
	}
	closer := func(x, y *models.Photo) bool {
		if c := x.DatePosted.Compare(*y.DatePosted); c != 0 {
			return c*dir < 0
		}
		return (x.ID < y.ID) == (dir > 0)
	}
	for _, x := range candidates {
		if x.DatePosted == nil || key(x)*dir <= 0 {
			continue
		}
		if best == nil || closer(x, best) {
			best = x
		}
	}
	if best == nil {
		return nil
	}
	return clonePhoto(best)
}

func (s *MemPhotos) publicPhotos() []*models.Photo {
	var out []*models.Photo
	for _, p := range s.db.photos {
		if isPublic(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *MemPhotos) visibleInSet(setID int64) []*models.Photo {
	var out []*models.Photo
	for id := range s.db.setPhotos[setID] {
		if p, ok := s.db.photos[id]; ok && p.Show {
			out = append(out, p)
		}
	}
	return out
}

func (s *MemPhotos) NextPublic(_ context.Context, p *models.Photo) (*models.Photo, error) {
	if err := s.db.lock("Photos.NextPublic"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	return neighbour(s.publicPhotos(), p, 1), nil
}

func (s *MemPhotos) PreviousPublic(_ context.Context, p *models.Photo) (*models.Photo, error) {
	if err := s.db.lock("Photos.PreviousPublic"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	return neighbour(s.publicPhotos(), p, -1), nil
}

func (s *MemPhotos) NextInSet(_ context.Context, setID int64, p *models.Photo) (*models.Photo, error) {
	if err := s.db.lock("Photos.NextInSet"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	return neighbour(s.visibleInSet(setID), p, 1), nil
}

func (s *MemPhotos) PreviousInSet(_ context.Context, setID int64, p *models.Photo) (*models.Photo, error) {
	if err := s.db.lock("Photos.PreviousInSet"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	return neighbour(s.visibleInSet(setID), p, -1), nil
}

func (s *MemPhotos) CountByAccount(_ context.Context, accountID int64) (int, error) {
	if err := s.db.lock("Photos.CountByAccount"); err != nil {
		s.db.mu.Unlock()
		return 0, err
	}
	defer s.db.mu.Unlock()
	n := 0
	for _, p := range s.db.photos {
		if p.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// Hide flips the show flag of a photo off
func (s *MemPhotos) Hide(flickrID string) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if p := s.byFlickrID(flickrID); p != nil {
		p.Show = false
	}
}

// MemPhotoSets stores photosets and their members
type MemPhotoSets struct{ db *MemDB }

func (s *MemPhotoSets) byFlickrID(flickrID string) *models.PhotoSet {
	for _, set := range s.db.sets {
		if set.FlickrID == flickrID {
			return set
		}
	}
	return nil
}

func (s *MemPhotoSets) Create(_ context.Context, accountID int64, f models.PhotoSetFields) (*models.PhotoSet, error) {
	if err := s.db.lock("PhotoSets.Create"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	if s.byFlickrID(f.FlickrID) != nil {
		return nil, fmt.Errorf("failed to create photoset: duplicate flickr_id %s", f.FlickrID)
	}
	set := &models.PhotoSet{ID: s.db.id(), AccountID: accountID, Show: true, PhotoSetFields: f, LastSync: time.Now()}
	s.db.sets[set.ID] = set
	c := *set
	return &c, nil
}

func (s *MemPhotoSets) UpdateByFlickrID(_ context.Context, flickrID string, f models.PhotoSetFields) (int64, error) {
	if err := s.db.lock("PhotoSets.UpdateByFlickrID"); err != nil {
		s.db.mu.Unlock()
		return 0, err
	}
	defer s.db.mu.Unlock()
	set := s.byFlickrID(flickrID)
	if set == nil {
		return 0, nil
	}
	f.FlickrID = set.FlickrID
	set.PhotoSetFields = f
	set.LastSync = time.Now()
	return 1, nil
}

func (s *MemPhotoSets) GetByFlickrID(_ context.Context, flickrID string) (*models.PhotoSet, error) {
	if err := s.db.lock("PhotoSets.GetByFlickrID"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	set := s.byFlickrID(flickrID)
	if set == nil {
		return nil, notFound("photoset")
	}
	c := *set
	return &c, nil
}

func (s *MemPhotoSets) IDsByFlickrIDs(_ context.Context, flickrIDs []string) (map[string]int64, error) {
	if err := s.db.lock("PhotoSets.IDsByFlickrIDs"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	ids := map[string]int64{}
	for _, id := range flickrIDs {
		if set := s.byFlickrID(id); set != nil {
			ids[id] = set.ID
		}
	}
	return ids, nil
}

func (s *MemPhotoSets) ListVisible(_ context.Context) ([]*models.PhotoSet, error) {
	if err := s.db.lock("PhotoSets.ListVisible"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	out := []*models.PhotoSet{}
	for _, set := range s.db.sets {
		if set.Show {
			c := *set
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := compareTime(out[i].DatePosted, out[j].DatePosted); c != 0 {
			return c > 0
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemPhotoSets) AddPhotos(_ context.Context, setID int64, photoIDs []int64) error {
	if err := s.db.lock("PhotoSets.AddPhotos"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	if len(photoIDs) == 0 {
		return nil
	}
	members := s.db.setPhotos[setID]
	if members == nil {
		members = map[int64]bool{}
		s.db.setPhotos[setID] = members
	}
	for _, id := range photoIDs {
		members[id] = true
	}
	return nil
}

func (s *MemPhotoSets) ClearPhotos(_ context.Context, setID int64) error {
	if err := s.db.lock("PhotoSets.ClearPhotos"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	delete(s.db.setPhotos, setID)
	return nil
}

func (s *MemPhotoSets) CountPhotos(_ context.Context, setID int64) (int, error) {
	if err := s.db.lock("PhotoSets.CountPhotos"); err != nil {
		s.db.mu.Unlock()
		return 0, err
	}
	defer s.db.mu.Unlock()
	return len(s.db.setPhotos[setID]), nil
}

func (s *MemPhotoSets) CountByAccount(_ context.Context, accountID int64) (int, error) {
	if err := s.db.lock("PhotoSets.CountByAccount"); err != nil {
		s.db.mu.Unlock()
		return 0, err
	}
	defer s.db.mu.Unlock()
	n := 0
	for _, set := range s.db.sets {
		if set.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// Members returns the remote ids of a set's photos, sorted
func (s *MemPhotoSets) Members(setID int64) []string {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []string{}
	for id := range s.db.setPhotos[setID] {
		if p, ok := s.db.photos[id]; ok {
			out = append(out, p.FlickrID)
		}
	}
	sort.Strings(out)
	return out
}

// MemCollections stores collection trees
type MemCollections struct{ db *MemDB }

func (s *MemCollections) byFlickrID(flickrID string) *models.Collection {
	for _, c := range s.db.collections {
		if c.FlickrID == flickrID {
			return c
		}
	}
	return nil
}

func (s *MemCollections) Create(_ context.Context, accountID int64, parentID *int64, f models.CollectionFields) (*models.Collection, error) {
	if err := s.db.lock("Collections.Create"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	if s.byFlickrID(f.FlickrID) != nil {
		return nil, fmt.Errorf("failed to create collection: duplicate flickr_id %s", f.FlickrID)
	}
	c := &models.Collection{ID: s.db.id(), AccountID: accountID, Show: true, CollectionFields: f, LastSync: time.Now()}
	if parentID != nil {
		parent := *parentID
		c.ParentID = &parent
	}
	s.db.collections[c.ID] = c
	out := *c
	return &out, nil
}

func (s *MemCollections) UpdateByFlickrID(_ context.Context, flickrID string, parentID *int64, f models.CollectionFields) (int64, error) {
	if err := s.db.lock("Collections.UpdateByFlickrID"); err != nil {
		s.db.mu.Unlock()
		return 0, err
	}
	defer s.db.mu.Unlock()
	c := s.byFlickrID(flickrID)
	if c == nil {
		return 0, nil
	}
	f.FlickrID = c.FlickrID
	c.CollectionFields = f
	c.ParentID = nil
	if parentID != nil {
		parent := *parentID
		c.ParentID = &parent
	}
	c.LastSync = time.Now()
	return 1, nil
}

func (s *MemCollections) GetByFlickrID(_ context.Context, flickrID string) (*models.Collection, error) {
	if err := s.db.lock("Collections.GetByFlickrID"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	c := s.byFlickrID(flickrID)
	if c == nil {
		return nil, notFound("collection")
	}
	out := *c
	return &out, nil
}

func (s *MemCollections) ListByAccount(_ context.Context, accountID int64) ([]*models.Collection, error) {
	if err := s.db.lock("Collections.ListByAccount"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	out := []*models.Collection{}
	for _, c := range s.db.collections {
		if c.AccountID == accountID {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemCollections) AddSets(_ context.Context, collectionID int64, setIDs []int64) error {
	if err := s.db.lock("Collections.AddSets"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	if len(setIDs) == 0 {
		return nil
	}
	members := s.db.collectionSets[collectionID]
	if members == nil {
		members = map[int64]bool{}
		s.db.collectionSets[collectionID] = members
	}
	for _, id := range setIDs {
		members[id] = true
	}
	return nil
}

func (s *MemCollections) ClearSets(_ context.Context, collectionID int64) error {
	if err := s.db.lock("Collections.ClearSets"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	delete(s.db.collectionSets, collectionID)
	return nil
}

func (s *MemCollections) CountByAccount(_ context.Context, accountID int64) (int, error) {
	if err := s.db.lock("Collections.CountByAccount"); err != nil {
		s.db.mu.Unlock()
		return 0, err
	}
	defer s.db.mu.Unlock()
	n := 0
	for _, c := range s.db.collections {
		if c.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// Sets returns the remote ids of a collection's photosets, sorted
func (s *MemCollections) Sets(collectionID int64) []string {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []string{}
	for id := range s.db.collectionSets[collectionID] {
		if set, ok := s.db.sets[id]; ok {
			out = append(out, set.FlickrID)
		}
	}
	sort.Strings(out)
	return out
}

// MemCache stores response cache entries by remote id
type MemCache struct{ db *MemDB }

func (s *MemCache) Save(_ context.Context, c *models.ResponseCache) error {
	if err := s.db.lock("Cache.Save"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	entry := *c
	entry.ID = s.db.id()
	entry.Added = time.Now()
	s.db.cache[c.FlickrID] = &entry
	c.ID, c.Added = entry.ID, entry.Added
	return nil
}

// Get returns the cache entry of a photo, or nil
func (s *MemCache) Get(flickrID string) *models.ResponseCache {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if c, ok := s.db.cache[flickrID]; ok {
		out := *c
		return &out
	}
	return nil
}

// MemDownloads stores download records by photo
type MemDownloads struct{ db *MemDB }

func (s *MemDownloads) Pending(_ context.Context, accountID int64, limit int) ([]*models.Photo, error) {
	if err := s.db.lock("Downloads.Pending"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	var matched []*models.Photo
	for _, p := range s.db.photos {
		if p.AccountID != accountID {
			continue
		}
		if d, ok := s.db.downloads[p.ID]; ok && d.FileKey != nil {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if (a.DatePosted == nil) != (b.DatePosted == nil) {
			return b.DatePosted == nil
		}
		if c := compareTime(a.DatePosted, b.DatePosted); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return page(matched, limit, 0), nil
}

func (s *MemDownloads) Save(_ context.Context, d *models.DownloadRecord) error {
	if err := s.db.lock("Downloads.Save"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	record := *d
	if existing, ok := s.db.downloads[d.PhotoID]; ok {
		record.ID = existing.ID
	} else {
		record.ID = s.db.id()
	}
	record.DateDownloaded = time.Now()
	s.db.downloads[d.PhotoID] = &record
	d.ID, d.DateDownloaded = record.ID, record.DateDownloaded
	return nil
}

// Get returns the download record of a photo, or nil
func (s *MemDownloads) Get(photoID int64) *models.DownloadRecord {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if d, ok := s.db.downloads[photoID]; ok {
		out := *d
		return &out
	}
	return nil
}

// MemPending stores pending authorizations; the TTL is ignored
type MemPending struct{ db *MemDB }

func (s *MemPending) Save(_ context.Context, p models.PendingAuthorization, _ time.Duration) error {
	if err := s.db.lock("Pending.Save"); err != nil {
		s.db.mu.Unlock()
		return err
	}
	defer s.db.mu.Unlock()
	s.db.pending[p.RequestToken] = p
	return nil
}

func (s *MemPending) Take(_ context.Context, requestToken string) (*models.PendingAuthorization, error) {
	if err := s.db.lock("Pending.Take"); err != nil {
		s.db.mu.Unlock()
		return nil, err
	}
	defer s.db.mu.Unlock()
	p, ok := s.db.pending[requestToken]
	if !ok {
		return nil, notFound("pending authorization")
	}
	delete(s.db.pending, requestToken)
	return &p, nil
}

// Len returns the number of pending authorizations
func (s *MemPending) Len() int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.pending)
}
