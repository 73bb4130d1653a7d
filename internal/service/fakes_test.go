package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"dario/internal/model"
	"dario/internal/repository"
)

type ratingKey struct{ listing, rater string }

// memStore is an in-memory stand-in for PostgresRepository
type memStore struct {
	mu       sync.Mutex
	listings map[string]*model.Listing
	ratings  map[ratingKey]int
	messages []model.Message

	searchErr error
	storeErr  error
}

func newMemStore(listings ...model.Listing) *memStore {
	s := &memStore{
		listings: map[string]*model.Listing{},
		ratings:  map[ratingKey]int{},
	}
	for i := range listings {
		l := listings[i]
		s.listings[l.ID] = &l
	}
	return s
}

func (s *memStore) SearchListings(_ context.Context, c model.SearchCriteria, limit, offset int) ([]model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}

	var out []model.Listing
	for _, l := range s.listings {
		if c.MinPrice != nil && l.Price < *c.MinPrice {
			continue
		}
		if c.MaxPrice != nil && l.Price > *c.MaxPrice {
			continue
		}
		if c.Address != nil && !strings.Contains(strings.ToLower(l.Address), strings.ToLower(strings.TrimSpace(*c.Address))) {
			continue
		}
		if c.MinCapacity != nil && l.Capacity < *c.MinCapacity {
			continue
		}
		if c.HasElevator != nil && l.Elevator != *c.HasElevator {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return []model.Listing{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetListingByID(_ context.Context, id string) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}
	l, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *memStore) SimilarListings(_ context.Context, id string, limit int) ([]model.Listing, error) {
	return []model.Listing{}, nil
}

func (s *memStore) BatchUpdateEmbeddings(_ context.Context, items []model.EmbeddingItem) (int, []string) {
	var errs []string
	ok := 0
	for _, item := range items {
		if _, found := s.listings[item.ListingID]; !found {
			errs = append(errs, "listing "+item.ListingID+": not found")
			continue
		}
		ok++
	}
	return ok, errs
}

func (s *memStore) UpsertRating(_ context.Context, listingID, raterID string, score int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return 0, s.storeErr
	}
	if _, ok := s.listings[listingID]; !ok {
		return 0, repository.ErrListingNotFound
	}
	s.ratings[ratingKey{listingID, raterID}] = score
	return s.recalc(listingID), nil
}

func (s *memStore) DeleteRating(_ context.Context, listingID, raterID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[listingID]; !ok {
		return 0, repository.ErrListingNotFound
	}
	key := ratingKey{listingID, raterID}
	if _, ok := s.ratings[key]; !ok {
		return 0, repository.ErrRatingNotFound
	}
	delete(s.ratings, key)
	return s.recalc(listingID), nil
}

func (s *memStore) recalc(listingID string) float64 {
	sum, n := 0, 0
	for k, score := range s.ratings {
		if k.listing == listingID {
			sum += score
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = float64(sum) / float64(n)
	}
	s.listings[listingID].AverageRating = avg
	return avg
}

func (s *memStore) ListRatings(_ context.Context, listingID string) ([]model.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ratings := []model.Rating{}
	for k, score := range s.ratings {
		if k.listing == listingID {
			ratings = append(ratings, model.Rating{ListingID: k.listing, RaterID: k.rater, Score: score})
		}
	}
	return ratings, nil
}

func (s *memStore) GetRating(_ context.Context, listingID, raterID string) (*model.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.ratings[ratingKey{listingID, raterID}]
	if !ok {
		return nil, nil
	}
	return &model.Rating{ListingID: listingID, RaterID: raterID, Score: score}, nil
}

func (s *memStore) AveragePriceByAddress(_ context.Context, location string) (*repository.PriceStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	stats := &repository.PriceStats{}
	sum := 0.0
	for _, l := range s.listings {
		if strings.Contains(strings.ToLower(l.Address), strings.ToLower(location)) {
			sum += l.Price
			stats.Count++
		}
	}
	if stats.Count > 0 {
		stats.Average = sum / float64(stats.Count)
	}
	return stats, nil
}

func (s *memStore) InsertChatTurn(_ context.Context, userMsg, reply *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.messages = append(s.messages, *userMsg, *reply)
	return nil
}

func (s *memStore) ListConversation(_ context.Context, userID, peerID string, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Message{}
	for _, m := range s.messages {
		if (m.SenderID == userID && m.ReceiverID == peerID) || (m.SenderID == peerID && m.ReceiverID == userID) {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeDetector struct {
	detection *model.Detection
	err       error

	gotText    string
	gotSession string
}

func (d *fakeDetector) Detect(_ context.Context, text, sessionID string) (*model.Detection, error) {
	d.gotText = text
	d.gotSession = sessionID
	if d.err != nil {
		return nil, d.err
	}
	return d.detection, nil
}

type published struct {
	userID string
	event  model.SocketEvent
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []published
}

func (b *recordingBroadcaster) Publish(_ context.Context, userID string, event model.SocketEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{userID: userID, event: event})
	return nil
}
