package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/internal/cache"
	"github.com/charlesng35/smokefree/internal/push"
	"github.com/charlesng35/smokefree/pkg/logger"
	"github.com/charlesng35/smokefree/pkg/metrics"
)

const (
	DefaultKeyPrefix  = "notifications_"
	DefaultDateLayout = "Jan 2, 2006"
	DefaultTimeLayout = "3:04 PM"
	DefaultPushTitle  = "New Notification"
)

// Option customises a Store.
type Option func(*Store)

// WithKeyPrefix sets the prefix of the persisted entry key.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock overrides the creation clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the location used for the display date and time.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLayouts overrides the display date and time layouts.
func WithLayouts(dateLayout, timeLayout string) Option {
	return func(s *Store) {
		if dateLayout != "" {
			s.dateLayout = dateLayout
		}
		if timeLayout != "" {
			s.timeLayout = timeLayout
		}
	}
}

// WithDefaultPushTitle sets the title used for push messages without one.
func WithDefaultPushTitle(title string) Option {
	return func(s *Store) {
		if title != "" {
			s.pushTitle = title
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithTTL sets how long the persisted collection is retained after its last rewrite.
// Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithObserver registers a callback invoked after each mutation.
func WithObserver(observer Observer) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

// Store is the ordered, newest-first notification collection of the signed-in user,
// mirrored to a cache.Store under prefix+userID.
type Store struct {
	mu      sync.RWMutex
	userID  string
	records []Record
	// loaded is set once the persisted collection of userID has been read.
	loaded bool

	storage    cache.Store
	prefix     string
	ttl        time.Duration
	now        func() time.Time
	loc        *time.Location
	dateLayout string
	timeLayout string
	pushTitle  string
	newID      func() (string, error)
	observer   Observer
	log        *zap.Logger
}

// NewStore constructs a user-less Store; call Load to bind it.
func NewStore(storage cache.Store, opts ...Option) *Store {
	s := &Store{
		storage:    storage,
		prefix:     DefaultKeyPrefix,
		now:        time.Now,
		loc:        time.UTC,
		dateLayout: DefaultDateLayout,
		timeLayout: DefaultTimeLayout,
		pushTitle:  DefaultPushTitle,
		newID:      newRecordID,
		log:        logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Key returns the persisted entry key for userID.
func (s *Store) Key(userID string) string {
	return s.prefix + userID
}

// UserID returns the bound user, or "" when signed out.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Load binds the store to userID and reads its persisted collection. A missing or corrupt
// entry yields an empty collection. Load never writes.
//
// When the read fails the store stays bound but unloaded: mutations work in memory and
// the next write first retries the read, so the persisted history is never overwritten.
func (s *Store) Load(ctx context.Context, userID string) {
	userID = strings.TrimSpace(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = userID
	s.records = nil
	s.loaded = false
	if userID == "" {
		return
	}

	records, err := s.readLocked(ctx)
	if err != nil {
		return
	}
	s.records = records
	s.loaded = true
}

// readLocked fetches the persisted collection of the bound user. Only a storage failure
// is returned as an error; a corrupt payload reads as empty.
func (s *Store) readLocked(ctx context.Context) ([]Record, error) {
	log := s.log.With(zap.String("user_id", s.userID))
	raw, ok, err := s.storage.Get(ctx, s.Key(s.userID))
	if err != nil {
		metrics.StorageFailures.WithLabelValues("load").Inc()
		log.Warn("failed to read persisted notifications", zap.Error(err))
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		metrics.StorageFailures.WithLabelValues("load").Inc()
		log.Warn("discarding corrupt persisted notifications", zap.Error(err))
		return nil, nil
	}
	return records, nil
}

// reloadLocked retries the initial read and appends the persisted records behind the
// ones created since Load.
func (s *Store) reloadLocked(ctx context.Context) bool {
	records, err := s.readLocked(ctx)
	if err != nil {
		return false
	}

	seen := make(map[string]struct{}, len(s.records))
	for _, r := range s.records {
		seen[r.ID] = struct{}{}
	}
	merged := append([]Record(nil), s.records...)
	for _, r := range records {
		if _, dup := seen[r.ID]; !dup {
			merged = append(merged, r)
		}
	}
	s.records = merged
	s.loaded = true
	return true
}

// SignOut abandons the in-memory collection. Persisted storage is left untouched.
func (s *Store) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.records = nil
	s.loaded = false
}

// Add creates an app notification and prepends it. It reports false without side effects
// when no user is bound or the type is unknown.
func (s *Store) Add(ctx context.Context, in Input) (Record, bool) {
	if !in.Type.Valid() {
		s.log.Warn("rejecting notification with unknown type", zap.String("type", string(in.Type)))
		return Record{}, false
	}
	return s.insert(ctx, SourceApp, in)
}

// AddFromPush creates a push notification from a foreground delivery.
func (s *Store) AddFromPush(ctx context.Context, msg push.Message) (Record, bool) {
	in := Input{Title: s.pushTitle, Type: TypePush}
	data := make(map[string]any, len(msg.Data)+3)
	for k, v := range msg.Data {
		data[k] = v
	}
	data[push.DataKeyMessageID] = msg.MessageID
	if id := strings.TrimSpace(msg.Data[push.DataKeyNotificationID]); id != "" {
		data[push.DataKeyNotificationID] = id
	} else {
		data[push.DataKeyNotificationID] = msg.MessageID
	}

	if n := msg.Notification; n != nil {
		if n.Title != "" {
			in.Title = n.Title
		}
		in.Message = n.Body
		if n.Image != "" {
			data[push.DataKeyImageURL] = n.Image
		}
	}
	in.Data = data

	return s.insert(ctx, SourceFirebase, in)
}

func (s *Store) insert(ctx context.Context, source Source, in Input) (Record, bool) {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return Record{}, false
	}

	id, err := s.newID()
	if err != nil {
		s.mu.Unlock()
		s.log.Error("failed to generate notification id", zap.Error(err))
		return Record{}, false
	}

	created := s.now().In(s.loc)
	record := Record{
		ID:        id,
		Title:     in.Title,
		Message:   in.Message,
		Type:      in.Type,
		Timestamp: created.UnixMilli(),
		Date:      created.Format(s.dateLayout),
		Time:      created.Format(s.timeLayout),
		UserID:    s.userID,
		Source:    source,
		Data:      in.Data,
	}
	record = record.clone()

	next := make([]Record, 0, len(s.records)+1)
	next = append(next, record)
	next = append(next, s.records...)
	s.records = next
	userID := s.userID
	s.persistLocked(ctx)
	s.mu.Unlock()

	metrics.NotificationsCreated.WithLabelValues(string(source), string(record.Type)).Inc()
	s.notify(userID, EventCreated, record)
	return record.clone(), true
}

// MarkRead flags the record as read. It reports whether a record with id exists.
func (s *Store) MarkRead(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	if s.records[idx].IsRead {
		s.mu.Unlock()
		return true
	}

	next := append([]Record(nil), s.records...)
	next[idx].IsRead = true
	s.records = next
	record, userID := next[idx].clone(), s.userID
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(userID, EventRead, record)
	return true
}

// MarkAllRead flags every record as read.
func (s *Store) MarkAllRead(ctx context.Context) {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return
	}

	next := append([]Record(nil), s.records...)
	for i := range next {
		next[i].IsRead = true
	}
	s.records = next
	userID := s.userID
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(userID, EventReadAll, Record{})
}

// Remove deletes the record with id. Draining the collection to empty does not rewrite
// storage; only Clear removes the persisted entry.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	removed := s.records[idx]
	next := make([]Record, 0, len(s.records)-1)
	next = append(next, s.records[:idx]...)
	next = append(next, s.records[idx+1:]...)
	s.records = next
	userID := s.userID
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(userID, EventDeleted, removed.clone())
	return true
}

// Clear empties the collection and deletes the persisted entry.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return
	}
	s.records = nil
	userID := s.userID
	if err := s.storage.Delete(ctx, s.Key(userID)); err != nil {
		metrics.StorageFailures.WithLabelValues("delete").Inc()
		s.log.Warn("failed to delete persisted notifications", zap.String("user_id", userID), zap.Error(err))
	} else {
		s.loaded = true
	}
	s.mu.Unlock()

	s.notify(userID, EventCleared, Record{})
}

// List returns a copy of the collection, newest first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// UnreadCount returns the number of unread records.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.records {
		if !r.IsRead {
			count++
		}
	}
	return count
}

func (s *Store) indexLocked(id string) int {
	if s.userID == "" || id == "" {
		return -1
	}
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked rewrites the whole collection and refreshes its retention. An empty
// collection is never written, and nothing is written before the persisted one was read.
func (s *Store) persistLocked(ctx context.Context) {
	if s.userID == "" || len(s.records) == 0 {
		return
	}
	if !s.loaded && !s.reloadLocked(ctx) {
		s.log.Warn("skipping notification write until persisted history is readable", zap.String("user_id", s.userID))
		return
	}

	payload, err := json.Marshal(s.records)
	if err != nil {
		metrics.StorageFailures.WithLabelValues("save").Inc()
		s.log.Error("failed to encode notifications", zap.String("user_id", s.userID), zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, s.Key(s.userID), payload, s.ttl); err != nil {
		metrics.StorageFailures.WithLabelValues("save").Inc()
		s.log.Warn("failed to persist notifications", zap.String("user_id", s.userID), zap.Error(err))
	}
}

func (s *Store) notify(userID string, event Event, record Record) {
	if s.observer != nil {
		s.observer(userID, event, record)
	}
}
