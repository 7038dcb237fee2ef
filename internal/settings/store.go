package settings

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/metrics"
)

const settingsFileName = "settings.json"

// Store is the single authoritative copy of the settings document.
//
// The document is the unit of update: every mutation builds a new document,
// persists it, and only swaps it in on a successful write. A concurrent read
// therefore sees either the old or the new document, never a mix.
type Store struct {
	mu        sync.RWMutex
	doc       domain.Settings
	path      string
	publisher domain.Publisher
}

// NewStore creates a store persisting to <dir>/settings.json.
// A nil publisher disables change notifications.
func NewStore(dir string, publisher domain.Publisher) *Store {
	if publisher == nil {
		publisher = domain.NopPublisher{}
	}
	return &Store{
		doc:       domain.DefaultSettings(),
		path:      filepath.Join(dir, settingsFileName),
		publisher: publisher,
	}
}

// Load reads the persisted document, writing defaults first when the file does
// not exist. Fields missing from an older document keep their default values,
// so schema evolution is additive. The normalized document is written back.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperrors.InternalError("failed to create settings directory", err)
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.persistLocked(s.doc)
	}
	if err != nil {
		return apperrors.InternalError("failed to read settings file", err)
	}

	doc := domain.DefaultSettings()
	if err := json.Unmarshal(raw, &doc); err != nil {
		return apperrors.InternalError("failed to parse settings file", err)
	}
	normalize(&doc)

	if err := s.persistLocked(doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// normalize coerces a loaded document back into its invariants.
func normalize(doc *domain.Settings) {
	if doc.AnimationTimeInMilliseconds < 1 {
		doc.AnimationTimeInMilliseconds = domain.DefaultAnimationTimeInMilliseconds
	}
	doc.Volume = min(max(doc.Volume, 0), 100)
	doc.ProgressBarCurrentValue = max(doc.ProgressBarCurrentValue, 0)
	doc.ProgressBarTargetValue = max(doc.ProgressBarTargetValue, 1)
	if doc.AnnouncementTemplate == nil {
		doc.AnnouncementTemplate = domain.DefaultAnnouncementTemplate()
	}
	if doc.Payments == nil {
		doc.Payments = []domain.PaymentSource{}
	}
	if doc.Donations == nil {
		doc.Donations = []domain.DonationRecord{}
	}
}

// Snapshot returns a deep copy of the current document without touching disk.
func (s *Store) Snapshot() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// mutate applies fn to a copy of the document and persists it. The in-memory
// document is only replaced after the write lands, so a failed persist leaves
// no side effect.
func (s *Store) mutate(fn func(doc *domain.Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	fn(&next)
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *Store) persistLocked(doc domain.Settings) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		metrics.SettingsWritesTotal.WithLabelValues("error").Inc()
		return apperrors.InternalError("failed to encode settings", err)
	}

	// Write-then-rename keeps the file whole even if the process dies mid-write.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		metrics.SettingsWritesTotal.WithLabelValues("error").Inc()
		return apperrors.InternalError("failed to write settings file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		metrics.SettingsWritesTotal.WithLabelValues("error").Inc()
		return apperrors.InternalError("failed to replace settings file", err)
	}

	metrics.SettingsWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

// UpdateAnimationTime sets how long a gift reveal stays visible.
func (s *Store) UpdateAnimationTime(ms int) (int, error) {
	err := s.mutate(func(doc *domain.Settings) {
		doc.AnimationTimeInMilliseconds = ms
	})
	return ms, err
}

// UpdateVolume sets the playback volume for overlay sound effects.
func (s *Store) UpdateVolume(volume int) (int, error) {
	err := s.mutate(func(doc *domain.Settings) {
		doc.Volume = volume
	})
	return volume, err
}

// UpdateTemplate replaces the gift announcement template. Text nodes are
// trimmed before persisting; the stored template is returned.
func (s *Store) UpdateTemplate(nodes []domain.TemplateNode) ([]domain.TemplateNode, error) {
	trimmed := make([]domain.TemplateNode, len(nodes))
	for i, node := range nodes {
		trimmed[i] = node
		if node.Type == domain.TemplateNodeText {
			trimmed[i].Text = strings.TrimSpace(node.Text)
		}
	}

	err := s.mutate(func(doc *domain.Settings) {
		doc.AnnouncementTemplate = trimmed
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(domain.TopicTemplateUpdated, nil)
	return trimmed, nil
}

// UpdateChannelInfo stores the resolved channel identity.
func (s *Store) UpdateChannelInfo(info domain.ChannelInfo) (domain.ChannelInfo, error) {
	err := s.mutate(func(doc *domain.Settings) {
		doc.ChannelInfo = &info
	})
	if err != nil {
		return domain.ChannelInfo{}, err
	}

	s.publisher.Publish(domain.TopicChannelUpdated, nil)
	return info, nil
}

// ClearChannelInfo forgets the stored channel identity.
func (s *Store) ClearChannelInfo() error {
	if err := s.mutate(func(doc *domain.Settings) { doc.ChannelInfo = nil }); err != nil {
		return err
	}

	s.publisher.Publish(domain.TopicChannelUpdated, nil)
	return nil
}

// AddPaymentSource remembers a connectable donation hub account.
func (s *Store) AddPaymentSource(source domain.PaymentSource) error {
	return s.mutate(func(doc *domain.Settings) {
		doc.Payments = append(doc.Payments, source)
	})
}

// ClearPaymentSources forgets every stored donation hub account.
func (s *Store) ClearPaymentSources() error {
	return s.mutate(func(doc *domain.Settings) {
		doc.Payments = []domain.PaymentSource{}
	})
}

// UpdateProgressBarText sets the progress bar caption.
func (s *Store) UpdateProgressBarText(text string) (string, error) {
	err := s.mutate(func(doc *domain.Settings) {
		doc.ProgressBarText = text
	})
	if err != nil {
		return "", err
	}

	s.publisher.Publish(domain.TopicProgressBarUpdated, nil)
	return text, nil
}

// UpdateProgressBarCurrentValue sets the progress bar position. The value is
// floored and clamped to be non-negative; the stored value is returned.
func (s *Store) UpdateProgressBarCurrentValue(value float64) (int, error) {
	coerced := max(int(math.Floor(value)), 0)

	err := s.mutate(func(doc *domain.Settings) {
		doc.ProgressBarCurrentValue = coerced
	})
	if err != nil {
		return 0, err
	}

	s.publisher.Publish(domain.TopicProgressBarUpdated, nil)
	return coerced, nil
}

// UpdateProgressBarCurrentValueByDelta shifts the progress bar position. The
// new value is computed under the write lock, so concurrent deltas all land.
func (s *Store) UpdateProgressBarCurrentValueByDelta(delta float64) (int, error) {
	var coerced int
	err := s.mutate(func(doc *domain.Settings) {
		coerced = max(doc.ProgressBarCurrentValue+int(math.Floor(delta)), 0)
		doc.ProgressBarCurrentValue = coerced
	})
	if err != nil {
		return 0, err
	}

	s.publisher.Publish(domain.TopicProgressBarUpdated, nil)
	return coerced, nil
}

// UpdateProgressBarTargetValue sets the progress bar goal. The value is
// floored and clamped to at least 1; the stored value is returned.
func (s *Store) UpdateProgressBarTargetValue(value float64) (int, error) {
	coerced := max(int(math.Floor(value)), 1)

	err := s.mutate(func(doc *domain.Settings) {
		doc.ProgressBarTargetValue = coerced
	})
	if err != nil {
		return 0, err
	}

	s.publisher.Publish(domain.TopicProgressBarUpdated, nil)
	return coerced, nil
}

// RecordDonation appends a donation history entry. The operation is idempotent
// on UniqueID: a second call with the same id keeps the first entry and does
// not publish again. Returns whether a new entry was inserted.
func (s *Store) RecordDonation(record domain.DonationRecord) (bool, error) {
	inserted := false
	err := s.mutate(func(doc *domain.Settings) {
		for _, existing := range doc.Donations {
			if existing.UniqueID == record.UniqueID {
				return
			}
		}
		doc.Donations = append(doc.Donations, record)
		inserted = true
	})
	if err != nil {
		return false, err
	}

	if inserted {
		s.publisher.Publish(domain.TopicDonationListUpdated, nil)
	}
	return inserted, nil
}

// HideDonation marks one history entry as hidden so overlays stop showing it.
func (s *Store) HideDonation(uniqueID string) error {
	s.mu.RLock()
	found := false
	for _, record := range s.doc.Donations {
		if record.UniqueID == uniqueID {
			found = true
			break
		}
	}
	s.mu.RUnlock()
	if !found {
		return domain.ErrDonationNotFound
	}

	err := s.mutate(func(doc *domain.Settings) {
		for i := range doc.Donations {
			if doc.Donations[i].UniqueID == uniqueID {
				doc.Donations[i].Hidden = true
				return
			}
		}
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(domain.TopicDonationListUpdated, nil)
	return nil
}
