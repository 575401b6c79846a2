package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/logging"
	"github.com/redmonkez12/viziopath-api/internal/storage"
)

const (
	defaultSearchLimit     = 10
	defaultSuggestionLimit = 5
	maxPageSize            = 50

	// maxPage keeps (page-1)*limit from overflowing.
	maxPage = math.MaxInt32 / maxPageSize
)

// AccountStore is the part of the account repository profiles need.
type AccountStore interface {
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
}

// Config carries upload limits.
type Config struct {
	MaxUploadSize int64
	Folder        string
	UploadTimeout time.Duration
}

// Service handles profile business logic
type Service struct {
	profiles Repository
	accounts AccountStore
	uploader storage.Uploader
	cfg      Config
	now      func() time.Time
}

func NewService(profiles Repository, accounts AccountStore, uploader storage.Uploader, cfg Config) *Service {
	return &Service{
		profiles: profiles,
		accounts: accounts,
		uploader: uploader,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Mine returns the caller's profile, creating an empty one on first use.
func (s *Service) Mine(ctx context.Context, userID uuid.UUID) (*Profile, bool, error) {
	p, created, err := s.profiles.Ensure(ctx, New(userID, s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, created, nil
}

// View returns another account's profile. Private profiles are only shown
// to their owner; views by anyone else are counted.
func (s *Service) View(ctx context.Context, viewerID, ownerID uuid.UUID) (*Profile, error) {
	p, err := s.profiles.GetByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if viewerID == ownerID {
		return p, nil
	}

	if p.Preferences.Privacy.ProfileVisibility == VisibilityPrivate {
		return nil, ErrPrivate
	}

	if err := s.profiles.IncrementViews(ctx, ownerID); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to count profile view", "profile_user_id", ownerID, "error", err)
	}

	return p, nil
}

// Update applies a partial update, creating the profile first if needed.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, u Update) (*Profile, error) {
	if err := validateUpdate(&u); err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, u)
}

// SetAvatar points the profile and the account at an externally hosted image.
func (s *Service) SetAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*Profile, error) {
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL == "" {
		return nil, ErrAvatarRequired
	}
	if len(avatarURL) > maxAvatarURLLength {
		return nil, ErrAvatarURLTooLong
	}

	return s.replaceAvatar(ctx, userID, avatarURL)
}

// UploadAvatar stores an image and makes it the avatar. The previous stored
// image is removed afterwards when it belongs to the same storage.
func (s *Service) UploadAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, size int64) (*Profile, error) {
	img, err := storage.SniffImage(file, size, s.cfg.MaxUploadSize)
	if err != nil {
		return nil, err
	}

	uploadCtx := ctx
	if s.cfg.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, s.cfg.UploadTimeout)
		defer cancel()
	}

	obj, err := s.uploader.Upload(uploadCtx, storage.AvatarKey(s.cfg.Folder, userID, img.Extension), img.Reader, img.Size, img.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	logging.GetLoggerFromContext(ctx).Info("avatar uploaded", "key", obj.Key, "size", obj.Size)

	return s.replaceAvatar(ctx, userID, obj.URL)
}

// Search returns one page of public profiles.
func (s *Service) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q.Text = strings.TrimSpace(q.Text)
	q.Location = strings.TrimSpace(q.Location)
	q.Company = strings.TrimSpace(q.Company)
	q.Skills = splitSkills(q.Skills)
	q.Page = min(max(q.Page, 1), maxPage)
	q.Limit = clampLimit(q.Limit, defaultSearchLimit)

	profiles, total, err := s.profiles.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}

	return &SearchResult{
		Profiles: profiles,
		Pagination: Pagination{
			Page:  q.Page,
			Limit: q.Limit,
			Total: total,
			Pages: (total + q.Limit - 1) / q.Limit,
		},
	}, nil
}

// Suggestions lists public profiles that share a skill and the location of
// the caller's profile, when it has them.
func (s *Service) Suggestions(ctx context.Context, userID uuid.UUID, limit int) ([]*Profile, error) {
	q := SuggestionQuery{Exclude: userID, Limit: clampLimit(limit, defaultSuggestionLimit)}

	mine, err := s.profiles.GetByUser(ctx, userID)
	switch {
	case err == nil:
		q.Skills = mine.Skills
		q.Location = mine.Location
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	profiles, err := s.profiles.Suggest(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest profiles: %w", err)
	}
	return profiles, nil
}

// Delete removes the caller's profile. The account keeps its avatar.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.profiles.DeleteByUser(ctx, userID)
}

// DeleteForAccount removes the profile of an account that is being deleted,
// together with the avatar images it had in storage.
func (s *Service) DeleteForAccount(ctx context.Context, acc *account.Account) error {
	var avatars []string

	if p, err := s.profiles.GetByUser(ctx, acc.ID); err == nil && p.Avatar != nil {
		avatars = append(avatars, *p.Avatar)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if acc.Avatar != nil && (len(avatars) == 0 || avatars[0] != *acc.Avatar) {
		avatars = append(avatars, *acc.Avatar)
	}

	if err := s.profiles.DeleteByUser(ctx, acc.ID); err != nil {
		return err
	}

	for _, url := range avatars {
		s.deleteAvatar(ctx, acc.ID, url)
	}
	return nil
}

// apply updates the profile, creating it first when the owner has none.
func (s *Service) apply(ctx context.Context, userID uuid.UUID, u Update) (*Profile, error) {
	if _, _, err := s.profiles.Ensure(ctx, New(userID, s.now())); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	p, err := s.profiles.Update(ctx, userID, u, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

func (s *Service) replaceAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*Profile, error) {
	var previous string
	if old, err := s.profiles.GetByUser(ctx, userID); err == nil && old.Avatar != nil {
		previous = *old.Avatar
	}

	p, err := s.apply(ctx, userID, Update{Avatar: &avatarURL})
	if err != nil {
		return nil, err
	}

	if err := s.accounts.UpdateAvatar(ctx, userID, avatarURL); err != nil {
		return nil, fmt.Errorf("failed to update account avatar: %w", err)
	}

	if previous != "" && previous != avatarURL {
		s.deleteAvatar(ctx, userID, previous)
	}
	return p, nil
}

// deleteAvatar removes a stored avatar of userID. URLs hosted elsewhere or
// pointing at another account's images are left alone. Failures are only
// logged.
func (s *Service) deleteAvatar(ctx context.Context, userID uuid.UUID, url string) {
	if s.uploader == nil {
		return
	}

	key, err := s.uploader.Key(url)
	if err != nil {
		return
	}
	if !storage.OwnsKey(s.cfg.Folder, userID, key) {
		logging.GetLoggerFromContext(ctx).Warn("skipping avatar not owned by account", "user_id", userID, "key", key)
		return
	}

	if err := s.uploader.Delete(ctx, url); err != nil && !errors.Is(err, storage.ErrForeignURL) {
		logging.GetLoggerFromContext(ctx).Warn("failed to delete stored avatar", "url", url, "error", err)
	}
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxPageSize)
}

// splitSkills accepts entries that are themselves comma separated lists.
func splitSkills(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, skill := range strings.Split(entry, ",") {
			if skill = strings.TrimSpace(skill); skill != "" {
				out = append(out, skill)
			}
		}
	}
	return out
}
