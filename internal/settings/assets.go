package settings

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
)

// amountTiers is the fixed set of gift-size buckets, each with its own
// configurable image and sound asset.
var amountTiers = []int{1, 5, 10, 20, 50}

const (
	legacyImageName = "image.gif"
	legacySoundName = "sound.mp3"
)

// Assets manages the per-tier media files inside <settings dir>/assets.
// These are filesystem side effects, deliberately kept out of the settings
// document itself; overlays fetch them over the static /assets route.
type Assets struct {
	dir          string
	defaultImage string
	defaultSound string
}

// NewAssets creates a manager rooted at <settingsDir>/assets, seeding tiers
// from the given bundled default files.
func NewAssets(settingsDir, defaultImage, defaultSound string) *Assets {
	return &Assets{
		dir:          filepath.Join(settingsDir, "assets"),
		defaultImage: defaultImage,
		defaultSound: defaultSound,
	}
}

// Dir returns the managed asset directory, for static serving.
func (a *Assets) Dir() string {
	return a.dir
}

// ValidTier reports whether amount is one of the fixed tiers.
func (a *Assets) ValidTier(amount int) bool {
	for _, tier := range amountTiers {
		if tier == amount {
			return true
		}
	}
	return false
}

func (a *Assets) imagePath(tier int) string {
	return filepath.Join(a.dir, fmt.Sprintf("image%d.gif", tier))
}

func (a *Assets) soundPath(tier int) string {
	return filepath.Join(a.dir, fmt.Sprintf("sound%d.mp3", tier))
}

// EnsureDefaults creates the asset directory and seeds every missing tier
// asset. A single legacy image.gif/sound.mp3 from older versions is fanned out
// to all tiers and then removed.
func (a *Assets) EnsureDefaults() error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return apperrors.InternalError("failed to create assets directory", err)
	}

	if err := a.seed(legacyImageName, a.defaultImage, a.imagePath); err != nil {
		return err
	}
	return a.seed(legacySoundName, a.defaultSound, a.soundPath)
}

func (a *Assets) seed(legacyName, defaultPath string, tierPath func(int) string) error {
	legacyPath := filepath.Join(a.dir, legacyName)
	_, legacyErr := os.Stat(legacyPath)
	hasLegacy := legacyErr == nil

	source := defaultPath
	if hasLegacy {
		source = legacyPath
	}

	for _, tier := range amountTiers {
		dst := tierPath(tier)
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := copyFile(source, dst); err != nil {
			return apperrors.InternalError("failed to seed tier asset", err).WithField("tier", tier)
		}
	}

	if hasLegacy {
		if err := os.Remove(legacyPath); err != nil {
			return apperrors.InternalError("failed to remove legacy asset", err)
		}
	}
	return nil
}

// UpdateImage installs the file at sourcePath as the image for one tier.
func (a *Assets) UpdateImage(sourcePath string, tier int) error {
	return a.update(sourcePath, tier, a.imagePath)
}

// ResetImage restores the bundled default image for one tier.
func (a *Assets) ResetImage(tier int) error {
	return a.update(a.defaultImage, tier, a.imagePath)
}

// UpdateSoundEffect installs the file at sourcePath as the sound for one tier.
func (a *Assets) UpdateSoundEffect(sourcePath string, tier int) error {
	return a.update(sourcePath, tier, a.soundPath)
}

// ResetSoundEffect restores the bundled default sound for one tier.
func (a *Assets) ResetSoundEffect(tier int) error {
	return a.update(a.defaultSound, tier, a.soundPath)
}

func (a *Assets) update(sourcePath string, tier int, tierPath func(int) string) error {
	if !a.ValidTier(tier) {
		return domain.ErrUnknownAmountTier
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return domain.ErrAssetSourceNotFound
	}
	if err := copyFile(sourcePath, tierPath(tier)); err != nil {
		return apperrors.InternalError("failed to install tier asset", err).WithField("tier", tier)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
