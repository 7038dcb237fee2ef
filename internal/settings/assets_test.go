package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
)

func newTestAssets(t *testing.T) (*Assets, string) {
	t.Helper()

	resources := t.TempDir()
	defaultImage := filepath.Join(resources, "image.gif")
	defaultSound := filepath.Join(resources, "sound.mp3")
	require.NoError(t, os.WriteFile(defaultImage, []byte("default-image"), 0o644))
	require.NoError(t, os.WriteFile(defaultSound, []byte("default-sound"), 0o644))

	settingsDir := t.TempDir()
	assets := NewAssets(settingsDir, defaultImage, defaultSound)
	require.NoError(t, assets.EnsureDefaults())
	return assets, settingsDir
}

func TestEnsureDefaultsSeedsEveryTier(t *testing.T) {
	assets, _ := newTestAssets(t)

	for _, tier := range amountTiers {
		image, err := os.ReadFile(assets.imagePath(tier))
		require.NoError(t, err)
		assert.Equal(t, "default-image", string(image))

		sound, err := os.ReadFile(assets.soundPath(tier))
		require.NoError(t, err)
		assert.Equal(t, "default-sound", string(sound))
	}
}

func TestEnsureDefaultsMigratesLegacyAssets(t *testing.T) {
	resources := t.TempDir()
	defaultImage := filepath.Join(resources, "image.gif")
	defaultSound := filepath.Join(resources, "sound.mp3")
	require.NoError(t, os.WriteFile(defaultImage, []byte("default-image"), 0o644))
	require.NoError(t, os.WriteFile(defaultSound, []byte("default-sound"), 0o644))

	settingsDir := t.TempDir()
	assetsDir := filepath.Join(settingsDir, "assets")
	require.NoError(t, os.MkdirAll(assetsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assetsDir, "image.gif"), []byte("legacy-image"), 0o644))

	assets := NewAssets(settingsDir, defaultImage, defaultSound)
	require.NoError(t, assets.EnsureDefaults())

	// Legacy image fans out to every tier, then disappears.
	for _, tier := range amountTiers {
		image, err := os.ReadFile(assets.imagePath(tier))
		require.NoError(t, err)
		assert.Equal(t, "legacy-image", string(image))
	}
	_, err := os.Stat(filepath.Join(assetsDir, "image.gif"))
	assert.True(t, os.IsNotExist(err))

	// Sounds had no legacy file and seed from the bundled default.
	sound, err := os.ReadFile(assets.soundPath(1))
	require.NoError(t, err)
	assert.Equal(t, "default-sound", string(sound))
}

func TestEnsureDefaultsKeepsExistingTierAssets(t *testing.T) {
	assets, _ := newTestAssets(t)

	require.NoError(t, os.WriteFile(assets.imagePath(5), []byte("custom"), 0o644))
	require.NoError(t, assets.EnsureDefaults())

	image, err := os.ReadFile(assets.imagePath(5))
	require.NoError(t, err)
	assert.Equal(t, "custom", string(image))
}

func TestUpdateImage(t *testing.T) {
	assets, _ := newTestAssets(t)

	source := filepath.Join(t.TempDir(), "new.gif")
	require.NoError(t, os.WriteFile(source, []byte("new-image"), 0o644))

	require.NoError(t, assets.UpdateImage(source, 10))

	image, err := os.ReadFile(assets.imagePath(10))
	require.NoError(t, err)
	assert.Equal(t, "new-image", string(image))
}

func TestUpdateImageMissingSource(t *testing.T) {
	assets, _ := newTestAssets(t)

	err := assets.UpdateImage(filepath.Join(t.TempDir(), "missing.gif"), 10)
	assert.ErrorIs(t, err, domain.ErrAssetSourceNotFound)

	// Tier asset untouched.
	image, readErr := os.ReadFile(assets.imagePath(10))
	require.NoError(t, readErr)
	assert.Equal(t, "default-image", string(image))
}

func TestUpdateImageUnknownTier(t *testing.T) {
	assets, _ := newTestAssets(t)

	source := filepath.Join(t.TempDir(), "new.gif")
	require.NoError(t, os.WriteFile(source, []byte("new-image"), 0o644))

	err := assets.UpdateImage(source, 87)
	assert.ErrorIs(t, err, domain.ErrUnknownAmountTier)
}

func TestResetImageRestoresDefault(t *testing.T) {
	assets, _ := newTestAssets(t)

	source := filepath.Join(t.TempDir(), "new.gif")
	require.NoError(t, os.WriteFile(source, []byte("new-image"), 0o644))
	require.NoError(t, assets.UpdateImage(source, 20))

	require.NoError(t, assets.ResetImage(20))

	image, err := os.ReadFile(assets.imagePath(20))
	require.NoError(t, err)
	assert.Equal(t, "default-image", string(image))
}

func TestSoundEffectLifecycle(t *testing.T) {
	assets, _ := newTestAssets(t)

	source := filepath.Join(t.TempDir(), "new.mp3")
	require.NoError(t, os.WriteFile(source, []byte("new-sound"), 0o644))

	require.NoError(t, assets.UpdateSoundEffect(source, 50))
	sound, err := os.ReadFile(assets.soundPath(50))
	require.NoError(t, err)
	assert.Equal(t, "new-sound", string(sound))

	require.NoError(t, assets.ResetSoundEffect(50))
	sound, err = os.ReadFile(assets.soundPath(50))
	require.NoError(t, err)
	assert.Equal(t, "default-sound", string(sound))
}
