package domain

import "errors"

var (
	// ErrDonationNotFound is returned when a donation history entry does not
	// exist for the given unique id.
	ErrDonationNotFound = errors.New("donation not found")

	// ErrAssetSourceNotFound is returned when the file a user wants to install
	// as a tier asset does not exist.
	ErrAssetSourceNotFound = errors.New("asset source file not found")

	// ErrUnknownAmountTier is returned for amounts outside the fixed tier set.
	ErrUnknownAmountTier = errors.New("unknown amount tier")
)
