package tokendrop

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &CreateDropMsg{}, migration.NoModification)
	migration.MustRegister(1, &ClaimDropMsg{}, migration.NoModification)
	migration.MustRegister(1, &CancelDropMsg{}, migration.NoModification)
	migration.MustRegister(1, &CleanupDropMsg{}, migration.NoModification)
	migration.MustRegister(1, &ReclaimReceiptMsg{}, migration.NoModification)
	migration.MustRegister(1, &OptInAssetMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateConfigurationMsg{}, migration.NoModification)
}

var _ weave.Msg = (*CreateDropMsg)(nil)
var _ weave.Msg = (*ClaimDropMsg)(nil)
var _ weave.Msg = (*CancelDropMsg)(nil)
var _ weave.Msg = (*CleanupDropMsg)(nil)
var _ weave.Msg = (*ReclaimReceiptMsg)(nil)
var _ weave.Msg = (*OptInAssetMsg)(nil)
var _ weave.Msg = (*UpdateConfigurationMsg)(nil)

func (m *CreateDropMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.Config == nil {
		return errors.Wrap(errors.ErrEmpty, "config")
	}
	if err := m.Config.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	if m.Total == nil {
		return errors.Wrap(errors.ErrEmpty, "total")
	}
	if err := m.Total.Validate(); err != nil {
		return errors.Wrap(err, "total")
	}
	if !m.Total.IsPositive() {
		return errors.Wrap(errors.ErrInput, "total must be positive")
	}
	if m.Total.Ticker != m.Config.Ticker {
		return errors.Wrap(errors.ErrCurrency, "total ticker mismatch")
	}
	if m.Total.Fractional != 0 {
		return errors.Wrap(errors.ErrInput, "total must be whole units")
	}
	// Total must split into a positive number of full claims without
	// remainder.
	if m.Total.Whole%m.Config.AmountPerClaim.Whole != 0 {
		return errors.Wrap(errors.ErrInput, "total is not divisible by amount per claim")
	}
	return nil
}

func (CreateDropMsg) Path() string {
	return "tokendrop/create_drop"
}

func (m *ClaimDropMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.DropId == 0 {
		return errors.Wrap(errors.ErrEmpty, "drop id")
	}
	return nil
}

func (ClaimDropMsg) Path() string {
	return "tokendrop/claim_drop"
}

func (m *CancelDropMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.DropId == 0 {
		return errors.Wrap(errors.ErrEmpty, "drop id")
	}
	return nil
}

func (CancelDropMsg) Path() string {
	return "tokendrop/cancel_drop"
}

func (m *CleanupDropMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.DropId == 0 {
		return errors.Wrap(errors.ErrEmpty, "drop id")
	}
	return nil
}

func (CleanupDropMsg) Path() string {
	return "tokendrop/cleanup_drop"
}

func (m *ReclaimReceiptMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.DropId == 0 {
		return errors.Wrap(errors.ErrEmpty, "drop id")
	}
	if err := m.Claimant.Validate(); err != nil {
		return errors.Wrap(err, "claimant")
	}
	// Receiver is optional, it defaults to the main signer.
	if len(m.Receiver) != 0 {
		if err := m.Receiver.Validate(); err != nil {
			return errors.Wrap(err, "receiver")
		}
	}
	return nil
}

func (ReclaimReceiptMsg) Path() string {
	return "tokendrop/reclaim_receipt"
}

func (m *OptInAssetMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if !coin.IsCC(m.Ticker) {
		return errors.Wrapf(errors.ErrCurrency, "ticker %q", m.Ticker)
	}
	// Address is optional, it defaults to the main signer.
	if len(m.Address) != 0 {
		if err := m.Address.Validate(); err != nil {
			return errors.Wrap(err, "address")
		}
	}
	return nil
}

func (OptInAssetMsg) Path() string {
	return "tokendrop/opt_in_asset"
}

func (m *UpdateConfigurationMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.Patch == nil {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	return nil
}

func (UpdateConfigurationMsg) Path() string {
	return "tokendrop/update_configuration"
}
