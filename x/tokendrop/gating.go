package tokendrop

import (
	"time"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
)

// AssetRegistry resolves who issued a token. The registry implementation is
// external, only the read contract lives here.
type AssetRegistry interface {
	// Issuer returns the address that created the asset. ErrNotFound is
	// returned for an unknown ticker.
	Issuer(db weave.ReadOnlyKVStore, ticker string) (weave.Address, error)
}

// NameRecord is the gating engine view of an external name registry entry.
// All fields are re-read from the registry on every claim, nothing is
// cached on the drop.
type NameRecord struct {
	Owner       weave.Address
	ParentId    uint64
	Version     uint32
	ForSale     bool
	ExpiresAt   weave.UnixTime
	PurchasedAt weave.UnixTime
	Twitter     string
	Discord     string
	// Linked are the verified addresses of the record owner.
	Linked []weave.Address
}

// minRecordVersion is the oldest registry record format that carries
// verified handles and purchase timestamps. Older records cannot back a
// credential gate.
const minRecordVersion uint32 = 3

// NameService is the read contract of an external name registry.
type NameService interface {
	// IsValidRecord reports whether the (name, id) pair exists in the
	// registry as a live record.
	IsValidRecord(db weave.ReadOnlyKVStore, name string, id uint64) (bool, error)

	// Record loads the registry entry with the given id.
	Record(db weave.ReadOnlyKVStore, id uint64) (*NameRecord, error)
}

// gatekeeper evaluates the eligibility policy of a drop against a claimant.
// Unknown policy tags are rejected when the drop is configured, so the
// switch here treats them as corrupted state.
type gatekeeper struct {
	assets AssetRegistry
	names  NameService
	ctrl   CashController
}

// Allow returns nil when claimant satisfies the drop's gating policy. The
// msg carries the claimant supplied reference (an asset ticker or a name
// record) that the policy is checked against.
func (g gatekeeper) Allow(ctx weave.Context, db weave.KVStore, drop *Drop, claimant weave.Address, msg *ClaimDropMsg) error {
	conf := drop.Config
	switch conf.GatingType {
	case GatingType_NONE:
		return nil
	case GatingType_CREATED_BY:
		if err := g.holdsAsset(db, claimant, msg.RefTicker, conf.MinUnits); err != nil {
			return err
		}
		issuer, err := g.assets.Issuer(db, msg.RefTicker)
		if err != nil {
			return errors.Wrap(err, "asset issuer")
		}
		if !issuer.Equals(conf.GatingAddress) {
			return errors.Wrap(ErrGatingFailed, "asset not created by required address")
		}
		return nil
	case GatingType_ASSET_LIST:
		var listed bool
		for _, t := range conf.GatingAssets {
			if t != "" && t == msg.RefTicker {
				listed = true
				break
			}
		}
		if !listed {
			return errors.Wrap(ErrGatingFailed, "asset not on the allow list")
		}
		return g.holdsAsset(db, claimant, msg.RefTicker, conf.MinUnits)
	case GatingType_LINKED_CREATOR:
		if err := g.holdsAsset(db, claimant, msg.RefTicker, conf.MinUnits); err != nil {
			return err
		}
		issuer, err := g.assets.Issuer(db, msg.RefTicker)
		if err != nil {
			return errors.Wrap(err, "asset issuer")
		}
		rec, err := g.liveRecord(db, conf.GatingRecordName, conf.GatingRecordId)
		if err != nil {
			return err
		}
		for _, linked := range rec.Linked {
			if isZeroAddress(linked) {
				continue
			}
			if issuer.Equals(linked) {
				return nil
			}
		}
		return errors.Wrap(ErrGatingFailed, "asset creator not linked to the record")
	case GatingType_RECORD_SEGMENT:
		rec, err := g.claimantRecord(db, claimant, msg)
		if err != nil {
			return err
		}
		if rec.ParentId != conf.GatingRecordId {
			return errors.Wrap(ErrGatingFailed, "record is not a segment of the required root")
		}
		return nil
	case GatingType_RECORD_TWITTER:
		rec, err := g.ownedRecord(ctx, db, claimant, msg)
		if err != nil {
			return err
		}
		if rec.Twitter == "" {
			return errors.Wrap(ErrGatingFailed, "record has no verified twitter handle")
		}
		return nil
	case GatingType_RECORD_DISCORD:
		rec, err := g.ownedRecord(ctx, db, claimant, msg)
		if err != nil {
			return err
		}
		if rec.Discord == "" {
			return errors.Wrap(ErrGatingFailed, "record has no verified discord handle")
		}
		return nil
	case GatingType_RECORD_AGE:
		rec, err := g.ownedRecord(ctx, db, claimant, msg)
		if err != nil {
			return err
		}
		now, err := weave.BlockTime(ctx)
		if err != nil {
			return errors.Wrap(err, "block time")
		}
		held := rec.PurchasedAt.Add(time.Duration(conf.MinUnits) * 24 * time.Hour)
		if weave.AsUnixTime(now) < held {
			return errors.Wrapf(ErrGatingFailed, "record held for less than %d days", conf.MinUnits)
		}
		return nil
	default:
		return errors.Wrapf(errors.ErrState, "unknown gating type %d", conf.GatingType)
	}
}

// holdsAsset ensures the address holds at least min whole units of the
// token. A zero min means one unit.
func (g gatekeeper) holdsAsset(db weave.KVStore, addr weave.Address, ticker string, min int64) error {
	if ticker == "" {
		return errors.Wrap(ErrGatingFailed, "asset reference required")
	}
	if min == 0 {
		min = 1
	}
	balance, err := g.ctrl.Balance(db, addr)
	if err != nil {
		if errors.ErrNotFound.Is(err) || errors.ErrEmpty.Is(err) {
			return errors.Wrapf(ErrGatingFailed, "no %s balance", ticker)
		}
		return errors.Wrap(err, "balance")
	}
	for _, c := range balance {
		if c.Ticker == ticker && c.Whole >= min {
			return nil
		}
	}
	return errors.Wrapf(ErrGatingFailed, "holds less than %d %s", min, ticker)
}

// liveRecord loads and validates the (name, id) record pair.
func (g gatekeeper) liveRecord(db weave.ReadOnlyKVStore, name string, id uint64) (*NameRecord, error) {
	ok, err := g.names.IsValidRecord(db, name, id)
	if err != nil {
		return nil, errors.Wrap(err, "record lookup")
	}
	if !ok {
		return nil, errors.Wrap(ErrGatingFailed, "record does not exist")
	}
	rec, err := g.names.Record(db, id)
	if err != nil {
		return nil, errors.Wrap(err, "record lookup")
	}
	return rec, nil
}

// claimantRecord loads the record referenced by the claim message and
// verifies the claimant controls it, either as owner or through the
// verified-linked-address list. Records listed for sale do not count.
func (g gatekeeper) claimantRecord(db weave.ReadOnlyKVStore, claimant weave.Address, msg *ClaimDropMsg) (*NameRecord, error) {
	if msg.RefName == "" || msg.RefId == 0 {
		return nil, errors.Wrap(ErrGatingFailed, "record reference required")
	}
	rec, err := g.liveRecord(db, msg.RefName, msg.RefId)
	if err != nil {
		return nil, err
	}
	if rec.ForSale {
		return nil, errors.Wrap(ErrGatingFailed, "record is listed for sale")
	}
	if rec.Owner.Equals(claimant) {
		return rec, nil
	}
	for _, linked := range rec.Linked {
		if isZeroAddress(linked) {
			continue
		}
		if linked.Equals(claimant) {
			return rec, nil
		}
	}
	return nil, errors.Wrap(ErrGatingFailed, "record not controlled by claimant")
}

// ownedRecord is the stricter credential check used by the handle and
// holding-age policies. The record must be owned by the claimant directly
// (a linked address is not enough), carry a recent enough format version,
// not be listed for sale and not be past its expiration.
func (g gatekeeper) ownedRecord(ctx weave.Context, db weave.ReadOnlyKVStore, claimant weave.Address, msg *ClaimDropMsg) (*NameRecord, error) {
	if msg.RefName == "" || msg.RefId == 0 {
		return nil, errors.Wrap(ErrGatingFailed, "record reference required")
	}
	rec, err := g.liveRecord(db, msg.RefName, msg.RefId)
	if err != nil {
		return nil, err
	}
	if rec.Version < minRecordVersion {
		return nil, errors.Wrapf(ErrGatingFailed, "record version below %d", minRecordVersion)
	}
	if rec.ForSale {
		return nil, errors.Wrap(ErrGatingFailed, "record is listed for sale")
	}
	if rec.ExpiresAt != 0 && weave.IsExpired(ctx, rec.ExpiresAt) {
		return nil, errors.Wrap(ErrGatingFailed, "record expired")
	}
	if !rec.Owner.Equals(claimant) {
		return nil, errors.Wrap(ErrGatingFailed, "record not owned by claimant")
	}
	return rec, nil
}

func isZeroAddress(a weave.Address) bool {
	for _, b := range a {
		if b != 0 {
			return false
		}
	}
	return true
}
