package tokendrop

import (
	"encoding/binary"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Drop{}, migration.NoModification)
	migration.MustRegister(1, &ClaimReceipt{}, migration.NoModification)
	migration.MustRegister(1, &OptIn{}, migration.NoModification)
}

var _ orm.CloneableData = (*Drop)(nil)
var _ orm.CloneableData = (*ClaimReceipt)(nil)
var _ orm.CloneableData = (*OptIn)(nil)

// maxGatingAssets is the number of allow list slots on a drop. An empty
// string slot is unused.
const maxGatingAssets = 4

func (c *DropConfig) Validate() error {
	if !coin.IsCC(c.Ticker) {
		return errors.Wrapf(errors.ErrCurrency, "ticker %q", c.Ticker)
	}
	if c.AmountPerClaim == nil {
		return errors.Wrap(errors.ErrEmpty, "amount per claim")
	}
	if err := c.AmountPerClaim.Validate(); err != nil {
		return errors.Wrap(err, "amount per claim")
	}
	if !c.AmountPerClaim.IsPositive() {
		return errors.Wrap(errors.ErrInput, "amount per claim must be positive")
	}
	if c.AmountPerClaim.Fractional != 0 {
		return errors.Wrap(errors.ErrInput, "amount per claim must be whole units")
	}
	if c.AmountPerClaim.Ticker != c.Ticker {
		return errors.Wrap(errors.ErrCurrency, "amount per claim ticker mismatch")
	}
	if c.Expiry == 0 {
		return errors.Wrap(errors.ErrInput, "expiry is required")
	}
	if err := c.Expiry.Validate(); err != nil {
		return errors.Wrap(err, "expiry")
	}
	if c.MinUnits < 0 {
		return errors.Wrap(errors.ErrInput, "min units cannot be negative")
	}
	switch c.GatingType {
	case GatingType_NONE:
	case GatingType_CREATED_BY:
		if err := c.GatingAddress.Validate(); err != nil {
			return errors.Wrap(err, "gating address")
		}
	case GatingType_ASSET_LIST:
		if len(c.GatingAssets) == 0 || len(c.GatingAssets) > maxGatingAssets {
			return errors.Wrapf(errors.ErrInput, "gating assets must hold 1 to %d entries", maxGatingAssets)
		}
		var used int
		for i, t := range c.GatingAssets {
			if t == "" {
				continue
			}
			if !coin.IsCC(t) {
				return errors.Wrapf(errors.ErrCurrency, "gating asset #%d", i)
			}
			used++
		}
		if used == 0 {
			return errors.Wrap(errors.ErrEmpty, "gating assets")
		}
	case GatingType_LINKED_CREATOR, GatingType_RECORD_SEGMENT:
		if c.GatingRecordName == "" {
			return errors.Wrap(errors.ErrEmpty, "gating record name")
		}
		if c.GatingRecordId == 0 {
			return errors.Wrap(errors.ErrEmpty, "gating record id")
		}
	case GatingType_RECORD_TWITTER, GatingType_RECORD_DISCORD:
	case GatingType_RECORD_AGE:
		if c.MinUnits == 0 {
			return errors.Wrap(errors.ErrInput, "record age in days is required")
		}
	default:
		return errors.Wrapf(errors.ErrInput, "unknown gating type %d", c.GatingType)
	}
	return nil
}

func (c *DropConfig) Clone() *DropConfig {
	var assets []string
	if c.GatingAssets != nil {
		assets = append([]string{}, c.GatingAssets...)
	}
	return &DropConfig{
		Ticker:           c.Ticker,
		AmountPerClaim:   c.AmountPerClaim.Clone(),
		Expiry:           c.Expiry,
		GatingType:       c.GatingType,
		GatingAddress:    c.GatingAddress.Clone(),
		GatingAssets:     assets,
		GatingRecordName: c.GatingRecordName,
		GatingRecordId:   c.GatingRecordId,
		MinUnits:         c.MinUnits,
	}
}

func (d *Drop) Validate() error {
	if err := d.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := d.Creator.Validate(); err != nil {
		return errors.Wrap(err, "creator")
	}
	if d.Config == nil {
		return errors.Wrap(errors.ErrEmpty, "config")
	}
	if err := d.Config.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	if d.Remaining == nil {
		return errors.Wrap(errors.ErrEmpty, "remaining")
	}
	if err := d.Remaining.Validate(); err != nil {
		return errors.Wrap(err, "remaining")
	}
	if d.MaxClaims <= 0 {
		return errors.Wrap(errors.ErrInput, "max claims must be positive")
	}
	if d.NumClaims < 0 || d.NumClaims > d.MaxClaims {
		return errors.Wrap(errors.ErrState, "claim counter out of range")
	}
	return nil
}

func (d *Drop) Copy() orm.CloneableData {
	return &Drop{
		Metadata:  d.Metadata.Copy(),
		Creator:   d.Creator.Clone(),
		Config:    d.Config.Clone(),
		Remaining: d.Remaining.Clone(),
		MaxClaims: d.MaxClaims,
		NumClaims: d.NumClaims,
	}
}

// Exhausted returns true when every claim slot is used.
func (d *Drop) Exhausted() bool {
	return d.NumClaims >= d.MaxClaims
}

func (r *ClaimReceipt) Validate() error {
	if err := r.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if r.DropId == 0 {
		return errors.Wrap(errors.ErrEmpty, "drop id")
	}
	if err := r.Claimant.Validate(); err != nil {
		return errors.Wrap(err, "claimant")
	}
	if r.ClaimedAt == 0 {
		return errors.Wrap(errors.ErrEmpty, "claimed at")
	}
	return nil
}

func (r *ClaimReceipt) Copy() orm.CloneableData {
	return &ClaimReceipt{
		Metadata:  r.Metadata.Copy(),
		DropId:    r.DropId,
		Claimant:  r.Claimant.Clone(),
		ClaimedAt: r.ClaimedAt,
	}
}

func (o *OptIn) Validate() error {
	if err := o.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if !coin.IsCC(o.Ticker) {
		return errors.Wrapf(errors.ErrCurrency, "ticker %q", o.Ticker)
	}
	if err := o.Address.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	return nil
}

func (o *OptIn) Copy() orm.CloneableData {
	return &OptIn{
		Metadata: o.Metadata.Copy(),
		Ticker:   o.Ticker,
		Address:  o.Address.Clone(),
	}
}

// DropCondition calculates the address holding the funds and the rent of a
// drop with the given id. It depends only on the id, so the address stays
// computable after the drop record is deleted.
func DropCondition(id []byte) weave.Condition {
	return weave.NewCondition("tokendrop", "drop", id)
}

// treasuryCondition guards the protocol account that must hold an opt-in
// for a token before a drop distributing it can be created.
var treasuryCondition = weave.NewCondition("tokendrop", "treasury", []byte("pool"))

// TreasuryAddress returns the protocol account address.
func TreasuryAddress() weave.Address {
	return treasuryCondition.Address()
}

var dropSeq = orm.NewSequence("tokendrop", "id")

// claimSeq counts claims across all drops for the lifetime of the chain.
var claimSeq = orm.NewSequence("tokendrop", "claims")

func NewDropBucket() orm.ModelBucket {
	b := orm.NewModelBucket("drop", &Drop{},
		orm.WithIDSequence(dropSeq),
		orm.WithIndex("ticker", idxTicker, true),
	)
	return migration.NewModelBucket("tokendrop", b)
}

func idxTicker(obj orm.Object) ([]byte, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot take index of nil")
	}
	d, ok := obj.Value().(*Drop)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "can only take index of Drop")
	}
	return []byte(d.Config.Ticker), nil
}

// receiptBucketName is also part of every raw receipt key, receipt prefix
// scans depend on it.
const receiptBucketName = "rcpt"

func NewReceiptBucket() orm.ModelBucket {
	b := orm.NewModelBucket(receiptBucketName, &ClaimReceipt{})
	return migration.NewModelBucket("tokendrop", b)
}

func NewOptInBucket() orm.ModelBucket {
	b := orm.NewModelBucket("optin", &OptIn{})
	return migration.NewModelBucket("tokendrop", b)
}

// dropID returns the 8 byte big endian bucket key of a drop.
func dropID(id uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, id)
	return raw
}

// receiptKey composes the receipt bucket key so that all receipts of one
// drop share a common prefix.
func receiptKey(id uint64, claimant weave.Address) []byte {
	return append(dropID(id), claimant...)
}

func optInKey(ticker string, addr weave.Address) []byte {
	return append([]byte(ticker), addr...)
}

// receiptPrefix is the raw database prefix under which all receipts of the
// drop live.
func receiptPrefix(id uint64) []byte {
	return append([]byte(receiptBucketName+":"), dropID(id)...)
}

func prefixRange(prefix []byte) ([]byte, []byte) {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return prefix, end[:i+1]
		}
	}
	return prefix, nil
}

// countReceipts returns the number of claim receipts stored for the drop.
// Teardown uses it to reserve rent for receipts that outlive the drop.
func countReceipts(db weave.ReadOnlyKVStore, id uint64) (int64, error) {
	it, err := db.Iterator(prefixRange(receiptPrefix(id)))
	if err != nil {
		return 0, errors.Wrap(err, "receipt iterator")
	}
	defer it.Release()

	var cnt int64
	for {
		switch _, _, err := it.Next(); {
		case err == nil:
			cnt++
		case errors.ErrIteratorDone.Is(err):
			return cnt, nil
		default:
			return 0, errors.Wrap(err, "receipt iterator")
		}
	}
}

// RegisterQuery exposes the drop, receipt and opt-in buckets to queries.
func RegisterQuery(qr weave.QueryRouter) {
	NewDropBucket().Register("drops", qr)
	NewReceiptBucket().Register("receipts", qr)
	NewOptInBucket().Register("optins", qr)
}
