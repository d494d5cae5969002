package tokendrop

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
)

// memAssetRegistry is an in-memory ticker to issuer mapping.
type memAssetRegistry map[string]weave.Address

var _ AssetRegistry = (memAssetRegistry)(nil)

func (r memAssetRegistry) Issuer(_ weave.ReadOnlyKVStore, ticker string) (weave.Address, error) {
	issuer, ok := r[ticker]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "asset %q", ticker)
	}
	return issuer, nil
}

// memNameService is an in-memory name registry.
type memNameService struct {
	names   map[uint64]string
	records map[uint64]*NameRecord
}

var _ NameService = (*memNameService)(nil)

func (s *memNameService) IsValidRecord(_ weave.ReadOnlyKVStore, name string, id uint64) (bool, error) {
	return s.names[id] == name && name != "", nil
}

func (s *memNameService) Record(_ weave.ReadOnlyKVStore, id uint64) (*NameRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "record %d", id)
	}
	return rec, nil
}

// memBank satisfies CashController with static balances. Moving coins is
// not supported, gating only reads.
type memBank map[string]coin.Coins

var _ CashController = (memBank)(nil)

func (b memBank) Balance(_ weave.KVStore, addr weave.Address) (coin.Coins, error) {
	cs, ok := b[addr.String()]
	if !ok {
		return nil, errors.Wrapf(errors.ErrEmpty, "account %s", addr)
	}
	return cs, nil
}

func (b memBank) MoveCoins(weave.KVStore, weave.Address, weave.Address, coin.Coin) error {
	return errors.Wrap(errors.ErrHuman, "not implemented")
}

func TestGatekeeper(t *testing.T) {
	var (
		claimant = weavetest.NewCondition().Address()
		issuer   = weavetest.NewCondition().Address()
		other    = weavetest.NewCondition().Address()
		zeroAddr = make(weave.Address, weave.AddressLength)
	)

	now := time.Now().UTC()
	ctx := weave.WithBlockTime(context.Background(), now)

	gate := gatekeeper{
		assets: memAssetRegistry{
			"GEM": issuer,
			"ORE": other,
		},
		names: &memNameService{
			names: map[uint64]string{
				1: "root",
				2: "root.claimed",
				3: "forsale",
				4: "aged",
				5: "social",
				6: "social.linked",
				7: "lapsed",
				8: "vintage",
				9: "root.linked",
			},
			records: map[uint64]*NameRecord{
				1: {Owner: other, Linked: []weave.Address{zeroAddr, issuer}},
				2: {Owner: claimant, ParentId: 1},
				3: {Owner: claimant, ParentId: 1, ForSale: true},
				4: {Owner: claimant, Version: 3, PurchasedAt: weave.AsUnixTime(now.Add(-10 * 24 * time.Hour))},
				5: {Owner: claimant, Version: 3, Twitter: "handle", Discord: ""},
				6: {Owner: other, Version: 3, Twitter: "handle", Linked: []weave.Address{claimant}},
				7: {Owner: claimant, Version: 3, Twitter: "handle", ExpiresAt: weave.AsUnixTime(now.Add(-time.Hour))},
				8: {Owner: claimant, Version: 2, Twitter: "handle"},
				9: {Owner: other, ParentId: 1, Linked: []weave.Address{claimant}},
			},
		},
		ctrl: memBank{
			claimant.String(): coin.Coins{coin.NewCoinp(5, 0, "GEM"), coin.NewCoinp(1, 0, "ORE")},
		},
	}

	drop := func(c DropConfig) *Drop {
		return &Drop{Config: &c}
	}

	cases := map[string]struct {
		Drop    *Drop
		Msg     ClaimDropMsg
		WantErr *errors.Error
	}{
		"no gating allows anyone": {
			Drop: drop(DropConfig{GatingType: GatingType_NONE}),
		},
		"created by, matching issuer": {
			Drop: drop(DropConfig{GatingType: GatingType_CREATED_BY, GatingAddress: issuer}),
			Msg:  ClaimDropMsg{RefTicker: "GEM"},
		},
		"created by, wrong issuer": {
			Drop:    drop(DropConfig{GatingType: GatingType_CREATED_BY, GatingAddress: issuer}),
			Msg:     ClaimDropMsg{RefTicker: "ORE"},
			WantErr: ErrGatingFailed,
		},
		"created by, balance below minimum": {
			Drop:    drop(DropConfig{GatingType: GatingType_CREATED_BY, GatingAddress: issuer, MinUnits: 10}),
			Msg:     ClaimDropMsg{RefTicker: "GEM"},
			WantErr: ErrGatingFailed,
		},
		"created by, no reference": {
			Drop:    drop(DropConfig{GatingType: GatingType_CREATED_BY, GatingAddress: issuer}),
			WantErr: ErrGatingFailed,
		},
		"allow list, listed asset with empty slots": {
			Drop: drop(DropConfig{GatingType: GatingType_ASSET_LIST, GatingAssets: []string{"", "GEM", "", ""}}),
			Msg:  ClaimDropMsg{RefTicker: "GEM"},
		},
		"allow list, asset not listed": {
			Drop:    drop(DropConfig{GatingType: GatingType_ASSET_LIST, GatingAssets: []string{"", "ORE", "", ""}}),
			Msg:     ClaimDropMsg{RefTicker: "GEM"},
			WantErr: ErrGatingFailed,
		},
		"allow list, empty slot does not match empty reference": {
			Drop:    drop(DropConfig{GatingType: GatingType_ASSET_LIST, GatingAssets: []string{"", "GEM", "", ""}}),
			Msg:     ClaimDropMsg{RefTicker: ""},
			WantErr: ErrGatingFailed,
		},
		"linked creator, issuer is linked": {
			Drop: drop(DropConfig{GatingType: GatingType_LINKED_CREATOR, GatingRecordName: "root", GatingRecordId: 1}),
			Msg:  ClaimDropMsg{RefTicker: "GEM"},
		},
		"linked creator, issuer not linked": {
			Drop:    drop(DropConfig{GatingType: GatingType_LINKED_CREATOR, GatingRecordName: "root", GatingRecordId: 1}),
			Msg:     ClaimDropMsg{RefTicker: "ORE"},
			WantErr: ErrGatingFailed,
		},
		"record segment, child of the root": {
			Drop: drop(DropConfig{GatingType: GatingType_RECORD_SEGMENT, GatingRecordName: "root", GatingRecordId: 1}),
			Msg:  ClaimDropMsg{RefName: "root.claimed", RefId: 2},
		},
		"record segment, wrong root": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_SEGMENT, GatingRecordName: "root", GatingRecordId: 99}),
			Msg:     ClaimDropMsg{RefName: "root.claimed", RefId: 2},
			WantErr: ErrGatingFailed,
		},
		"record segment, record listed for sale": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_SEGMENT, GatingRecordName: "root", GatingRecordId: 1}),
			Msg:     ClaimDropMsg{RefName: "forsale", RefId: 3},
			WantErr: ErrGatingFailed,
		},
		"record segment, record of someone else": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_SEGMENT, GatingRecordName: "root", GatingRecordId: 1}),
			Msg:     ClaimDropMsg{RefName: "root", RefId: 1},
			WantErr: ErrGatingFailed,
		},
		"record segment, unknown record": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_SEGMENT, GatingRecordName: "root", GatingRecordId: 1}),
			Msg:     ClaimDropMsg{RefName: "ghost", RefId: 42},
			WantErr: ErrGatingFailed,
		},
		"record segment, linked claimant is enough": {
			Drop: drop(DropConfig{GatingType: GatingType_RECORD_SEGMENT, GatingRecordName: "root", GatingRecordId: 1}),
			Msg:  ClaimDropMsg{RefName: "root.linked", RefId: 9},
		},
		"twitter handle present": {
			Drop: drop(DropConfig{GatingType: GatingType_RECORD_TWITTER}),
			Msg:  ClaimDropMsg{RefName: "social", RefId: 5},
		},
		"twitter record merely linked, not owned": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_TWITTER}),
			Msg:     ClaimDropMsg{RefName: "social.linked", RefId: 6},
			WantErr: ErrGatingFailed,
		},
		"twitter record expired": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_TWITTER}),
			Msg:     ClaimDropMsg{RefName: "lapsed", RefId: 7},
			WantErr: ErrGatingFailed,
		},
		"twitter record version too old": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_TWITTER}),
			Msg:     ClaimDropMsg{RefName: "vintage", RefId: 8},
			WantErr: ErrGatingFailed,
		},
		"discord handle missing": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_DISCORD}),
			Msg:     ClaimDropMsg{RefName: "social", RefId: 5},
			WantErr: ErrGatingFailed,
		},
		"record old enough": {
			Drop: drop(DropConfig{GatingType: GatingType_RECORD_AGE, MinUnits: 7}),
			Msg:  ClaimDropMsg{RefName: "aged", RefId: 4},
		},
		"record too young": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_AGE, MinUnits: 30}),
			Msg:     ClaimDropMsg{RefName: "aged", RefId: 4},
			WantErr: ErrGatingFailed,
		},
		"record age, record not owned": {
			Drop:    drop(DropConfig{GatingType: GatingType_RECORD_AGE, MinUnits: 1}),
			Msg:     ClaimDropMsg{RefName: "social.linked", RefId: 6},
			WantErr: ErrGatingFailed,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			err := gate.Allow(ctx, db, tc.Drop, claimant, &tc.Msg)
			if !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}
