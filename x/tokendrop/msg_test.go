package tokendrop

import (
	"testing"
	"time"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
)

func validDropConfig() *DropConfig {
	return &DropConfig{
		Ticker:         "TKR",
		AmountPerClaim: coin.NewCoinp(1000, 0, "TKR"),
		Expiry:         weave.AsUnixTime(time.Now().Add(48 * time.Hour)),
		GatingType:     GatingType_NONE,
	}
}

func TestCreateDropMsgValidate(t *testing.T) {
	cases := map[string]struct {
		Mod     func(*CreateDropMsg)
		WantErr *errors.Error
	}{
		"valid message": {
			Mod: func(*CreateDropMsg) {},
		},
		"missing metadata": {
			Mod:     func(m *CreateDropMsg) { m.Metadata = nil },
			WantErr: errors.ErrMetadata,
		},
		"missing config": {
			Mod:     func(m *CreateDropMsg) { m.Config = nil },
			WantErr: errors.ErrEmpty,
		},
		"missing total": {
			Mod:     func(m *CreateDropMsg) { m.Total = nil },
			WantErr: errors.ErrEmpty,
		},
		"total not divisible by amount per claim": {
			Mod:     func(m *CreateDropMsg) { m.Total = coin.NewCoinp(4500, 0, "TKR") },
			WantErr: errors.ErrInput,
		},
		"total with fractional units": {
			Mod:     func(m *CreateDropMsg) { m.Total = coin.NewCoinp(4000, 5, "TKR") },
			WantErr: errors.ErrInput,
		},
		"total ticker mismatch": {
			Mod:     func(m *CreateDropMsg) { m.Total = coin.NewCoinp(4000, 0, "IOV") },
			WantErr: errors.ErrCurrency,
		},
		"negative total": {
			Mod:     func(m *CreateDropMsg) { m.Total = coin.NewCoinp(-4000, 0, "TKR") },
			WantErr: errors.ErrInput,
		},
		"amount per claim with fractional units": {
			Mod: func(m *CreateDropMsg) {
				m.Config.AmountPerClaim = coin.NewCoinp(0, 5, "TKR")
			},
			WantErr: errors.ErrInput,
		},
		"amount per claim ticker mismatch": {
			Mod: func(m *CreateDropMsg) {
				m.Config.AmountPerClaim = coin.NewCoinp(1000, 0, "IOV")
			},
			WantErr: errors.ErrCurrency,
		},
		"unknown gating type": {
			Mod:     func(m *CreateDropMsg) { m.Config.GatingType = GatingType(66) },
			WantErr: errors.ErrInput,
		},
		"created by without an address": {
			Mod:     func(m *CreateDropMsg) { m.Config.GatingType = GatingType_CREATED_BY },
			WantErr: errors.ErrInput,
		},
		"allow list with too many entries": {
			Mod: func(m *CreateDropMsg) {
				m.Config.GatingType = GatingType_ASSET_LIST
				m.Config.GatingAssets = []string{"AAA", "BBB", "CCC", "DDD", "EEE"}
			},
			WantErr: errors.ErrInput,
		},
		"allow list with only empty slots": {
			Mod: func(m *CreateDropMsg) {
				m.Config.GatingType = GatingType_ASSET_LIST
				m.Config.GatingAssets = []string{"", "", "", ""}
			},
			WantErr: errors.ErrEmpty,
		},
		"allow list with empty slots is usable": {
			Mod: func(m *CreateDropMsg) {
				m.Config.GatingType = GatingType_ASSET_LIST
				m.Config.GatingAssets = []string{"", "GEM", "", ""}
			},
		},
		"record segment without a record": {
			Mod:     func(m *CreateDropMsg) { m.Config.GatingType = GatingType_RECORD_SEGMENT },
			WantErr: errors.ErrEmpty,
		},
		"record age without a day count": {
			Mod:     func(m *CreateDropMsg) { m.Config.GatingType = GatingType_RECORD_AGE },
			WantErr: errors.ErrInput,
		},
		"negative min units": {
			Mod:     func(m *CreateDropMsg) { m.Config.MinUnits = -1 },
			WantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			msg := &CreateDropMsg{
				Metadata: &weave.Metadata{Schema: 1},
				Config:   validDropConfig(),
				Total:    coin.NewCoinp(4000, 0, "TKR"),
			}
			tc.Mod(msg)
			if err := msg.Validate(); !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}

func TestReclaimReceiptMsgValidate(t *testing.T) {
	claimant := weavetest.NewCondition().Address()

	cases := map[string]struct {
		Msg     ReclaimReceiptMsg
		WantErr *errors.Error
	}{
		"valid without receiver": {
			Msg: ReclaimReceiptMsg{
				Metadata: &weave.Metadata{Schema: 1},
				DropId:   1,
				Claimant: claimant,
			},
		},
		"valid with receiver": {
			Msg: ReclaimReceiptMsg{
				Metadata: &weave.Metadata{Schema: 1},
				DropId:   1,
				Claimant: claimant,
				Receiver: weavetest.NewCondition().Address(),
			},
		},
		"missing drop id": {
			Msg: ReclaimReceiptMsg{
				Metadata: &weave.Metadata{Schema: 1},
				Claimant: claimant,
			},
			WantErr: errors.ErrEmpty,
		},
		"invalid claimant": {
			Msg: ReclaimReceiptMsg{
				Metadata: &weave.Metadata{Schema: 1},
				DropId:   1,
				Claimant: []byte("too-short"),
			},
			WantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if err := tc.Msg.Validate(); !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}

func TestOptInAssetMsgValidate(t *testing.T) {
	cases := map[string]struct {
		Msg     OptInAssetMsg
		WantErr *errors.Error
	}{
		"valid without address": {
			Msg: OptInAssetMsg{
				Metadata: &weave.Metadata{Schema: 1},
				Ticker:   "TKR",
			},
		},
		"invalid ticker": {
			Msg: OptInAssetMsg{
				Metadata: &weave.Metadata{Schema: 1},
				Ticker:   "toolong",
			},
			WantErr: errors.ErrCurrency,
		},
		"invalid address": {
			Msg: OptInAssetMsg{
				Metadata: &weave.Metadata{Schema: 1},
				Ticker:   "TKR",
				Address:  []byte("x"),
			},
			WantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if err := tc.Msg.Validate(); !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}
