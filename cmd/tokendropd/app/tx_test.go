package app

import (
	"bytes"
	"testing"

	"github.com/Algorand-Developer-Retreat/tokendrop/x/tokendrop"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
)

func TestTxDecoderRoundTrip(t *testing.T) {
	payer := weavetest.NewCondition().Address()
	tx := &Tx{
		Fees: &cash.FeeInfo{
			Payer: payer,
			Fees:  coin.NewCoinp(0, 100, "IOV"),
		},
		Sum: &Tx_TokendropClaimDropMsg{&tokendrop.ClaimDropMsg{
			Metadata: &weave.Metadata{Schema: 1},
			DropId:   42,
		}},
	}
	bz, err := tx.Marshal()
	assert.Nil(t, err)

	decoded, err := TxDecoder(bz)
	assert.Nil(t, err)
	msg, err := decoded.GetMsg()
	assert.Nil(t, err)
	assert.Equal(t, "tokendrop/claim_drop", msg.Path())

	claim, ok := msg.(*tokendrop.ClaimDropMsg)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}
	assert.Equal(t, uint64(42), claim.DropId)
}

func TestGetMsgDispatch(t *testing.T) {
	cases := map[string]struct {
		Sum      isTx_Sum
		WantPath string
	}{
		"cash send": {
			Sum:      &Tx_CashSendMsg{&cash.SendMsg{}},
			WantPath: "cash/send",
		},
		"create drop": {
			Sum:      &Tx_TokendropCreateDropMsg{&tokendrop.CreateDropMsg{}},
			WantPath: "tokendrop/create_drop",
		},
		"cancel drop": {
			Sum:      &Tx_TokendropCancelDropMsg{&tokendrop.CancelDropMsg{}},
			WantPath: "tokendrop/cancel_drop",
		},
		"cleanup drop": {
			Sum:      &Tx_TokendropCleanupDropMsg{&tokendrop.CleanupDropMsg{}},
			WantPath: "tokendrop/cleanup_drop",
		},
		"reclaim receipt": {
			Sum:      &Tx_TokendropReclaimReceiptMsg{&tokendrop.ReclaimReceiptMsg{}},
			WantPath: "tokendrop/reclaim_receipt",
		},
		"opt in": {
			Sum:      &Tx_TokendropOptInAssetMsg{&tokendrop.OptInAssetMsg{}},
			WantPath: "tokendrop/opt_in_asset",
		},
		"update configuration": {
			Sum:      &Tx_TokendropUpdateConfigurationMsg{&tokendrop.UpdateConfigurationMsg{}},
			WantPath: "tokendrop/update_configuration",
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			tx := &Tx{Sum: tc.Sum}
			msg, err := tx.GetMsg()
			assert.Nil(t, err)
			assert.Equal(t, tc.WantPath, msg.Path())
		})
	}
}

func TestSignBytesExcludeSignatures(t *testing.T) {
	tx := &Tx{
		Sum: &Tx_TokendropCleanupDropMsg{&tokendrop.CleanupDropMsg{
			Metadata: &weave.Metadata{Schema: 1},
			DropId:   1,
		}},
	}
	unsigned, err := tx.GetSignBytes()
	assert.Nil(t, err)

	tx.Signatures = []*sigs.StdSignature{{Sequence: 7}}
	signed, err := tx.GetSignBytes()
	assert.Nil(t, err)

	if !bytes.Equal(unsigned, signed) {
		t.Fatal("sign bytes must not depend on attached signatures")
	}
	assert.Equal(t, int64(7), tx.Signatures[0].Sequence)
}
