package tokendrop

import (
	"bytes"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestReceiptKeysSharePrefix(t *testing.T) {
	a := weavetest.NewCondition().Address()
	b := weavetest.NewCondition().Address()

	if !bytes.Equal(receiptKey(42, a)[:8], receiptKey(42, b)[:8]) {
		t.Fatal("receipts of one drop must share the drop prefix")
	}
	if bytes.Equal(receiptKey(42, a), receiptKey(43, a)) {
		t.Fatal("receipts of different drops must differ")
	}
	assert.Equal(t, dropID(42), receiptKey(42, a)[:8])
}

func TestDropConditionIsStable(t *testing.T) {
	// The drop address must be recomputable from the id alone, receipts
	// are paid out from it after the drop record is gone.
	assert.Equal(t, DropCondition(dropID(7)).Address(), DropCondition(dropID(7)).Address())
	if DropCondition(dropID(7)).Address().Equals(DropCondition(dropID(8)).Address()) {
		t.Fatal("different drops must use different addresses")
	}
}

func TestCountReceipts(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "tokendrop")
	receipts := NewReceiptBucket()

	save := func(dropID uint64, claimant weave.Address) {
		t.Helper()
		receipt := &ClaimReceipt{
			Metadata:  &weave.Metadata{Schema: 1},
			DropId:    dropID,
			Claimant:  claimant,
			ClaimedAt: 12345,
		}
		if _, err := receipts.Put(db, receiptKey(dropID, claimant), receipt); err != nil {
			t.Fatalf("store receipt: %s", err)
		}
	}

	cnt, err := countReceipts(db, 1)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), cnt)

	save(1, weavetest.NewCondition().Address())
	save(1, weavetest.NewCondition().Address())
	save(2, weavetest.NewCondition().Address())

	cnt, err = countReceipts(db, 1)
	assert.Nil(t, err)
	assert.Equal(t, int64(2), cnt)

	cnt, err = countReceipts(db, 2)
	assert.Nil(t, err)
	assert.Equal(t, int64(1), cnt)

	cnt, err = countReceipts(db, 3)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), cnt)
}

func TestDropTickerIndexIsUnique(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "tokendrop")
	drops := NewDropBucket()

	drop := func(ticker string) *Drop {
		return &Drop{
			Metadata: &weave.Metadata{Schema: 1},
			Creator:  weavetest.NewCondition().Address(),
			Config: &DropConfig{
				Ticker:         ticker,
				AmountPerClaim: coin.NewCoinp(10, 0, ticker),
				Expiry:         12345,
				GatingType:     GatingType_NONE,
			},
			Remaining: coin.NewCoinp(100, 0, ticker),
			MaxClaims: 10,
		}
	}

	if _, err := drops.Put(db, nil, drop("TKR")); err != nil {
		t.Fatalf("store drop: %s", err)
	}
	if _, err := drops.Put(db, nil, drop("GEM")); err != nil {
		t.Fatalf("store drop: %s", err)
	}
	if _, err := drops.Put(db, nil, drop("TKR")); !errors.ErrDuplicate.Is(err) {
		t.Fatalf("want duplicate error, got %+v", err)
	}

	var loaded []*Drop
	keys, err := drops.ByIndex(db, "ticker", []byte("GEM"), &loaded)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(loaded))
	assert.Equal(t, "GEM", loaded[0].Config.Ticker)
	assert.Equal(t, 1, len(keys))
}
