package tokendrop

import (
	"testing"

	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestStorageRentIsAffine(t *testing.T) {
	free := StorageRent("IOV", 0)
	assert.Equal(t, coin.NewCoin(0, rentBase, "IOV"), free)

	one := StorageRent("IOV", 1)
	assert.Equal(t, coin.NewCoin(0, rentBase+rentPerByte, "IOV"), one)

	receipt := ReceiptRent("IOV")
	assert.Equal(t, coin.NewCoin(0, rentBase+rentPerByte*receiptSize, "IOV"), receipt)
}

func TestDropCreateRent(t *testing.T) {
	total, err := DropCreateRent("IOV", 4)
	assert.Nil(t, err)

	want := StorageRent("IOV", dropRecordSize)
	want, err = want.Add(StorageRent("IOV", tickerIndexSize))
	assert.Nil(t, err)
	receipts, err := ReceiptRent("IOV").Multiply(4)
	assert.Nil(t, err)
	want, err = want.Add(receipts)
	assert.Nil(t, err)

	assert.Equal(t, want, total)
}

func TestDropCreateRentGrowsWithClaims(t *testing.T) {
	small, err := DropCreateRent("IOV", 1)
	assert.Nil(t, err)
	big, err := DropCreateRent("IOV", 100)
	assert.Nil(t, err)
	if !big.IsGTE(small) || big.Equals(small) {
		t.Fatalf("rent for 100 claims (%s) must exceed rent for 1 claim (%s)", big, small)
	}
}
