package tokendrop

import (
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
)

// Storage rent is charged in fractional units of the fee ticker, using an
// affine cost over the serialized byte footprint of the record. Footprints
// are fixed per record kind so rent amounts stay deterministic regardless
// of how the individual record compresses on the wire.
const (
	rentBase    int64 = 2500
	rentPerByte int64 = 400

	dropRecordSize  int64 = 160
	tickerIndexSize int64 = 32
	receiptSize     int64 = 64
	optInSize       int64 = 48
)

// StorageRent returns the rent charged for keeping byteSize bytes in the
// ledger state, denominated in the given fee ticker.
func StorageRent(ticker string, byteSize int64) coin.Coin {
	return coin.NewCoin(0, rentBase+rentPerByte*byteSize, ticker)
}

// ReceiptRent returns the rent reserved for a single claim receipt. This is
// the amount freed when a receipt is reclaimed.
func ReceiptRent(ticker string) coin.Coin {
	return StorageRent(ticker, receiptSize)
}

// OptInRent returns the rent charged for a single opt-in record.
func OptInRent(ticker string) coin.Coin {
	return StorageRent(ticker, optInSize)
}

// DropCreateRent returns the total rent collected when a drop is created:
// the drop record, its ticker index entry and one receipt slot for every
// possible claim.
func DropCreateRent(ticker string, maxClaims int64) (coin.Coin, error) {
	total, err := StorageRent(ticker, dropRecordSize).Add(StorageRent(ticker, tickerIndexSize))
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "record rent")
	}
	receipts, err := ReceiptRent(ticker).Multiply(maxClaims)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "receipt rent")
	}
	total, err = total.Add(receipts)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "total rent")
	}
	return total, nil
}
