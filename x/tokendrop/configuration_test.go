package tokendrop

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
)

func validConfiguration() *Configuration {
	return &Configuration{
		Metadata:     &weave.Metadata{Schema: 1},
		Owner:        weavetest.NewCondition().Address(),
		Maintainer:   weavetest.NewCondition().Address(),
		FeeCollector: weavetest.NewCondition().Address(),
		CreateFee:    coin.NewCoin(0, 100000, "IOV"),
		ClaimFee:     coin.NewCoin(0, 60000, "IOV"),
	}
}

func TestConfigurationValidate(t *testing.T) {
	floor, err := ReceiptRent("IOV").Multiply(2)
	if err != nil {
		t.Fatal(err)
	}
	belowFloor, err := floor.Subtract(coin.NewCoin(0, 1, "IOV"))
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]struct {
		Mod     func(*Configuration)
		WantErr *errors.Error
	}{
		"valid configuration": {
			Mod: func(*Configuration) {},
		},
		"owner is optional": {
			Mod: func(c *Configuration) { c.Owner = nil },
		},
		"maintainer is required": {
			Mod:     func(c *Configuration) { c.Maintainer = nil },
			WantErr: errors.ErrState,
		},
		"fee collector is required": {
			Mod:     func(c *Configuration) { c.FeeCollector = nil },
			WantErr: errors.ErrState,
		},
		"fee tickers must match": {
			Mod:     func(c *Configuration) { c.ClaimFee = coin.NewCoin(0, 60000, "ETH") },
			WantErr: errors.ErrCurrency,
		},
		"claim fee below twice the receipt rent": {
			Mod:     func(c *Configuration) { c.ClaimFee = belowFloor },
			WantErr: errors.ErrState,
		},
		"claim fee exactly at the floor": {
			Mod: func(c *Configuration) { c.ClaimFee = floor },
		},
		"negative create fee": {
			Mod:     func(c *Configuration) { c.CreateFee = coin.NewCoin(0, -5, "IOV") },
			WantErr: errors.ErrState,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			conf := validConfiguration()
			tc.Mod(conf)
			if err := conf.Validate(); !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}
