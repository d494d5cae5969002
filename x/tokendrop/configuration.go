package tokendrop

import (
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &Configuration{}, migration.NoModification)
}

func (c *Configuration) Validate() error {
	if err := c.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	// Owner field is optional. Without an owner the configuration cannot
	// be patched.
	if len(c.Owner) != 0 {
		if err := c.Owner.Validate(); err != nil {
			return errors.Wrap(err, "owner address")
		}
	}
	if len(c.Maintainer) == 0 {
		return errors.Wrap(errors.ErrState, "maintainer address missing")
	}
	if err := c.Maintainer.Validate(); err != nil {
		return errors.Wrap(err, "maintainer address")
	}
	if len(c.FeeCollector) == 0 {
		return errors.Wrap(errors.ErrState, "fee collector address missing")
	}
	if err := c.FeeCollector.Validate(); err != nil {
		return errors.Wrap(err, "fee collector address")
	}
	if err := c.CreateFee.Validate(); err != nil {
		return errors.Wrap(err, "create fee")
	}
	if !c.CreateFee.IsNonNegative() {
		return errors.Wrap(errors.ErrState, "create fee cannot be negative")
	}
	if err := c.ClaimFee.Validate(); err != nil {
		return errors.Wrap(err, "claim fee")
	}
	if c.ClaimFee.Ticker != c.CreateFee.Ticker {
		return errors.Wrap(errors.ErrCurrency, "fees must use a single ticker")
	}
	// Half the claim fee is retained as receipt rent, so the fee must
	// cover at least two receipt rents or claiming would drain the drop
	// account.
	floor, err := ReceiptRent(c.ClaimFee.Ticker).Multiply(2)
	if err != nil {
		return errors.Wrap(err, "claim fee floor")
	}
	if !c.ClaimFee.IsGTE(floor) {
		return errors.Wrapf(errors.ErrState, "claim fee below %s", floor)
	}
	return nil
}

func loadConf(db gconf.Store) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "tokendrop", &conf); err != nil {
		return conf, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}
