package tokendrop

import (
	"encoding/binary"
	"time"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
)

const (
	createDropCost  int64 = 300
	claimDropCost   int64 = 100
	cancelDropCost  int64 = 0
	cleanupDropCost int64 = 0
	reclaimCost     int64 = 0
	optInCost       int64 = 50
)

// The expiry of a new drop must be at least one day out and no more than a
// week, with a small tolerance for the time a transaction spends waiting
// for a block.
const (
	minDropLifetime = 24 * time.Hour
	maxDropLifetime = 7 * 24 * time.Hour
	expiryTolerance = 15 * time.Minute
)

// CashController allows to manage coins stored by the accounts without the
// need to directly access the bucket.
// Required functionality is implemented by the x/cash extension.
type CashController interface {
	Balance(weave.KVStore, weave.Address) (coin.Coins, error)
	MoveCoins(weave.KVStore, weave.Address, weave.Address, coin.Coin) error
}

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, ctrl CashController, assets AssetRegistry, names NameService) {
	r = migration.SchemaMigratingRegistry("tokendrop", r)

	drops := NewDropBucket()
	receipts := NewReceiptBucket()
	optins := NewOptInBucket()
	gate := gatekeeper{assets: assets, names: names, ctrl: ctrl}

	r.Handle(&CreateDropMsg{}, CreateDropHandler{
		auth:   auth,
		drops:  drops,
		optins: optins,
		ctrl:   ctrl,
		names:  names,
	})
	r.Handle(&ClaimDropMsg{}, ClaimDropHandler{
		auth:     auth,
		drops:    drops,
		receipts: receipts,
		optins:   optins,
		ctrl:     ctrl,
		gate:     gate,
	})
	r.Handle(&CancelDropMsg{}, CancelDropHandler{
		auth:  auth,
		drops: drops,
		ctrl:  ctrl,
	})
	r.Handle(&CleanupDropMsg{}, CleanupDropHandler{
		auth:  auth,
		drops: drops,
		ctrl:  ctrl,
	})
	r.Handle(&ReclaimReceiptMsg{}, ReclaimReceiptHandler{
		auth:     auth,
		drops:    drops,
		receipts: receipts,
		ctrl:     ctrl,
	})
	r.Handle(&OptInAssetMsg{}, OptInHandler{
		auth:   auth,
		optins: optins,
		ctrl:   ctrl,
	})
	r.Handle(&UpdateConfigurationMsg{}, gconf.NewUpdateConfigurationHandler(
		"tokendrop", &Configuration{}, auth, migration.CurrentAdmin))
}

// CreateDropHandler funds and installs a new drop.
type CreateDropHandler struct {
	auth   x.Authenticator
	drops  orm.ModelBucket
	optins orm.ModelBucket
	ctrl   CashController
	names  NameService
}

var _ weave.Handler = CreateDropHandler{}

func (h CreateDropHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: createDropCost}, nil
}

func (h CreateDropHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, conf, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	creator := x.AnySigner(ctx, h.auth).Address()

	// At most one drop per token can exist. A terminal leftover is torn
	// down and superseded, a live one blocks creation.
	if err := h.supersede(ctx, db, msg.Config.Ticker, conf); err != nil {
		return nil, err
	}

	key, err := dropSeq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire key")
	}
	dropAddr := DropCondition(key).Address()
	maxClaims := msg.Total.Whole / msg.Config.AmountPerClaim.Whole

	// Settle the creation fee before anything is stored.
	if conf.CreateFee.IsPositive() {
		maintainerCut, _, err := conf.CreateFee.Divide(2)
		if err != nil {
			return nil, errors.Wrap(err, "create fee")
		}
		collectorCut, err := conf.CreateFee.Subtract(maintainerCut)
		if err != nil {
			return nil, errors.Wrap(err, "create fee")
		}
		if maintainerCut.IsPositive() {
			if err := h.ctrl.MoveCoins(db, creator, conf.Maintainer, maintainerCut); err != nil {
				return nil, errors.Wrap(ErrUnderfunded, err.Error())
			}
		}
		if collectorCut.IsPositive() {
			if err := h.ctrl.MoveCoins(db, creator, conf.FeeCollector, collectorCut); err != nil {
				return nil, errors.Wrap(ErrUnderfunded, err.Error())
			}
		}
	}

	// Rent for the drop record, its index entry and every receipt slot
	// is held on the drop account until teardown.
	rent, err := DropCreateRent(conf.CreateFee.Ticker, maxClaims)
	if err != nil {
		return nil, errors.Wrap(err, "rent")
	}
	if err := h.ctrl.MoveCoins(db, creator, dropAddr, rent); err != nil {
		return nil, errors.Wrap(ErrUnderfunded, err.Error())
	}

	// Escrow the full distribution amount.
	if err := h.ctrl.MoveCoins(db, creator, dropAddr, *msg.Total); err != nil {
		return nil, errors.Wrap(ErrUnderfunded, err.Error())
	}

	drop := &Drop{
		Metadata:  &weave.Metadata{Schema: 1},
		Creator:   creator,
		Config:    msg.Config.Clone(),
		Remaining: msg.Total.Clone(),
		MaxClaims: maxClaims,
		NumClaims: 0,
	}
	if _, err := h.drops.Put(db, key, drop); err != nil {
		return nil, errors.Wrap(err, "cannot store drop")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h CreateDropHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*CreateDropMsg, *Configuration, error) {
	var msg CreateDropMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, err
	}

	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "block time")
	}
	expiry := msg.Config.Expiry
	if expiry < weave.AsUnixTime(now.Add(minDropLifetime)) {
		return nil, nil, errors.Wrap(errors.ErrInput, "expiry must be at least one day out")
	}
	if expiry > weave.AsUnixTime(now.Add(maxDropLifetime+expiryTolerance)) {
		return nil, nil, errors.Wrap(errors.ErrInput, "expiry more than a week out")
	}

	// The protocol account must accept the distributed token before any
	// of it can be escrowed.
	if err := h.optins.Has(db, optInKey(msg.Config.Ticker, TreasuryAddress())); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, nil, errors.Wrapf(errors.ErrState, "treasury not opted in for %s", msg.Config.Ticker)
		}
		return nil, nil, errors.Wrap(err, "treasury opt-in")
	}

	// A gating record must exist when the drop is configured, not only
	// when claims arrive.
	switch msg.Config.GatingType {
	case GatingType_LINKED_CREATOR, GatingType_RECORD_SEGMENT:
		ok, err := h.names.IsValidRecord(db, msg.Config.GatingRecordName, msg.Config.GatingRecordId)
		if err != nil {
			return nil, nil, errors.Wrap(err, "gating record")
		}
		if !ok {
			return nil, nil, errors.Wrap(errors.ErrNotFound, "gating record")
		}
	}
	return &msg, &conf, nil
}

// supersede removes a terminal drop occupying the ticker slot. A live drop
// makes creation fail.
func (h CreateDropHandler) supersede(ctx weave.Context, db weave.KVStore, ticker string, conf *Configuration) error {
	var existing []*Drop
	keys, err := h.drops.ByIndex(db, "ticker", []byte(ticker), &existing)
	if err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil
		}
		return errors.Wrap(err, "ticker index")
	}
	if len(existing) == 0 {
		return nil
	}
	old := existing[0]
	if !weave.IsExpired(ctx, old.Config.Expiry) && !old.Exhausted() {
		return errors.Wrapf(errors.ErrDuplicate, "active drop for %s exists", ticker)
	}
	return teardown(db, h.drops, h.ctrl, keys[0], old, conf)
}

// ClaimDropHandler pays out a single claim.
type ClaimDropHandler struct {
	auth     x.Authenticator
	drops    orm.ModelBucket
	receipts orm.ModelBucket
	optins   orm.ModelBucket
	ctrl     CashController
	gate     gatekeeper
}

var _ weave.Handler = ClaimDropHandler{}

func (h ClaimDropHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: claimDropCost}, nil
}

func (h ClaimDropHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, drop, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	claimant := x.AnySigner(ctx, h.auth).Address()
	dropAddr := DropCondition(dropID(msg.DropId)).Address()

	// Fee split: half to the maintainer, one receipt rent retained on
	// the drop account, the rest (including rounding dust) to the
	// collector.
	rent := ReceiptRent(conf.ClaimFee.Ticker)
	maintainerCut, _, err := conf.ClaimFee.Divide(2)
	if err != nil {
		return nil, errors.Wrap(err, "claim fee")
	}
	collectorCut, err := conf.ClaimFee.Subtract(maintainerCut)
	if err != nil {
		return nil, errors.Wrap(err, "claim fee")
	}
	collectorCut, err = collectorCut.Subtract(rent)
	if err != nil {
		return nil, errors.Wrap(err, "claim fee")
	}
	if err := h.ctrl.MoveCoins(db, claimant, conf.Maintainer, maintainerCut); err != nil {
		return nil, errors.Wrap(ErrUnderfunded, err.Error())
	}
	if err := h.ctrl.MoveCoins(db, claimant, dropAddr, rent); err != nil {
		return nil, errors.Wrap(ErrUnderfunded, err.Error())
	}
	if collectorCut.IsPositive() {
		if err := h.ctrl.MoveCoins(db, claimant, conf.FeeCollector, collectorCut); err != nil {
			return nil, errors.Wrap(ErrUnderfunded, err.Error())
		}
	}

	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block time")
	}
	receipt := &ClaimReceipt{
		Metadata:  &weave.Metadata{Schema: 1},
		DropId:    msg.DropId,
		Claimant:  claimant,
		ClaimedAt: weave.AsUnixTime(now),
	}
	if _, err := h.receipts.Put(db, receiptKey(msg.DropId, claimant), receipt); err != nil {
		return nil, errors.Wrap(err, "cannot store receipt")
	}
	if _, err := claimSeq.NextVal(db); err != nil {
		return nil, errors.Wrap(err, "claim counter")
	}

	drop.NumClaims++
	remaining, err := drop.Remaining.Subtract(*drop.Config.AmountPerClaim)
	if err != nil {
		return nil, errors.Wrap(err, "remaining")
	}
	drop.Remaining = &remaining
	if _, err := h.drops.Put(db, dropID(msg.DropId), drop); err != nil {
		return nil, errors.Wrap(err, "cannot store drop")
	}

	if err := h.ctrl.MoveCoins(db, dropAddr, claimant, *drop.Config.AmountPerClaim); err != nil {
		return nil, errors.Wrap(err, "payout")
	}
	return &weave.DeliverResult{Data: dropID(msg.DropId)}, nil
}

func (h ClaimDropHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ClaimDropMsg, *Drop, error) {
	var msg ClaimDropMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var drop Drop
	if err := h.drops.One(db, dropID(msg.DropId), &drop); err != nil {
		return nil, nil, errors.Wrap(err, "cannot load drop from the store")
	}
	claimant := x.AnySigner(ctx, h.auth).Address()
	if claimant.Equals(drop.Creator) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "creator cannot claim")
	}
	if weave.IsExpired(ctx, drop.Config.Expiry) {
		return nil, nil, errors.Wrapf(errors.ErrExpired, "drop expired %v", drop.Config.Expiry)
	}
	if drop.Exhausted() {
		return nil, nil, errors.Wrap(errors.ErrState, "drop exhausted")
	}
	if err := h.optins.Has(db, optInKey(drop.Config.Ticker, claimant)); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, nil, errors.Wrapf(errors.ErrState, "claimant not opted in for %s", drop.Config.Ticker)
		}
		return nil, nil, errors.Wrap(err, "claimant opt-in")
	}
	switch err := h.receipts.Has(db, receiptKey(msg.DropId, claimant)); {
	case err == nil:
		return nil, nil, errors.Wrap(ErrAlreadyClaimed, "receipt exists")
	case errors.ErrNotFound.Is(err):
	default:
		return nil, nil, errors.Wrap(err, "receipt lookup")
	}
	if err := h.gate.Allow(ctx, db, &drop, claimant, &msg); err != nil {
		return nil, nil, err
	}
	return &msg, &drop, nil
}

// CancelDropHandler tears a drop down on creator request, regardless of its
// state.
type CancelDropHandler struct {
	auth  x.Authenticator
	drops orm.ModelBucket
	ctrl  CashController
}

var _ weave.Handler = CancelDropHandler{}

func (h CancelDropHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: cancelDropCost}, nil
}

func (h CancelDropHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, drop, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if err := teardown(db, h.drops, h.ctrl, dropID(msg.DropId), drop, &conf); err != nil {
		return nil, err
	}
	return &weave.DeliverResult{}, nil
}

func (h CancelDropHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*CancelDropMsg, *Drop, error) {
	var msg CancelDropMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var drop Drop
	if err := h.drops.One(db, dropID(msg.DropId), &drop); err != nil {
		return nil, nil, errors.Wrap(err, "cannot load drop from the store")
	}
	if !h.auth.HasAddress(ctx, drop.Creator) {
		return nil, nil, errors.ErrUnauthorized
	}
	return &msg, &drop, nil
}

// CleanupDropHandler tears a terminal drop down. Anyone can run it, the
// refunds always go to the creator.
type CleanupDropHandler struct {
	auth  x.Authenticator
	drops orm.ModelBucket
	ctrl  CashController
}

var _ weave.Handler = CleanupDropHandler{}

func (h CleanupDropHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: cleanupDropCost}, nil
}

func (h CleanupDropHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, drop, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if err := teardown(db, h.drops, h.ctrl, dropID(msg.DropId), drop, &conf); err != nil {
		return nil, err
	}
	return &weave.DeliverResult{}, nil
}

func (h CleanupDropHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*CleanupDropMsg, *Drop, error) {
	var msg CleanupDropMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var drop Drop
	if err := h.drops.One(db, dropID(msg.DropId), &drop); err != nil {
		return nil, nil, errors.Wrap(err, "cannot load drop from the store")
	}
	if !weave.IsExpired(ctx, drop.Config.Expiry) && !drop.Exhausted() {
		return nil, nil, errors.Wrapf(ErrNotTerminal, "drop %d", msg.DropId)
	}
	return &msg, &drop, nil
}

// teardown refunds a drop and deletes its record. The rent for receipts
// that still exist stays reserved on the drop account so they can be
// reclaimed later, the rest goes back to the creator together with any
// remaining tokens.
func teardown(db weave.KVStore, drops orm.ModelBucket, ctrl CashController, key []byte, drop *Drop, conf *Configuration) error {
	dropAddr := DropCondition(key).Address()
	outstanding, err := countReceipts(db, binary.BigEndian.Uint64(key))
	if err != nil {
		return err
	}
	reserve, err := ReceiptRent(conf.CreateFee.Ticker).Multiply(outstanding)
	if err != nil {
		return errors.Wrap(err, "rent reserve")
	}

	balance, err := ctrl.Balance(db, dropAddr)
	if err != nil {
		if errors.ErrNotFound.Is(err) || errors.ErrEmpty.Is(err) {
			balance = nil
		} else {
			return errors.Wrap(err, "drop balance")
		}
	}
	for _, c := range balance {
		refund := *c
		if c.Ticker == reserve.Ticker {
			refund, err = c.Subtract(reserve)
			if err != nil {
				return errors.Wrap(err, "refund")
			}
		}
		if !refund.IsPositive() {
			continue
		}
		if err := ctrl.MoveCoins(db, dropAddr, drop.Creator, refund); err != nil {
			return errors.Wrap(err, "refund")
		}
	}
	if err := drops.Delete(db, key); err != nil {
		return errors.Wrap(err, "cannot delete drop")
	}
	return nil
}

// ReclaimReceiptHandler deletes a claim receipt of a terminal drop and pays
// out its reserved rent. It works also after the drop record was torn
// down.
type ReclaimReceiptHandler struct {
	auth     x.Authenticator
	drops    orm.ModelBucket
	receipts orm.ModelBucket
	ctrl     CashController
}

var _ weave.Handler = ReclaimReceiptHandler{}

func (h ReclaimReceiptHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: reclaimCost}, nil
}

func (h ReclaimReceiptHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	receiver := msg.Receiver
	if len(receiver) == 0 {
		receiver = x.AnySigner(ctx, h.auth).Address()
	}
	if err := h.receipts.Delete(db, receiptKey(msg.DropId, msg.Claimant)); err != nil {
		return nil, errors.Wrap(err, "cannot delete receipt")
	}
	dropAddr := DropCondition(dropID(msg.DropId)).Address()
	if err := h.ctrl.MoveCoins(db, dropAddr, receiver, ReceiptRent(conf.CreateFee.Ticker)); err != nil {
		return nil, errors.Wrap(err, "rent payout")
	}
	return &weave.DeliverResult{}, nil
}

func (h ReclaimReceiptHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ReclaimReceiptMsg, error) {
	var msg ReclaimReceiptMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := h.receipts.Has(db, receiptKey(msg.DropId, msg.Claimant)); err != nil {
		return nil, errors.Wrap(err, "receipt lookup")
	}
	// With the drop record gone the rent is already reserved. A still
	// existing drop must be terminal.
	var drop Drop
	switch err := h.drops.One(db, dropID(msg.DropId), &drop); {
	case err == nil:
		if !weave.IsExpired(ctx, drop.Config.Expiry) && !drop.Exhausted() {
			return nil, errors.Wrapf(ErrNotTerminal, "drop %d", msg.DropId)
		}
	case errors.ErrNotFound.Is(err):
	default:
		return nil, errors.Wrap(err, "cannot load drop from the store")
	}
	return &msg, nil
}

// OptInHandler records that an address accepts holding a token.
type OptInHandler struct {
	auth   x.Authenticator
	optins orm.ModelBucket
	ctrl   CashController
}

var _ weave.Handler = OptInHandler{}

func (h OptInHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: optInCost}, nil
}

func (h OptInHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	signer := x.AnySigner(ctx, h.auth).Address()
	addr := msg.Address
	if len(addr) == 0 {
		addr = signer
	}

	// Opt-in rent is not reclaimable, it goes straight to the collector.
	if err := h.ctrl.MoveCoins(db, signer, conf.FeeCollector, OptInRent(conf.CreateFee.Ticker)); err != nil {
		return nil, errors.Wrap(ErrUnderfunded, err.Error())
	}

	optin := &OptIn{
		Metadata: &weave.Metadata{Schema: 1},
		Ticker:   msg.Ticker,
		Address:  addr,
	}
	if _, err := h.optins.Put(db, optInKey(msg.Ticker, addr), optin); err != nil {
		return nil, errors.Wrap(err, "cannot store opt-in")
	}
	return &weave.DeliverResult{}, nil
}

func (h OptInHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*OptInAssetMsg, error) {
	var msg OptInAssetMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	addr := msg.Address
	if len(addr) == 0 {
		addr = x.AnySigner(ctx, h.auth).Address()
	}
	switch err := h.optins.Has(db, optInKey(msg.Ticker, addr)); {
	case err == nil:
		return nil, errors.Wrapf(errors.ErrDuplicate, "%s already opted in for %s", addr, msg.Ticker)
	case errors.ErrNotFound.Is(err):
	default:
		return nil, errors.Wrap(err, "opt-in lookup")
	}
	return &msg, nil
}
