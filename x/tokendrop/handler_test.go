package tokendrop

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
	"github.com/stretchr/testify/require"
)

// dropEnv wires a drop engine instance with a real cash controller and
// in-memory gating collaborators.
type dropEnv struct {
	t          testing.TB
	db         store.CacheableKVStore
	ctrl       cash.BaseController
	assets     memAssetRegistry
	names      *memNameService
	maintainer weave.Address
	collector  weave.Address
}

func newDropEnv(t testing.TB) *dropEnv {
	db := store.MemStore()
	migration.MustInitPkg(db, "tokendrop", "cash")

	env := &dropEnv{
		t:          t,
		db:         db,
		ctrl:       cash.NewController(cash.NewBucket()),
		assets:     memAssetRegistry{},
		names:      &memNameService{names: map[uint64]string{}, records: map[uint64]*NameRecord{}},
		maintainer: weavetest.NewCondition().Address(),
		collector:  weavetest.NewCondition().Address(),
	}
	conf := Configuration{
		Metadata:     &weave.Metadata{Schema: 1},
		Maintainer:   env.maintainer,
		FeeCollector: env.collector,
		CreateFee:    coin.NewCoin(0, 100000, "IOV"),
		ClaimFee:     coin.NewCoin(0, 60000, "IOV"),
	}
	if err := gconf.Save(db, "tokendrop", &conf); err != nil {
		t.Fatalf("save configuration: %s", err)
	}
	return env
}

func (e *dropEnv) at(t time.Time) weave.Context {
	return weave.WithBlockTime(context.Background(), t)
}

func (e *dropEnv) fund(addr weave.Address, coins ...coin.Coin) {
	e.t.Helper()
	for _, c := range coins {
		if err := e.ctrl.CoinMint(e.db, addr, c); err != nil {
			e.t.Fatalf("mint %s: %s", c, err)
		}
	}
}

func (e *dropEnv) optIn(ticker string, addr weave.Address) {
	e.t.Helper()
	optin := &OptIn{
		Metadata: &weave.Metadata{Schema: 1},
		Ticker:   ticker,
		Address:  addr,
	}
	if _, err := NewOptInBucket().Put(e.db, optInKey(ticker, addr), optin); err != nil {
		e.t.Fatalf("store opt-in: %s", err)
	}
}

func (e *dropEnv) createHandler(auth x.Authenticator) CreateDropHandler {
	return CreateDropHandler{
		auth:   auth,
		drops:  NewDropBucket(),
		optins: NewOptInBucket(),
		ctrl:   e.ctrl,
		names:  e.names,
	}
}

func (e *dropEnv) claimHandler(auth x.Authenticator) ClaimDropHandler {
	return ClaimDropHandler{
		auth:     auth,
		drops:    NewDropBucket(),
		receipts: NewReceiptBucket(),
		optins:   NewOptInBucket(),
		ctrl:     e.ctrl,
		gate:     gatekeeper{assets: e.assets, names: e.names, ctrl: e.ctrl},
	}
}

// tickerBalance returns the amount of the given token the address holds, a
// zero coin when the wallet does not exist.
func (e *dropEnv) tickerBalance(addr weave.Address, ticker string) coin.Coin {
	e.t.Helper()
	balance, err := e.ctrl.Balance(e.db, addr)
	if err != nil {
		if errors.ErrEmpty.Is(err) || errors.ErrNotFound.Is(err) {
			return coin.NewCoin(0, 0, ticker)
		}
		e.t.Fatalf("balance: %s", err)
	}
	for _, c := range balance {
		if c.Ticker == ticker {
			return *c
		}
	}
	return coin.NewCoin(0, 0, ticker)
}

func createDropMsg(expiry weave.UnixTime) *CreateDropMsg {
	return &CreateDropMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Config: &DropConfig{
			Ticker:         "TKR",
			AmountPerClaim: coin.NewCoinp(1000, 0, "TKR"),
			Expiry:         expiry,
			GatingType:     GatingType_NONE,
		},
		Total: coin.NewCoinp(4000, 0, "TKR"),
	}
}

func TestCreateDropHandler(t *testing.T) {
	now := time.Now().UTC()
	creator := weavetest.NewCondition()

	cases := map[string]struct {
		Init           func(e *dropEnv)
		Msg            func() *CreateDropMsg
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
	}{
		"success": {
			Msg: func() *CreateDropMsg {
				return createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour)))
			},
		},
		"expiry less than a day out": {
			Msg: func() *CreateDropMsg {
				return createDropMsg(weave.AsUnixTime(now.Add(6 * time.Hour)))
			},
			WantCheckErr:   errors.ErrInput,
			WantDeliverErr: errors.ErrInput,
		},
		"expiry more than a week out": {
			Msg: func() *CreateDropMsg {
				return createDropMsg(weave.AsUnixTime(now.Add(8 * 24 * time.Hour)))
			},
			WantCheckErr:   errors.ErrInput,
			WantDeliverErr: errors.ErrInput,
		},
		"expiry within the week tolerance": {
			Msg: func() *CreateDropMsg {
				return createDropMsg(weave.AsUnixTime(now.Add(7*24*time.Hour + 10*time.Minute)))
			},
		},
		"treasury not opted in": {
			Msg: func() *CreateDropMsg {
				msg := createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour)))
				msg.Config.Ticker = "GEM"
				msg.Config.AmountPerClaim = coin.NewCoinp(1000, 0, "GEM")
				msg.Total = coin.NewCoinp(4000, 0, "GEM")
				return msg
			},
			WantCheckErr:   errors.ErrState,
			WantDeliverErr: errors.ErrState,
		},
		"missing gating record": {
			Msg: func() *CreateDropMsg {
				msg := createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour)))
				msg.Config.GatingType = GatingType_RECORD_SEGMENT
				msg.Config.GatingRecordName = "ghost"
				msg.Config.GatingRecordId = 7
				return msg
			},
			WantCheckErr:   errors.ErrNotFound,
			WantDeliverErr: errors.ErrNotFound,
		},
		"underfunded creator": {
			Init: func(e *dropEnv) {
				// Withdraw the tokens minted by the default setup.
				if err := e.ctrl.MoveCoins(e.db, creator.Address(), weavetest.NewCondition().Address(), coin.NewCoin(3500, 0, "TKR")); err != nil {
					e.t.Fatalf("withdraw: %s", err)
				}
			},
			Msg: func() *CreateDropMsg {
				return createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour)))
			},
			WantDeliverErr: ErrUnderfunded,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			env := newDropEnv(t)
			env.fund(creator.Address(), coin.NewCoin(1, 0, "IOV"), coin.NewCoin(4000, 0, "TKR"), coin.NewCoin(4000, 0, "GEM"))
			env.optIn("TKR", TreasuryAddress())
			if tc.Init != nil {
				tc.Init(env)
			}

			h := env.createHandler(&weavetest.Auth{Signer: creator})
			ctx := env.at(now)
			tx := &weavetest.Tx{Msg: tc.Msg()}

			cache := env.db.CacheWrap()
			if _, err := h.Check(ctx, cache, tx); !tc.WantCheckErr.Is(err) {
				t.Fatalf("unexpected check error: %+v", err)
			}
			cache.Discard()
			res, err := h.Deliver(ctx, env.db, tx)
			if !tc.WantDeliverErr.Is(err) {
				t.Fatalf("unexpected deliver error: %+v", err)
			}
			if tc.WantDeliverErr == nil {
				assert.Equal(t, dropID(1), res.Data)
			}
		})
	}
}

func TestCreateDropStoresFundedDrop(t *testing.T) {
	env := newDropEnv(t)
	now := time.Now().UTC()
	creator := weavetest.NewCondition()
	env.fund(creator.Address(), coin.NewCoin(1, 0, "IOV"), coin.NewCoin(4000, 0, "TKR"))
	env.optIn("TKR", TreasuryAddress())

	h := env.createHandler(&weavetest.Auth{Signer: creator})
	res, err := h.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour))),
	})
	require.NoError(t, err)

	var drop Drop
	require.NoError(t, NewDropBucket().One(env.db, res.Data, &drop))
	assert.Equal(t, creator.Address(), drop.Creator)
	assert.Equal(t, int64(4), drop.MaxClaims)
	assert.Equal(t, int64(0), drop.NumClaims)
	assert.Equal(t, coin.NewCoinp(4000, 0, "TKR"), drop.Remaining)

	// The drop account holds the full distribution amount and the rent
	// for the record, the index entry and all four receipt slots.
	dropAddr := DropCondition(res.Data).Address()
	assert.Equal(t, coin.NewCoin(4000, 0, "TKR"), env.tickerBalance(dropAddr, "TKR"))
	rent, err := DropCreateRent("IOV", 4)
	require.NoError(t, err)
	assert.Equal(t, rent, env.tickerBalance(dropAddr, "IOV"))

	// The creation fee is split between maintainer and collector.
	assert.Equal(t, coin.NewCoin(0, 50000, "IOV"), env.tickerBalance(env.maintainer, "IOV"))
	assert.Equal(t, coin.NewCoin(0, 50000, "IOV"), env.tickerBalance(env.collector, "IOV"))

	// The ticker is now occupied.
	_, err = h.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: createDropMsg(weave.AsUnixTime(now.Add(72 * time.Hour))),
	})
	if !errors.ErrDuplicate.Is(err) {
		t.Fatalf("want duplicate error, got %+v", err)
	}
}

func TestClaimDropHandler(t *testing.T) {
	env := newDropEnv(t)
	now := time.Now().UTC()
	creator := weavetest.NewCondition()
	alice := weavetest.NewCondition()
	bobby := weavetest.NewCondition()

	env.fund(creator.Address(), coin.NewCoin(1, 0, "IOV"), coin.NewCoin(4000, 0, "TKR"))
	env.fund(alice.Address(), coin.NewCoin(1, 0, "IOV"))
	env.fund(bobby.Address(), coin.NewCoin(1, 0, "IOV"))
	env.optIn("TKR", TreasuryAddress())
	env.optIn("TKR", alice.Address())

	ch := env.createHandler(&weavetest.Auth{Signer: creator})
	res, err := ch.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour))),
	})
	require.NoError(t, err)
	dropAddr := DropCondition(res.Data).Address()
	rentBefore := env.tickerBalance(dropAddr, "IOV")

	claimTx := &weavetest.Tx{Msg: &ClaimDropMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DropId:   1,
	}}

	// The creator cannot claim its own drop.
	_, err = env.claimHandler(&weavetest.Auth{Signer: creator}).Deliver(env.at(now), env.db, claimTx)
	if !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %+v", err)
	}

	// Claiming without an opt-in is rejected.
	_, err = env.claimHandler(&weavetest.Auth{Signer: bobby}).Deliver(env.at(now), env.db, claimTx)
	if !errors.ErrState.Is(err) {
		t.Fatalf("want state error, got %+v", err)
	}

	// A successful claim pays out and leaves a receipt.
	_, err = env.claimHandler(&weavetest.Auth{Signer: alice}).Deliver(env.at(now), env.db, claimTx)
	require.NoError(t, err)
	assert.Equal(t, coin.NewCoin(1000, 0, "TKR"), env.tickerBalance(alice.Address(), "TKR"))

	var drop Drop
	require.NoError(t, NewDropBucket().One(env.db, res.Data, &drop))
	assert.Equal(t, int64(1), drop.NumClaims)
	assert.Equal(t, coin.NewCoinp(3000, 0, "TKR"), drop.Remaining)

	var receipt ClaimReceipt
	require.NoError(t, NewReceiptBucket().One(env.db, receiptKey(1, alice.Address()), &receipt))
	assert.Equal(t, alice.Address(), receipt.Claimant)

	// One receipt rent is retained on the drop account, half the fee
	// goes to the maintainer, the rest to the collector.
	rentAfter := env.tickerBalance(dropAddr, "IOV")
	wantRent, err := rentBefore.Add(ReceiptRent("IOV"))
	require.NoError(t, err)
	assert.Equal(t, wantRent, rentAfter)

	// Claiming twice is impossible.
	_, err = env.claimHandler(&weavetest.Auth{Signer: alice}).Deliver(env.at(now), env.db, claimTx)
	if !ErrAlreadyClaimed.Is(err) {
		t.Fatalf("want already claimed, got %+v", err)
	}

	// An expired drop cannot be claimed.
	env.optIn("TKR", bobby.Address())
	_, err = env.claimHandler(&weavetest.Auth{Signer: bobby}).Deliver(env.at(now.Add(72*time.Hour)), env.db, claimTx)
	if !errors.ErrExpired.Is(err) {
		t.Fatalf("want expired, got %+v", err)
	}
}

func TestClaimUntilExhausted(t *testing.T) {
	env := newDropEnv(t)
	now := time.Now().UTC()
	creator := weavetest.NewCondition()

	env.fund(creator.Address(), coin.NewCoin(1, 0, "IOV"), coin.NewCoin(4000, 0, "TKR"))
	env.optIn("TKR", TreasuryAddress())

	ch := env.createHandler(&weavetest.Auth{Signer: creator})
	res, err := ch.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour))),
	})
	require.NoError(t, err)

	claimTx := &weavetest.Tx{Msg: &ClaimDropMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DropId:   1,
	}}
	for i := 0; i < 4; i++ {
		claimant := weavetest.NewCondition()
		env.fund(claimant.Address(), coin.NewCoin(1, 0, "IOV"))
		env.optIn("TKR", claimant.Address())
		_, err := env.claimHandler(&weavetest.Auth{Signer: claimant}).Deliver(env.at(now), env.db, claimTx)
		require.NoError(t, err)
	}

	var drop Drop
	require.NoError(t, NewDropBucket().One(env.db, res.Data, &drop))
	assert.Equal(t, int64(4), drop.NumClaims)
	assert.Equal(t, true, drop.Exhausted())
	assert.Equal(t, coin.NewCoinp(0, 0, "TKR"), drop.Remaining)

	// The fifth claimant is turned away.
	latecomer := weavetest.NewCondition()
	env.fund(latecomer.Address(), coin.NewCoin(1, 0, "IOV"))
	env.optIn("TKR", latecomer.Address())
	_, err = env.claimHandler(&weavetest.Auth{Signer: latecomer}).Deliver(env.at(now), env.db, claimTx)
	if !errors.ErrState.Is(err) {
		t.Fatalf("want state error, got %+v", err)
	}
}

func TestCancelAndReclaim(t *testing.T) {
	env := newDropEnv(t)
	now := time.Now().UTC()
	creator := weavetest.NewCondition()
	alice := weavetest.NewCondition()
	stranger := weavetest.NewCondition()

	env.fund(creator.Address(), coin.NewCoin(1, 0, "IOV"), coin.NewCoin(4000, 0, "TKR"))
	env.fund(alice.Address(), coin.NewCoin(1, 0, "IOV"))
	env.optIn("TKR", TreasuryAddress())
	env.optIn("TKR", alice.Address())

	ch := env.createHandler(&weavetest.Auth{Signer: creator})
	res, err := ch.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour))),
	})
	require.NoError(t, err)
	dropAddr := DropCondition(res.Data).Address()

	_, err = env.claimHandler(&weavetest.Auth{Signer: alice}).Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: &ClaimDropMsg{Metadata: &weave.Metadata{Schema: 1}, DropId: 1},
	})
	require.NoError(t, err)

	cancelTx := &weavetest.Tx{Msg: &CancelDropMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DropId:   1,
	}}

	// Only the creator can cancel.
	strangerCancel := CancelDropHandler{auth: &weavetest.Auth{Signer: stranger}, drops: NewDropBucket(), ctrl: env.ctrl}
	_, err = strangerCancel.Deliver(env.at(now), env.db, cancelTx)
	if !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %+v", err)
	}

	creatorTKR := env.tickerBalance(creator.Address(), "TKR")
	creatorIOV := env.tickerBalance(creator.Address(), "IOV")

	cancel := CancelDropHandler{auth: &weavetest.Auth{Signer: creator}, drops: NewDropBucket(), ctrl: env.ctrl}
	_, err = cancel.Deliver(env.at(now), env.db, cancelTx)
	require.NoError(t, err)

	// Remaining tokens are back with the creator.
	wantTKR, err := creatorTKR.Add(coin.NewCoin(3000, 0, "TKR"))
	require.NoError(t, err)
	assert.Equal(t, wantTKR, env.tickerBalance(creator.Address(), "TKR"))

	// Rent minus the reserve for one outstanding receipt is refunded.
	refund, err := DropCreateRent("IOV", 4)
	require.NoError(t, err)
	wantIOV, err := creatorIOV.Add(refund)
	require.NoError(t, err)
	assert.Equal(t, wantIOV, env.tickerBalance(creator.Address(), "IOV"))
	assert.Equal(t, ReceiptRent("IOV"), env.tickerBalance(dropAddr, "IOV"))

	// The drop record is gone.
	var gone Drop
	if err := NewDropBucket().One(env.db, res.Data, &gone); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}

	// Receipt reclamation is permissionless and works with the drop
	// record absent. The reward goes to the submitted receiver.
	reclaim := ReclaimReceiptHandler{
		auth:     &weavetest.Auth{Signer: stranger},
		drops:    NewDropBucket(),
		receipts: NewReceiptBucket(),
		ctrl:     env.ctrl,
	}
	reclaimTx := &weavetest.Tx{Msg: &ReclaimReceiptMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DropId:   1,
		Claimant: alice.Address(),
	}}
	_, err = reclaim.Deliver(env.at(now), env.db, reclaimTx)
	require.NoError(t, err)
	assert.Equal(t, ReceiptRent("IOV"), env.tickerBalance(stranger.Address(), "IOV"))
	assert.Equal(t, coin.NewCoin(0, 0, "IOV"), env.tickerBalance(dropAddr, "IOV"))

	// The receipt can be reclaimed only once.
	if _, err := reclaim.Deliver(env.at(now), env.db, reclaimTx); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
}

func TestCleanupDropHandler(t *testing.T) {
	env := newDropEnv(t)
	now := time.Now().UTC()
	creator := weavetest.NewCondition()
	janitor := weavetest.NewCondition()

	env.fund(creator.Address(), coin.NewCoin(1, 0, "IOV"), coin.NewCoin(4000, 0, "TKR"))
	env.optIn("TKR", TreasuryAddress())

	ch := env.createHandler(&weavetest.Auth{Signer: creator})
	res, err := ch.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour))),
	})
	require.NoError(t, err)

	h := CleanupDropHandler{auth: &weavetest.Auth{Signer: janitor}, drops: NewDropBucket(), ctrl: env.ctrl}
	cleanupTx := &weavetest.Tx{Msg: &CleanupDropMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DropId:   1,
	}}

	// A live drop cannot be cleaned up.
	if _, err := h.Deliver(env.at(now), env.db, cleanupTx); !ErrNotTerminal.Is(err) {
		t.Fatalf("want not terminal, got %+v", err)
	}

	// Once expired anyone can, the refunds go to the creator.
	creatorTKR := env.tickerBalance(creator.Address(), "TKR")
	_, err = h.Deliver(env.at(now.Add(72*time.Hour)), env.db, cleanupTx)
	require.NoError(t, err)
	wantTKR, err := creatorTKR.Add(coin.NewCoin(4000, 0, "TKR"))
	require.NoError(t, err)
	assert.Equal(t, wantTKR, env.tickerBalance(creator.Address(), "TKR"))
	assert.Equal(t, coin.NewCoin(0, 0, "TKR"), env.tickerBalance(janitor.Address(), "TKR"))

	var gone Drop
	if err := NewDropBucket().One(env.db, res.Data, &gone); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
}

func TestSupersedeTerminalDrop(t *testing.T) {
	env := newDropEnv(t)
	now := time.Now().UTC()
	creator := weavetest.NewCondition()
	successor := weavetest.NewCondition()

	env.fund(creator.Address(), coin.NewCoin(1, 0, "IOV"), coin.NewCoin(4000, 0, "TKR"))
	env.fund(successor.Address(), coin.NewCoin(1, 0, "IOV"), coin.NewCoin(4000, 0, "TKR"))
	env.optIn("TKR", TreasuryAddress())

	ch := env.createHandler(&weavetest.Auth{Signer: creator})
	_, err := ch.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: createDropMsg(weave.AsUnixTime(now.Add(48 * time.Hour))),
	})
	require.NoError(t, err)

	// After the first drop expired a new one for the same token tears
	// the leftover down and takes its place, refunding the old creator.
	later := now.Add(72 * time.Hour)
	creatorTKR := env.tickerBalance(creator.Address(), "TKR")
	sh := env.createHandler(&weavetest.Auth{Signer: successor})
	res, err := sh.Deliver(env.at(later), env.db, &weavetest.Tx{
		Msg: createDropMsg(weave.AsUnixTime(later.Add(48 * time.Hour))),
	})
	require.NoError(t, err)
	assert.Equal(t, dropID(2), res.Data)

	wantTKR, err := creatorTKR.Add(coin.NewCoin(4000, 0, "TKR"))
	require.NoError(t, err)
	assert.Equal(t, wantTKR, env.tickerBalance(creator.Address(), "TKR"))

	var old Drop
	if err := NewDropBucket().One(env.db, dropID(1), &old); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
	var drop Drop
	require.NoError(t, NewDropBucket().One(env.db, dropID(2), &drop))
	assert.Equal(t, successor.Address(), drop.Creator)
}

func TestOptInHandler(t *testing.T) {
	env := newDropEnv(t)
	now := time.Now().UTC()
	signer := weavetest.NewCondition()
	env.fund(signer.Address(), coin.NewCoin(1, 0, "IOV"))

	h := OptInHandler{auth: &weavetest.Auth{Signer: signer}, optins: NewOptInBucket(), ctrl: env.ctrl}

	// Opting in the own address.
	_, err := h.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: &OptInAssetMsg{Metadata: &weave.Metadata{Schema: 1}, Ticker: "TKR"},
	})
	require.NoError(t, err)
	require.NoError(t, NewOptInBucket().Has(env.db, optInKey("TKR", signer.Address())))

	// The rent went to the collector.
	assert.Equal(t, OptInRent("IOV"), env.tickerBalance(env.collector, "IOV"))

	// Doing it twice fails.
	_, err = h.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: &OptInAssetMsg{Metadata: &weave.Metadata{Schema: 1}, Ticker: "TKR"},
	})
	if !errors.ErrDuplicate.Is(err) {
		t.Fatalf("want duplicate, got %+v", err)
	}

	// Anyone can fund the treasury opt-in.
	_, err = h.Deliver(env.at(now), env.db, &weavetest.Tx{
		Msg: &OptInAssetMsg{
			Metadata: &weave.Metadata{Schema: 1},
			Ticker:   "TKR",
			Address:  TreasuryAddress(),
		},
	})
	require.NoError(t, err)
	require.NoError(t, NewOptInBucket().Has(env.db, optInKey("TKR", TreasuryAddress())))
}
