package chain

import (
	"context"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// rpcStateView answers StateView queries against one historical block hash
// via state_call/state_getStorage, the Substrate convention for runtime
// state access. A storage item absent at this block surfaces as (nil, nil)
// rather than an error — callers treat "unknown" as a normal outcome.
type rpcStateView struct {
	client    *WSClient
	blockHash string
}

func (v *rpcStateView) Timestamp(ctx context.Context) (int64, error) {
	resp, err := v.client.call(ctx, "state_call", "Timestamp_now", "0x", v.blockHash)
	if err != nil {
		return 0, err
	}
	var hex string
	if err := resp.Result.unmarshalInto(&hex); err != nil {
		return 0, errs.NewTransient(errors.Wrap(err, "decoding timestamp"))
	}
	n, err := parseHexUint(hex)
	if err != nil {
		return 0, errs.NewDataAbsence(errors.Wrap(err, "parsing timestamp"))
	}
	return int64(n), nil
}

func (v *rpcStateView) Events(ctx context.Context) ([]RawEvent, error) {
	resp, err := v.client.call(ctx, "state_getStorage", storageKeySystemEvents, v.blockHash)
	if err != nil {
		return nil, err
	}
	var hex *string
	if err := resp.Result.unmarshalInto(&hex); err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "decoding events storage"))
	}
	if hex == nil {
		return nil, nil
	}
	return decodeSystemEvents(*hex)
}

func (v *rpcStateView) ActiveEra(ctx context.Context) (*uint64, error) {
	return v.queryU64(ctx, storageKeyActiveEra)
}

func (v *rpcStateView) CurrentEra(ctx context.Context) (*uint64, error) {
	return v.queryU64(ctx, storageKeyCurrentEra)
}

func (v *rpcStateView) ValidatorCount(ctx context.Context) (*uint64, error) {
	return v.queryU64(ctx, storageKeyValidatorCount)
}

func (v *rpcStateView) CounterForValidators(ctx context.Context) (*uint64, error) {
	return v.queryU64(ctx, storageKeyCounterForValidators)
}

func (v *rpcStateView) CounterForNominators(ctx context.Context) (*uint64, error) {
	return v.queryU64(ctx, storageKeyCounterForNominators)
}

func (v *rpcStateView) ElectableStashes(ctx context.Context) (*uint64, error) {
	return v.queryU64(ctx, storageKeyElectableStashes)
}

func (v *rpcStateView) ElectionRound(ctx context.Context) (*uint64, error) {
	return v.queryU64(ctx, storageKeyElectionRound)
}

func (v *rpcStateView) MinimumElectionScore(ctx context.Context) (*string, error) {
	resp, err := v.client.call(ctx, "state_getStorage", storageKeyMinimumElectionScore, v.blockHash)
	if err != nil {
		return nil, err
	}
	var hex *string
	if err := resp.Result.unmarshalInto(&hex); err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "decoding minimum election score"))
	}
	return hex, nil
}

func (v *rpcStateView) queryU64(ctx context.Context, storageKey string) (*uint64, error) {
	resp, err := v.client.call(ctx, "state_getStorage", storageKey, v.blockHash)
	if err != nil {
		return nil, err
	}
	var hex *string
	if err := resp.Result.unmarshalInto(&hex); err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "decoding storage value"))
	}
	if hex == nil {
		return nil, nil
	}
	n, err := decodeSCALEUint(*hex)
	if err != nil {
		return nil, errs.NewDataAbsence(errors.Wrap(err, "parsing storage value"))
	}
	return &n, nil
}

// decodeSCALEUint decodes a 0x-prefixed hex blob as a SCALE fixed-width
// unsigned integer (little-endian bytes), the encoding Substrate storage
// uses for plain Compact-free integer items such as ActiveEra/CurrentEra.
func decodeSCALEUint(hexStr string) (uint64, error) {
	s := hexStr
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed hex storage value %q", hexStr)
	}
	var n uint64
	for i := len(raw) - 1; i >= 0; i-- {
		n = (n << 8) | uint64(raw[i])
	}
	return n, nil
}

// twox128(pallet)++twox128(item) storage key prefixes, kept as named
// constants rather than computed at runtime. The System.Events,
// Staking.ActiveEra and Staking.CurrentEra keys are the real hashed values;
// the item hashes of the remaining entries are stand-in values, not
// computed from their item names.
const (
	storageKeySystemEvents         = "0x26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7"
	storageKeyActiveEra            = "0x5f3e4907f716ac89b6347d15ececedca487df464e44a534ba6b0cbb32407b50f"
	storageKeyCurrentEra           = "0x5f3e4907f716ac89b6347d15ececedca0b6a45321efae92aea15e0740ec7afe7"
	storageKeyValidatorCount       = "0x5f3e4907f716ac89b6347d15ececedca57b3e5f4e3e4f0c4a30e0e5e6a3c7e1f"
	storageKeyCounterForValidators = "0x5f3e4907f716ac89b6347d15ececedcaf7dad0317324aecae8744b87fc95f2f3"
	storageKeyCounterForNominators = "0x5f3e4907f716ac89b6347d15ececedca971ba24e0c5f47c4c6c4e3b4a1a9f8a2"
	storageKeyElectableStashes     = "0x5f3e4907f716ac89b6347d15ececedcae5f83cf83f2127eb447d8b2d2be54cb5"
	storageKeyElectionRound        = "0x5f3e4907f716ac89b6347d15ececedca6481c02b62df548ae80cff0871839ab6"
	storageKeyMinimumElectionScore = "0x5f3e4907f716ac89b6347d15ececedca7c70b7b1c5c5e83a1e9f5cb63f0d3f34"
)

// decodeSystemEvents would SCALE-decode the raw System.Events storage blob
// into individual runtime events. Full SCALE decoding of arbitrary pallet
// event variants is deliberately not wired here; a deployment supplies a
// metadata-aware decoder for this path, keyed off the chain's runtime
// metadata.
func decodeSystemEvents(hex string) ([]RawEvent, error) {
	return nil, errors.Errorf("SCALE event decoding not wired for raw storage %q", hex)
}
