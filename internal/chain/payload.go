package chain

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is a tagged union over the small set of AH event shapes the
// EventInterpreter understands. Every other event type still gets persisted
// verbatim in events_{rc,ah} via RawEvent.Data; Payload parsing is only
// attempted for the families the interpreter dispatches on.
type Payload struct {
	Kind PayloadKind

	SessionReportReceived *SessionReportReceivedPayload
	EraPaid               *EraPaidPayload
	PhaseTransitioned     *PhaseTransitionedPayload
	ElectionSigned        *ElectionSignedPayload

	// Other holds the raw JSON verbatim when Kind == KindOther.
	Other string
}

type PayloadKind int

const (
	KindOther PayloadKind = iota
	KindSessionReportReceived
	KindEraPaid
	KindPhaseTransitioned
	KindElectionSigned
)

// activationTuple mirrors the optional (timestamp, era_id) pair carried by
// SessionReportReceived when a session boundary also starts a new era.
type activationTuple struct {
	Timestamp int64  `json:"0"`
	EraID     uint64 `json:"1"`
}

type SessionReportReceivedPayload struct {
	EndIndex              *uint64 `json:"endIndex"`
	ValidatorPointsCounts *uint64 `json:"validatorPointsCounts"`
	ActivationTimestamp   *activationTuple
}

type rawSessionReportReceived struct {
	EndIndex              *uint64               `json:"endIndex"`
	ValidatorPointsCounts *uint64               `json:"validatorPointsCounts"`
	ActivationTimestamp   []jsoniter.RawMessage `json:"activationTimestamp"`
}

type EraPaidPayload struct {
	EraIndex        *uint64 `json:"eraIndex"`
	ValidatorPayout string  `json:"validatorPayout"`
	Remainder       string  `json:"remainder"`
}

type PhaseTransitionedPayload struct {
	Round *uint64 `json:"round"`
	Phase string  `json:"phase"`
}

// ElectionSignedPayload covers the multiBlockElectionSigned.* family:
// Registered carries a score tuple, the rest only (round, submitter).
type ElectionSignedPayload struct {
	SubEvent  string // Registered, Rewarded, Slashed, Ejected, Discarded, Bailed
	Round     *uint64 `json:"round"`
	Submitter string  `json:"submitter"`

	// Score fields, populated only for Registered.
	MinimalStake    string `json:"minimalStake"`
	SumStake        string `json:"sumStake"`
	SumStakeSquared string `json:"sumStakeSquared"`
}

// ParsePayload decodes a RawEvent's data according to its type string,
// falling back to KindOther for anything the interpreter does not handle.
func ParsePayload(ev RawEvent) (Payload, error) {
	pallet := Pallet(ev.Type)
	method := Method(ev.Type)

	switch {
	case pallet == "stakingrcclient" && method == "SessionReportReceived":
		return parseSessionReportReceived(ev)
	case pallet == "staking" && method == "EraPaid":
		return parseEraPaid(ev)
	case (pallet == "multiblockelection" || pallet == "multiblockelectionverifier") && method == "PhaseTransitioned":
		return parsePhaseTransitioned(ev)
	case pallet == "multiblockelectionsigned":
		return parseElectionSigned(ev, method)
	default:
		return Payload{Kind: KindOther, Other: ev.Data}, nil
	}
}

func parseSessionReportReceived(ev RawEvent) (Payload, error) {
	var raw rawSessionReportReceived
	if err := json.UnmarshalFromString(ev.Data, &raw); err != nil {
		return Payload{}, errors.Wrap(err, "decoding SessionReportReceived")
	}
	p := &SessionReportReceivedPayload{
		EndIndex:              raw.EndIndex,
		ValidatorPointsCounts: raw.ValidatorPointsCounts,
	}
	if len(raw.ActivationTimestamp) == 2 {
		var ts int64
		var era uint64
		if err := json.Unmarshal(raw.ActivationTimestamp[0], &ts); err == nil {
			if err := json.Unmarshal(raw.ActivationTimestamp[1], &era); err == nil {
				p.ActivationTimestamp = &activationTuple{Timestamp: ts, EraID: era}
			}
		}
	}
	return Payload{Kind: KindSessionReportReceived, SessionReportReceived: p}, nil
}

func parseEraPaid(ev RawEvent) (Payload, error) {
	var p EraPaidPayload
	if err := json.UnmarshalFromString(ev.Data, &p); err != nil {
		return Payload{}, errors.Wrap(err, "decoding EraPaid")
	}
	return Payload{Kind: KindEraPaid, EraPaid: &p}, nil
}

func parsePhaseTransitioned(ev RawEvent) (Payload, error) {
	var p PhaseTransitionedPayload
	if err := json.UnmarshalFromString(ev.Data, &p); err != nil {
		return Payload{}, errors.Wrap(err, "decoding PhaseTransitioned")
	}
	return Payload{Kind: KindPhaseTransitioned, PhaseTransitioned: &p}, nil
}

func parseElectionSigned(ev RawEvent, subEvent string) (Payload, error) {
	var p ElectionSignedPayload
	if err := json.UnmarshalFromString(ev.Data, &p); err != nil {
		return Payload{}, errors.Wrap(err, "decoding multiBlockElectionSigned event")
	}
	p.SubEvent = subEvent
	return Payload{Kind: KindElectionSigned, ElectionSigned: &p}, nil
}
