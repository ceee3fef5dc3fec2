package types

import (
	"fmt"
)

// DepthHeader is the closed column schema of a per-(market, epoch) depth
// file. The column order is part of the output contract.
var DepthHeader = []string{
	"address",
	"takerVolumeLastEpoch",
	"makerVolumeLastEpoch",
	"takerVolume",
	"makerVolume",
	"ttmp",
	"makerPoints",
	"ampp",
	"takerPoints",
	"D_a",
	"D_b",
	"D_u",
	"D_u_d",
	"mp",
	"Vm",
	"mpPrime",
	"amp",
	"uptime",
}

// DepthRow is the immutable per (market, epoch, address) scoring record,
// the durable handoff between the depth computer and the aggregator.
type DepthRow struct {
	Address              string
	TakerVolumeLastEpoch float64
	MakerVolumeLastEpoch float64
	TakerVolume          float64
	MakerVolume          float64
	TTMP                 float64
	MakerPoints          float64
	Ampp                 float64
	TakerPoints          float64
	DepthAsk             float64 // D_a
	DepthBid             float64 // D_b
	DepthUtility         float64 // D_u
	DepthUtilityDecayed  float64 // D_u_d
	MP                   float64
	Vm                   float64
	MPPrime              float64
	Amp                  float64
	Uptime               float64
}

// Values returns the numeric columns in header order, address excluded.
func (r DepthRow) Values() []float64 {
	return []float64{
		r.TakerVolumeLastEpoch,
		r.MakerVolumeLastEpoch,
		r.TakerVolume,
		r.MakerVolume,
		r.TTMP,
		r.MakerPoints,
		r.Ampp,
		r.TakerPoints,
		r.DepthAsk,
		r.DepthBid,
		r.DepthUtility,
		r.DepthUtilityDecayed,
		r.MP,
		r.Vm,
		r.MPPrime,
		r.Amp,
		r.Uptime,
	}
}

// DepthRowFromValues rebuilds a row from its numeric columns in header
// order.
func DepthRowFromValues(address string, vals []float64) (DepthRow, error) {
	if len(vals) != len(DepthHeader)-1 {
		return DepthRow{}, fmt.Errorf("depth row for %s: want %d numeric columns, got %d", address, len(DepthHeader)-1, len(vals))
	}
	return DepthRow{
		Address:              address,
		TakerVolumeLastEpoch: vals[0],
		MakerVolumeLastEpoch: vals[1],
		TakerVolume:          vals[2],
		MakerVolume:          vals[3],
		TTMP:                 vals[4],
		MakerPoints:          vals[5],
		Ampp:                 vals[6],
		TakerPoints:          vals[7],
		DepthAsk:             vals[8],
		DepthBid:             vals[9],
		DepthUtility:         vals[10],
		DepthUtilityDecayed:  vals[11],
		MP:                   vals[12],
		Vm:                   vals[13],
		MPPrime:              vals[14],
		Amp:                  vals[15],
		Uptime:               vals[16],
	}, nil
}

// GrandTotalHeader is the closed column schema of a per-epoch grand
// totals file.
var GrandTotalHeader = []string{
	"address",
	"makerVolume",
	"takerVolume",
	"takerPoints",
	"makerPoints",
	"combinedVolume",
	"boostFromVolume",
	"boostFromNFT",
	"pointsGainedByReferring",
	"boostedTotals",
	"grandTotal",
	"share",
	"rank",
}

// UserTotals is the running per (epoch, address) aggregate across all
// markets. Mutated only by the aggregator that owns it.
type UserTotals struct {
	MakerVolume             float64
	TakerVolume             float64
	MakerVolumeLastEpoch    float64
	TakerVolumeLastEpoch    float64
	TakerPoints             float64
	MakerPoints             float64
	TTMP                    float64
	BoostFromNFT            float64
	BoostFromVolume         float64
	AfterBoost              float64
	PointsGainedByReferring float64
	GrandTotal              float64
}

// NewUserTotals returns the zero aggregate, with both boosts at their
// neutral value of 1.
func NewUserTotals() *UserTotals {
	return &UserTotals{BoostFromNFT: 1, BoostFromVolume: 1}
}

// IsZero reports whether the aggregate is indistinguishable from a fresh
// one, i.e. the address had no activity and gained nothing by referring.
func (t *UserTotals) IsZero() bool {
	return *t == *NewUserTotals()
}

// GrandTotalRow is one ranked line of the grand totals file.
type GrandTotalRow struct {
	Address                 string
	MakerVolume             float64
	TakerVolume             float64
	TakerPoints             float64
	MakerPoints             float64
	CombinedVolume          float64
	BoostFromVolume         float64
	BoostFromNFT            float64
	PointsGainedByReferring float64
	BoostedTotals           float64
	GrandTotal              float64
	Share                   float64
	Rank                    int
}

// VolumeRow is one line of a per-epoch maker or taker volume file.
type VolumeRow struct {
	Address string
	USD     float64
}
