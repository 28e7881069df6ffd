package models

import (
	"strings"
	"time"
)

// AssetKey identifies a token on a network.
type AssetKey struct {
	AssetID string
	Network string
}

// NewAssetKey trims and lower-cases the network so lookups are stable.
func NewAssetKey(assetID, network string) AssetKey {
	return AssetKey{
		AssetID: strings.TrimSpace(assetID),
		Network: strings.ToLower(strings.TrimSpace(network)),
	}
}

func (k AssetKey) String() string {
	return k.Network + "/" + k.AssetID
}

// TokenJurisdictionAssignment binds a jurisdiction to an asset.
// For a given AssetKey at most one assignment has IsPrimary set.
type TokenJurisdictionAssignment struct {
	AssetID          string    `json:"asset_id"`
	Network          string    `json:"network"`
	JurisdictionCode string    `json:"jurisdiction_code"`
	IsPrimary        bool      `json:"is_primary"`
	AssignedBy       string    `json:"assigned_by"`
	Reason           string    `json:"reason,omitempty"`
	AssignedAt       time.Time `json:"assigned_at"`
}

// Key returns the asset this assignment belongs to.
func (a *TokenJurisdictionAssignment) Key() AssetKey {
	return AssetKey{AssetID: a.AssetID, Network: a.Network}
}

// OrderAssignments returns the primary assignment first, then the rest in the
// order given (assignment order). The input slice is not modified.
func OrderAssignments(in []*TokenJurisdictionAssignment) []*TokenJurisdictionAssignment {
	out := make([]*TokenJurisdictionAssignment, 0, len(in))
	for _, a := range in {
		if a.IsPrimary {
			out = append(out, a)
		}
	}
	for _, a := range in {
		if !a.IsPrimary {
			out = append(out, a)
		}
	}
	return out
}
