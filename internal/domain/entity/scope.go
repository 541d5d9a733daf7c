package entity

import "sort"

type ScopeKind string

const (
	ScopeGroup  ScopeKind = "group"
	ScopeDirect ScopeKind = "direct"
)

// Scope names the message collection an operation targets: the site group
// chat, or the direct thread between SelfID and OtherUserID inside a site.
type Scope struct {
	Kind        ScopeKind `json:"kind"`
	SiteID      string    `json:"site_id"`
	SelfID      string    `json:"self_id,omitempty"`
	OtherUserID string    `json:"other_user_id,omitempty"`
}

func GroupScope(siteID string) Scope {
	return Scope{Kind: ScopeGroup, SiteID: siteID}
}

func DirectScope(siteID, selfID, otherUserID string) Scope {
	return Scope{Kind: ScopeDirect, SiteID: siteID, SelfID: selfID, OtherUserID: otherUserID}
}

func (s Scope) IsDirect() bool {
	return s.Kind == ScopeDirect
}

func (s Scope) PairKey() string {
	if !s.IsDirect() {
		return ""
	}
	return PairKey(s.SelfID, s.OtherUserID)
}

// Key is stable for both participants of a direct thread.
func (s Scope) Key() string {
	if s.IsDirect() {
		return "direct:" + s.SiteID + ":" + s.PairKey()
	}
	return "group:" + s.SiteID
}

// PairKey is the order-independent key of a participant pair.
func PairKey(a, b string) string {
	pair := SortedPair(a, b)
	return pair[0] + "_" + pair[1]
}

func SortedPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}
