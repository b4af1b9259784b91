package model

import "time"

// ReferralCode is the public identifier a user shares to attribute
// signups to themselves. Created lazily, immutable once issued.
type ReferralCode struct {
	UserID    string    `json:"userId"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReferralLink records which code referred which user. A child holds at
// most one link, ever; the first bind wins.
type ReferralLink struct {
	Child     string    `json:"child"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

type TierCounts struct {
	T1 int `json:"t1"`
	T2 int `json:"t2"`
	T3 int `json:"t3"`
}

// ReferralTree holds the descendants of a code up to three tiers out.
type ReferralTree struct {
	Tier1  []string   `json:"tier1"`
	Tier2  []string   `json:"tier2"`
	Tier3  []string   `json:"tier3"`
	Counts TierCounts `json:"counts"`
}
