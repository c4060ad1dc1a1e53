package model

import (
	"time"
)

// MemberView is a Member as shown to clients, with the rank name and the
// avatar URL resolved
type MemberView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	RankIndex int       `json:"rank_index"`
	Rank      string    `json:"rank"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberResult is the outcome of a roster mutation
type MemberResult struct {
	Member Member `json:"member"`
	// Changed is false if a promotion or demotion hit the end of the ladder
	Changed bool   `json:"changed"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}
