package model

import (
	"math/big"
	"strconv"
)

// Account is the billing identity behind a chat. Private chats bill the user,
// group chats bill the group, so the identifier is derived from whichever id
// hosts the conversation.
type Account struct {
	ID      string // derived from chat/user id
	Address string // one1... deposit address
}

// AccountID derives the billing identifier for a chat. Group chats use the
// (negative) chat id, private chats the user id.
func AccountID(chatID, userID int64, chatType string) string {
	if chatType == "private" {
		return strconv.FormatInt(userID, 10)
	}
	return strconv.FormatInt(chatID, 10)
}

// Balance is an arbitrary-precision ONE amount in atto (1e-18) units, the
// denomination the chain RPC reports.
type Balance struct {
	Atto *big.Int
}

func ZeroBalance() Balance { return Balance{Atto: big.NewInt(0)} }

func (b Balance) Add(other Balance) Balance {
	if b.Atto == nil {
		return other
	}
	if other.Atto == nil {
		return b
	}
	return Balance{Atto: new(big.Int).Add(b.Atto, other.Atto)}
}

// ONE converts the atto amount to whole ONE as a float. Rounded keeps two
// decimals, matching what users see in balance messages.
func (b Balance) ONE(rounded bool) float64 {
	if b.Atto == nil {
		return 0
	}
	f := new(big.Float).SetInt(b.Atto)
	f.Quo(f, big.NewFloat(1e18))
	v, _ := f.Float64()
	if rounded {
		return float64(int64(v*100)) / 100
	}
	return v
}

// AttoFromONE converts whole ONE to atto units.
func AttoFromONE(one float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(one), big.NewFloat(1e18))
	i, _ := f.Int(nil)
	return i
}
