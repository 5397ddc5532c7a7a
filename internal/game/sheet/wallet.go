package sheet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInsufficientFunds is returned when a spend would overdraw a denomination.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Wallet is the coin purse. Each denomination is tracked separately; there
// is no automatic change-making between denominations.
type Wallet struct {
	Platinum int `json:"platinum"`
	Gold     int `json:"gold"`
	Electrum int `json:"electrum"`
	Silver   int `json:"silver"`
	Copper   int `json:"copper"`
}

// String formats the wallet as "Np Ng Ne Ns Nc", omitting zero denominations.
// An empty wallet formats as "0c".
func (w Wallet) String() string {
	var parts []string
	add := func(n int, suffix string) {
		if n != 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, suffix))
		}
	}
	add(w.Platinum, "p")
	add(w.Gold, "g")
	add(w.Electrum, "e")
	add(w.Silver, "s")
	add(w.Copper, "c")
	if len(parts) == 0 {
		return "0c"
	}
	return strings.Join(parts, " ")
}

// Spend deducts amount from the wallet, per denomination.
//
// Precondition: all amount fields must be >= 0.
// Postcondition: returns the updated Character, or ErrInsufficientFunds
// (wrapped with the short denomination) leaving c unchanged.
func Spend(c Character, amount Wallet) (Character, error) {
	w := c.Wallet
	checks := []struct {
		have, want int
		denom      string
	}{
		{w.Platinum, amount.Platinum, "platinum"},
		{w.Gold, amount.Gold, "gold"},
		{w.Electrum, amount.Electrum, "electrum"},
		{w.Silver, amount.Silver, "silver"},
		{w.Copper, amount.Copper, "copper"},
	}
	for _, chk := range checks {
		if chk.want > chk.have {
			return c, fmt.Errorf("%w: %d %s needed, %d held", ErrInsufficientFunds, chk.want, chk.denom, chk.have)
		}
	}

	out := c.Clone()
	out.Wallet.Platinum -= amount.Platinum
	out.Wallet.Gold -= amount.Gold
	out.Wallet.Electrum -= amount.Electrum
	out.Wallet.Silver -= amount.Silver
	out.Wallet.Copper -= amount.Copper
	return out, nil
}

// Deposit adds amount to the wallet.
//
// Precondition: all amount fields must be >= 0.
func Deposit(c Character, amount Wallet) Character {
	out := c.Clone()
	out.Wallet.Platinum += amount.Platinum
	out.Wallet.Gold += amount.Gold
	out.Wallet.Electrum += amount.Electrum
	out.Wallet.Silver += amount.Silver
	out.Wallet.Copper += amount.Copper
	return out
}
