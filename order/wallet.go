package order

import "errors"

var (
	ErrNegativeAmount    = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Wallet splits a user's balances into a cold store and the hot balance
// trading draws on, per currency.
type Wallet struct {
	cold map[string]float64
	hot  map[string]float64
}

func NewWallet() *Wallet {
	return &Wallet{
		cold: make(map[string]float64),
		hot:  make(map[string]float64),
	}
}

func (w *Wallet) ColdBalance(currency string) float64 { return w.cold[currency] }
func (w *Wallet) HotBalance(currency string) float64  { return w.hot[currency] }

func (w *Wallet) DepositCold(currency string, amount float64) error {
	if amount <= 0 {
		return ErrNegativeAmount
	}
	w.cold[currency] += amount
	return nil
}

func (w *Wallet) DepositHot(currency string, amount float64) error {
	if amount <= 0 {
		return ErrNegativeAmount
	}
	w.hot[currency] += amount
	return nil
}

func (w *Wallet) WithdrawCold(currency string, amount float64) error {
	return withdraw(w.cold, currency, amount)
}

func (w *Wallet) WithdrawHot(currency string, amount float64) error {
	return withdraw(w.hot, currency, amount)
}

// TransferColdToHot moves funds into the tradable balance.
func (w *Wallet) TransferColdToHot(currency string, amount float64) error {
	if err := withdraw(w.cold, currency, amount); err != nil {
		return err
	}
	w.hot[currency] += amount
	return nil
}

func (w *Wallet) TransferHotToCold(currency string, amount float64) error {
	if err := withdraw(w.hot, currency, amount); err != nil {
		return err
	}
	w.cold[currency] += amount
	return nil
}

func withdraw(balances map[string]float64, currency string, amount float64) error {
	if amount <= 0 {
		return ErrNegativeAmount
	}
	if balances[currency] < amount {
		return ErrInsufficientFunds
	}
	balances[currency] -= amount
	return nil
}
