package order

// User is the per-account trading state allocated on first successful login.
type User struct {
	id       uint64
	username string
	canTrade bool
	wallet   *Wallet
}

func NewUser(id uint64, username string) *User {
	return &User{
		id:       id,
		username: username,
		canTrade: true,
		wallet:   NewWallet(),
	}
}

func (u *User) ID() uint64       { return u.id }
func (u *User) Username() string { return u.username }
func (u *User) Wallet() *Wallet  { return u.wallet }

func (u *User) CanTrade() bool         { return u.canTrade }
func (u *User) SetTradeStatus(ok bool) { u.canTrade = ok }
