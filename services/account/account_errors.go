package account

import "fmt"

var (
	ErrNoSnapshot  = fmt.Errorf("no customer snapshot loaded")
	ErrNotSignedIn = fmt.Errorf("no customer is signed in")
)
