package models

// Opaque credential issued by the API
// Expiry is never parsed locally
type Token struct {
	Token string `json:"token"`
}

// Token pair returned by login and registration
// The API emits them as JSON array: access first, refresh second
type TokenPair struct {
	Access  Token
	Refresh Token
}

// PairFromSlice converts API token array into pair, ok is false if array is too short
func PairFromSlice(tokens []Token) (TokenPair, bool) {
	if len(tokens) < 2 {
		return TokenPair{}, false
	}
	return TokenPair{Access: tokens[0], Refresh: tokens[1]}, true
}

// Slice returns pair in API order
func (p TokenPair) Slice() []Token {
	return []Token{p.Access, p.Refresh}
}
